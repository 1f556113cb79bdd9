package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return v, nil
}

// queryPositiveInt returns 0 when key is absent so the use case applies its
// default. A present value must be an integer >= 1; "?page=0" is an error.
func queryPositiveInt(c *gin.Context, key string) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be >= 1", key)
	}
	return v, nil
}

func queryInt64Ptr(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

// queryCSV accepts both repeated keys and comma separated values.
func queryCSV(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func pathUUID(c *gin.Context, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(key)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", key)
	}
	return id, nil
}

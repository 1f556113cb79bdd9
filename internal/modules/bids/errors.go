package bids

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/apierr"
)

// toAPIError maps aggregate failures onto transport errors. Internal causes
// never reach the client.
func toAPIError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		return apierr.Internal("INTERNAL")
	}
	code := string(aggErr.Reason)
	msg := fmt.Errorf("%s", aggErr.Message)
	switch aggErr.Code {
	case domainagg.CodeValidation:
		return apierr.New(http.StatusBadRequest, orCode(code, "VALIDATION_FAILED"), msg)
	case domainagg.CodeNotFound:
		return apierr.New(http.StatusNotFound, orCode(code, "NOT_FOUND"), fmt.Errorf("not found"))
	case domainagg.CodeForbidden:
		return apierr.New(http.StatusForbidden, orCode(code, "FORBIDDEN"), fmt.Errorf("forbidden"))
	case domainagg.CodeConflict:
		return apierr.New(http.StatusConflict, orCode(code, "CONFLICT"), msg)
	case domainagg.CodePreconditionFailed:
		return apierr.New(http.StatusConflict, orCode(code, "PRECONDITION_FAILED"), fmt.Errorf("precondition failed"))
	case domainagg.CodeRetryable:
		return apierr.Unavailable("RETRY", fmt.Errorf("temporarily unavailable, retry"))
	}
	return apierr.Internal("INTERNAL")
}

func orCode(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}

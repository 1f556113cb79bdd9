package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

// Claims are issued by the identity provider. ProfileID is the attorney
// profile for attorney tokens.
type Claims struct {
	Role      string `json:"role"`
	ProfileID string `json:"profile_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAuthMiddleware(log *logger.Logger, secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("middleware", "AuthMiddleware"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", errors.New("missing or invalid token"))
			return
		}
		id, err := am.identityFromToken(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", errors.New("missing or invalid token"))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithIdentity(c.Request.Context(), id))
		c.Set("user_id", id.UserID.String())
		c.Next()
	}
}

// RequireRole rejects authenticated callers without one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ctxutil.GetIdentity(c.Request.Context())
		if id != nil {
			for _, r := range roles {
				if id.Role == r {
					c.Next()
					return
				}
			}
		}
		response.RespondError(c, http.StatusForbidden, "FORBIDDEN", errors.New("forbidden"))
	}
}

func (am *AuthMiddleware) identityFromToken(tokenString string) (*ctxutil.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	id := &ctxutil.Identity{UserID: userID, Role: strings.ToLower(strings.TrimSpace(claims.Role))}
	switch id.Role {
	case ctxutil.RoleClient, ctxutil.RoleAdmin:
	case ctxutil.RoleAttorney:
		profileID, err := uuid.Parse(claims.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("attorney token without profile_id")
		}
		id.AttorneyProfileID = profileID
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return id, nil
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "timesheet/backend/internal/errors"
	"timesheet/backend/internal/service"
)

const UserIDContextKey = "userID"

// TokenQueryParam carries the bearer token for clients that cannot set
// headers, such as calendar apps subscribed to the .ics feed. Only FeedAuth
// reads it.
const TokenQueryParam = "token"

// Auth requires a bearer token in the Authorization header.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, false)
}

// FeedAuth is Auth for read-only feeds. A GET without an Authorization header
// may pass the token as ?token= instead.
func FeedAuth(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, true)
}

func authenticate(authService *service.AuthService, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c, allowQuery)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		userID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, *apperrors.APIError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if allowQuery && c.Request.Method == http.MethodGet {
			if token := strings.TrimSpace(c.Query(TokenQueryParam)); token != "" {
				return token, nil
			}
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	value, ok := c.Get(UserIDContextKey)
	if !ok {
		return ""
	}
	userID, ok := value.(string)
	if !ok {
		return ""
	}
	return userID
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	body := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": body})
}

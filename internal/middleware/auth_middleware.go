package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/database/service"
)

const userIDKey = "userID"

// AuthMiddleware handles JWT validation
type AuthMiddleware struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(service service.AuthService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
		logger:  logger,
	}
}

// RequireAuth validates the bearer token and sets userID in context
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			m.logger.Warn("⚠️ [Middleware] Missing Authorization header", "path", c.Request.URL.Path)
			abortUnauthorized(c, "Authentication credentials were not provided.")
			return
		}
		if m.authenticate(c) {
			c.Next()
		}
	}
}

// ReadOnlyOrAuth lets safe methods through anonymously and requires a token for writes.
// A token that is sent but invalid is rejected on every method.
func (m *AuthMiddleware) ReadOnlyOrAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if isSafeMethod(c.Request.Method) {
				c.Next()
				return
			}
			m.logger.Warn("⚠️ [Middleware] Anonymous write rejected", "method", c.Request.Method, "path", c.Request.URL.Path)
			abortUnauthorized(c, "Authentication credentials were not provided.")
			return
		}
		if m.authenticate(c) {
			c.Next()
		}
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		m.logger.Warn("⚠️ [Middleware] Invalid Authorization header format")
		abortUnauthorized(c, "Invalid authorization header format")
		return false
	}

	userID, err := m.service.ValidateAccessToken(parts[1])
	if err != nil {
		m.logger.Warn("⚠️ [Middleware] Invalid token", "error", err)
		abortUnauthorized(c, "Given token not valid for any token type")
		return false
	}

	c.Set(userIDKey, userID)
	m.logger.Debug("✅ [Middleware] Token validated", "user_id", userID)
	return true
}

// UserID returns the authenticated user, if any
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

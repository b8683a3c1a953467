package middleware

import (
	"net/http"
	"strings"

	"actionhub/internal/actions"
	"actionhub/internal/utils"
	"actionhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

var log = logger.New("auth_middleware")

// Context keys set by the middlewares in this package.
const (
	keyUserID     = "userID"
	keyUsername   = "username"
	keyCredential = "credential"
	keyLocale     = "locale"
)

type AuthMiddleware struct {
	jwtSecret  string
	cookieName string
}

func NewAuthMiddleware(jwtSecret, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:  jwtSecret,
		cookieName: cookieName,
	}
}

// Middleware requires a valid token from the Authorization header or the
// auth cookie. The raw token is kept as the caller credential so backend
// calls run with the caller's own permissions.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, problem := m.extractToken(c)
			if problem != "" {
				return unauthenticated(c, problem)
			}

			claims, err := utils.ParseJWT(m.jwtSecret, token)
			if err != nil {
				log.Debug("rejected token from %s: %v", c.RealIP(), err)
				return unauthenticated(c, "Invalid token")
			}

			c.Set(keyUserID, claims.UserID())
			c.Set(keyUsername, claims.Username)
			c.Set(keyCredential, token)
			return next(c)
		}
	}
}

// extractToken returns the token, or a message describing why there is none.
func (m *AuthMiddleware) extractToken(c echo.Context) (string, string) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
			return "", "Invalid authorization header format"
		}
		return tokenParts[1], ""
	}
	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, ""
		}
	}
	return "", "Missing authorization header"
}

func unauthenticated(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, actions.Failed(actions.CodeUnauthenticated, message))
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get(keyUserID).(string); ok {
		return id
	}
	return ""
}

func GetUsername(c echo.Context) string {
	if name, ok := c.Get(keyUsername).(string); ok {
		return name
	}
	return ""
}

func GetCredential(c echo.Context) string {
	if token, ok := c.Get(keyCredential).(string); ok {
		return token
	}
	return ""
}

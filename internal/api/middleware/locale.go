package middleware

import (
	"actionhub/internal/notify"

	"github.com/labstack/echo/v4"
)

// LocaleCookie is the cookie the web client stores the UI language in.
const LocaleCookie = "lang"

// Locale resolves the request locale from the lang cookie, then the
// Accept-Language header, then fallback.
func Locale(fallback string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(keyLocale, resolveLocale(c, fallback))
			return next(c)
		}
	}
}

func resolveLocale(c echo.Context, fallback string) string {
	if cookie, err := c.Cookie(LocaleCookie); err == nil {
		if l, ok := notify.MatchLocale(cookie.Value); ok {
			return l
		}
	}
	if l, ok := notify.MatchLocale(c.Request().Header.Get("Accept-Language")); ok {
		return l
	}
	if l, ok := notify.MatchLocale(fallback); ok {
		return l
	}
	return "he"
}

func GetLocale(c echo.Context) string {
	if l, ok := c.Get(keyLocale).(string); ok {
		return l
	}
	return ""
}

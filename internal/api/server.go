package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"actionhub/internal/actions"
	"actionhub/internal/api/validator"
	"actionhub/internal/config"
	"actionhub/internal/handlers"

	console "actionhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Dependencies
}

// Dependencies are the components the HTTP surface delegates to.
type Dependencies struct {
	Actions handlers.ActionExecutor
	Sockets handlers.SocketServer
}

var log = console.New("API-Server")

// Paths that bypass request logging, rate limiting and the request timeout.
var (
	quietPaths    = map[string]bool{"/health": true, "/metrics": true}
	longLivedPath = "/ws"
)

// NewServer @title Actions API
// @version 1.0
// @description Unified action execution endpoint with notification fan-out.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool { return quietPaths[c.Path()] },
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength, "Accept-Language"},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Skipper:      func(c echo.Context) bool { return c.Path() == longLivedPath },
			Timeout:      cfg.Server.RequestTimeout,
			ErrorMessage: `{"success":false,"error":{"code":"TIMEOUT","message":"Request timed out"}}`,
		}))
	}
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == longLivedPath },
		Level:   5,
	}))
	e.Use(middleware.BodyLimit("1M"))

	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool { return quietPaths[c.Path()] },
			Store:   middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit)),
		}))
	}

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	// Create server instance
	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
	}

	// Register routes
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Custom HTTP error handler. Errors raised by echo itself are rendered in the
// same envelope as action results.
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		message string
		details []string
	)

	switch e := err.(type) {
	case *echo.HTTPError:
		code = e.Code
		message = fmt.Sprint(e.Message)
	case validator.ValidationErrors:
		code = http.StatusBadRequest
		message = "Invalid request"
		details = e.Messages()
	default:
		log.Error("Unhandled error on %s", err, c.Path())
		message = http.StatusText(code)
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, actions.Failed(codeForStatus(code), message, details...))
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

func codeForStatus(status int) actions.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return actions.CodeValidationFailed
	case http.StatusUnauthorized:
		return actions.CodeUnauthenticated
	case http.StatusForbidden:
		return actions.CodeUnauthorized
	case http.StatusTooManyRequests:
		return actions.CodeRateLimited
	case http.StatusGatewayTimeout, http.StatusServiceUnavailable:
		return actions.CodeTimeout
	}
	if status >= http.StatusInternalServerError {
		return actions.CodeInternalError
	}
	return actions.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")))
}

package api

import (
	"actionhub/internal/api/middleware"
	"actionhub/internal/routes"

	_ "actionhub/docs/swagger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	// Health check
	// @Summary Health check
	// @Description Check if the server is running
	// @Accept json
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	auth := middleware.NewAuthMiddleware(s.config.JWT.Secret, s.config.JWT.CookieName)

	routes.SetupActionRoutes(s.echo, s.config, auth, s.deps.Actions)
	if s.deps.Sockets != nil {
		routes.SetupSocketRoutes(s.echo, auth, s.deps.Sockets)
	}
}

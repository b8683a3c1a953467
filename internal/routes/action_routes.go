package routes

import (
	"actionhub/internal/api/middleware"
	"actionhub/internal/config"
	"actionhub/internal/handlers"
	"actionhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

// SetupActionRoutes mounts POST /action behind authentication and locale
// resolution.
func SetupActionRoutes(e *echo.Echo, cfg *config.Config, auth *middleware.AuthMiddleware, executor handlers.ActionExecutor) {
	log := logger.New("action_routes")

	actionHandler := handlers.NewActionHandler(executor)

	e.POST("/action", actionHandler.Execute,
		auth.Middleware(),
		middleware.Locale(cfg.Notify.DefaultLocale),
	)

	log.Success("Action routes initialized successfully")
}

// SetupSocketRoutes mounts the authenticated notification websocket.
func SetupSocketRoutes(e *echo.Echo, auth *middleware.AuthMiddleware, hub handlers.SocketServer) {
	log := logger.New("socket_routes")

	socketHandler := handlers.NewSocketHandler(hub)
	e.GET("/ws", socketHandler.Connect, auth.Middleware())

	log.Success("Socket routes initialized successfully")
}

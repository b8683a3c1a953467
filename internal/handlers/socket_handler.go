package handlers

import (
	"actionhub/internal/api/middleware"
	"actionhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type SocketHandler struct {
	log *logger.Logger
	hub SocketServer
}

func NewSocketHandler(hub SocketServer) *SocketHandler {
	return &SocketHandler{
		log: logger.New("socket_handler"),
		hub: hub,
	}
}

// Connect upgrades to a websocket that receives the caller's notifications
// @Summary Notification socket
// @Description Upgrades to a websocket; notification frames for the caller are pushed as JSON
// @Tags notifications
// @Security BearerAuth
// @Router /ws [get]
func (h *SocketHandler) Connect(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if err := h.hub.Serve(c.Response(), c.Request(), userID); err != nil {
		// The upgrader has already written the error response.
		h.log.Warn("socket upgrade for %s failed: %v", userID, err)
	}
	return nil
}

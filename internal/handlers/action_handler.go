package handlers

import (
	"errors"
	"net/http"

	"actionhub/internal/actions"
	"actionhub/internal/api/middleware"
	"actionhub/internal/api/validator"
	"actionhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type ActionHandler struct {
	log     *logger.Logger
	actions ActionExecutor
}

func NewActionHandler(executor ActionExecutor) *ActionHandler {
	return &ActionHandler{
		log:     logger.New("action_handler"),
		actions: executor,
	}
}

// Execute runs an action on behalf of the authenticated caller
// @Summary Execute an action
// @Description Validates, authorizes and runs a catalogued action against the backend
// @Tags actions
// @Accept json
// @Produce json
// @Param request body validator.ActionRequest true "Action key and params"
// @Success 200 {object} actions.ActionResult "Action succeeded"
// @Failure 400 {object} actions.ActionResult "VALIDATION_FAILED"
// @Failure 401 {object} actions.ActionResult "UNAUTHENTICATED"
// @Failure 403 {object} actions.ActionResult "UNAUTHORIZED"
// @Failure 404 {object} actions.ActionResult "UNKNOWN_ACTION"
// @Failure 429 {object} actions.ActionResult "RATE_LIMITED"
// @Failure 500 {object} actions.ActionResult "STRAPI_ERROR or INTERNAL_ERROR"
// @Failure 504 {object} actions.ActionResult "TIMEOUT"
// @Security BearerAuth
// @Router /action [post]
func (h *ActionHandler) Execute(c echo.Context) error {
	var req validator.ActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, actions.Failed(actions.CodeValidationFailed, "Invalid request body"))
	}

	if err := c.Validate(&req); err != nil {
		var details []string
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			details = ve.Messages()
		}
		return c.JSON(http.StatusBadRequest, actions.Failed(actions.CodeValidationFailed, "Invalid request", details...))
	}

	actx := &actions.ActionContext{
		CallerID:   middleware.GetUserID(c),
		CallerName: middleware.GetUsername(c),
		Credential: middleware.GetCredential(c),
		Locale:     middleware.GetLocale(c),
		RequestID:  c.Response().Header().Get(echo.HeaderXRequestID),
	}

	result := h.actions.Execute(c.Request().Context(), req.ActionKey, req.Params, actx)
	if result.Error != nil {
		h.log.Debug("%s by %s -> %s", req.ActionKey, actx.CallerID, result.Error.Code)
	}
	return c.JSON(StatusFor(result), result)
}

package handlers

import (
	"context"
	"net/http"

	"actionhub/internal/actions"
)

// ActionExecutor runs a named action; services.ActionService implements it.
type ActionExecutor interface {
	Execute(ctx context.Context, actionKey string, params map[string]interface{}, actx *actions.ActionContext) actions.ActionResult
}

// SocketServer holds live client connections; ws.Hub implements it.
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// StatusFor maps a result to the HTTP status it is served with.
func StatusFor(result actions.ActionResult) int {
	if result.Error == nil {
		return http.StatusOK
	}
	switch result.Error.Code {
	case actions.CodeValidationFailed:
		return http.StatusBadRequest
	case actions.CodeUnauthenticated:
		return http.StatusUnauthorized
	case actions.CodeUnauthorized:
		return http.StatusForbidden
	case actions.CodeUnknownAction:
		return http.StatusNotFound
	case actions.CodeRateLimited:
		return http.StatusTooManyRequests
	case actions.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

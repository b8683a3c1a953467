package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"actionhub/internal/actions"
	"actionhub/internal/api/validator"
	"actionhub/internal/backend"
	"actionhub/internal/metrics"
	"actionhub/internal/notify"
	"actionhub/internal/transport"
	"actionhub/internal/utils"
	"actionhub/internal/utils/logger"
)

var log = logger.New("ACTIONS")

// DefaultActionTimeout bounds validate, authorize and execute together.
const DefaultActionTimeout = 30 * time.Second

// Authorizer decides whether a caller may run an action.
type Authorizer interface {
	Authorize(ctx context.Context, callerID string, rules []actions.AuthRule, params map[string]interface{}, actx *actions.ActionContext) actions.Decision
}

// Dispatcher hands a notification job off. It must return without waiting
// for delivery and must not fail the action.
type Dispatcher interface {
	Dispatch(ctx context.Context, job notify.Job)
}

// Throttler limits how often key may run within limit.Window.
type Throttler interface {
	Allow(ctx context.Context, key string, limit actions.RateLimit) (bool, error)
}

// ActionService is the single entry point for running a named action.
type ActionService struct {
	registry   *actions.Registry
	backend    backend.Executor
	authz      Authorizer
	dispatcher Dispatcher
	throttle   Throttler
	timeout    time.Duration
}

type Option func(*ActionService)

func WithTimeout(d time.Duration) Option {
	return func(s *ActionService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithThrottle enables per-caller limits for actions that declare one.
func WithThrottle(t Throttler) Option {
	return func(s *ActionService) { s.throttle = t }
}

func NewActionService(registry *actions.Registry, exec backend.Executor, authz Authorizer, dispatcher Dispatcher, opts ...Option) *ActionService {
	s := &ActionService{
		registry:   registry,
		backend:    exec,
		authz:      authz,
		dispatcher: dispatcher,
		timeout:    DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outcome struct {
	result actions.ActionResult
	job    *notify.Job
}

// Execute runs lookup, throttle, validation, authorization and the backend
// operation in that order, stopping at the first failure. On success the
// notification, if any, is dispatched and not awaited.
func (s *ActionService) Execute(ctx context.Context, actionKey string, params map[string]interface{}, actx *actions.ActionContext) (result actions.ActionResult) {
	start := time.Now()
	label := actionKey
	if actx == nil {
		actx = &actions.ActionContext{}
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	defer func() {
		code := "OK"
		if result.Error != nil {
			code = string(result.Error.Code)
		}
		metrics.ActionsExecuted.WithLabelValues(label, code).Inc()
		metrics.ActionDuration.WithLabelValues(label).Observe(float64(time.Since(start).Milliseconds()))
	}()

	cfg, err := s.registry.Get(actionKey)
	if err != nil {
		// Keys come from callers; keep them out of metric labels.
		label = "unknown"
		return actions.Failed(actions.CodeUnknownAction, fmt.Sprintf("Unknown action: %s", actionKey))
	}

	if cfg.RateLimit != nil && s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, actionKey+":"+actx.CallerID, *cfg.RateLimit)
		if err != nil {
			// The limiter is advisory; an outage must not block actions.
			log.Warn("throttle check for %s failed, allowing: %v", actionKey, err)
		} else if !allowed {
			return actions.Failed(actions.CodeRateLimited, "Too many requests, try again later")
		}
	}

	ctx = transport.WithDoer(ctx, actx.Transport)
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("action %s panicked", fmt.Errorf("%v", r), actionKey)
				done <- outcome{result: actions.Failed(actions.CodeInternalError, "Internal error")}
			}
		}()
		done <- s.run(runCtx, *cfg, params, actx)
	}()

	var out outcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.Canceled) {
			log.Warn("action %s cancelled by caller", actionKey)
			return actions.Failed(actions.CodeInternalError, "Request cancelled")
		}
		log.Warn("action %s timed out after %s", actionKey, s.timeout)
		return actions.Failed(actions.CodeTimeout, "Action timed out")
	}

	if out.job != nil && s.dispatcher != nil {
		// Delivery outlives the request; keep values such as the transport.
		s.dispatcher.Dispatch(context.WithoutCancel(ctx), *out.job)
	}
	return out.result
}

func (s *ActionService) run(ctx context.Context, cfg actions.ActionConfig, params map[string]interface{}, actx *actions.ActionContext) outcome {
	if res, ok := validator.ValidateParams(cfg.Params, params).(validator.Invalid); ok {
		return outcome{result: actions.Failed(actions.CodeValidationFailed, "Invalid parameters", res.Errors...)}
	}

	if d := s.authz.Authorize(ctx, actx.CallerID, cfg.Auth, params, actx); !d.Authorized {
		log.Info("%s denied for %s: %s", cfg.Key, actx.CallerID, d.Reason)
		return outcome{result: actions.Failed(actions.CodeUnauthorized, d.Reason)}
	}

	res, err := s.backend.Execute(ctx, cfg.Operation, Variables(cfg, params, actx), actx.Credential)
	if err != nil {
		return outcome{result: s.classify(ctx, cfg.Key, err)}
	}

	out := outcome{result: actions.Succeeded(res.Data, cfg.UpdateStrategy)}
	if cfg.Notification != nil {
		out.job = &notify.Job{
			ActionKey:  cfg.Key,
			Config:     *cfg.Notification,
			Params:     params,
			Result:     res.Data,
			CallerID:   actx.CallerID,
			CallerName: actx.CallerName,
			Locale:     actx.Locale,
			RequestID:  actx.RequestID,
			Credential: actx.Credential,
		}
	}
	return out
}

func (s *ActionService) classify(ctx context.Context, key string, err error) actions.ActionResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return actions.Failed(actions.CodeTimeout, "Action timed out")
	}
	var be *backend.Error
	if errors.As(err, &be) {
		log.Error("%s backend operation", err, key)
		if be.Backend {
			return actions.Failed(actions.CodeBackendError, be.Message)
		}
		return actions.Failed(actions.CodeBackendError, "Backend request failed")
	}
	log.Error("%s failed", err, key)
	return actions.Failed(actions.CodeInternalError, "Internal error")
}

// Variables builds the backend variables for cfg. Without a mapping the
// params are passed through unchanged.
func Variables(cfg actions.ActionConfig, params map[string]interface{}, actx *actions.ActionContext) map[string]interface{} {
	if len(cfg.Variables) == 0 {
		return params
	}
	vars := make(map[string]interface{}, len(cfg.Variables))
	for name, path := range cfg.Variables {
		if path == actions.CallerVariable {
			vars[name] = actx.CallerID
			continue
		}
		if v, ok := utils.Lookup(params, path); ok {
			vars[name] = v
		}
	}
	return vars
}

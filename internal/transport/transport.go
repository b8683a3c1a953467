// Package transport holds the outbound HTTP indirection shared by the backend
// client and the channel senders. Requests may carry their own Doer so tests
// and per-request policies can replace real network I/O.
package transport

import (
	"context"
	"net/http"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type ctxKey struct{}

// WithDoer returns a context whose outbound calls go through d. A nil d
// leaves ctx unchanged.
func WithDoer(ctx context.Context, d Doer) context.Context {
	if d == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, d)
}

// From returns the Doer carried by ctx, or fallback.
func From(ctx context.Context, fallback Doer) Doer {
	if d, ok := ctx.Value(ctxKey{}).(Doer); ok && d != nil {
		return d
	}
	return fallback
}

// Package channels delivers rendered notifications over a single medium each.
package channels

import (
	"context"
	"encoding/json"
	"errors"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
)

// ErrNotConfigured is returned by senders whose credentials are missing.
var ErrNotConfigured = errors.New("channel not configured")

// Message is a notification rendered for one recipient.
type Message struct {
	Title     string
	Body      string
	Locale    string
	ActionKey string
	SenderID  string
	Metadata  actions.Metadata
	Data      json.RawMessage
}

// Sender delivers on one channel. Targets lists the addresses a recipient
// can be reached at (none means ineligible); Send delivers to one of them.
type Sender interface {
	Channel() actions.Channel
	Targets(recipient membership.UserProfile) []string
	Send(ctx context.Context, address string, msg Message) error
}

package channels

import (
	"context"
	"encoding/json"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
)

// JSONPusher writes a frame to every live connection of a user. ws.Hub
// implements it.
type JSONPusher interface {
	SendJSON(userID string, v interface{}) error
}

// Frame is the payload written to sockets.
type Frame struct {
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	ActionKey string           `json:"actionKey"`
	SenderID  string           `json:"senderId,omitempty"`
	Metadata  actions.Metadata `json:"metadata"`
	Data      json.RawMessage  `json:"data,omitempty"`
}

type Socket struct {
	pusher JSONPusher
}

func NewSocket(pusher JSONPusher) *Socket {
	return &Socket{pusher: pusher}
}

func (s *Socket) Channel() actions.Channel { return actions.ChannelSocket }

// Targets addresses every recipient by user id.
func (s *Socket) Targets(recipient membership.UserProfile) []string {
	return []string{recipient.ID}
}

func (s *Socket) Send(_ context.Context, userID string, msg Message) error {
	return s.pusher.SendJSON(userID, Frame{
		Type:      "notification",
		Title:     msg.Title,
		Body:      msg.Body,
		ActionKey: msg.ActionKey,
		SenderID:  msg.SenderID,
		Metadata:  msg.Metadata,
		Data:      msg.Data,
	})
}

package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
	"actionhub/internal/transport"
)

// Push sends to an Expo-compatible push gateway, one request per device
// token.
type Push struct {
	gatewayURL string
	accessKey  string
	http       transport.Doer
}

func NewPush(gatewayURL, accessKey string, timeout time.Duration) *Push {
	return &Push{
		gatewayURL: gatewayURL,
		accessKey:  accessKey,
		http:       &http.Client{Timeout: timeout},
	}
}

func (p *Push) Channel() actions.Channel { return actions.ChannelPush }

// Targets returns one address per registered device.
func (p *Push) Targets(recipient membership.UserProfile) []string {
	tokens := make([]string, 0, len(recipient.Devices))
	for _, d := range recipient.Devices {
		if d.Token != "" {
			tokens = append(tokens, d.Token)
		}
	}
	return tokens
}

type pushMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Priority string                 `json:"priority"`
	Sound    string                 `json:"sound,omitempty"`
}

type pushTicket struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

func (p *Push) Send(ctx context.Context, token string, msg Message) error {
	if p.gatewayURL == "" {
		return ErrNotConfigured
	}

	data := map[string]interface{}{"actionKey": msg.ActionKey}
	if msg.Metadata.URL != "" {
		data["url"] = msg.Metadata.URL
	}
	if msg.Metadata.Icon != "" {
		data["icon"] = msg.Metadata.Icon
	}
	priority := "default"
	if msg.Metadata.Priority == actions.PriorityHigh {
		priority = "high"
	}

	body, err := json.Marshal(pushMessage{
		To:       token,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     data,
		Priority: priority,
		Sound:    "default",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.accessKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessKey)
	}

	resp, err := transport.From(ctx, p.http).Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push gateway %d", resp.StatusCode)
	}
	var ticket pushTicket
	if json.Unmarshal(raw, &ticket) == nil && ticket.Data.Status == "error" {
		return fmt.Errorf("push rejected: %s", ticket.Data.Message)
	}
	return nil
}

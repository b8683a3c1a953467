package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
	"actionhub/internal/transport"
)

// Telegram posts to the Bot API sendMessage method. The address is the
// recipient's chat id.
type Telegram struct {
	apiURL   string
	botToken string
	http     transport.Doer
}

func NewTelegram(apiURL, botToken string, timeout time.Duration) *Telegram {
	return &Telegram{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		http:     &http.Client{Timeout: timeout},
	}
}

func (t *Telegram) Channel() actions.Channel { return actions.ChannelTelegram }

func (t *Telegram) Targets(recipient membership.UserProfile) []string {
	if recipient.MessagingID == "" {
		return nil
	}
	return []string{recipient.MessagingID}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, chatID string, msg Message) error {
	if t.botToken == "" {
		return ErrNotConfigured
	}

	text := "<b>" + html.EscapeString(msg.Title) + "</b>\n" + html.EscapeString(msg.Body)
	if msg.Metadata.URL != "" {
		text += "\n" + html.EscapeString(msg.Metadata.URL)
	}
	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := transport.From(ctx, t.http).Do(req)
	if err != nil {
		// The request URL embeds the bot token; never surface it.
		return fmt.Errorf("telegram request failed: %s", redact(err.Error(), t.botToken))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var out telegramResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		if out.Description == "" {
			out.Description = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

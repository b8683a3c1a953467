package channels

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"io"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"actionhub/internal/actions"
	"actionhub/internal/membership"

	"github.com/valyala/fasttemplate"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer speaks SMTP over implicit TLS (port 465).
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.host == "" {
		return ErrNotConfigured
	}
	from, err := mail.ParseAddress(m.from)
	if err != nil {
		return fmt.Errorf("smtp from %q: %w", m.from, err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("smtp recipient: %w", err)
	}
	msg := buildMessage(from, rcpt, subject, htmlBody)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.host}}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.host, strconv.Itoa(m.port)))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Quit()

	if m.username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from.Address); err != nil {
		return err
	}
	if err := client.Rcpt(rcpt.Address); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, msg); err != nil {
		return err
	}
	return w.Close()
}

func buildMessage(from, to *mail.Address, subject, htmlBody string) string {
	return "From: " + from.String() + "\r\n" +
		"To: " + to.String() + "\r\n" +
		"Subject: " + mimeSubject(subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n" +
		"\r\n" + htmlBody
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// mimeSubject folds line breaks away and encodes non-ASCII subjects (Hebrew,
// Arabic) as RFC 2047 words.
func mimeSubject(s string) string {
	s = headerBreaks.Replace(s)
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("utf-8", s)
		}
	}
	return s
}

const emailLayout = `<!DOCTYPE html>
<html dir="{dir}" lang="{lang}">
<body style="font-family:Arial,sans-serif;direction:{dir}">
<h2>{title}</h2>
<p>{body}</p>
{link}
</body>
</html>`

var emailTemplate = fasttemplate.New(emailLayout, "{", "}")

type Email struct {
	mailer Mailer
}

func NewEmail(mailer Mailer) *Email {
	return &Email{mailer: mailer}
}

func (e *Email) Channel() actions.Channel { return actions.ChannelEmail }

// Targets skips recipients without an address or who opted out.
func (e *Email) Targets(recipient membership.UserProfile) []string {
	if recipient.Email == "" || recipient.EmailOptOut {
		return nil
	}
	return []string{recipient.Email}
}

func (e *Email) Send(ctx context.Context, to string, msg Message) error {
	return e.mailer.Send(ctx, to, msg.Title, RenderEmail(msg))
}

// RenderEmail lays msg out as an HTML document, right-to-left for he and ar.
func RenderEmail(msg Message) string {
	dir := "ltr"
	if msg.Locale == actions.LocaleHebrew || msg.Locale == actions.LocaleArabic {
		dir = "rtl"
	}
	link := ""
	if msg.Metadata.URL != "" {
		link = fmt.Sprintf(`<p><a href="%s">%s</a></p>`, html.EscapeString(msg.Metadata.URL), html.EscapeString(msg.Metadata.URL))
	}
	return emailTemplate.ExecuteString(map[string]interface{}{
		"dir":   dir,
		"lang":  msg.Locale,
		"title": html.EscapeString(msg.Title),
		"body":  strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>"),
		"link":  link,
	})
}

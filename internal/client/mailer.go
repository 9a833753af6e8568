// Outbound mail delivery.
//
// Environment variables:
//   - SMTP_HOST: relay host; when empty, messages are only logged
//   - SMTP_PORT: relay port (default 587)
//   - SMTP_USERNAME / SMTP_PASSWORD: PLAIN auth credentials, optional
//   - SMTP_FROM: envelope and header sender

package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/core-admin/backend/internal/config"
)

// MailMessage is a plain-text email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// NewMailer returns an SMTP mailer when a host is configured and a LogMailer
// otherwise.
func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) Mailer {
	if strings.TrimSpace(cfg.Host) == "" {
		logger.Warn("SMTP_HOST not set, reset emails will only be logged")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

// defaultSendTimeout bounds one SMTP session from dial to QUIT.
const defaultSendTimeout = 10 * time.Second

// SMTPMailer delivers mail through a relay with optional PLAIN auth.
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
	timeout  time.Duration
	dialer   *net.Dialer
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  defaultSendTimeout,
		dialer:   &net.Dialer{Timeout: defaultSendTimeout},
	}
}

// Send runs one SMTP session. The session ends when ctx is done or the
// mailer's timeout elapses, whichever comes first.
func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("invalid mail header")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp relay %s: %w", m.addr, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set smtp deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := m.deliver(conn, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to send mail to %s: %w", msg.To, ctxErr)
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("failed to send mail to %s: %w", msg.To, context.DeadlineExceeded)
		}
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) deliver(conn net.Conn, msg MailMessage) error {
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if m.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.compose(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *SMTPMailer) compose(msg MailMessage) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return buf.Bytes()
}

// LogMailer writes messages to the log instead of sending them. The body
// carries a live reset link, so it is logged at debug only.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg MailMessage) error {
	m.logger.InfoContext(ctx, "mail not delivered, no SMTP relay configured", "to", msg.To, "subject", msg.Subject)
	m.logger.DebugContext(ctx, "mail body", "to", msg.To, "body", msg.Body)
	return nil
}

// MailRecorder keeps sent messages in memory.
type MailRecorder struct {
	mu   sync.Mutex
	sent []MailMessage
	Err  error
}

func (r *MailRecorder) Send(_ context.Context, msg MailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *MailRecorder) Sent() []MailMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MailMessage, len(r.sent))
	copy(out, r.sent)
	return out
}

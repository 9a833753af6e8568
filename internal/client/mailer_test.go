package client

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/logging"
)

// fakeRelay is a minimal SMTP server on loopback that accepts every message.
type fakeRelay struct {
	ln   net.Listener
	mu   sync.Mutex
	cmds []string
	data string
}

func startRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	r := &fakeRelay{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.session(conn)
		}
	}()
	return r
}

func (r *fakeRelay) session(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 relay.test ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.cmds = append(r.cmds, line)
		r.mu.Unlock()

		switch verb, _, _ := strings.Cut(line, " "); strings.ToUpper(verb) {
		case "EHLO":
			_ = tp.PrintfLine("250-relay.test")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			_ = tp.PrintfLine("235 2.7.0 Authentication successful")
		case "MAIL", "RCPT":
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 Go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			r.mu.Lock()
			r.data = strings.Join(lines, "\n")
			r.mu.Unlock()
			_ = tp.PrintfLine("250 Queued")
		case "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("502 Command not implemented")
		}
	}
}

func (r *fakeRelay) received() ([]string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...), r.data
}

func relayConfig(t *testing.T, addr string) config.SMTPConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return config.SMTPConfig{Host: host, Port: port, From: "no-reply@example.test"}
}

// silentListener accepts connections and never greets.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestSMTPMailer_Send(t *testing.T) {
	relay := startRelay(t)
	cfg := relayConfig(t, relay.ln.Addr().String())
	cfg.Username = "relay"
	cfg.Password = "secret"

	err := NewSMTPMailer(cfg).Send(context.Background(), MailMessage{
		To:      "alice@example.test",
		Subject: "Password reset",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)

	cmds, data := relay.received()
	require.NotEmpty(t, cmds)
	assert.True(t, strings.HasPrefix(cmds[0], "EHLO "))
	assert.Contains(t, cmds, "MAIL FROM:<no-reply@example.test>")
	assert.Contains(t, cmds, "RCPT TO:<alice@example.test>")
	assert.Equal(t, "QUIT", cmds[len(cmds)-1])

	var authed bool
	for _, c := range cmds {
		authed = authed || strings.HasPrefix(c, "AUTH PLAIN ")
	}
	assert.True(t, authed, "credentials configured, relay offers AUTH")

	assert.Contains(t, data, "Subject: Password reset")
	assert.Contains(t, data, "To: alice@example.test")
	assert.True(t, strings.HasSuffix(data, "\n\nline one\nline two"), data)
}

func TestSMTPMailer_SendStalledRelay(t *testing.T) {
	addr := silentListener(t)

	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		timeout time.Duration
		wantErr error
	}{
		{
			name: "context deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 200*time.Millisecond)
			},
			timeout: time.Minute,
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "context canceled mid session",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				time.AfterFunc(100*time.Millisecond, cancel)
				return ctx, cancel
			},
			timeout: time.Minute,
			wantErr: context.Canceled,
		},
		{
			name:    "mailer timeout",
			ctx:     func() (context.Context, context.CancelFunc) { return context.Background(), func() {} },
			timeout: 150 * time.Millisecond,
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSMTPMailer(relayConfig(t, addr))
			m.timeout = tt.timeout

			ctx, cancel := tt.ctx()
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- m.Send(ctx, MailMessage{To: "a@x.com", Subject: "s"}) }()

			select {
			case err := <-done:
				assert.ErrorIs(t, err, tt.wantErr)
			case <-time.After(3 * time.Second):
				t.Fatal("Send did not return after the session was cut off")
			}
		})
	}
}

func TestSMTPMailer_SendErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	relay := startRelay(t)

	tests := []struct {
		name string
		addr string
		ctx  func() context.Context
		msg  MailMessage
	}{
		{
			name: "relay unreachable",
			addr: closedAddr,
			ctx:  context.Background,
			msg:  MailMessage{To: "a@x.com", Subject: "s"},
		},
		{
			name: "header injection",
			addr: relay.ln.Addr().String(),
			ctx:  context.Background,
			msg:  MailMessage{To: "a@x.com\r\nBcc: evil@x.com", Subject: "s"},
		},
		{
			name: "canceled context",
			addr: relay.ln.Addr().String(),
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			msg: MailMessage{To: "a@x.com", Subject: "s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSMTPMailer(relayConfig(t, tt.addr))
			assert.Error(t, m.Send(tt.ctx(), tt.msg))
		})
	}

	cmds, _ := relay.received()
	assert.Empty(t, cmds, "rejected messages never reach the relay")
}

func TestNewMailer(t *testing.T) {
	logger := logging.Discard()

	_, isLog := NewMailer(config.SMTPConfig{}, logger).(*LogMailer)
	assert.True(t, isLog)

	_, isSMTP := NewMailer(config.SMTPConfig{Host: "smtp.example.test", Port: "587"}, logger).(*SMTPMailer)
	assert.True(t, isSMTP)
}

func TestMailRecorder(t *testing.T) {
	r := &MailRecorder{}
	require.NoError(t, r.Send(context.Background(), MailMessage{To: "a@x.com"}))
	require.Len(t, r.Sent(), 1)

	r.Err = errors.New("down")
	assert.Error(t, r.Send(context.Background(), MailMessage{To: "b@x.com"}))
	assert.Len(t, r.Sent(), 1)
}

package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"campaigner/internal/sender"
)

// Client delivers mail over SMTP with STARTTLS. When credentials are absent
// it runs in dry-run mode: the message is logged and reported sent, which
// keeps local development working without an upstream account.
type Client struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if c.Username == "" || c.Password == "" {
		slog.Info("smtp credentials missing, dry-run send",
			"to", to, "subject", subject, "body_len", len(body))
		return nil
	}

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &sender.SendError{Reason: "smtp dial failed", Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	cl, err := smtp.NewClient(conn, c.Host)
	if err != nil {
		conn.Close()
		return &sender.SendError{Reason: "smtp handshake failed", Err: err}
	}
	defer cl.Close()

	if ok, _ := cl.Extension("STARTTLS"); ok {
		if err := cl.StartTLS(&tls.Config{ServerName: c.Host}); err != nil {
			return &sender.SendError{Reason: "starttls failed", Err: err}
		}
	}
	auth := smtp.PlainAuth("", c.Username, c.Password, c.Host)
	if err := cl.Auth(auth); err != nil {
		return &sender.SendError{Reason: "smtp auth failed", Err: err}
	}

	if err := cl.Mail(c.From); err != nil {
		return &sender.SendError{Reason: "smtp mail from rejected", Err: err}
	}
	if err := cl.Rcpt(to); err != nil {
		return &sender.SendError{Reason: "smtp recipient rejected", Err: err}
	}
	w, err := cl.Data()
	if err != nil {
		return &sender.SendError{Reason: "smtp data failed", Err: err}
	}
	if _, err := w.Write(message(c.From, to, subject, body)); err != nil {
		w.Close()
		return &sender.SendError{Reason: "smtp write failed", Err: err}
	}
	if err := w.Close(); err != nil {
		return &sender.SendError{Reason: "smtp delivery rejected", Err: err}
	}
	return cl.Quit()
}

func message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

package alert

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const emailTimeout = 10 * time.Second

// EmailChannel delivers alerts as plain-text mail via an SMTP relay.
type EmailChannel struct {
	host string
	from string
	to   string
}

func NewEmailChannel(host, from, to string) *EmailChannel {
	return &EmailChannel{host: host, from: from, to: to}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.host)
	if err != nil {
		return fmt.Errorf("dial smtp relay %s: %w", c.host, err)
	}

	// The SMTP exchange runs on the raw conn, which the context no longer
	// covers. Bound it so a stalled relay cannot block a pipeline goroutine.
	deadline := time.Now().Add(emailTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	hostname := c.host
	if h, _, err := net.SplitHostPort(c.host); err == nil {
		hostname = h
	}
	client, err := smtp.NewClient(conn, hostname)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake with %s: %w", c.host, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(c.to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write([]byte(c.render(msg))); err != nil {
		return fmt.Errorf("write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish mail body: %w", err)
	}
	return client.Quit()
}

func (c *EmailChannel) render(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", c.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return b.String()
}

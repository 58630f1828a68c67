package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig configures delivery through an SMTP server with implicit TLS
// (port 465 on Gmail).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender delivers messages directly, without a queue. The username is
// also the default From address.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, cfg SMTPConfig, from string, to []string, raw []byte) error
	now  func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: sendImplicitTLS, now: time.Now}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.ToEmails) == 0 {
		return errors.New("smtp: message has no recipients")
	}

	from := msg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}

	raw, err := buildMIME(msg, from, s.now())
	if err != nil {
		return fmt.Errorf("smtp: building message: %w", err)
	}

	if err := s.send(ctx, s.cfg, from, msg.ToEmails, raw); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// buildMIME renders msg as multipart/alternative with a plain part and,
// when present, an HTML part.
func buildMIME(msg *Message, from string, date time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{{"text/plain; charset=utf-8", msg.Body}}
	if msg.HTMLBody != "" {
		parts = append(parts, struct {
			contentType string
			content     string
		}{"text/html; charset=utf-8", msg.HTMLBody})
	}

	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", strings.Join(msg.ToEmails, ", "))
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", date.Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

func sendImplicitTLS(ctx context.Context, cfg SMTPConfig, from string, to []string, raw []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

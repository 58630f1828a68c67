// Package email delivers transactional mail. Senders are transport only;
// message content is rendered by the services from the embedded templates.
package email

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const defaultFrom = "noreply@applicationtracker.dev"

// Message is one outgoing email. Its JSON form is the queue contract of the
// mail worker.
type Message struct {
	ToEmails  []string `json:"to_emails"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	HTMLBody  string   `json:"html_body,omitempty"`
	FromEmail string   `json:"from_email,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ConsoleSender prints messages instead of delivering them. Used in
// development.
type ConsoleSender struct {
	mu    sync.Mutex
	w     io.Writer
	count int
}

func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

func (s *ConsoleSender) Send(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++

	from := msg.FromEmail
	if from == "" {
		from = defaultFrom
	}

	var b strings.Builder
	fmt.Fprintf(&b, "==== email #%d ====\n", s.count)
	fmt.Fprintf(&b, "From: %s\n", from)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.ToEmails, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString("TEXT BODY:\n")
	b.WriteString(msg.Body + "\n")
	if msg.HTMLBody != "" {
		b.WriteString("\nHTML BODY:\n")
		b.WriteString(msg.HTMLBody + "\n")
	}

	_, err := io.WriteString(s.w, b.String())
	return err
}

// Count is the number of messages printed so far.
func (s *ConsoleSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

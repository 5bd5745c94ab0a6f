package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/eventcal/internal/mail"
)

// FakeMailer records sent messages and can be told to fail for specific
// recipients.
type FakeMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	failFor  map[string]error
	failNext error
}

// NewFakeMailer creates an empty fake mailer.
func NewFakeMailer() *FakeMailer {
	return &FakeMailer{failFor: make(map[string]error)}
}

// FailFor makes deliveries to the given recipient return the supplied error.
func (m *FakeMailer) FailFor(recipient string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("delivery to %s failed", recipient)
	}
	m.failFor[recipient] = err
}

// FailNext makes the next delivery fail regardless of recipient.
func (m *FakeMailer) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Send implements mail.Mailer.
func (m *FakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}

	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of all successfully delivered messages.
func (m *FakeMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the messages delivered to one recipient.
func (m *FakeMailer) SentTo(recipient string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mail.Message
	for _, msg := range m.sent {
		if msg.To == recipient {
			out = append(out, msg)
		}
	}
	return out
}

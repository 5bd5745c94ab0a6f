// Package mail sends outbound email over SMTP. Delivery is modeled as a
// capability so services can be tested against fakes.
package mail

import "context"

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a fully assembled outgoing email.
type Message struct {
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer delivers a single message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// SMTPConfig holds connection settings for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages through a single SMTP relay.
type SMTPMailer struct {
	config SMTPConfig
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for the given relay configuration.
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config, send: smtp.SendMail}
}

// Send assembles a MIME message and hands it to the relay. The context is
// checked before dialing; net/smtp does not support mid-flight cancellation.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return fmt.Errorf("SMTPMailer is nil")
	}
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := BuildMIME(m.config.From, msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.send(addr, auth, m.config.From, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp delivery to %s failed: %w", msg.To, err)
	}
	return nil
}

// BuildMIME renders a message as a multipart MIME document with headers.
func BuildMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", msg.Subject)),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", writer.Boundary()),
	}

	var out bytes.Buffer
	out.WriteString(strings.Join(headers, "\r\n"))
	out.WriteString("\r\n\r\n")

	if msg.TextBody != "" {
		if err := writeTextPart(writer, "text/plain; charset=UTF-8", msg.TextBody); err != nil {
			return nil, err
		}
	}
	if msg.HTMLBody != "" {
		if err := writeTextPart(writer, "text/html; charset=UTF-8", msg.HTMLBody); err != nil {
			return nil, err
		}
	}

	for _, attachment := range msg.Attachments {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", attachment.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}

		encoded := base64.StdEncoding.EncodeToString(attachment.Content)
		for len(encoded) > 0 {
			line := encoded
			if len(line) > 76 {
				line = line[:76]
			}
			if _, err := fmt.Fprintf(part, "%s\r\n", line); err != nil {
				return nil, err
			}
			encoded = encoded[len(line):]
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

func writeTextPart(writer *multipart.Writer, contentType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "8bit")

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write([]byte(body))
	return err
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// emailAttempts is how many delivery attempts are made before giving
// up. SMTP servers drop connections transiently often enough that one
// attempt is not reliable.
const emailAttempts = 3

// emailRetryDelay is the pause between attempts. Tests override it.
var emailRetryDelay = 5 * time.Second

// sendMail is replaceable in tests.
var sendMail = smtp.SendMail

// Attachment is a file delivered alongside the email body.
type Attachment struct {
	Filename string
	Data     []byte
}

// SendEmail delivers the report body and attachments over SMTP with
// STARTTLS, retrying up to three times. The context cancels the waits
// between attempts.
func SendEmail(ctx context.Context, cfg types.EmailConfig, subject, body string, attachments []Attachment) error {
	if cfg.SMTPHost == "" || cfg.From == "" || len(cfg.To) == 0 {
		return fmt.Errorf("email configuration incomplete: need smtp_host, from, and to")
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, port)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}

	msg, err := buildMessage(cfg, subject, body, attachments)
	if err != nil {
		return fmt.Errorf("building email: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		lastErr = sendMail(addr, auth, cfg.From, cfg.To, msg)
		if lastErr == nil {
			return nil
		}

		if attempt < emailAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emailRetryDelay):
			}
		}
	}
	return fmt.Errorf("sending email after %d attempts: %w", emailAttempts, lastErr)
}

// buildMessage assembles a multipart/mixed MIME message with a UTF-8
// text body and base64 attachments.
func buildMessage(cfg types.EmailConfig, subject, body string, attachments []Attachment) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(cfg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(body)); err != nil {
		return nil, err
	}

	for _, a := range attachments {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(wrapBase64(a.Data)); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapBase64 encodes data and folds the output at 76 columns per MIME
// requirements.
func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	const lineLen = 76
	var b strings.Builder
	for len(encoded) > lineLen {
		b.WriteString(encoded[:lineLen])
		b.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	b.WriteString(encoded)
	return []byte(b.String())
}

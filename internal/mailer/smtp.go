package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	smtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/mailfleet/mailfleet/internal/config"
	"github.com/mailfleet/mailfleet/internal/dkim"
)

// SMTPMailer submits mail to a configured smarthost
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
	signer *dkim.Signer
}

// NewSMTPMailer creates a new smarthost mailer
func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With("component", "mailer"),
	}
}

// SetDKIMSigner sets the DKIM signer for outgoing messages
func (m *SMTPMailer) SetDKIMSigner(signer *dkim.Signer) {
	m.signer = signer
}

// Send delivers a single message through the smarthost
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	id := uuid.New().String()

	data := BuildMessage(msg, id, m.cfg.Hostname)
	if m.signer != nil {
		signed, err := m.signer.Sign(data)
		if err != nil {
			m.logger.Warn("DKIM signing failed, sending unsigned", "error", err)
		} else {
			data = signed
		}
	}

	if err := m.submit(ctx, msg.FromEmail, msg.To, data); err != nil {
		return nil, err
	}

	m.logger.Debug("message submitted", "to", msg.To, "message_id", id)
	return &SendResult{ID: id}, nil
}

// SendBatch delivers messages one recipient at a time, each under its own
// timeout, and reports per-recipient outcomes.
func (m *SMTPMailer) SendBatch(ctx context.Context, msgs []*Message) *BatchResult {
	result := &BatchResult{
		Success: true,
		Results: make([]RecipientResult, 0, len(msgs)),
	}

	for _, msg := range msgs {
		sendCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		res, err := m.Send(sendCtx, msg)
		cancel()

		rr := RecipientResult{To: msg.To, Err: err}
		if err != nil {
			result.Success = false
			m.logger.Debug("batch send failed for recipient", "to", msg.To, "error", err)
		} else {
			rr.ID = res.ID
			result.Sent++
		}
		result.Results = append(result.Results, rr)
	}

	return result
}

func (m *SMTPMailer) submit(ctx context.Context, from, to string, data []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{Temporary: true, Message: fmt.Sprintf("connection failed to %s: %v", addr, err)}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	var client *smtp.Client
	if m.cfg.STARTTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			return categorizeError(err, "STARTTLS")
		}
	} else {
		client = smtp.NewClient(conn)
		if err := client.Hello(m.cfg.Hostname); err != nil {
			return categorizeError(err, "HELO")
		}
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return categorizeError(err, "AUTH")
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return categorizeError(err, "MAIL FROM")
	}
	if err := client.Rcpt(to, nil); err != nil {
		return categorizeError(err, fmt.Sprintf("RCPT TO %s", to))
	}

	wc, err := client.Data()
	if err != nil {
		return categorizeError(err, "DATA")
	}
	if _, err := bytes.NewReader(data).WriteTo(wc); err != nil {
		wc.Close()
		return &DeliveryError{Temporary: true, Message: fmt.Sprintf("failed to write message data: %v", err)}
	}
	if err := wc.Close(); err != nil {
		return categorizeError(err, "DATA close")
	}

	client.Quit()
	return nil
}

// BuildMessage renders the RFC 5322 message bytes for a single recipient
func BuildMessage(msg *Message, id, hostname string) []byte {
	var b strings.Builder

	b.WriteString("From: " + formatAddress(msg.FromEmail, msg.FromName) + "\r\n")
	b.WriteString("To: " + formatAddress(msg.To, msg.ToName) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Message-ID: <" + id + "@" + hostname + ">\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	return []byte(b.String())
}

func formatAddress(email, name string) string {
	if name == "" {
		return email
	}
	return mime.QEncoding.Encode("utf-8", name) + " <" + email + ">"
}

// smtpCodePattern matches SMTP response codes at word boundaries
var smtpCodePattern = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)

// categorizeError determines if an SMTP error is temporary or permanent
func categorizeError(err error, stage string) *DeliveryError {
	msg := fmt.Sprintf("%s failed: %v", stage, err)

	matches := smtpCodePattern.FindStringSubmatch(err.Error())
	if len(matches) > 1 {
		if strings.HasPrefix(matches[1], "5") {
			return &DeliveryError{Temporary: false, Message: msg}
		}
		return &DeliveryError{Temporary: true, Message: msg}
	}

	// Assume temporary by default
	return &DeliveryError{Temporary: true, Message: msg}
}

// Package mailer defines the email-sending contract the delivery engine
// depends on, and an SMTP smarthost implementation of it.
package mailer

import (
	"context"
	"errors"
)

// Message is a single outgoing email
type Message struct {
	FromEmail string
	FromName  string
	To        string
	ToName    string
	Subject   string
	HTML      string
}

// SendResult is returned for a successful single send
type SendResult struct {
	ID string
}

// RecipientResult holds the per-recipient outcome of a batch send
type RecipientResult struct {
	To  string
	ID  string
	Err error
}

// BatchResult summarizes a batch send. Success is true only when every
// recipient was accepted; Results always covers the full input batch in
// order, so partial outcomes stay diagnosable.
type BatchResult struct {
	Success bool
	Sent    int
	Results []RecipientResult
}

// Mailer sends campaign email. Implementations must bound each individual
// send so one stalled recipient cannot stall an entire batch.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (*SendResult, error)
	SendBatch(ctx context.Context, msgs []*Message) *BatchResult
}

// DeliveryError represents a send error with type information
type DeliveryError struct {
	Temporary bool
	Message   string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Temporary
	}
	return true // Assume temporary if unknown
}

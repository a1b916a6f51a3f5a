// Package gateway talks to the QR payment provider. It hides the provider's
// request and response shapes behind Quote, Status and Event.
package gateway

import (
	"errors"
	"fmt"
	"time"
)

// Status is the provider-side state of a payment link.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// mapStatus folds the provider's vocabulary into Status.
func mapStatus(raw string) Status {
	switch raw {
	case "PAID":
		return StatusPaid
	case "CANCELLED", "EXPIRED", "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

type QuoteRequest struct {
	OrderCode   int64
	Amount      float64
	Description string
	ExpiresAt   time.Time
}

// Quote is an issued payment link with its scannable QR payload.
type Quote struct {
	ExternalID  string
	Code        string
	CheckoutURL string
	Status      Status
	ExpiresAt   time.Time
}

type StatusResult struct {
	ExternalID string
	Status     Status
	Amount     float64
}

// Event is a verified webhook notification.
type Event struct {
	ExternalID string
	Status     Status
	Amount     float64
	Reference  string
}

var (
	ErrInvalidSignature = errors.New("gateway: invalid webhook signature")
	ErrMalformedEvent   = errors.New("gateway: malformed webhook payload")
	ErrNotConfigured    = errors.New("gateway: provider credentials not configured")
)

// APIError is a non-success answer from the provider.
type APIError struct {
	StatusCode int
	Code       string
	Desc       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: provider returned http %d code %s: %s", e.StatusCode, e.Code, e.Desc)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func ExternalIDFor(orderCode int64) string {
	return fmt.Sprintf("%d", orderCode)
}

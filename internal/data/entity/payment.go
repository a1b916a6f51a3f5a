package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodQR PaymentMethod = "qr"
)

type Payment struct {
	BaseNoDelete
	BookingID   uuid.UUID     `db:"booking_id"`
	Amount      float64       `db:"amount"`
	Method      PaymentMethod `db:"method"`
	ExternalID  string        `db:"external_id"`
	QRCode      string        `db:"qr_code"`
	CheckoutURL *string       `db:"checkout_url"`
	Status      PaymentStatus `db:"status"`
	IsTest      bool          `db:"is_test"`
	ExpiresAt   time.Time     `db:"expires_at"`
	CompletedAt *time.Time    `db:"completed_at"`
}

func (p *Payment) IsExpired(now time.Time) bool {
	return p.Status == PaymentStatusPending && now.After(p.ExpiresAt)
}

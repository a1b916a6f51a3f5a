package response

import (
	"time"

	"homestay-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Amount        float64              `json:"amount"`
	Method        entity.PaymentMethod `json:"method"`
	ExternalID    string               `json:"external_id"`
	QRCode        string               `json:"qr_code"`
	CheckoutURL   *string              `json:"checkout_url,omitempty"`
	Status        entity.PaymentStatus `json:"status"`
	IsTest        bool                 `json:"is_test"`
	Expired       bool                 `json:"expired"`
	ExpiresAt     time.Time            `json:"expires_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	BookingStatus entity.BookingStatus `json:"booking_status,omitempty"`
	BookingPaid   bool                 `json:"booking_paid"`
}

type WebhookResponse struct {
	ExternalID string               `json:"external_id"`
	Status     entity.PaymentStatus `json:"status,omitempty"`
	Duplicate  bool                 `json:"duplicate"`
}

// Helper converters
func PaymentToResponse(payment *entity.Payment, booking *entity.Booking, now time.Time) PaymentResponse {
	resp := PaymentResponse{
		ID:          payment.ID.String(),
		BookingID:   payment.BookingID.String(),
		Amount:      payment.Amount,
		Method:      payment.Method,
		ExternalID:  payment.ExternalID,
		QRCode:      payment.QRCode,
		CheckoutURL: payment.CheckoutURL,
		Status:      payment.Status,
		IsTest:      payment.IsTest,
		Expired:     payment.IsExpired(now),
		ExpiresAt:   payment.ExpiresAt,
		CompletedAt: payment.CompletedAt,
		CreatedAt:   payment.CreatedAt,
	}

	if booking != nil {
		resp.BookingStatus = booking.Status
		resp.BookingPaid = booking.IsPaid
	}

	return resp
}

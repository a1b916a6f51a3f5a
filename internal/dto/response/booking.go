package response

import (
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/pkg/clock"
)

type RoomSummary struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	NightlyRate    float64           `json:"nightly_rate"`
	MaxGuests      int               `json:"max_guests"`
	Status         entity.RoomStatus `json:"status"`
	ListingID      string            `json:"listing_id"`
	ListingTitle   string            `json:"listing_title"`
	ListingAddress string            `json:"listing_address,omitempty"`
}

type GuestResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingResponse struct {
	ID                         string               `json:"id"`
	BookingNumber              string               `json:"booking_number"`
	RoomID                     string               `json:"room_id"`
	UserID                     *string              `json:"user_id,omitempty"`
	Guest                      *GuestResponse       `json:"guest,omitempty"`
	StartDate                  string               `json:"start_date"`
	EndDate                    string               `json:"end_date"`
	Nights                     int                  `json:"nights"`
	Guests                     int                  `json:"guests"`
	TotalPrice                 float64              `json:"total_price"`
	Status                     entity.BookingStatus `json:"status"`
	IsPaid                     bool                 `json:"is_paid"`
	ManualConfirmationRequired bool                 `json:"manual_confirmation_required"`
	CancellationReason         *string              `json:"cancellation_reason,omitempty"`
	CancelledAt                *time.Time           `json:"cancelled_at,omitempty"`
	ConfirmedAt                *time.Time           `json:"confirmed_at,omitempty"`
	CompletedAt                *time.Time           `json:"completed_at,omitempty"`
	CreatedAt                  time.Time            `json:"created_at"`
	Room                       *RoomSummary         `json:"room,omitempty"`
}

// Helper converters
func RoomToSummary(detail *entity.RoomDetail) *RoomSummary {
	if detail == nil {
		return nil
	}
	return &RoomSummary{
		ID:             detail.ID.String(),
		Name:           detail.Name,
		NightlyRate:    detail.NightlyRate,
		MaxGuests:      detail.MaxGuests,
		Status:         detail.Status,
		ListingID:      detail.ListingID.String(),
		ListingTitle:   detail.ListingTitle,
		ListingAddress: detail.ListingAddress,
	}
}

func BookingToResponse(booking *entity.Booking, detail *entity.RoomDetail) BookingResponse {
	resp := BookingResponse{
		ID:                         booking.ID.String(),
		BookingNumber:              booking.BookingNumber,
		RoomID:                     booking.RoomID.String(),
		StartDate:                  clock.FormatDate(booking.StartDate),
		EndDate:                    clock.FormatDate(booking.EndDate),
		Nights:                     booking.Nights(),
		Guests:                     booking.Guests,
		TotalPrice:                 booking.TotalPrice,
		Status:                     booking.Status,
		IsPaid:                     booking.IsPaid,
		ManualConfirmationRequired: booking.ManualConfirmationRequired,
		CancellationReason:         booking.CancellationReason,
		CancelledAt:                booking.CancelledAt,
		ConfirmedAt:                booking.ConfirmedAt,
		CompletedAt:                booking.CompletedAt,
		CreatedAt:                  booking.CreatedAt,
		Room:                       RoomToSummary(detail),
	}

	if booking.UserID != nil {
		id := booking.UserID.String()
		resp.UserID = &id
	}
	if booking.Guest != nil {
		resp.Guest = &GuestResponse{
			Name:  booking.Guest.Name,
			Email: booking.Guest.Email,
			Phone: booking.Guest.Phone,
		}
	}

	return resp
}

type AvailabilityResponse struct {
	RoomID           string     `json:"room_id"`
	StartDate        string     `json:"start_date"`
	EndDate          string     `json:"end_date"`
	Nights           int        `json:"nights"`
	Available        bool       `json:"available"`
	Reason           string     `json:"reason,omitempty"`
	MinutesRemaining *int       `json:"minutes_remaining,omitempty"`
	ReadyAt          *time.Time `json:"ready_at,omitempty"`
	NextAvailable    *string    `json:"next_available,omitempty"`
	EstimatedPrice   float64    `json:"estimated_price"`
}

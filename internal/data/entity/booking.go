package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// bookingTransitions lists the legal non-noop moves. Staying in the same
// status is a no-op and handled separately.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsActive reports whether bookings in this status hold the room's dates.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// TransitionError is returned for a move the state machine does not allow.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking status cannot change from %s to %s", e.From, e.To)
}

// CheckTransition validates s -> to. noop is true when to equals s.
func (s BookingStatus) CheckTransition(to BookingStatus) (noop bool, err error) {
	if !to.IsValid() {
		return false, fmt.Errorf("invalid booking status %q", to)
	}
	if s == to {
		return true, nil
	}
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return false, nil
		}
	}
	return false, &TransitionError{From: s, To: to}
}

// RoomStatusAfter is the room projection a booking status implies.
func (s BookingStatus) RoomStatusAfter() RoomStatus {
	switch s {
	case BookingStatusCancelled, BookingStatusCompleted:
		return RoomStatusAvailable
	default:
		return RoomStatusOccupied
	}
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status %q", raw)
	}
	return status, nil
}

// GuestContact identifies the party of a booking made without an account.
type GuestContact struct {
	Name  string `db:"guest_name"`
	Email string `db:"guest_email"`
	Phone string `db:"guest_phone"`
}

type Booking struct {
	BaseNoDelete
	BookingNumber              string        `db:"booking_number"`
	RoomID                     uuid.UUID     `db:"room_id"`
	UserID                     *uuid.UUID    `db:"user_id"`
	Guest                      *GuestContact `db:"-"`
	StartDate                  time.Time     `db:"start_date"`
	EndDate                    time.Time     `db:"end_date"` // checkout day, not occupied
	Guests                     int           `db:"guests"`
	TotalPrice                 float64       `db:"total_price"`
	Status                     BookingStatus `db:"status"`
	IsPaid                     bool          `db:"is_paid"`
	ManualConfirmationRequired bool          `db:"manual_confirmation_required"`
	CancellationReason         *string       `db:"cancellation_reason"`
	CancelledAt                *time.Time    `db:"cancelled_at"`
	ConfirmedAt                *time.Time    `db:"confirmed_at"`
	CompletedAt                *time.Time    `db:"completed_at"`
}

func (b *Booking) IsGuestBooking() bool {
	return b.UserID == nil
}

// Overlaps uses exclusive checkout: [start, end) intervals, so a stay ending
// on day D never conflicts with one starting on D.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndDate) && end.After(b.StartDate)
}

// Covers reports whether the guest occupies the room on night day.
func (b *Booking) Covers(day time.Time) bool {
	return !day.Before(b.StartDate) && day.Before(b.EndDate)
}

func (b *Booking) Nights() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}

func (b *Booking) OwnedBy(userID uuid.UUID) bool {
	return b.UserID != nil && *b.UserID == userID
}

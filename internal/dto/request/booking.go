package request

type AvailabilityRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type CreateBookingRequest struct {
	RoomID    string `json:"room_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Guests    int    `json:"guests" validate:"required,min=1"`
}

// CreateGuestBookingRequest books without an account. A start date equal to
// the end date is billed as one night.
type CreateGuestBookingRequest struct {
	CreateBookingRequest
	GuestName  string `json:"guest_name" validate:"required,min=2,max=120"`
	GuestEmail string `json:"guest_email" validate:"required,email"`
	GuestPhone string `json:"guest_phone" validate:"required,min=8,max=20"`
}

type UpdateBookingStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

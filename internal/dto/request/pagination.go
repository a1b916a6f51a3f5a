package request

import "homestay-booking/internal/data/entity"

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

// BookingListRequest pages through the caller's own bookings, newest first.
type BookingListRequest struct {
	Page    int    `json:"page" validate:"min=1"`
	PerPage int    `json:"per_page" validate:"min=1,max=50"`
	Status  string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
}

func (p BookingListRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

func (p BookingListRequest) Limit() int {
	switch {
	case p.PerPage < 1:
		return defaultPerPage
	case p.PerPage > maxPerPage:
		return maxPerPage
	}
	return p.PerPage
}

// StatusFilter is empty when every status is wanted.
func (p BookingListRequest) StatusFilter() entity.BookingStatus {
	return entity.BookingStatus(p.Status)
}

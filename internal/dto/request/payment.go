package request

type CreatePaymentRequest struct {
	BookingID string  `json:"booking_id" validate:"required,uuid"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

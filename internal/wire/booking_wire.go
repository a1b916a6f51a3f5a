package wire

import (
	"homestay-booking/internal/adaptor"
	"homestay-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth *middleware.Authenticator,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// POST /api/bookings/guest - Book without an account
	r.Post("/api/bookings/guest", bookingHandler.CreateGuestBooking)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthSession)

		// POST /api/bookings - Book on the caller's account
		r.Post("/api/bookings", bookingHandler.CreateBooking)

		// GET /api/bookings/{id} - Party, listing owner or admin
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)

		// PUT /api/bookings/{id}/status - Cancel, confirm or complete
		r.Put("/api/bookings/{id}/status", bookingHandler.UpdateStatus)

		// GET /api/user/bookings - Caller's booking history
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
	})

	// ==================== OWNER ROUTES ====================
	r.Route("/api/owner", func(r chi.Router) {
		r.Use(auth.AuthSession)
		r.Use(middleware.AdminOnly(log))

		// GET /api/owner/rooms/{id}/bookings - Bookings of a managed room
		r.Get("/rooms/{id}/bookings", bookingHandler.GetRoomBookings)
	})
}

package wire

import (
	"homestay-booking/internal/adaptor"
	"homestay-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	auth *middleware.Authenticator,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments/webhook - Provider callback, authenticated by signature
		r.Post("/webhook", paymentHandler.Webhook)

		// Guests pay for guest bookings, so auth is optional here
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth)

			r.Post("/", paymentHandler.CreatePayment)
			r.Get("/booking/{bookingId}", paymentHandler.GetStatus)
			r.Post("/booking/{bookingId}/simulate", paymentHandler.Simulate)
		})

		// POST /api/payments/booking/{bookingId}/confirm - Listing owner or admin
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthSession)
			r.Use(middleware.AdminOnly(log))

			r.Post("/booking/{bookingId}/confirm", paymentHandler.Confirm)
		})
	})
}

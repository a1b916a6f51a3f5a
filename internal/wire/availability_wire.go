package wire

import (
	"homestay-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler) {
	// ==================== PUBLIC ROUTES ====================
	r.Route("/api/rooms/{id}/availability", func(r chi.Router) {
		// GET /api/rooms/{id}/availability?start=&end=
		r.Get("/", availabilityHandler.Check)

		// GET /api/rooms/{id}/availability/today?end=
		r.Get("/today", availabilityHandler.Today)
	})
}

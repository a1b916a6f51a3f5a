package wire

import (
	"homestay-booking/internal/adaptor"
	"homestay-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, auth *middleware.Authenticator) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/login", authHandler.Login)

	// ==================== PROTECTED ROUTES ====================
	r.With(auth.AuthSession).Post("/api/logout", authHandler.Logout)
}

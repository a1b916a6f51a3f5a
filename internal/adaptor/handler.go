package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"homestay-booking/internal/usecase"
	"homestay-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Health       *HealthHandler
}

func NewHandler(service *usecase.Service, pinger Pinger, log *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(service.Auth, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
		Booking:      NewBookingHandler(service.Booking, log),
		Payment:      NewPaymentHandler(service.Payment, log),
		Health:       NewHealthHandler(pinger, log),
	}
}

// decodeJSON reads the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// handleServiceError answers with the AppError's status and reason, or a
// plain 500 for anything else.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	if kind, ok := utils.KindOf(err); ok {
		if kind == utils.KindProvider {
			log.Error(operation+" failed - provider", zap.Error(err))
		} else {
			log.Warn(operation+" rejected", zap.Error(err), zap.String("kind", string(kind)))
		}
		utils.ResponseAppError(w, err)
		return
	}

	if errors.Is(err, context.Canceled) {
		log.Warn(operation+" cancelled by client")
		return
	}

	log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
	utils.ResponseInternalError(w, "Internal server error")
}

package adaptor

import (
	"net/http"

	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/usecase"
	"homestay-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// Check handles GET /api/rooms/{id}/availability?start=&end= (public)
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.AvailabilityRequest{
		StartDate: query.Get("start"),
		EndDate:   query.Get("end"),
	}

	result, err := h.service.CheckAvailability(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, h.log, err, "check availability")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// Today handles GET /api/rooms/{id}/availability/today?end= (public)
func (h *AvailabilityHandler) Today(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CheckSameDay(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("end"))
	if err != nil {
		handleServiceError(w, h.log, err, "check same-day availability")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

package adaptor

import (
	"io"
	"net/http"

	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/usecase"
	"homestay-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePayment handles POST /api/payments (optional auth)
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), utils.GetActorFromContext(r.Context()), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment")
		return
	}

	utils.ResponseCreated(w, "success", payment)
}

// GetStatus handles GET /api/payments/booking/{bookingId} (optional auth)
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.CheckPaymentStatus(r.Context(), utils.GetActorFromContext(r.Context()), chi.URLParam(r, "bookingId"))
	if err != nil {
		handleServiceError(w, h.log, err, "check payment status")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// Simulate handles POST /api/payments/booking/{bookingId}/simulate (non-production)
func (h *PaymentHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.SimulateSuccess(r.Context(), utils.GetActorFromContext(r.Context()), chi.URLParam(r, "bookingId"))
	if err != nil {
		handleServiceError(w, h.log, err, "simulate payment")
		return
	}

	utils.ResponseSuccess(w, "Payment simulated", payment)
}

// Confirm handles POST /api/payments/booking/{bookingId}/confirm (owner or admin)
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.OwnerConfirm(r.Context(), utils.GetActorFromContext(r.Context()), chi.URLParam(r, "bookingId"))
	if err != nil {
		handleServiceError(w, h.log, err, "confirm booking")
		return
	}

	utils.ResponseSuccess(w, "Booking confirmed", booking)
}

// Webhook handles POST /api/payments/webhook. The body is passed through
// untouched for signature verification.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), raw)
	if err != nil {
		handleServiceError(w, h.log, err, "handle webhook")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

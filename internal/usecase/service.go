package usecase

import (
	"context"

	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/gateway"
	"homestay-booking/internal/idempotency"
	"homestay-booking/internal/notification"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"go.uber.org/zap"
)

// PaymentProvider is the QR payment gateway as the services see it.
type PaymentProvider interface {
	CreateQuote(ctx context.Context, req gateway.QuoteRequest) (*gateway.Quote, error)
	GetStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error)
	VerifyWebhook(raw []byte) (*gateway.Event, error)
}

// Notifier accepts messages for asynchronous delivery.
type Notifier interface {
	Enqueue(m notification.Message) error
}

type Dependencies struct {
	Repo     *repository.Repository
	Tx       repository.Transactor
	Clock    clock.Clock
	Provider PaymentProvider
	Dedupe   idempotency.Store
	Notifier Notifier
	Config   *utils.Config
	Log      *zap.Logger
}

type Service struct {
	Auth         AuthService
	Availability AvailabilityService
	Booking      BookingService
	Payment      PaymentService
}

func NewService(deps Dependencies) *Service {
	if deps.Tx == nil {
		deps.Tx = deps.Repo
	}

	evaluator := newEvaluator(deps.Clock, deps.Config.Booking, deps.Log)
	notices := newNotices(deps.Notifier, deps.Repo.User, deps.Log)

	return &Service{
		Auth:         NewAuthService(deps.Repo, deps.Clock, deps.Config, deps.Log),
		Availability: NewAvailabilityService(deps.Repo, evaluator, deps.Clock, deps.Log),
		Booking:      NewBookingService(deps.Repo, deps.Tx, evaluator, notices, deps.Clock, deps.Log),
		Payment:      NewPaymentService(deps, notices),
	}
}

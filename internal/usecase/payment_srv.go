package usecase

import (
	"context"
	"errors"
	"math"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/dto/response"
	"homestay-booking/internal/gateway"
	"homestay-booking/internal/idempotency"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/database"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, actor entity.Actor, req *request.CreatePaymentRequest) (*response.PaymentResponse, error)
	CheckPaymentStatus(ctx context.Context, actor entity.Actor, bookingID string) (*response.PaymentResponse, error)
	HandleWebhook(ctx context.Context, raw []byte) (*response.WebhookResponse, error)

	// SimulateSuccess completes the pending payment without the provider.
	// Refused in production.
	SimulateSuccess(ctx context.Context, actor entity.Actor, bookingID string) (*response.PaymentResponse, error)

	// OwnerConfirm lets the listing owner confirm a booking whose payment
	// already completed.
	OwnerConfirm(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error)
}

type paymentService struct {
	repo     *repository.Repository
	tx       repository.Transactor
	provider PaymentProvider
	dedupe   idempotency.Store
	notices  *notices
	clock    clock.Clock
	config   *utils.Config
	log      *zap.Logger
}

func NewPaymentService(deps Dependencies, notices *notices) PaymentService {
	tx := deps.Tx
	if tx == nil {
		tx = deps.Repo
	}
	return &paymentService{
		repo:     deps.Repo,
		tx:       tx,
		provider: deps.Provider,
		dedupe:   deps.Dedupe,
		notices:  notices,
		clock:    deps.Clock,
		config:   deps.Config,
		log:      deps.Log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, actor entity.Actor, req *request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.ErrInvalidInput("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid booking ID format")
	}

	// 2. Booking must exist, belong to the payer and still be open
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		s.log.Error("Failed to load booking", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, err
	}
	if booking == nil {
		return nil, utils.ErrNotFound("booking not found")
	}
	if err := s.authorizePayer(ctx, actor, booking); err != nil {
		return nil, err
	}
	if booking.IsPaid {
		return nil, utils.ErrConflict("booking is already paid")
	}
	if booking.Status.IsTerminal() {
		return nil, utils.ErrConflict("booking is %s and cannot be paid", booking.Status)
	}

	// 3. At most one open payment
	now := s.clock.Now()
	if err := s.expireStale(ctx, bookingID); err != nil {
		return nil, err
	}
	pending, err := s.repo.Payment.FindPendingByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, utils.ErrConflict("a pending payment already exists for this booking").
			WithDetail("payment_id", pending.ID.String()).
			WithDetail("expires_at", pending.ExpiresAt)
	}

	// 4. Amount checks
	amount := utils.RoundMoney(req.Amount)
	if amount < s.config.Payment.MinAmount {
		return nil, utils.ErrInvalidInput("amount must be at least %.0f", s.config.Payment.MinAmount)
	}
	if math.Abs(amount-booking.TotalPrice) > s.config.Payment.AmountTolerance {
		return nil, utils.ErrConflict("amount does not match booking total").
			WithDetail("expected", booking.TotalPrice).
			WithDetail("received", amount)
	}

	// 5. Ask the provider for a QR code
	expiresAt := now.Add(s.config.Payment.Expiry())
	orderCode := utils.GenerateOrderCode(now)

	payment := &entity.Payment{
		BaseNoDelete: entity.NewBaseNoDelete(now),
		BookingID:    bookingID,
		Amount:       amount,
		Method:       entity.PaymentMethodQR,
		Status:       entity.PaymentStatusPending,
		ExpiresAt:    expiresAt,
	}

	quote, err := s.provider.CreateQuote(ctx, gateway.QuoteRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: booking.BookingNumber,
		ExpiresAt:   expiresAt,
	})
	switch {
	case err == nil:
		payment.ExternalID = quote.ExternalID
		payment.QRCode = quote.Code
		if quote.CheckoutURL != "" {
			payment.CheckoutURL = &quote.CheckoutURL
		}
	case s.config.IsProduction():
		s.log.Error("Payment provider failed", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, utils.ErrProvider(err, "payment provider unavailable, please try again later")
	default:
		s.log.Warn("Payment provider failed, issuing test payment",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
		)
		payment.IsTest = true
		payment.ExternalID = "TEST-" + gateway.ExternalIDFor(orderCode)
		payment.QRCode = "TEST-QR-" + booking.BookingNumber
	}

	// 6. Persist
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		if database.IsUniqueViolation(err) {
			if database.ConstraintName(err) == database.ConstraintPaymentExternalID {
				s.log.Warn("Payment reference collision",
					zap.String("booking_id", req.BookingID),
					zap.String("external_id", payment.ExternalID),
				)
				return nil, utils.ErrConflict("payment reference already in use, please retry")
			}
			return nil, utils.ErrConflict("a pending payment already exists for this booking")
		}
		return nil, err
	}

	s.log.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", req.BookingID),
		zap.String("external_id", payment.ExternalID),
		zap.Bool("test", payment.IsTest),
	)

	resp := response.PaymentToResponse(payment, booking, now)
	return &resp, nil
}

// expireStale fails a pending payment whose QR code already expired so a new
// one can be issued.
func (s *paymentService) expireStale(ctx context.Context, bookingID uuid.UUID) error {
	now := s.clock.Now()
	return s.tx.Transaction(ctx, func(tx *repository.Repository) error {
		pending, err := tx.Payment.FindPendingByBookingID(ctx, bookingID)
		if err != nil || pending == nil {
			return err
		}

		locked, err := tx.Payment.LockByID(ctx, pending.ID)
		if err != nil || locked == nil || !locked.IsExpired(now) {
			return err
		}

		locked.Status = entity.PaymentStatusFailed
		locked.UpdatedAt = now
		s.log.Info("Expired payment closed",
			zap.String("payment_id", locked.ID.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return tx.Payment.Update(ctx, locked)
	})
}

func (s *paymentService) HandleWebhook(ctx context.Context, raw []byte) (*response.WebhookResponse, error) {
	event, err := s.provider.VerifyWebhook(raw)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			s.log.Warn("Webhook signature rejected")
			return nil, utils.ErrUnauthorized("invalid webhook signature")
		}
		return nil, utils.ErrInvalidInput("malformed webhook payload")
	}

	status, ok := paymentStatusFor(event.Status)
	if !ok {
		return &response.WebhookResponse{ExternalID: event.ExternalID}, nil
	}

	// replay filter; the payment row lock below stays authoritative
	key := idempotency.WebhookKey(event.ExternalID, string(event.Status))
	if s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, key)
		if err != nil {
			s.log.Warn("Webhook dedupe unavailable", zap.Error(err))
		} else if seen {
			s.log.Info("Duplicate webhook ignored", zap.String("external_id", event.ExternalID))
			return &response.WebhookResponse{ExternalID: event.ExternalID, Status: status, Duplicate: true}, nil
		}
	}

	result, err := s.reconcile(ctx, func(tx *repository.Repository) (*entity.Payment, error) {
		return tx.Payment.FindByExternalID(ctx, event.ExternalID)
	}, status)
	if err != nil {
		return nil, err
	}

	// marked only once the outcome is committed
	if s.dedupe != nil {
		if err := s.dedupe.Mark(ctx, key); err != nil {
			s.log.Warn("Failed to record webhook key", zap.Error(err))
		}
	}

	return &response.WebhookResponse{
		ExternalID: event.ExternalID,
		Status:     result.Payment.Status,
		Duplicate:  !result.Applied,
	}, nil
}

func (s *paymentService) SimulateSuccess(ctx context.Context, actor entity.Actor, bookingID string) (*response.PaymentResponse, error) {
	if s.config.IsProduction() {
		return nil, utils.ErrForbidden("payment simulation is disabled in production")
	}

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePayer(ctx, actor, booking); err != nil {
		return nil, err
	}

	result, err := s.reconcile(ctx, func(tx *repository.Repository) (*entity.Payment, error) {
		return tx.Payment.FindLatestByBookingID(ctx, booking.ID)
	}, entity.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}
	if result.Payment.Status != entity.PaymentStatusCompleted {
		return nil, utils.ErrConflict("no pending payment for this booking")
	}

	resp := response.PaymentToResponse(result.Payment, result.Booking, s.clock.Now())
	return &resp, nil
}

func (s *paymentService) CheckPaymentStatus(ctx context.Context, actor entity.Actor, bookingID string) (*response.PaymentResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePayer(ctx, actor, booking); err != nil {
		return nil, err
	}

	payment, err := s.repo.Payment.FindLatestByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, utils.ErrNotFound("no payment for this booking")
	}

	if payment.Status == entity.PaymentStatusPending && !payment.IsTest {
		remote, err := s.provider.GetStatus(ctx, payment.ExternalID)
		if err != nil {
			// answer with what we have; the webhook may still arrive
			s.log.Warn("Payment status poll failed", zap.Error(err), zap.String("external_id", payment.ExternalID))
		} else if status, ok := paymentStatusFor(remote.Status); ok {
			result, err := s.reconcile(ctx, func(tx *repository.Repository) (*entity.Payment, error) {
				return tx.Payment.FindByID(ctx, payment.ID)
			}, status)
			if err != nil {
				return nil, err
			}
			payment, booking = result.Payment, result.Booking
		}
	}

	resp := response.PaymentToResponse(payment, booking, s.clock.Now())
	return &resp, nil
}

func (s *paymentService) OwnerConfirm(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.Room.FindDetailByID(ctx, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, utils.ErrNotFound("room not found")
	}

	admin, ok := actor.(entity.AdminActor)
	if !ok {
		return nil, utils.ErrForbidden("only the listing owner can confirm bookings")
	}
	if !manages(admin, detail) {
		return nil, utils.ErrForbidden("you do not manage this listing")
	}

	payment, err := s.repo.Payment.FindLatestByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.Status != entity.PaymentStatusCompleted {
		return nil, utils.ErrConflict("payment has not been completed")
	}

	now := s.clock.Now()
	var result *transition
	err = s.tx.Transaction(ctx, func(tx *repository.Repository) error {
		result, err = applyTransition(ctx, tx, booking.ID, transitionOpts{
			Target:      entity.BookingStatusConfirmed,
			MarkPaid:    true,
			ClearManual: true,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking confirmed by owner",
		zap.String("booking_id", bookingID),
		zap.String("owner_id", admin.UserID.String()),
		zap.Bool("changed", result.Changed),
	)
	if result.Changed {
		s.notices.statusChanged(ctx, result.Booking, result.From)
		if detail.Status != entity.RoomStatusMaintenance {
			detail.Status = entity.RoomStatusOccupied
		}
	}

	resp := response.BookingToResponse(result.Booking, detail)
	return &resp, nil
}

type reconcileResult struct {
	Payment    *entity.Payment
	Booking    *entity.Booking
	Transition *transition
	// Applied is false when the payment was already terminal.
	Applied bool
}

// reconcile moves one payment to a terminal status and, on completion,
// confirms its booking through applyTransition. A payment that is already
// terminal is left untouched, so replays have no side effects.
func (s *paymentService) reconcile(
	ctx context.Context,
	locate func(tx *repository.Repository) (*entity.Payment, error),
	status entity.PaymentStatus,
) (*reconcileResult, error) {
	now := s.clock.Now()
	res := &reconcileResult{}

	err := s.tx.Transaction(ctx, func(tx *repository.Repository) error {
		found, err := locate(tx)
		if err != nil {
			return err
		}
		if found == nil {
			return utils.ErrNotFound("payment not found")
		}

		payment, err := tx.Payment.LockByID(ctx, found.ID)
		if err != nil {
			return err
		}
		res.Payment = payment

		if payment.Status.IsTerminal() {
			if payment.Status != status {
				s.log.Warn("Conflicting payment outcome ignored",
					zap.String("payment_id", payment.ID.String()),
					zap.String("stored", string(payment.Status)),
					zap.String("reported", string(status)),
				)
			}
			res.Booking, err = tx.Booking.FindByID(ctx, payment.BookingID)
			return err
		}

		payment.Status = status
		payment.UpdatedAt = now
		if status == entity.PaymentStatusCompleted {
			payment.CompletedAt = &now
		}
		if err := tx.Payment.Update(ctx, payment); err != nil {
			return err
		}
		res.Applied = true

		if status != entity.PaymentStatusCompleted {
			res.Booking, err = tx.Booking.FindByID(ctx, payment.BookingID)
			return err
		}

		res.Transition, err = applyTransition(ctx, tx, payment.BookingID, transitionOpts{
			Target:       entity.BookingStatusConfirmed,
			MarkPaid:     true,
			KeepTerminal: true,
		}, now)
		if err != nil {
			return err
		}
		res.Booking = res.Transition.Booking
		return nil
	})
	if err != nil {
		if !utils.IsKind(err, utils.KindNotFound) {
			s.log.Error("Failed to reconcile payment", zap.Error(err))
		}
		return nil, err
	}

	if !res.Applied {
		return res, nil
	}

	s.log.Info("Payment reconciled",
		zap.String("payment_id", res.Payment.ID.String()),
		zap.String("booking_id", res.Payment.BookingID.String()),
		zap.String("status", string(res.Payment.Status)),
	)

	if res.Booking != nil && status == entity.PaymentStatusCompleted && res.Booking.Status.IsTerminal() {
		s.log.Warn("Payment completed for a closed booking, refund required",
			zap.String("booking_id", res.Booking.ID.String()),
			zap.String("booking_status", string(res.Booking.Status)),
		)
	}

	if res.Booking != nil {
		s.notices.paymentSettled(ctx, res.Booking, res.Payment)
		if res.Transition != nil && res.Transition.Changed {
			s.notices.statusChanged(ctx, res.Booking, res.Transition.From)
		}
	}

	return res, nil
}

func (s *paymentService) loadBooking(ctx context.Context, bookingID string) (*entity.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid booking ID format")
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, utils.ErrNotFound("booking not found")
	}
	return booking, nil
}

func paymentStatusFor(s gateway.Status) (entity.PaymentStatus, bool) {
	switch s {
	case gateway.StatusPaid:
		return entity.PaymentStatusCompleted, true
	case gateway.StatusFailed:
		return entity.PaymentStatusFailed, true
	default:
		return "", false
	}
}

// authorizePayer lets the booking's user, the owner managing its listing, or
// anyone holding a guest booking's id act on its payment.
func (s *paymentService) authorizePayer(ctx context.Context, actor entity.Actor, b *entity.Booking) error {
	switch a := actor.(type) {
	case entity.AdminActor:
		if b.IsGuestBooking() || b.OwnedBy(a.UserID) {
			return nil
		}
		detail, err := s.repo.Room.FindDetailByID(ctx, b.RoomID)
		if err != nil {
			return err
		}
		if detail == nil {
			return utils.ErrNotFound("room not found")
		}
		if !manages(a, detail) {
			return utils.ErrForbidden("you do not manage this listing")
		}
		return nil
	case entity.RegisteredUserActor:
		if b.IsGuestBooking() || b.OwnedBy(a.UserID) {
			return nil
		}
		return utils.ErrForbidden("this booking belongs to another user")
	case entity.GuestActor:
		if b.IsGuestBooking() {
			return nil
		}
		return utils.ErrUnauthorized("authentication required")
	default:
		return utils.ErrUnauthorized("unknown caller")
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/dto/response"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/database"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Registered users and admins
	CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, actor entity.Actor, req *request.BookingListRequest) (*response.BookingPage, error)
	GetBooking(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error)
	UpdateBookingStatus(ctx context.Context, actor entity.Actor, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)

	// Public
	CreateGuestBooking(ctx context.Context, req *request.CreateGuestBookingRequest) (*response.BookingResponse, error)

	// Owners and admins
	GetRoomBookings(ctx context.Context, actor entity.Actor, roomID string) ([]response.BookingResponse, error)
}

type bookingService struct {
	repo      *repository.Repository
	tx        repository.Transactor
	evaluator *evaluator
	notices   *notices
	clock     clock.Clock
	log       *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	tx repository.Transactor,
	evaluator *evaluator,
	notices *notices,
	c clock.Clock,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:      repo,
		tx:        tx,
		evaluator: evaluator,
		notices:   notices,
		clock:     c,
		log:       log.With(zap.String("service", "booking")),
	}
}

type newBooking struct {
	roomID uuid.UUID
	start  time.Time
	end    time.Time
	guests int
	userID *uuid.UUID
	guest  *entity.GuestContact
}

func (s *bookingService) CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// 1. Only an identified caller books on its own account
	userID, ok := entity.ActorUserID(actor)
	if !ok {
		return nil, utils.ErrUnauthorized("authentication required")
	}

	// 2. Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, utils.ErrInvalidInput("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	start, end, err := parseStay(req.StartDate, req.EndDate, clock.Today(s.clock), rejectEmptyStay)
	if err != nil {
		return nil, err
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid room ID format")
	}

	// 3. Reserve
	return s.create(ctx, newBooking{
		roomID: roomID,
		start:  start,
		end:    end,
		guests: req.Guests,
		userID: &userID,
	})
}

func (s *bookingService) CreateGuestBooking(ctx context.Context, req *request.CreateGuestBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create guest booking validation failed", zap.Any("errors", errs))
		return nil, utils.ErrInvalidInput("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	start, end, err := parseStay(req.StartDate, req.EndDate, clock.Today(s.clock), coerceSameDay)
	if err != nil {
		return nil, err
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid room ID format")
	}

	return s.create(ctx, newBooking{
		roomID: roomID,
		start:  start,
		end:    end,
		guests: req.Guests,
		guest: &entity.GuestContact{
			Name:  req.GuestName,
			Email: req.GuestEmail,
			Phone: req.GuestPhone,
		},
	})
}

func (s *bookingService) create(ctx context.Context, in newBooking) (*response.BookingResponse, error) {
	if in.guests <= 0 {
		return nil, utils.ErrInvalidInput("guest count must be positive")
	}

	detail, err := s.repo.Room.FindDetailByID(ctx, in.roomID)
	if err != nil {
		s.log.Error("Failed to load room", zap.Error(err), zap.String("room_id", in.roomID.String()))
		return nil, err
	}
	if detail == nil {
		return nil, utils.ErrNotFound("room not found")
	}
	if detail.MaxGuests > 0 && in.guests > detail.MaxGuests {
		return nil, utils.ErrInvalidInput("room accepts at most %d guests", detail.MaxGuests).
			WithDetail("max_guests", detail.MaxGuests)
	}

	now := s.clock.Now()
	nights := clock.Nights(in.start, in.end)
	booking := &entity.Booking{
		BaseNoDelete:               entity.NewBaseNoDelete(now),
		BookingNumber:              utils.GenerateBookingNumber(now),
		RoomID:                     in.roomID,
		UserID:                     in.userID,
		Guest:                      in.guest,
		StartDate:                  in.start,
		EndDate:                    in.end,
		Guests:                     in.guests,
		TotalPrice:                 utils.RoundMoney(detail.NightlyRate * float64(nights)),
		Status:                     entity.BookingStatusPending,
		IsPaid:                     false,
		ManualConfirmationRequired: true,
	}

	err = s.tx.Transaction(ctx, func(tx *repository.Repository) error {
		room, err := tx.Room.LockByID(ctx, in.roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return utils.ErrNotFound("room not found")
		}

		verdict, err := s.evaluator.Evaluate(ctx, tx, room, in.start, in.end)
		if err != nil {
			return err
		}
		if !verdict.Available {
			return conflictError(verdict)
		}

		// rate may have changed since the detail read
		booking.TotalPrice = utils.RoundMoney(room.NightlyRate * float64(nights))

		if err := tx.Booking.Create(ctx, booking); err != nil {
			return classifyBookingWrite(err)
		}

		if err := tx.Room.UpdateStatus(ctx, room.ID, entity.RoomStatusOccupied, now); err != nil {
			return fmt.Errorf("sync room status: %w", err)
		}
		detail.Status = entity.RoomStatusOccupied
		return nil
	})
	if err != nil {
		if utils.IsKind(err, utils.KindConflict) {
			s.log.Warn("Booking rejected",
				zap.String("room_id", in.roomID.String()),
				zap.String("start_date", clock.FormatDate(in.start)),
				zap.String("end_date", clock.FormatDate(in.end)),
				zap.String("reason", err.Error()),
			)
		} else {
			s.log.Error("Failed to create booking", zap.Error(err), zap.String("room_id", in.roomID.String()))
		}
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_number", booking.BookingNumber),
		zap.String("room_id", booking.RoomID.String()),
		zap.Bool("guest", booking.IsGuestBooking()),
		zap.Int("nights", nights),
		zap.Float64("total_price", booking.TotalPrice),
	)

	s.notices.bookingCreated(ctx, booking, detail)

	resp := response.BookingToResponse(booking, detail)
	return &resp, nil
}

// classifyBookingWrite maps constraint failures raised by a concurrent
// writer to a conflict.
func classifyBookingWrite(err error) error {
	switch {
	case database.IsExclusionViolation(err):
		return utils.ErrConflict("%s", ReasonBooked)
	case database.IsUniqueViolation(err):
		return utils.ErrConflict("booking number already in use, please retry")
	default:
		return err
	}
}

func (s *bookingService) GetBooking(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error) {
	booking, detail, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := authorizeView(actor, booking, detail); err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking, detail)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, actor entity.Actor, req *request.BookingListRequest) (*response.BookingPage, error) {
	userID, ok := entity.ActorUserID(actor)
	if !ok {
		return nil, utils.ErrUnauthorized("authentication required")
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, req.StatusFilter(), req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get user bookings", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, err
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID, req.StatusFilter())
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, err
	}

	details := make(map[uuid.UUID]*entity.RoomDetail)
	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		detail, seen := details[b.RoomID]
		if !seen {
			detail, err = s.repo.Room.FindDetailByID(ctx, b.RoomID)
			if err != nil {
				s.log.Warn("Failed to load room summary", zap.Error(err), zap.String("room_id", b.RoomID.String()))
			}
			details[b.RoomID] = detail
		}
		data = append(data, response.BookingToResponse(b, detail))
	}

	return response.NewBookingPage(data, req.Page, req.Limit(), total, req.Status), nil
}

func (s *bookingService) GetRoomBookings(ctx context.Context, actor entity.Actor, roomID string) ([]response.BookingResponse, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid room ID format")
	}

	detail, err := s.repo.Room.FindDetailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, utils.ErrNotFound("room not found")
	}

	admin, ok := actor.(entity.AdminActor)
	if !ok {
		return nil, utils.ErrForbidden("owner or admin access required")
	}
	if !admin.IsSuperAdmin() && detail.OwnerID != admin.UserID {
		return nil, utils.ErrForbidden("you do not manage this listing")
	}

	bookings, err := s.repo.Booking.FindByRoom(ctx, id)
	if err != nil {
		s.log.Error("Failed to get room bookings", zap.Error(err), zap.String("room_id", roomID))
		return nil, err
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b, nil))
	}
	return data, nil
}

func (s *bookingService) UpdateBookingStatus(ctx context.Context, actor entity.Actor, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.ErrInvalidInput("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	target, err := entity.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, utils.ErrInvalidInput("%s", err.Error())
	}

	// 2. Load and authorize
	booking, detail, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatusChange(actor, booking, detail, target); err != nil {
		s.log.Warn("Status change refused",
			zap.String("booking_id", bookingID),
			zap.String("target", string(target)),
			zap.String("reason", err.Error()),
		)
		return nil, err
	}

	// 3. Transition booking and room together
	now := s.clock.Now()
	var result *transition
	err = s.tx.Transaction(ctx, func(tx *repository.Repository) error {
		result, err = applyTransition(ctx, tx, booking.ID, transitionOpts{Target: target, Reason: req.Reason}, now)
		return err
	})
	if err != nil {
		if !utils.IsKind(err, utils.KindConflict) {
			s.log.Error("Failed to update booking status", zap.Error(err), zap.String("booking_id", bookingID))
		}
		return nil, err
	}

	// 4. Notify after commit
	if result.Changed {
		s.log.Info("Booking status changed",
			zap.String("booking_id", bookingID),
			zap.String("from", string(result.From)),
			zap.String("to", string(result.Booking.Status)),
		)
		s.notices.statusChanged(ctx, result.Booking, result.From)
		if detail.Status != entity.RoomStatusMaintenance {
			detail.Status = target.RoomStatusAfter()
		}
	}

	resp := response.BookingToResponse(result.Booking, detail)
	return &resp, nil
}

func (s *bookingService) load(ctx context.Context, bookingID string) (*entity.Booking, *entity.RoomDetail, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, nil, utils.ErrInvalidInput("invalid booking ID format")
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to load booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, nil, err
	}
	if booking == nil {
		return nil, nil, utils.ErrNotFound("booking not found")
	}

	detail, err := s.repo.Room.FindDetailByID(ctx, booking.RoomID)
	if err != nil {
		return nil, nil, err
	}
	if detail == nil {
		return nil, nil, utils.ErrNotFound("room not found")
	}

	return booking, detail, nil
}

// manages reports whether an admin actor may act on bookings of the room.
func manages(a entity.AdminActor, detail *entity.RoomDetail) bool {
	return a.IsSuperAdmin() || detail.OwnerID == a.UserID
}

func authorizeView(actor entity.Actor, b *entity.Booking, detail *entity.RoomDetail) error {
	switch a := actor.(type) {
	case entity.AdminActor:
		if manages(a, detail) || b.OwnedBy(a.UserID) {
			return nil
		}
		return utils.ErrForbidden("you do not manage this listing")
	case entity.RegisteredUserActor:
		if b.OwnedBy(a.UserID) {
			return nil
		}
		return utils.ErrForbidden("this booking belongs to another user")
	case entity.GuestActor:
		return utils.ErrUnauthorized("authentication required")
	default:
		return utils.ErrUnauthorized("unknown caller")
	}
}

func authorizeStatusChange(actor entity.Actor, b *entity.Booking, detail *entity.RoomDetail, target entity.BookingStatus) error {
	switch a := actor.(type) {
	case entity.AdminActor:
		if manages(a, detail) {
			return nil
		}
		if b.OwnedBy(a.UserID) && target == entity.BookingStatusCancelled {
			return nil
		}
		return utils.ErrForbidden("you do not manage this listing")
	case entity.RegisteredUserActor:
		if !b.OwnedBy(a.UserID) {
			return utils.ErrForbidden("this booking belongs to another user")
		}
		if target != entity.BookingStatusCancelled {
			return utils.ErrForbidden("you can only cancel your own booking")
		}
		return nil
	case entity.GuestActor:
		return utils.ErrUnauthorized("authentication required")
	default:
		return utils.ErrUnauthorized("unknown caller")
	}
}

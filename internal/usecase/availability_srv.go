package usecase

import (
	"context"
	"time"

	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/dto/response"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	CheckAvailability(ctx context.Context, roomID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
	// CheckSameDay evaluates a stay starting today. An empty end means one night.
	CheckSameDay(ctx context.Context, roomID string, endDate string) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	repo      *repository.Repository
	evaluator *evaluator
	clock     clock.Clock
	log       *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, evaluator *evaluator, c clock.Clock, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		evaluator: evaluator,
		clock:     c,
		log:       log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) CheckAvailability(ctx context.Context, roomID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.ErrInvalidInput("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	start, end, err := parseStay(req.StartDate, req.EndDate, clock.Today(s.clock), rejectEmptyStay)
	if err != nil {
		return nil, err
	}

	return s.check(ctx, roomID, start, end)
}

func (s *availabilityService) CheckSameDay(ctx context.Context, roomID string, endDate string) (*response.AvailabilityResponse, error) {
	today := clock.Today(s.clock)

	end := today.AddDate(0, 0, 1)
	if endDate != "" {
		parsed, err := clock.ParseDate(endDate)
		if err != nil {
			return nil, utils.ErrInvalidInput("%s", err.Error())
		}
		end = parsed
	}
	if !end.After(today) {
		return nil, utils.ErrInvalidInput("end date must be after start date")
	}

	return s.check(ctx, roomID, today, end)
}

func (s *availabilityService) check(ctx context.Context, roomID string, start, end time.Time) (*response.AvailabilityResponse, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, utils.ErrInvalidInput("invalid room ID format")
	}

	room, err := s.repo.Room.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, utils.ErrNotFound("room not found")
	}

	verdict, err := s.evaluator.Evaluate(ctx, s.repo, room, start, end)
	if err != nil {
		s.log.Error("Failed to evaluate availability", zap.Error(err), zap.String("room_id", roomID))
		return nil, err
	}

	nights := clock.Nights(start, end)
	resp := &response.AvailabilityResponse{
		RoomID:         room.ID.String(),
		StartDate:      clock.FormatDate(start),
		EndDate:        clock.FormatDate(end),
		Nights:         nights,
		Available:      verdict.Available,
		Reason:         verdict.Reason,
		ReadyAt:        verdict.ReadyAt,
		EstimatedPrice: utils.RoundMoney(room.NightlyRate * float64(nights)),
	}
	if verdict.MinutesRemaining > 0 {
		minutes := verdict.MinutesRemaining
		resp.MinutesRemaining = &minutes
	}
	if verdict.NextAvailable != nil {
		next := clock.FormatDate(*verdict.NextAvailable)
		resp.NextAvailable = &next
	}

	return resp, nil
}

type nightPolicy int

const (
	// rejectEmptyStay refuses end <= start.
	rejectEmptyStay nightPolicy = iota
	// coerceSameDay bills start == end as one night and refuses end < start.
	coerceSameDay
)

func parseStay(startRaw, endRaw string, today time.Time, policy nightPolicy) (time.Time, time.Time, error) {
	start, err := clock.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, utils.ErrInvalidInput("%s", err.Error())
	}
	end, err := clock.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, utils.ErrInvalidInput("%s", err.Error())
	}

	if start.Before(today) {
		return time.Time{}, time.Time{}, utils.ErrInvalidInput("start date cannot be in the past")
	}

	if policy == coerceSameDay && end.Equal(start) {
		end = start.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, utils.ErrInvalidInput("end date must be after start date")
	}

	return start, end, nil
}

package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultHousekeepingBuffer = 2 * time.Hour
	defaultHintHorizonDays    = 30

	ReasonOccupied    = "room occupied"
	ReasonBooked      = "room is already booked for the selected dates"
	ReasonMaintenance = "room under maintenance"
)

// Availability is the verdict for one room and date range.
type Availability struct {
	Available        bool
	Reason           string
	MinutesRemaining int
	ReadyAt          *time.Time
	NextAvailable    *time.Time
}

// evaluator decides whether a [start, end) stay fits a room. It reads
// through whichever repository it is handed, so the booking path can run it
// inside the transaction that holds the room lock.
type evaluator struct {
	clock   clock.Clock
	buffer  time.Duration
	horizon int
	log     *zap.Logger
}

func newEvaluator(c clock.Clock, cfg utils.BookingConfig, log *zap.Logger) *evaluator {
	buffer := cfg.HousekeepingBuffer()
	if buffer <= 0 {
		buffer = defaultHousekeepingBuffer
	}
	horizon := cfg.HintHorizonDays
	if horizon <= 0 {
		horizon = defaultHintHorizonDays
	}

	return &evaluator{
		clock:   c,
		buffer:  buffer,
		horizon: horizon,
		log:     log.With(zap.String("component", "availability")),
	}
}

func (e *evaluator) Evaluate(ctx context.Context, repo *repository.Repository, room *entity.Room, start, end time.Time) (*Availability, error) {
	if room.Status == entity.RoomStatusMaintenance {
		return &Availability{Reason: ReasonMaintenance}, nil
	}

	active, err := repo.Booking.FindActiveByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load active bookings: %w", err)
	}

	today := clock.Today(e.clock)
	if start.Equal(today) {
		for _, b := range active {
			if b.Covers(today) {
				return &Availability{
					Reason:        ReasonOccupied,
					NextAvailable: e.nextAvailable(active, start, end),
				}, nil
			}
		}

		verdict, err := e.housekeeping(ctx, repo, room, today)
		if err != nil {
			return nil, err
		}
		if verdict != nil {
			return verdict, nil
		}
	}

	for _, b := range active {
		if b.Overlaps(start, end) {
			return &Availability{
				Reason:        ReasonBooked,
				NextAvailable: e.nextAvailable(active, start, end),
			}, nil
		}
	}

	return &Availability{Available: true}, nil
}

// housekeeping blocks a same-day check-in until the buffer after an early
// checkout completed today has passed.
func (e *evaluator) housekeeping(ctx context.Context, repo *repository.Repository, room *entity.Room, today time.Time) (*Availability, error) {
	loc := e.clock.Location()
	dayStart := clock.StartOfDay(today, loc)

	done, err := repo.Booking.FindLatestCompletedBetween(ctx, room.ID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load completed booking: %w", err)
	}
	if done == nil || done.CompletedAt == nil {
		return nil, nil
	}

	now := e.clock.Now()
	readyAt := done.CompletedAt.Add(e.buffer).In(loc)
	if !now.Before(readyAt) {
		return nil, nil
	}

	minutes := int(math.Ceil(readyAt.Sub(now).Minutes()))
	e.log.Debug("Same-day check-in blocked by housekeeping",
		zap.String("room_id", room.ID.String()),
		zap.Time("ready_at", readyAt),
		zap.Int("minutes_remaining", minutes),
	)

	return &Availability{
		Reason:           fmt.Sprintf("housekeeping in progress, ready at %s (%d minutes remaining)", readyAt.Format("15:04"), minutes),
		MinutesRemaining: minutes,
		ReadyAt:          &readyAt,
	}, nil
}

// nextAvailable scans forward for the first start day where a stay of the
// same length fits. It is a suggestion only.
func (e *evaluator) nextAvailable(active []*entity.Booking, start, end time.Time) *time.Time {
	nights := clock.Nights(start, end)
	if nights < 1 {
		nights = 1
	}

	for i := 1; i <= e.horizon; i++ {
		from := start.AddDate(0, 0, i)
		to := from.AddDate(0, 0, nights)

		free := true
		for _, b := range active {
			if b.Overlaps(from, to) {
				free = false
				break
			}
		}
		if free {
			return &from
		}
	}
	return nil
}

// conflictError turns a negative verdict into the caller-facing rejection.
func conflictError(a *Availability) *utils.AppError {
	err := utils.ErrConflict("%s", a.Reason)
	if a.MinutesRemaining > 0 {
		err.WithDetail("minutes_remaining", a.MinutesRemaining)
	}
	if a.ReadyAt != nil {
		err.WithDetail("ready_at", a.ReadyAt.Format(time.RFC3339))
	}
	if a.NextAvailable != nil {
		err.WithDetail("next_available", clock.FormatDate(*a.NextAvailable))
	}
	return err
}

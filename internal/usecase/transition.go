package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
)

type transitionOpts struct {
	Target entity.BookingStatus
	Reason *string
	// MarkPaid sets is_paid in the same write.
	MarkPaid bool
	// ClearManual drops the manual confirmation requirement.
	ClearManual bool
	// KeepTerminal leaves a cancelled or completed booking in place instead
	// of rejecting the move. Flags are still applied.
	KeepTerminal bool
}

type transition struct {
	Booking *entity.Booking
	From    entity.BookingStatus
	Changed bool
}

// applyTransition is the only writer of booking status and room status. It
// must run inside a transaction: it locks the room, re-reads the booking and
// then writes both rows.
func applyTransition(ctx context.Context, tx *repository.Repository, bookingID uuid.UUID, opts transitionOpts, now time.Time) (*transition, error) {
	booking, err := tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, utils.ErrNotFound("booking not found")
	}

	room, err := tx.Room.LockByID(ctx, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, utils.ErrNotFound("room not found")
	}

	// re-read under the room lock
	booking, err = tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	target := opts.Target
	if opts.KeepTerminal && booking.Status.IsTerminal() {
		target = booking.Status
	}

	noop, err := booking.Status.CheckTransition(target)
	if err != nil {
		var te *entity.TransitionError
		if errors.As(err, &te) {
			return nil, utils.ErrConflict("%s", te.Error()).
				WithDetail("from", string(te.From)).
				WithDetail("to", string(te.To))
		}
		return nil, utils.ErrInvalidInput("%s", err.Error())
	}

	result := &transition{Booking: booking, From: booking.Status}
	dirty := false

	if opts.MarkPaid && !booking.IsPaid {
		booking.IsPaid = true
		dirty = true
	}
	if opts.ClearManual && booking.ManualConfirmationRequired {
		booking.ManualConfirmationRequired = false
		dirty = true
	}

	if !noop {
		switch target {
		case entity.BookingStatusCancelled:
			booking.CancellationReason = opts.Reason
			booking.CancelledAt = &now
		case entity.BookingStatusConfirmed:
			booking.ConfirmedAt = &now
		case entity.BookingStatusCompleted:
			booking.CompletedAt = &now
		}
		booking.Status = target
		result.Changed = true
		dirty = true
	}

	if !dirty {
		return result, nil
	}

	booking.UpdatedAt = now
	if err := tx.Booking.Update(ctx, booking); err != nil {
		return nil, err
	}

	if result.Changed && room.Status != entity.RoomStatusMaintenance {
		if err := tx.Room.UpdateStatus(ctx, room.ID, target.RoomStatusAfter(), now); err != nil {
			return nil, fmt.Errorf("sync room status: %w", err)
		}
	}

	return result, nil
}

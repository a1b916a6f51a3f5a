package usecase

import (
	"context"
	"testing"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/dto/request"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(entity.BookingStatusConfirmed, "2025-06-05", "2025-06-08", &f.customer)

	tests := []struct {
		name      string
		start     string
		end       string
		available bool
		next      string
	}{
		{"before", "2025-06-02", "2025-06-05", true, ""},
		{"after checkout", "2025-06-08", "2025-06-09", true, ""},
		{"inside", "2025-06-06", "2025-06-07", false, "2025-06-08"},
		{"spanning", "2025-06-04", "2025-06-09", false, "2025-06-08"},
		{"tail overlap", "2025-06-07", "2025-06-10", false, "2025-06-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Availability.CheckAvailability(ctx, room11.String(), &request.AvailabilityRequest{
				StartDate: tt.start,
				EndDate:   tt.end,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.available, resp.Available)
			assert.Equal(t, float64(resp.Nights*nightlyRate), resp.EstimatedPrice)

			if tt.available {
				assert.Empty(t, resp.Reason)
				assert.Nil(t, resp.NextAvailable)
				return
			}
			assert.Equal(t, ReasonBooked, resp.Reason)
			require.NotNil(t, resp.NextAvailable)
			assert.Equal(t, tt.next, *resp.NextAvailable)
		})
	}
}

func TestCheckAvailabilityErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Availability.CheckAvailability(ctx, uuid.NewString(), &request.AvailabilityRequest{StartDate: "2025-06-05", EndDate: "2025-06-06"})
	requireKind(t, err, utils.KindNotFound)

	_, err = f.svc.Availability.CheckAvailability(ctx, "room-11", &request.AvailabilityRequest{StartDate: "2025-06-05", EndDate: "2025-06-06"})
	requireKind(t, err, utils.KindInvalidInput)

	_, err = f.svc.Availability.CheckAvailability(ctx, room11.String(), &request.AvailabilityRequest{StartDate: "2025-06-05", EndDate: "2025-06-05"})
	requireKind(t, err, utils.KindInvalidInput)

	_, err = f.svc.Availability.CheckAvailability(ctx, room11.String(), &request.AvailabilityRequest{StartDate: "2025-05-31", EndDate: "2025-06-02"})
	requireKind(t, err, utils.KindInvalidInput)
}

func TestCheckSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Availability.CheckSameDay(ctx, room11.String(), "")
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Equal(t, "2025-06-01", resp.StartDate)
	assert.Equal(t, "2025-06-02", resp.EndDate)

	stay := f.seedBooking(entity.BookingStatusConfirmed, "2025-05-29", "2025-06-02", &f.customer)
	f.at(9, 0)
	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), stay.ID.String(),
		&request.UpdateBookingStatusRequest{Status: string(entity.BookingStatusCompleted)})
	require.NoError(t, err)

	f.at(9, 45)
	resp, err = f.svc.Availability.CheckSameDay(ctx, room11.String(), "2025-06-03")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	require.NotNil(t, resp.MinutesRemaining)
	assert.Equal(t, 75, *resp.MinutesRemaining)
	require.NotNil(t, resp.ReadyAt)
	assert.Equal(t, "11:00", resp.ReadyAt.Format("15:04"))

	// later stays are not held up by housekeeping
	resp, err = f.svc.Availability.CheckAvailability(ctx, room11.String(), &request.AvailabilityRequest{StartDate: "2025-06-02", EndDate: "2025-06-03"})
	require.NoError(t, err)
	assert.True(t, resp.Available)

	// the full range is checked as well
	f.at(11, 30)
	f.seedBooking(entity.BookingStatusPending, "2025-06-02", "2025-06-04", &f.stranger)
	resp, err = f.svc.Availability.CheckSameDay(ctx, room11.String(), "2025-06-03")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, ReasonBooked, resp.Reason)

	_, err = f.svc.Availability.CheckSameDay(ctx, room11.String(), "2025-06-01")
	requireKind(t, err, utils.KindInvalidInput)
}

func TestCheckSameDayOccupiedAndMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(entity.BookingStatusPending, "2025-05-31", "2025-06-02", &f.customer)

	resp, err := f.svc.Availability.CheckSameDay(ctx, room11.String(), "")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, ReasonOccupied, resp.Reason)
	require.NotNil(t, resp.NextAvailable)
	assert.Equal(t, "2025-06-02", *resp.NextAvailable)

	require.NoError(t, f.store.Repository().Room.UpdateStatus(ctx, room11, entity.RoomStatusMaintenance, f.clock.Now()))
	resp, err = f.svc.Availability.CheckSameDay(ctx, room11.String(), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonMaintenance, resp.Reason)
}

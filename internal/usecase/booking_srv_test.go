package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/dto/request"
	"homestay-booking/internal/notification"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookReq(start, end string, guests int) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		RoomID:    room11.String(),
		StartDate: start,
		EndDate:   end,
		Guests:    guests,
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-05", "2025-06-07", 2))
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusPending, resp.Status)
	assert.False(t, resp.IsPaid)
	assert.True(t, resp.ManualConfirmationRequired)
	assert.Equal(t, 2, resp.Nights)
	assert.Equal(t, float64(2*nightlyRate), resp.TotalPrice)
	assert.Equal(t, "2025-06-05", resp.StartDate)
	assert.Equal(t, "2025-06-07", resp.EndDate)
	require.NotNil(t, resp.Room)
	assert.Equal(t, "Riverside Homestay", resp.Room.ListingTitle)
	assert.Equal(t, entity.RoomStatusOccupied, f.store.RoomStatus(room11))
	assert.Len(t, resp.BookingNumber, 14)

	assert.Equal(t, 1, f.notifier.count(notification.TemplateBookingCreated))
	assert.Equal(t, 1, f.notifier.count(notification.TemplateOwnerNewBooking))

	payment, err := f.svc.Payment.CreatePayment(ctx, f.actor(f.customer), &request.CreatePaymentRequest{
		BookingID: resp.ID,
		Amount:    resp.TotalPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)

	paid, err := f.svc.Payment.SimulateSuccess(ctx, f.actor(f.customer), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, paid.Status)

	booking := f.booking(t, resp.ID)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.True(t, booking.IsPaid)
	assert.NotNil(t, booking.ConfirmedAt)
	assert.Equal(t, entity.RoomStatusOccupied, f.store.RoomStatus(room11))
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-05", "2025-06-07", 2))
	require.NoError(t, err)

	_, err = f.svc.Booking.CreateBooking(ctx, f.actor(f.stranger), bookReq("2025-06-06", "2025-06-08", 2))
	appErr := requireKind(t, err, utils.KindConflict)
	assert.Equal(t, ReasonBooked, appErr.Message)
	assert.Equal(t, "2025-06-07", appErr.Details["next_available"])
	assert.Len(t, f.store.Bookings(room11), 1)
}

func TestCreateBookingConstraintBackstop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// committed by another writer after the availability scan
	raced := f.seedBooking(entity.BookingStatusConfirmed, "2025-06-05", "2025-06-08", &f.stranger)
	f.store.PutUnseenBooking(raced)

	_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-06", "2025-06-09", 2))
	appErr := requireKind(t, err, utils.KindConflict)
	assert.Equal(t, ReasonBooked, appErr.Message)

	assert.Len(t, f.store.Bookings(room11), 1)
	assert.Equal(t, entity.RoomStatusAvailable, f.store.RoomStatus(room11), "room write rolled back")
	assert.Zero(t, f.notifier.count(notification.TemplateBookingCreated))
}

func TestExclusiveCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-08", "2025-06-10", 2))
	require.NoError(t, err)

	_, err = f.svc.Booking.CreateBooking(ctx, f.actor(f.stranger), bookReq("2025-06-10", "2025-06-12", 2))
	require.NoError(t, err, "checkout day is free for the next check-in")

	_, err = f.svc.Booking.CreateBooking(ctx, f.actor(f.stranger), bookReq("2025-06-06", "2025-06-08", 1))
	require.NoError(t, err, "check-in day of a later stay is free as a checkout day")
}

func TestCancelledAndCompletedBookingsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(entity.BookingStatusCancelled, "2025-06-05", "2025-06-07", &f.customer)
	f.seedBooking(entity.BookingStatusCompleted, "2025-06-05", "2025-06-07", &f.customer)

	_, err := f.svc.Booking.CreateBooking(context.Background(), f.actor(f.stranger), bookReq("2025-06-05", "2025-06-07", 2))
	require.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *request.CreateBookingRequest
	}{
		{"zero nights", bookReq("2025-06-05", "2025-06-05", 2)},
		{"end before start", bookReq("2025-06-07", "2025-06-05", 2)},
		{"past start", bookReq("2025-05-30", "2025-06-02", 2)},
		{"no guests", bookReq("2025-06-05", "2025-06-07", 0)},
		{"over capacity", bookReq("2025-06-05", "2025-06-07", 5)},
		{"bad date", bookReq("06/05/2025", "2025-06-07", 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), tt.req)
			requireKind(t, err, utils.KindInvalidInput)
		})
	}

	t.Run("unknown room", func(t *testing.T) {
		req := bookReq("2025-06-05", "2025-06-07", 2)
		req.RoomID = "7d0b5c1e-9f3a-4e55-b7a1-0c6a4b1d2e3f"
		_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), req)
		requireKind(t, err, utils.KindNotFound)
	})

	t.Run("guest actor", func(t *testing.T) {
		_, err := f.svc.Booking.CreateBooking(ctx, entity.GuestActor{}, bookReq("2025-06-05", "2025-06-07", 2))
		requireKind(t, err, utils.KindUnauthorized)
	})

	assert.Empty(t, f.store.Bookings(room11))
	assert.Equal(t, entity.RoomStatusAvailable, f.store.RoomStatus(room11))
}

func TestGuestBookingNightPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guestReq := func(start, end string) *request.CreateGuestBookingRequest {
		return &request.CreateGuestBookingRequest{
			CreateBookingRequest: *bookReq(start, end, 2),
			GuestName:            "Lan Nguyen",
			GuestEmail:           "lan@example.test",
			GuestPhone:           "0901234567",
		}
	}

	resp, err := f.svc.Booking.CreateGuestBooking(ctx, guestReq("2025-06-05", "2025-06-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Nights)
	assert.Equal(t, "2025-06-06", resp.EndDate)
	assert.Equal(t, float64(nightlyRate), resp.TotalPrice)
	require.NotNil(t, resp.Guest)
	assert.Equal(t, "lan@example.test", resp.Guest.Email)
	assert.Nil(t, resp.UserID)

	_, err = f.svc.Booking.CreateGuestBooking(ctx, guestReq("2025-06-09", "2025-06-08"))
	requireKind(t, err, utils.KindInvalidInput)

	missing := guestReq("2025-06-10", "2025-06-11")
	missing.GuestEmail = ""
	_, err = f.svc.Booking.CreateGuestBooking(ctx, missing)
	requireKind(t, err, utils.KindInvalidInput)
}

func TestMaintenanceRoomIsNotBookable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Repository().Room.UpdateStatus(context.Background(), room11, entity.RoomStatusMaintenance, f.clock.Now()))

	_, err := f.svc.Booking.CreateBooking(context.Background(), f.actor(f.customer), bookReq("2025-06-05", "2025-06-07", 2))
	appErr := requireKind(t, err, utils.KindConflict)
	assert.Equal(t, ReasonMaintenance, appErr.Message)
}

func TestSameDayHousekeepingBuffer(t *testing.T) {
	tests := []struct {
		name        string
		attemptAt   [2]int
		wantMinutes int
	}{
		{"T+60 rejected", [2]int{10, 0}, 60},
		{"T+90 rejected", [2]int{10, 30}, 30},
		{"T+119 one minute left", [2]int{10, 59}, 1},
		{"exactly ready", [2]int{11, 0}, 0},
		{"T+121 accepted", [2]int{11, 1}, 0},
		{"T+125 accepted", [2]int{11, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			stay := f.seedBooking(entity.BookingStatusConfirmed, "2025-05-30", "2025-06-03", &f.customer)

			// early checkout at 09:00
			f.at(9, 0)
			_, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), stay.ID.String(),
				&request.UpdateBookingStatusRequest{Status: string(entity.BookingStatusCompleted)})
			require.NoError(t, err)
			assert.Equal(t, entity.RoomStatusAvailable, f.store.RoomStatus(room11))

			f.at(tt.attemptAt[0], tt.attemptAt[1])
			_, err = f.svc.Booking.CreateBooking(ctx, f.actor(f.stranger), bookReq("2025-06-01", "2025-06-02", 2))

			if tt.wantMinutes == 0 {
				require.NoError(t, err)
				return
			}

			appErr := requireKind(t, err, utils.KindConflict)
			assert.Equal(t,
				fmt.Sprintf("housekeeping in progress, ready at 11:00 (%d minutes remaining)", tt.wantMinutes),
				appErr.Message)
			assert.Equal(t, tt.wantMinutes, appErr.Details["minutes_remaining"])
		})
	}
}

func TestSameDayOccupied(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(entity.BookingStatusConfirmed, "2025-05-30", "2025-06-03", &f.customer)

	_, err := f.svc.Booking.CreateBooking(context.Background(), f.actor(f.stranger), bookReq("2025-06-01", "2025-06-02", 2))
	appErr := requireKind(t, err, utils.KindConflict)
	assert.Equal(t, ReasonOccupied, appErr.Message)
	assert.Equal(t, "2025-06-03", appErr.Details["next_available"])
}

func TestHousekeepingOnlyAppliesToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stay := f.seedBooking(entity.BookingStatusConfirmed, "2025-05-30", "2025-06-03", &f.customer)
	f.at(9, 0)
	_, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), stay.ID.String(),
		&request.UpdateBookingStatusRequest{Status: string(entity.BookingStatusCompleted)})
	require.NoError(t, err)

	f.at(9, 30)
	_, err = f.svc.Booking.CreateBooking(ctx, f.actor(f.stranger), bookReq("2025-06-02", "2025-06-04", 2))
	require.NoError(t, err)
}

func TestStatusTransitionTable(t *testing.T) {
	statuses := []entity.BookingStatus{
		entity.BookingStatusPending,
		entity.BookingStatusConfirmed,
		entity.BookingStatusCancelled,
		entity.BookingStatusCompleted,
	}
	allowed := map[[2]entity.BookingStatus]bool{
		{entity.BookingStatusPending, entity.BookingStatusConfirmed}:   true,
		{entity.BookingStatusPending, entity.BookingStatusCancelled}:   true,
		{entity.BookingStatusConfirmed, entity.BookingStatusCancelled}: true,
		{entity.BookingStatusConfirmed, entity.BookingStatusCompleted}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t)
				b := f.seedBooking(from, "2025-06-05", "2025-06-07", &f.customer)

				resp, err := f.svc.Booking.UpdateBookingStatus(context.Background(), f.actor(f.admin), b.ID.String(),
					&request.UpdateBookingStatusRequest{Status: string(to)})

				switch {
				case from == to:
					require.NoError(t, err)
					assert.Equal(t, from, resp.Status)
					assert.Zero(t, f.notifier.count(notification.TemplateBookingStatusChanged), "no-op has no side effects")
				case allowed[[2]entity.BookingStatus{from, to}]:
					require.NoError(t, err)
					assert.Equal(t, to, resp.Status)
					assert.Equal(t, 1, f.notifier.count(notification.TemplateBookingStatusChanged))
				default:
					requireKind(t, err, utils.KindConflict)
					assert.Equal(t, from, f.booking(t, b.ID.String()).Status)
				}
			})
		}
	}
}

func TestRoomStatusProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	update := func(id string, to entity.BookingStatus) {
		t.Helper()
		_, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), id, &request.UpdateBookingStatusRequest{Status: string(to)})
		require.NoError(t, err)
	}

	a, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-05", "2025-06-07", 2))
	require.NoError(t, err)
	assert.Equal(t, entity.RoomStatusOccupied, f.store.RoomStatus(room11))

	update(a.ID, entity.BookingStatusConfirmed)
	assert.Equal(t, entity.RoomStatusOccupied, f.store.RoomStatus(room11))

	update(a.ID, entity.BookingStatusCompleted)
	assert.Equal(t, entity.RoomStatusAvailable, f.store.RoomStatus(room11))

	b, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-10", "2025-06-11", 2))
	require.NoError(t, err)
	assert.Equal(t, entity.RoomStatusOccupied, f.store.RoomStatus(room11))

	reason := "plans changed"
	resp, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.customer), b.ID, &request.UpdateBookingStatusRequest{
		Status: string(entity.BookingStatusCancelled),
		Reason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoomStatusAvailable, f.store.RoomStatus(room11))
	require.NotNil(t, resp.CancellationReason)
	assert.Equal(t, reason, *resp.CancellationReason)
	assert.NotNil(t, resp.CancelledAt)
}

func TestUpdateStatusAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBooking(entity.BookingStatusPending, "2025-06-05", "2025-06-07", &f.customer)

	req := func(s entity.BookingStatus) *request.UpdateBookingStatusRequest {
		return &request.UpdateBookingStatusRequest{Status: string(s)}
	}

	_, err := f.svc.Booking.UpdateBookingStatus(ctx, entity.GuestActor{}, b.ID.String(), req(entity.BookingStatusCancelled))
	requireKind(t, err, utils.KindUnauthorized)

	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.customer), b.ID.String(), req(entity.BookingStatusConfirmed))
	requireKind(t, err, utils.KindForbidden)

	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.stranger), b.ID.String(), req(entity.BookingStatusCancelled))
	requireKind(t, err, utils.KindForbidden)

	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.otherOwner), b.ID.String(), req(entity.BookingStatusConfirmed))
	requireKind(t, err, utils.KindForbidden)

	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), b.ID.String(), req("archived"))
	requireKind(t, err, utils.KindInvalidInput)

	_, err = f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), "not-a-uuid", req(entity.BookingStatusConfirmed))
	requireKind(t, err, utils.KindInvalidInput)

	resp, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.customer), b.ID.String(), req(entity.BookingStatusCancelled))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, resp.Status)
}

func TestGetBookingVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBooking(entity.BookingStatusPending, "2025-06-05", "2025-06-07", &f.customer)

	_, err := f.svc.Booking.GetBooking(ctx, f.actor(f.customer), b.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Booking.GetBooking(ctx, f.actor(f.owner), b.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Booking.GetBooking(ctx, f.actor(f.admin), b.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Booking.GetBooking(ctx, f.actor(f.stranger), b.ID.String())
	requireKind(t, err, utils.KindForbidden)
	_, err = f.svc.Booking.GetBooking(ctx, f.actor(f.otherOwner), b.ID.String())
	requireKind(t, err, utils.KindForbidden)
	_, err = f.svc.Booking.GetBooking(ctx, entity.GuestActor{}, b.ID.String())
	requireKind(t, err, utils.KindUnauthorized)

	rooms, err := f.svc.Booking.GetRoomBookings(ctx, f.actor(f.owner), room11.String())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	_, err = f.svc.Booking.GetRoomBookings(ctx, f.actor(f.customer), room11.String())
	requireKind(t, err, utils.KindForbidden)
}

func TestGetUserBookingsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, start := range []string{"2025-06-05", "2025-06-10", "2025-06-15"} {
		f.clock.Advance(1)
		_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq(start, date(start).AddDate(0, 0, 2).Format(clock.DateLayout), 2))
		require.NoError(t, err)
	}

	page, err := f.svc.Booking.GetUserBookings(ctx, f.actor(f.customer), &request.BookingListRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.EqualValues(t, 3, page.Meta.Total)
	assert.Equal(t, 2, page.Meta.TotalPages)
	assert.Equal(t, "2025-06-15", page.Data[0].StartDate, "newest first")

	last, err := f.svc.Booking.GetUserBookings(ctx, f.actor(f.customer), &request.BookingListRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, last.Data, 1)

	cancelled := f.seedBooking(entity.BookingStatusCancelled, "2025-07-01", "2025-07-03", &f.customer)
	only, err := f.svc.Booking.GetUserBookings(ctx, f.actor(f.customer), &request.BookingListRequest{Page: 1, PerPage: 10, Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, only.Data, 1)
	assert.Equal(t, cancelled.ID.String(), only.Data[0].ID)
	assert.EqualValues(t, 1, only.Meta.Total)

	_, err = f.svc.Booking.GetUserBookings(ctx, entity.GuestActor{}, &request.BookingListRequest{Page: 1, PerPage: 2})
	requireKind(t, err, utils.KindUnauthorized)
}

func TestConcurrentDoubleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq("2025-06-05", "2025-06-08", 2))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if utils.IsKind(err, utils.KindConflict) {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.store.Bookings(room11), 1)
}

func TestOverlapInvariantRandomized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20250601))

	type stay struct {
		id         string
		start, end int
	}
	var accepted []stay
	base := date("2025-06-02")

	for i := 0; i < 120; i++ {
		f.clock.Advance(1_000_000) // distinct booking numbers

		s := rng.Intn(40)
		e := s + 1 + rng.Intn(5)
		startDay := base.AddDate(0, 0, s).Format(clock.DateLayout)
		endDay := base.AddDate(0, 0, e).Format(clock.DateLayout)

		expectConflict := false
		for _, a := range accepted {
			if s < a.end && e > a.start {
				expectConflict = true
				break
			}
		}

		resp, err := f.svc.Booking.CreateBooking(ctx, f.actor(f.customer), bookReq(startDay, endDay, 1))
		if expectConflict {
			requireKind(t, err, utils.KindConflict)
		} else {
			require.NoError(t, err, "stay %s..%s should fit", startDay, endDay)
			accepted = append(accepted, stay{id: resp.ID, start: s, end: e})
		}

		// occasionally free some dates again
		if len(accepted) > 0 && rng.Intn(6) == 0 {
			k := rng.Intn(len(accepted))
			_, err := f.svc.Booking.UpdateBookingStatus(ctx, f.actor(f.owner), accepted[k].id,
				&request.UpdateBookingStatusRequest{Status: string(entity.BookingStatusCancelled)})
			require.NoError(t, err)
			accepted = append(accepted[:k], accepted[k+1:]...)
		}
	}

	var active []entity.Booking
	for _, b := range f.store.Bookings(room11) {
		if b.Status.IsActive() {
			active = append(active, b)
		}
	}
	require.Len(t, active, len(accepted))
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			assert.False(t, active[i].Overlaps(active[j].StartDate, active[j].EndDate),
				"%s overlaps %s", active[i].BookingNumber, active[j].BookingNumber)
		}
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus) (int64, error)
	FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking) error

	// Availability queries
	FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error)
	FindLatestCompletedBetween(ctx context.Context, roomID uuid.UUID, from, to time.Time) (*entity.Booking, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `
	id, booking_number, room_id, user_id, guest_name, guest_email, guest_phone,
	start_date, end_date, guests, total_price, status, is_paid,
	manual_confirmation_required, cancellation_reason, cancelled_at,
	confirmed_at, completed_at, created_at, updated_at
`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	guestName, guestEmail, guestPhone := guestColumns(booking.Guest)
	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingNumber,
		booking.RoomID,
		booking.UserID,
		guestName,
		guestEmail,
		guestPhone,
		booking.StartDate,
		booking.EndDate,
		booking.Guests,
		booking.TotalPrice,
		booking.Status,
		booking.IsPaid,
		booking.ManualConfirmationRequired,
		booking.CancellationReason,
		booking.CancelledAt,
		booking.ConfirmedAt,
		booking.CompletedAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_number", booking.BookingNumber),
			zap.String("room_id", booking.RoomID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingNumber, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

// An empty status matches every booking of the user.
func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	bookings, err := r.queryBookings(ctx, query, userID, string(status), limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user %s: %w", userID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)`,
		userID, string(status),
	).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings for user %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1
		ORDER BY start_date DESC
	`

	bookings, err := r.queryBookings(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to find bookings by room",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find bookings by room %s: %w", roomID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY start_date
	`

	bookings, err := r.queryBookings(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to find active bookings",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find active bookings for room %s: %w", roomID.String(), err)
	}

	return bookings, nil
}

// FindLatestCompletedBetween returns the booking of the room most recently
// completed within [from, to), or nil.
func (r *bookingRepository) FindLatestCompletedBetween(ctx context.Context, roomID uuid.UUID, from, to time.Time) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1
		  AND status = 'completed'
		  AND completed_at >= $2
		  AND completed_at < $3
		ORDER BY completed_at DESC
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, roomID, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find completed booking",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find completed booking for room %s: %w", roomID.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2,
		    is_paid = $3,
		    manual_confirmation_required = $4,
		    cancellation_reason = $5,
		    cancelled_at = $6,
		    confirmed_at = $7,
		    completed_at = $8,
		    updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Status,
		booking.IsPaid,
		booking.ManualConfirmationRequired,
		booking.CancellationReason,
		booking.CancelledAt,
		booking.ConfirmedAt,
		booking.CompletedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", booking.ID.String())
	}

	return nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var (
		booking                           entity.Booking
		guestName, guestEmail, guestPhone *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.BookingNumber,
		&booking.RoomID,
		&booking.UserID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&booking.StartDate,
		&booking.EndDate,
		&booking.Guests,
		&booking.TotalPrice,
		&booking.Status,
		&booking.IsPaid,
		&booking.ManualConfirmationRequired,
		&booking.CancellationReason,
		&booking.CancelledAt,
		&booking.ConfirmedAt,
		&booking.CompletedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if guestEmail != nil {
		booking.Guest = &entity.GuestContact{
			Name:  deref(guestName),
			Email: *guestEmail,
			Phone: deref(guestPhone),
		}
	}

	return &booking, nil
}

func guestColumns(guest *entity.GuestContact) (name, email, phone *string) {
	if guest == nil {
		return nil, nil, nil
	}
	return &guest.Name, &guest.Email, &guest.Phone
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

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

type RoomRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)
	FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.RoomDetail, error)
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.RoomStatus, at time.Time) error
}

type roomRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewRoomRepository(db database.Querier, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

const selectRoom = `
	SELECT id, listing_id, name, nightly_rate, max_guests, status, created_at, updated_at
	FROM rooms
	WHERE id = $1
`

func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	return r.findOne(ctx, selectRoom, id)
}

// LockByID takes a row lock held until the surrounding transaction ends.
// Every booking write for a room goes through this lock first.
func (r *roomRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	return r.findOne(ctx, selectRoom+` FOR UPDATE`, id)
}

func (r *roomRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Room, error) {
	var room entity.Room
	err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.ListingID,
		&room.Name,
		&room.NightlyRate,
		&room.MaxGuests,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room",
			zap.Error(err),
			zap.String("room_id", id.String()),
		)
		return nil, fmt.Errorf("find room %s: %w", id.String(), err)
	}

	return &room, nil
}

func (r *roomRepository) FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.RoomDetail, error) {
	query := `
		SELECT r.id, r.listing_id, r.name, r.nightly_rate, r.max_guests, r.status,
		       r.created_at, r.updated_at,
		       l.title, l.address, u.id, u.full_name, u.email
		FROM rooms r
		JOIN listings l ON l.id = r.listing_id
		JOIN users u ON u.id = l.owner_id
		WHERE r.id = $1
	`

	var detail entity.RoomDetail
	err := r.db.QueryRow(ctx, query, id).Scan(
		&detail.ID,
		&detail.ListingID,
		&detail.Name,
		&detail.NightlyRate,
		&detail.MaxGuests,
		&detail.Status,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.ListingTitle,
		&detail.ListingAddress,
		&detail.OwnerID,
		&detail.OwnerName,
		&detail.OwnerEmail,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room detail",
			zap.Error(err),
			zap.String("room_id", id.String()),
		)
		return nil, fmt.Errorf("find room detail %s: %w", id.String(), err)
	}

	return &detail, nil
}

func (r *roomRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.RoomStatus, at time.Time) error {
	query := `UPDATE rooms SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status, at)
	if err != nil {
		r.log.Error("Failed to update room status",
			zap.Error(err),
			zap.String("room_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update room %s status: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("room %s not found", id.String())
	}

	return nil
}

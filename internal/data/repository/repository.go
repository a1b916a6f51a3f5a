package repository

import (
	"context"
	"errors"

	"homestay-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Transactor runs fn against repositories bound to a single transaction.
// Returning an error from fn rolls every write back.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	db  database.PgxIface
	log *zap.Logger

	User    UserRepository
	Session SessionRepository
	Room    RoomRepository
	Booking BookingRepository
	Payment PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := bind(db, log)
	repo.db = db
	return repo
}

func bind(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		log:     log,
		User:    NewUserRepository(q, log),
		Session: NewSessionRepository(q, log),
		Room:    NewRoomRepository(q, log),
		Booking: NewBookingRepository(q, log),
		Payment: NewPaymentRepository(q, log),
	}
}

var errNestedTransaction = errors.New("transaction: repository is already bound to a transaction")

// Transaction implements Transactor. Read committed is enough because every
// write path locks the room or payment row it depends on first.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return errNestedTransaction
	}

	return database.WithTx(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(bind(tx, r.log))
	})
}

// Ping checks the underlying pool.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errNestedTransaction
	}
	return r.db.Ping(ctx)
}

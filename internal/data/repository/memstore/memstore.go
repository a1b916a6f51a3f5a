// Package memstore is an in-memory implementation of the repository
// interfaces. LockByID takes a real per-row lock held until the transaction
// ends, and a transaction refuses to scan or write a room's bookings, or a
// payment, whose row it has not locked. Failed transactions are undone
// write by write.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrLockNotHeld is returned when a transaction touches a row it did not lock.
var ErrLockNotHeld = errors.New("memstore: row lock not held")

type rowKey struct {
	table string
	id    uuid.UUID
}

type Store struct {
	mu sync.RWMutex

	locksMu sync.Mutex
	locks   map[rowKey]*sync.Mutex

	users    map[uuid.UUID]entity.User
	sessions map[uuid.UUID]entity.Session
	rooms    map[uuid.UUID]entity.RoomDetail
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	unseen   map[uuid.UUID]bool

	repo *repository.Repository
}

func New() *Store {
	s := &Store{
		locks:    make(map[rowKey]*sync.Mutex),
		users:    make(map[uuid.UUID]entity.User),
		sessions: make(map[uuid.UUID]entity.Session),
		rooms:    make(map[uuid.UUID]entity.RoomDetail),
		bookings: make(map[uuid.UUID]entity.Booking),
		payments: make(map[uuid.UUID]entity.Payment),
		unseen:   make(map[uuid.UUID]bool),
	}
	s.repo = s.bind(nil)
	return s
}

func (s *Store) bind(tx *txState) *repository.Repository {
	return &repository.Repository{
		User:    &userRepo{s},
		Session: &sessionRepo{s},
		Room:    &roomRepo{s, tx},
		Booking: &bookingRepo{s, tx},
		Payment: &paymentRepo{s, tx},
	}
}

// Repository returns the repositories backed by this store, outside any
// transaction.
func (s *Store) Repository() *repository.Repository { return s.repo }

// txState tracks the row locks and the undo log of one transaction. It is
// used by a single goroutine.
type txState struct {
	held map[rowKey]*sync.Mutex
	undo []func()
}

func (tx *txState) holds(table string, id uuid.UUID) bool {
	if tx == nil {
		return true
	}
	_, ok := tx.held[rowKey{table, id}]
	return ok
}

func (tx *txState) record(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// Transaction implements repository.Transactor.
func (s *Store) Transaction(ctx context.Context, fn func(tx *repository.Repository) error) error {
	tx := &txState{held: make(map[rowKey]*sync.Mutex)}
	defer func() {
		for _, m := range tx.held {
			m.Unlock()
		}
	}()

	if err := fn(s.bind(tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock blocks until the row lock is free. Re-locking a row the transaction
// already holds is a no-op, as with SELECT ... FOR UPDATE.
func (s *Store) lock(ctx context.Context, tx *txState, table string, id uuid.UUID) error {
	if tx == nil {
		return nil
	}
	key := rowKey{table, id}
	if _, ok := tx.held[key]; ok {
		return nil
	}

	s.locksMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	if err := ctx.Err(); err != nil {
		m.Unlock()
		return err
	}
	tx.held[key] = m
	return nil
}

func lockNotHeld(table string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s", ErrLockNotHeld, table, id.String())
}

// PutUser seeds a user.
func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutRoom seeds a room with its listing and owner summary.
func (s *Store) PutRoom(r entity.RoomDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// PutBooking seeds a booking as-is, bypassing lifecycle checks.
func (s *Store) PutBooking(b entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
}

// PutUnseenBooking stores a booking that availability scans do not return,
// as if another writer committed it right after the scan. Constraint checks
// still see it.
func (s *Store) PutUnseenBooking(b entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
	s.unseen[b.ID] = true
}

func (s *Store) RoomStatus(id uuid.UUID) entity.RoomStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id].Status
}

// Bookings returns every stored booking for a room.
func (s *Store) Bookings(roomID uuid.UUID) []entity.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// Payments returns every stored payment for a booking.
func (s *Store) Payments(bookingID uuid.UUID) []entity.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func violation(code, constraint string) error {
	return fmt.Errorf("memstore: %w", &pgconn.PgError{Code: code, ConstraintName: constraint})
}

func cloneBooking(b entity.Booking) entity.Booking {
	if b.Guest != nil {
		g := *b.Guest
		b.Guest = &g
	}
	return b
}

type userRepo struct{ s *Store }

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok && u.DeletedAt == nil {
		return &u, nil
	}
	return nil, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email && u.DeletedAt == nil {
			return &u, nil
		}
	}
	return nil, nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.Token] = *session
	return nil
}

func (r *sessionRepo) FindValidSession(ctx context.Context, token uuid.UUID, now time.Time) (*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if sess, ok := r.s.sessions[token]; ok && sess.IsValid(now) {
		return &sess, nil
	}
	return nil, nil
}

func (r *sessionRepo) Revoke(ctx context.Context, token uuid.UUID, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[token]
	if !ok || sess.RevokedAt != nil {
		return repository.ErrSessionNotFound
	}
	sess.RevokedAt = &now
	r.s.sessions[token] = sess
	return nil
}

type roomRepo struct {
	s  *Store
	tx *txState
}

func (r *roomRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if d, ok := r.s.rooms[id]; ok {
		room := d.Room
		return &room, nil
	}
	return nil, nil
}

func (r *roomRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	if err := r.s.lock(ctx, r.tx, "rooms", id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *roomRepo) FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.RoomDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if d, ok := r.s.rooms[id]; ok {
		return &d, nil
	}
	return nil, nil
}

func (r *roomRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.RoomStatus, at time.Time) error {
	if !r.tx.holds("rooms", id) {
		return lockNotHeld("rooms", id)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.rooms[id]
	if !ok {
		return fmt.Errorf("room %s not found", id.String())
	}
	prev := d
	r.tx.record(func() { r.s.rooms[id] = prev })
	d.Status = status
	d.UpdatedAt = at
	r.s.rooms[id] = d
	return nil
}

type bookingRepo struct {
	s  *Store
	tx *txState
}

// Create enforces the same constraints as the schema: unique booking number
// and no overlapping active bookings per room.
func (r *bookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	if !r.tx.holds("rooms", booking.RoomID) {
		return lockNotHeld("rooms", booking.RoomID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.BookingNumber == booking.BookingNumber {
			return violation(pgerrcode.UniqueViolation, database.ConstraintBookingNumber)
		}
		if booking.Status.IsActive() && b.RoomID == booking.RoomID && b.Status.IsActive() &&
			b.Overlaps(booking.StartDate, booking.EndDate) {
			return violation(pgerrcode.ExclusionViolation, database.ConstraintBookingNoOverlap)
		}
	}
	id := booking.ID
	r.tx.record(func() { delete(r.s.bookings, id) })
	r.s.bookings[id] = cloneBooking(*booking)
	return nil
}

func (r *bookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b, ok := r.s.bookings[id]; ok {
		b = cloneBooking(b)
		return &b, nil
	}
	return nil, nil
}

func (r *bookingRepo) filter(keep func(entity.Booking) bool, less func(a, b entity.Booking) bool) []*entity.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if keep(b) {
			b = cloneBooking(b)
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(*out[i], *out[j]) })
	return out
}

func (r *bookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	all := r.filter(
		func(b entity.Booking) bool { return b.OwnedBy(userID) && (status == "" || b.Status == status) },
		func(a, b entity.Booking) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *bookingRepo) CountByUserID(ctx context.Context, userID uuid.UUID, status entity.BookingStatus) (int64, error) {
	all := r.filter(
		func(b entity.Booking) bool { return b.OwnedBy(userID) && (status == "" || b.Status == status) },
		func(a, b entity.Booking) bool { return false },
	)
	return int64(len(all)), nil
}

func (r *bookingRepo) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error) {
	return r.filter(
		func(b entity.Booking) bool { return b.RoomID == roomID },
		func(a, b entity.Booking) bool { return a.StartDate.After(b.StartDate) },
	), nil
}

func (r *bookingRepo) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*entity.Booking, error) {
	if !r.tx.holds("rooms", roomID) {
		return nil, lockNotHeld("rooms", roomID)
	}
	return r.filter(
		func(b entity.Booking) bool { return b.RoomID == roomID && b.Status.IsActive() && !r.s.unseen[b.ID] },
		func(a, b entity.Booking) bool { return a.StartDate.Before(b.StartDate) },
	), nil
}

func (r *bookingRepo) FindLatestCompletedBetween(ctx context.Context, roomID uuid.UUID, from, to time.Time) (*entity.Booking, error) {
	if !r.tx.holds("rooms", roomID) {
		return nil, lockNotHeld("rooms", roomID)
	}
	found := r.filter(
		func(b entity.Booking) bool {
			return b.RoomID == roomID && b.Status == entity.BookingStatusCompleted && b.CompletedAt != nil &&
				!b.CompletedAt.Before(from) && b.CompletedAt.Before(to)
		},
		func(a, b entity.Booking) bool { return a.CompletedAt.After(*b.CompletedAt) },
	)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *bookingRepo) Update(ctx context.Context, booking *entity.Booking) error {
	if !r.tx.holds("rooms", booking.RoomID) {
		return lockNotHeld("rooms", booking.RoomID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("booking %s not found", booking.ID.String())
	}
	r.tx.record(func() { r.s.bookings[prev.ID] = prev })
	r.s.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

type paymentRepo struct {
	s  *Store
	tx *txState
}

func (r *paymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.ExternalID == payment.ExternalID {
			return violation(pgerrcode.UniqueViolation, database.ConstraintPaymentExternalID)
		}
		if p.BookingID == payment.BookingID && p.Status == entity.PaymentStatusPending &&
			payment.Status == entity.PaymentStatusPending {
			return violation(pgerrcode.UniqueViolation, database.ConstraintPaymentOnePending)
		}
	}
	id := payment.ID
	r.tx.record(func() { delete(r.s.payments, id) })
	r.s.payments[id] = *payment
	return nil
}

func (r *paymentRepo) find(keep func(entity.Payment) bool) *entity.Payment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.Payment
	for _, p := range r.s.payments {
		if keep(p) && (latest == nil || p.CreatedAt.After(latest.CreatedAt)) {
			latest = &p
		}
	}
	return latest
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.ID == id }), nil
}

func (r *paymentRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	if err := r.s.lock(ctx, r.tx, "payments", id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *paymentRepo) FindByExternalID(ctx context.Context, externalID string) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.ExternalID == externalID }), nil
}

func (r *paymentRepo) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.BookingID == bookingID }), nil
}

func (r *paymentRepo) FindPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool {
		return p.BookingID == bookingID && p.Status == entity.PaymentStatusPending
	}), nil
}

func (r *paymentRepo) Update(ctx context.Context, payment *entity.Payment) error {
	if !r.tx.holds("payments", payment.ID) {
		return lockNotHeld("payments", payment.ID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.payments[payment.ID]
	if !ok {
		return fmt.Errorf("payment %s not found", payment.ID.String())
	}
	r.tx.record(func() { r.s.payments[prev.ID] = prev })
	r.s.payments[payment.ID] = *payment
	return nil
}

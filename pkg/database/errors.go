package database

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names declared in schema.sql.
const (
	ConstraintBookingNoOverlap  = "bookings_no_overlap"
	ConstraintBookingNumber     = "bookings_booking_number_key"
	ConstraintPaymentExternalID = "payments_external_id_key"
	ConstraintPaymentOnePending = "payments_one_pending"
)

// IsExclusionViolation reports an EXCLUDE constraint failure, raised when two
// active bookings of a room would overlap.
func IsExclusionViolation(err error) bool {
	return hasCode(err, pgerrcode.ExclusionViolation)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

// IsSerializationFailure reports an aborted transaction that is safe to retry.
func IsSerializationFailure(err error) bool {
	return hasCode(err, pgerrcode.SerializationFailure) || hasCode(err, pgerrcode.DeadlockDetected)
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

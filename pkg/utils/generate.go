package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func GenerateSessionToken() uuid.UUID {
	return uuid.New()
}

// GenerateBookingNumber builds a human-readable booking number:
// HS + last 8 digits of the unix millis + 4 random alphanumerics.
// Uniqueness is probabilistic; the unique index on booking_number rejects a
// collision and the caller surfaces it as a conflict.
func GenerateBookingNumber(now time.Time) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	millis := fmt.Sprintf("%d", now.UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}

	var sb strings.Builder
	for i := 0; i < 4; i++ {
		sb.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}

	return fmt.Sprintf("HS%s%s", millis, sb.String())
}

// GenerateOrderCode returns a positive numeric code for gateways that only accept integers.
func GenerateOrderCode(now time.Time) int64 {
	return now.UnixMilli()%1_000_000_000_000 + int64(rand.Intn(1000))
}

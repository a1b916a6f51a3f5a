package entity

import "github.com/google/uuid"

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room is a bookable unit of a listing. Status is a cached projection of the
// latest booking transition and is written only by the booking lifecycle.
type Room struct {
	BaseNoDelete
	ListingID   uuid.UUID  `db:"listing_id"`
	Name        string     `db:"name"`
	NightlyRate float64    `db:"nightly_rate"`
	MaxGuests   int        `db:"max_guests"`
	Status      RoomStatus `db:"status"`
}

// RoomDetail is a room joined with the listing and owner summary.
type RoomDetail struct {
	Room
	ListingTitle   string    `db:"listing_title"`
	ListingAddress string    `db:"listing_address"`
	OwnerID        uuid.UUID `db:"owner_id"`
	OwnerName      string    `db:"owner_name"`
	OwnerEmail     string    `db:"owner_email"`
}

package model

import "time"

// SlotCapacity is one row of the slot capacity ledger: the durable counter
// of active clinic bookings for a single 15-minute slot. Rows are created on
// first booking and kept forever; the counter only moves through the
// ledger's conditional updates, never through plain writes.
type SlotCapacity struct {
	ID          string    `json:"id" bson:"_id"`
	Date        string    `json:"date" bson:"date"`
	SlotStart   time.Time `json:"slot_start" bson:"slot_start"`
	BookedCount int       `json:"booked_count" bson:"booked_count"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// SlotAvailability is the read-path projection returned by the slot query
// endpoint. Advisory only: the booking path re-checks capacity atomically.
type SlotAvailability struct {
	SlotTime  time.Time `json:"slot_time"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
}

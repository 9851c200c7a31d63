package model

import (
	"time"
)

const (
	LocationRemote    = "remote"
	LocationTelevisit = "televisit"
	LocationClinic    = "clinic"

	StatusScheduled = "scheduled"
	StatusArrived   = "arrived"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	PatientID   string    `json:"patient_id" bson:"patient_id" validate:"required,uuid4"`
	Title       string    `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	Location    string    `json:"location" bson:"location" validate:"required,oneof=remote televisit clinic"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=scheduled arrived cancelled"`
	StartAt     time.Time `json:"start_at" bson:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" bson:"end_at" validate:"required,gtfield=StartAt"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// Active reports whether the appointment still occupies clinic capacity.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// SlotConstrained reports whether the appointment is subject to slot
// capacity accounting. Remote and televisit appointments may start at any
// minute and never touch the ledger.
func (a *Appointment) SlotConstrained() bool {
	return a.Location == LocationClinic && a.Active()
}

type AppointmentUpdate struct {
	Title       string     `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Location    string     `json:"location,omitempty" validate:"omitempty,oneof=remote televisit clinic"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=scheduled arrived cancelled"`
	StartAt     *time.Time `json:"start_at,omitempty" validate:"omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty" validate:"omitempty"`
}

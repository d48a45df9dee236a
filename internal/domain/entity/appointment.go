package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment is a reserved slot. Records are never physically deleted;
// cancelled and completed rows are retained for history. SlotTimeKey holds
// the normalized 24-hour key; the store enforces at most one booked row per
// (provider_id, slot_date, slot_time_key) via a partial unique index.
type Appointment struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	ProviderID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"provider_id"`
	SlotDate    time.Time         `gorm:"type:date;not null;index" json:"slot_date"`
	SlotTime    string            `gorm:"type:varchar(20);not null" json:"slot_time"`
	SlotTimeKey string            `gorm:"type:varchar(20);not null" json:"slot_time_key"`
	Status      AppointmentStatus `gorm:"type:varchar(20);not null;default:'booked';index" json:"status"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsActive checks whether the appointment still occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusBooked
}

// IsCancelled checks if the appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsCompleted checks if the appointment is completed
func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}

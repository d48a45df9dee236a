package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// BookingRequest submits one slot reservation. With RescheduleID set the
// request moves that existing appointment instead of creating a new one.
// Slot presence is checked by the coordinator, not the validator, so that
// the rejection carries its machine-readable reason.
type BookingRequest struct {
	ProviderID   uuid.UUID  `json:"provider_id"`
	SlotDate     string     `json:"slot_date"` // Format: YYYY-MM-DD
	SlotTime     string     `json:"slot_time"` // Wall clock, e.g. "09:10" or "9:10 AM"
	RescheduleID *uuid.UUID `json:"reschedule_id,omitempty"`
}

// Response DTOs

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	SlotDate    string    `json:"slot_date"`
	SlotTime    string    `json:"slot_time"`
	SlotTimeKey string    `json:"slot_time_key"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

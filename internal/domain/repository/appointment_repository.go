package repository

import (
	"errors"
	"time"

	"go-clinic-appointments/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned when the store's uniqueness constraint on
// (provider_id, slot_date, slot_time_key) rejects a write. It is the
// authoritative signal for two requests racing past the client-side checks.
var ErrSlotTaken = errors.New("slot is already booked")

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindActiveByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindActiveByProviderBetween(db *gorm.DB, providerID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	Reschedule(db *gorm.DB, id uuid.UUID, slotDate time.Time, slotTime, slotTimeKey string) (int64, error)
	CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error)
	CompleteAppointment(db *gorm.DB, id uuid.UUID) (int64, error)
}

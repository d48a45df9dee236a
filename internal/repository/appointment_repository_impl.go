package repository

import (
	"errors"
	"time"

	"go-clinic-appointments/internal/domain/entity"
	domainRepo "go-clinic-appointments/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

// Create inserts a new appointment. A unique violation on the active-slot
// index surfaces as ErrSlotTaken (requires TranslateError on the gorm
// connection).
func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	if err := db.Create(appointment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainRepo.ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("patient_id = ?", patientID).
		Order("slot_date ASC, slot_time_key ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindActiveByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("patient_id = ? AND status = ?", patientID, entity.AppointmentStatusBooked).
		Order("slot_date ASC, slot_time_key ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindActiveByProviderBetween(db *gorm.DB, providerID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("provider_id = ? AND status = ? AND slot_date >= ? AND slot_date < ?",
		providerID, entity.AppointmentStatusBooked, from, to).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// Reschedule moves an appointment to a new slot ONLY while it is still
// booked. Returns affected rows: 1 = moved, 0 = target missing or already
// finalized. A unique violation on the new slot surfaces as ErrSlotTaken.
func (r *appointmentRepository) Reschedule(db *gorm.DB, id uuid.UUID, slotDate time.Time, slotTime, slotTimeKey string) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusBooked).
		Updates(map[string]interface{}{
			"slot_date":     slotDate,
			"slot_time":     slotTime,
			"slot_time_key": slotTimeKey,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return 0, domainRepo.ErrSlotTaken
		}
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CancelAppointment atomically cancels an appointment ONLY if it is still
// booked. Returns affected rows: 1 = success, 0 = already finalized
// (prevents double-cancel race).
func (r *appointmentRepository) CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusBooked).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}

// CompleteAppointment marks a booked appointment completed, freeing nothing:
// completed rows no longer count as active for the slot index.
func (r *appointmentRepository) CompleteAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusBooked).
		Update("status", entity.AppointmentStatusCompleted)
	return result.RowsAffected, result.Error
}

package repository

import (
	"go-clinic-appointments/internal/domain/entity"
	domainRepo "go-clinic-appointments/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type scheduleRepository struct{}

func NewScheduleRepository() domainRepo.ScheduleRepository {
	return &scheduleRepository{}
}

func (r *scheduleRepository) FindWeekByProviderID(db *gorm.DB, providerID uuid.UUID) ([]entity.ProviderScheduleDay, error) {
	var days []entity.ProviderScheduleDay
	err := db.Where("provider_id = ?", providerID).Order("weekday ASC").Find(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}

// ReplaceWeek swaps a provider's whole template in one transaction so
// readers never observe a half-written week.
func (r *scheduleRepository) ReplaceWeek(db *gorm.DB, providerID uuid.UUID, days []entity.ProviderScheduleDay) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_id = ?", providerID).Delete(&entity.ProviderScheduleDay{}).Error; err != nil {
			return err
		}
		if len(days) == 0 {
			return nil
		}
		return tx.Create(&days).Error
	})
}

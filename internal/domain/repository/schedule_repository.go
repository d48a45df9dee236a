package repository

import (
	"go-clinic-appointments/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	FindWeekByProviderID(db *gorm.DB, providerID uuid.UUID) ([]entity.ProviderScheduleDay, error)
	ReplaceWeek(db *gorm.DB, providerID uuid.UUID, days []entity.ProviderScheduleDay) error
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProviderScheduleDay is one weekday row of a provider's weekly availability
// template. Weekday follows time.Weekday numbering (Sunday = 0). The core
// treats the template as read-only input; only the provider-facing
// administration surface mutates it.
type ProviderScheduleDay struct {
	ID           int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_provider_weekday" json:"provider_id"`
	Weekday      int       `gorm:"not null;uniqueIndex:uq_provider_weekday" json:"weekday"`
	Available    bool      `gorm:"not null;default:false" json:"available"`
	StartTime    string    `gorm:"type:varchar(20)" json:"start_time"`
	EndTime      string    `gorm:"type:varchar(20)" json:"end_time"`
	HasEvening   bool      `gorm:"not null;default:false" json:"has_evening"`
	EveningStart string    `gorm:"type:varchar(20)" json:"evening_start"`
	EveningEnd   string    `gorm:"type:varchar(20)" json:"evening_end"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProviderScheduleDay) TableName() string {
	return "provider_schedule_days"
}

// DefaultWeekTemplate is the fallback used when a provider has no template
// configured: Monday-Saturday 09:00-13:00 with a 17:00-20:00 evening
// session, Sunday off.
func DefaultWeekTemplate(providerID uuid.UUID) []ProviderScheduleDay {
	days := make([]ProviderScheduleDay, 7)
	for weekday := range days {
		day := ProviderScheduleDay{
			ProviderID: providerID,
			Weekday:    weekday,
		}
		if weekday != int(time.Sunday) {
			day.Available = true
			day.StartTime = "09:00"
			day.EndTime = "13:00"
			day.HasEvening = true
			day.EveningStart = "17:00"
			day.EveningEnd = "20:00"
		}
		days[weekday] = day
	}
	return days
}

package converter

import (
	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/domain/entity"
	"go-clinic-appointments/internal/scheduling"

	"github.com/google/uuid"
)

// ScheduleDaysToWeek projects template rows onto the weekday-indexed form
// the slot engine consumes. Missing weekdays stay unavailable.
func ScheduleDaysToWeek(days []entity.ProviderScheduleDay) scheduling.WeekSchedule {
	var week scheduling.WeekSchedule
	for _, day := range days {
		if day.Weekday < 0 || day.Weekday > 6 {
			continue
		}
		week[day.Weekday] = scheduling.DaySchedule{
			Available:    day.Available,
			StartTime:    day.StartTime,
			EndTime:      day.EndTime,
			HasEvening:   day.HasEvening,
			EveningStart: day.EveningStart,
			EveningEnd:   day.EveningEnd,
		}
	}
	return week
}

// WeekScheduleRequestToDays converts the admin request into template rows
func WeekScheduleRequestToDays(providerID uuid.UUID, req *dto.UpdateWeekScheduleRequest) []entity.ProviderScheduleDay {
	days := make([]entity.ProviderScheduleDay, len(req.Days))
	for i, day := range req.Days {
		days[i] = entity.ProviderScheduleDay{
			ProviderID:   providerID,
			Weekday:      day.Weekday,
			Available:    day.Available,
			StartTime:    day.StartTime,
			EndTime:      day.EndTime,
			HasEvening:   day.HasEvening,
			EveningStart: day.EveningStart,
			EveningEnd:   day.EveningEnd,
		}
	}
	return days
}

// ScheduleDaysToResponse converts template rows to the response DTO
func ScheduleDaysToResponse(providerID uuid.UUID, days []entity.ProviderScheduleDay) *dto.WeekScheduleResponse {
	responses := make([]dto.DayScheduleResponse, len(days))
	for i, day := range days {
		responses[i] = dto.DayScheduleResponse{
			Weekday:      day.Weekday,
			Available:    day.Available,
			StartTime:    day.StartTime,
			EndTime:      day.EndTime,
			HasEvening:   day.HasEvening,
			EveningStart: day.EveningStart,
			EveningEnd:   day.EveningEnd,
		}
	}
	return &dto.WeekScheduleResponse{
		ProviderID: providerID,
		Days:       responses,
	}
}

package usecase

import (
	"context"
	"errors"

	"go-clinic-appointments/internal/converter"
	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/domain/entity"
	"go-clinic-appointments/internal/domain/repository"
	"go-clinic-appointments/internal/scheduling"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidTimeFormat  = errors.New("invalid time format, use HH:MM")
	ErrSessionOutOfOrder  = errors.New("evening session must start at or after the morning session ends")
	ErrInvalidSessionSpan = errors.New("session end must be after session start")
)

type ScheduleUsecase interface {
	GetWeekTemplate(ctx context.Context, providerID uuid.UUID) (*dto.WeekScheduleResponse, error)
	ReplaceWeekTemplate(ctx context.Context, providerID uuid.UUID, req *dto.UpdateWeekScheduleRequest) (*dto.WeekScheduleResponse, error)
}

type scheduleUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	scheduleRepo repository.ScheduleRepository
}

func NewScheduleUsecase(db *gorm.DB, log *logrus.Logger, scheduleRepo repository.ScheduleRepository) ScheduleUsecase {
	return &scheduleUsecase{
		db:           db,
		log:          log,
		scheduleRepo: scheduleRepo,
	}
}

func (u *scheduleUsecase) GetWeekTemplate(ctx context.Context, providerID uuid.UUID) (*dto.WeekScheduleResponse, error) {
	days, err := u.scheduleRepo.FindWeekByProviderID(u.db.WithContext(ctx), providerID)
	if err != nil {
		u.log.Warnf("Failed to find schedule for provider %s: %+v", providerID, err)
		return nil, err
	}
	if len(days) == 0 {
		days = entity.DefaultWeekTemplate(providerID)
	}
	return converter.ScheduleDaysToResponse(providerID, days), nil
}

func (u *scheduleUsecase) ReplaceWeekTemplate(ctx context.Context, providerID uuid.UUID, req *dto.UpdateWeekScheduleRequest) (*dto.WeekScheduleResponse, error) {
	for _, day := range req.Days {
		if !day.Available {
			continue
		}
		if err := validateSessionTimes(day); err != nil {
			return nil, err
		}
	}

	days := converter.WeekScheduleRequestToDays(providerID, req)
	if err := u.scheduleRepo.ReplaceWeek(u.db.WithContext(ctx), providerID, days); err != nil {
		u.log.Warnf("Failed to replace schedule for provider %s: %+v", providerID, err)
		return nil, err
	}

	u.log.Infof("Schedule template replaced: provider=%s", providerID)
	return converter.ScheduleDaysToResponse(providerID, days), nil
}

// validateSessionTimes enforces the template invariants: parseable times,
// end after start, and no overlap between the morning and evening sessions.
func validateSessionTimes(day dto.DayScheduleRequest) error {
	start, ok := scheduling.ParseTimeKey(day.StartTime)
	if !ok {
		return ErrInvalidTimeFormat
	}
	end, ok := scheduling.ParseTimeKey(day.EndTime)
	if !ok {
		return ErrInvalidTimeFormat
	}
	// Normalized HH:MM keys order lexicographically
	if end <= start {
		return ErrInvalidSessionSpan
	}

	if !day.HasEvening {
		return nil
	}
	eveningStart, ok := scheduling.ParseTimeKey(day.EveningStart)
	if !ok {
		return ErrInvalidTimeFormat
	}
	eveningEnd, ok := scheduling.ParseTimeKey(day.EveningEnd)
	if !ok {
		return ErrInvalidTimeFormat
	}
	if eveningEnd <= eveningStart {
		return ErrInvalidSessionSpan
	}
	if eveningStart < end {
		return ErrSessionOutOfOrder
	}
	return nil
}

package usecase

import (
	"context"
	"time"

	"go-clinic-appointments/internal/converter"
	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/delivery/http/middleware"
	"go-clinic-appointments/internal/domain/entity"
	"go-clinic-appointments/internal/domain/repository"
	"go-clinic-appointments/internal/scheduling"
	"go-clinic-appointments/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SlotUsecase interface {
	GetWeekSlots(ctx context.Context, providerID uuid.UUID) (*dto.WeekSlotsResponse, error)
}

type slotUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	scheduleRepo    repository.ScheduleRepository
	appointmentRepo repository.AppointmentRepository
	occupancy       service.OccupancyRegistry
	now             func() time.Time
}

func NewSlotUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	scheduleRepo repository.ScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
	occupancy service.OccupancyRegistry,
) SlotUsecase {
	return &slotUsecase{
		db:              db,
		log:             log,
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		occupancy:       occupancy,
		now:             time.Now,
	}
}

// GetWeekSlots recomputes the rolling 7-day candidate slots for a provider
// from the weekly template and the occupancy registry. Nothing is
// materialized: the template and the registry stay the only sources of
// truth, so template edits can never drift against stored slot rows.
func (u *slotUsecase) GetWeekSlots(ctx context.Context, providerID uuid.UUID) (*dto.WeekSlotsResponse, error) {
	now := u.now()

	days, err := u.scheduleRepo.FindWeekByProviderID(u.db.WithContext(ctx), providerID)
	if err != nil {
		u.log.Warnf("Failed to find schedule for provider %s: %+v", providerID, err)
		return nil, err
	}
	if len(days) == 0 {
		days = entity.DefaultWeekTemplate(providerID)
	}
	week := converter.ScheduleDaysToWeek(days)

	occupancy, err := u.occupancy.GetOccupied(ctx, providerID, now, scheduling.HorizonDays)
	if err != nil {
		u.log.Warnf("Failed to load occupancy for provider %s: %+v", providerID, err)
		return nil, err
	}

	generated := scheduling.GenerateWeek(week, now, occupancy)
	generated = scheduling.FilterElapsed(generated, now)

	held := scheduling.NewHeldSlots()
	if patientID, ok := middleware.GetPatientIDFromContext(ctx); ok {
		active, err := u.appointmentRepo.FindActiveByPatientID(u.db.WithContext(ctx), patientID)
		if err != nil {
			// Annotation only: the listing still works, self-holds just
			// show as held-by-other.
			u.log.Warnf("Failed to load active appointments for patient %s: %+v", patientID, err)
		} else {
			for _, appointment := range active {
				if appointment.ProviderID != providerID {
					continue
				}
				held.Add(scheduling.DateKey(appointment.SlotDate), appointment.SlotTimeKey)
			}
		}
	}

	return converter.WeekSlotsToResponse(providerID, generated, held), nil
}

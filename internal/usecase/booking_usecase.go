package usecase

import (
	"context"
	"errors"
	"strings"
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

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentNotOwned  = errors.New("appointment does not belong to you")
	ErrAppointmentFinalized = errors.New("appointment is already cancelled or completed")
)

// Roles allowed to finalize appointments they do not own.
const (
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

func hasStaffRole(ctx context.Context) bool {
	role, ok := middleware.GetRoleFromContext(ctx)
	return ok && (role == RoleProvider || role == RoleAdmin)
}

type BookingUsecase interface {
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	SubmitBooking(ctx context.Context, req *dto.BookingRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error
	CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

type bookingUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	occupancy       service.OccupancyRegistry
	now             func() time.Time
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	occupancy service.OccupancyRegistry,
) BookingUsecase {
	return &bookingUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		occupancy:       occupancy,
		now:             time.Now,
	}
}

// GetMyAppointments returns all appointments for the logged-in patient
func (u *bookingUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	patientID, ok := middleware.GetPatientIDFromContext(ctx)
	if !ok {
		return nil, reject(ReasonNoIdentity, "no valid identity on request")
	}

	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// validatedSlot is the outcome of the Validate phase
type validatedSlot struct {
	patientID  uuid.UUID
	providerID uuid.UUID
	slotDate   time.Time
	slotTime   string
	timeKey    string
	target     *entity.Appointment // reschedule target, nil on create
}

// SubmitBooking drives one booking request through its two phases: Validate
// (identity, slot chosen, fresh self-conflict read, fresh occupancy read),
// then Commit (exactly one store write: create, or reschedule when
// RescheduleID is set). The client-side checks narrow the race window but
// cannot close it; the store's partial unique index on active slots is the
// authoritative tie-breaker when two requests pass validation concurrently.
// Nothing is persisted before the commit step, so an abandoned request has
// zero side effects.
func (u *bookingUsecase) SubmitBooking(ctx context.Context, req *dto.BookingRequest) (*dto.AppointmentResponse, error) {
	validated, err := u.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	return u.commit(ctx, validated)
}

func (u *bookingUsecase) validate(ctx context.Context, req *dto.BookingRequest) (*validatedSlot, error) {
	patientID, ok := middleware.GetPatientIDFromContext(ctx)
	if !ok {
		return nil, reject(ReasonNoIdentity, "no valid identity on request")
	}

	if req.SlotDate == "" || strings.TrimSpace(req.SlotTime) == "" {
		return nil, reject(ReasonNoSlotSelected, "no slot selected")
	}
	if req.ProviderID == uuid.Nil && req.RescheduleID == nil {
		return nil, reject(ReasonNoSlotSelected, "no provider selected")
	}

	slotDate, err := time.ParseInLocation("2006-01-02", req.SlotDate, time.Local)
	if err != nil {
		return nil, reject(ReasonNoSlotSelected, "invalid slot date, use YYYY-MM-DD")
	}
	timeKey := scheduling.NormalizeTimeKey(req.SlotTime)

	// An elapsed slot is never bookable. Checkable only when the time key
	// is well-formed; a malformed key degrades to the conflict checks.
	if key, wellFormed := scheduling.ParseTimeKey(req.SlotTime); wellFormed {
		if clock, perr := time.Parse("15:04", key); perr == nil {
			slotStart := time.Date(slotDate.Year(), slotDate.Month(), slotDate.Day(),
				clock.Hour(), clock.Minute(), 0, 0, time.Local)
			if slotStart.Before(u.now()) {
				return nil, reject(ReasonSlotElapsed, "slot is already in the past")
			}
		}
	}

	validated := &validatedSlot{
		patientID:  patientID,
		providerID: req.ProviderID,
		slotDate:   slotDate,
		slotTime:   strings.TrimSpace(req.SlotTime),
		timeKey:    timeKey,
	}

	// Resolve the reschedule target before the conflict checks so its own
	// current slot is excluded from the self-conflict scan.
	if req.RescheduleID != nil {
		target, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), *req.RescheduleID)
		if err != nil {
			u.log.Warnf("Failed to find reschedule target %s: %+v", *req.RescheduleID, err)
			return nil, reject(ReasonStoreFailure, "could not load the appointment to reschedule")
		}
		if target == nil || target.PatientID != patientID || !target.IsActive() {
			return nil, reject(ReasonNotFound, "appointment to reschedule not found or already finalized")
		}
		validated.target = target
		validated.providerID = target.ProviderID
	}

	// Fresh self-conflict read. Never a cached list: another session or tab
	// may have booked since this client last looked.
	active, err := u.appointmentRepo.FindActiveByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to list active appointments for patient %s: %+v", patientID, err)
		return nil, reject(ReasonStoreFailure, "could not verify existing appointments")
	}
	dateKey := scheduling.DateKey(slotDate)
	for _, appointment := range active {
		if validated.target != nil && appointment.ID == validated.target.ID {
			continue
		}
		if scheduling.DateKey(appointment.SlotDate) == dateKey && appointment.SlotTimeKey == timeKey {
			return nil, reject(ReasonSelfConflict, "you already hold an appointment at this time")
		}
	}

	// Fresh occupancy read, straight from the store. The registry carries
	// no holder identity; the self check above already ran, so a hit here
	// is someone else.
	occupied, err := u.occupancy.FreshOccupiedDate(ctx, validated.providerID, slotDate)
	if err != nil {
		u.log.Warnf("Failed to load occupancy for provider %s: %+v", validated.providerID, err)
		return nil, reject(ReasonStoreFailure, "could not verify slot availability")
	}
	if _, taken := occupied[timeKey]; taken {
		if validated.target == nil || validated.target.SlotTimeKey != timeKey ||
			scheduling.DateKey(validated.target.SlotDate) != dateKey {
			return nil, reject(ReasonOtherConflict, "slot is already booked")
		}
	}

	return validated, nil
}

// commit issues exactly one store operation: create or reschedule, never
// both.
func (u *bookingUsecase) commit(ctx context.Context, validated *validatedSlot) (*dto.AppointmentResponse, error) {
	if validated.target != nil {
		return u.commitReschedule(ctx, validated)
	}

	appointment := &entity.Appointment{
		PatientID:   validated.patientID,
		ProviderID:  validated.providerID,
		SlotDate:    validated.slotDate,
		SlotTime:    validated.slotTime,
		SlotTimeKey: validated.timeKey,
		Status:      entity.AppointmentStatusBooked,
	}

	if err := u.appointmentRepo.Create(u.db.WithContext(ctx), appointment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, reject(ReasonSlotTaken, "slot was taken while booking, choose another")
		}
		u.log.Errorf("Failed to insert appointment for patient %s: %+v", validated.patientID, err)
		return nil, reject(ReasonStoreFailure, "could not save the appointment")
	}

	u.occupancy.Invalidate(ctx, validated.providerID, validated.slotDate)

	u.log.Infof("Appointment booked: id=%s, provider=%s, date=%s, time=%s",
		appointment.ID, validated.providerID, validated.slotDate.Format("2006-01-02"), validated.timeKey)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *bookingUsecase) commitReschedule(ctx context.Context, validated *validatedSlot) (*dto.AppointmentResponse, error) {
	target := validated.target

	rows, err := u.appointmentRepo.Reschedule(u.db.WithContext(ctx), target.ID,
		validated.slotDate, validated.slotTime, validated.timeKey)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, reject(ReasonSlotTaken, "slot was taken while booking, choose another")
		}
		u.log.Errorf("Failed to reschedule appointment %s: %+v", target.ID, err)
		return nil, reject(ReasonStoreFailure, "could not reschedule the appointment")
	}
	if rows == 0 {
		// Finalized between validation and commit
		return nil, reject(ReasonNotFound, "appointment to reschedule not found or already finalized")
	}

	// The prior slot is free again; both dates must re-derive
	u.occupancy.Invalidate(ctx, target.ProviderID, target.SlotDate, validated.slotDate)

	updated, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), target.ID)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload appointment %s after reschedule: %+v", target.ID, err)
		target.SlotDate = validated.slotDate
		target.SlotTime = validated.slotTime
		target.SlotTimeKey = validated.timeKey
		return converter.AppointmentToResponse(target), nil
	}

	u.log.Infof("Appointment rescheduled: id=%s, provider=%s, date=%s, time=%s",
		updated.ID, updated.ProviderID, validated.slotDate.Format("2006-01-02"), validated.timeKey)
	return converter.AppointmentToResponse(updated), nil
}

// CancelAppointment cancels an appointment, freeing its slot for others.
//
// Flow:
// 1. Find appointment and verify ownership
// 2. Atomic status update guarded on still-booked (prevents double-cancel)
// 3. Invalidate the occupancy cache for that date
func (u *bookingUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	patientID, ok := middleware.GetPatientIDFromContext(ctx)
	if !ok {
		return reject(ReasonNoIdentity, "no valid identity on request")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}
	if appointment.PatientID != patientID {
		return ErrAppointmentNotOwned
	}

	rows, err := u.appointmentRepo.CancelAppointment(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		return err
	}
	if rows == 0 {
		return ErrAppointmentFinalized
	}

	u.occupancy.Invalidate(ctx, appointment.ProviderID, appointment.SlotDate)

	u.log.Infof("Appointment cancelled: id=%s, provider=%s", appointmentID, appointment.ProviderID)
	return nil
}

// CompleteAppointment marks an appointment completed. Patients may complete
// only their own appointments; staff roles may complete any. Completed rows
// stop counting as active, so the slot key becomes reusable on a future date
// cycle without the record ever being deleted.
func (u *bookingUsecase) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	patientID, ok := middleware.GetPatientIDFromContext(ctx)
	if !ok {
		return reject(ReasonNoIdentity, "no valid identity on request")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}
	if appointment.PatientID != patientID && !hasStaffRole(ctx) {
		return ErrAppointmentNotOwned
	}

	rows, err := u.appointmentRepo.CompleteAppointment(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to complete appointment %s: %+v", appointmentID, err)
		return err
	}
	if rows == 0 {
		return ErrAppointmentFinalized
	}

	u.occupancy.Invalidate(ctx, appointment.ProviderID, appointment.SlotDate)

	u.log.Infof("Appointment completed: id=%s", appointmentID)
	return nil
}

package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/delivery/http/middleware"
	"go-clinic-appointments/internal/domain/entity"
	domainRepo "go-clinic-appointments/internal/domain/repository"
	"go-clinic-appointments/internal/scheduling"
	"go-clinic-appointments/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testGormDB returns a gorm handle over a sqlmock connection. The fakes
// below never touch it; it only satisfies the db parameter plumbing.
func testGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type rescheduleCall struct {
	id       uuid.UUID
	slotDate time.Time
	slotTime string
	timeKey  string
}

type fakeAppointmentRepo struct {
	byID           map[uuid.UUID]*entity.Appointment
	active         []entity.Appointment
	activeErr      error
	created        []*entity.Appointment
	createErr      error
	rescheduled    []rescheduleCall
	rescheduleRows int64
	rescheduleErr  error
	cancelRows     int64
	completeRows   int64
	between        []entity.Appointment
	betweenCalls   int
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		byID:           map[uuid.UUID]*entity.Appointment{},
		rescheduleRows: 1,
		cancelRows:     1,
		completeRows:   1,
	}
}

func (f *fakeAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	appointment.ID = uuid.New()
	f.created = append(f.created, appointment)
	stored := *appointment
	f.byID[appointment.ID] = &stored
	return nil
}

func (f *fakeAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	appointment, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *appointment
	return &copied, nil
}

func (f *fakeAppointmentRepo) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	return f.active, nil
}

func (f *fakeAppointmentRepo) FindActiveByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	return f.active, f.activeErr
}

func (f *fakeAppointmentRepo) FindActiveByProviderBetween(db *gorm.DB, providerID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	f.betweenCalls++
	return f.between, nil
}

func (f *fakeAppointmentRepo) Reschedule(db *gorm.DB, id uuid.UUID, slotDate time.Time, slotTime, slotTimeKey string) (int64, error) {
	if f.rescheduleErr != nil {
		return 0, f.rescheduleErr
	}
	f.rescheduled = append(f.rescheduled, rescheduleCall{id: id, slotDate: slotDate, slotTime: slotTime, timeKey: slotTimeKey})
	if f.rescheduleRows > 0 {
		if appointment, ok := f.byID[id]; ok {
			appointment.SlotDate = slotDate
			appointment.SlotTime = slotTime
			appointment.SlotTimeKey = slotTimeKey
		}
	}
	return f.rescheduleRows, nil
}

func (f *fakeAppointmentRepo) CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	return f.cancelRows, nil
}

func (f *fakeAppointmentRepo) CompleteAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	return f.completeRows, nil
}

var _ domainRepo.AppointmentRepository = (*fakeAppointmentRepo)(nil)

type fakeOccupancy struct {
	occ         scheduling.Occupancy
	occErr      error
	fresh       map[string]struct{}
	freshErr    error
	invalidated []string
}

func (f *fakeOccupancy) GetOccupied(ctx context.Context, providerID uuid.UUID, from time.Time, days int) (scheduling.Occupancy, error) {
	if f.occErr != nil {
		return nil, f.occErr
	}
	if f.occ == nil {
		return scheduling.Occupancy{}, nil
	}
	return f.occ, nil
}

func (f *fakeOccupancy) FreshOccupiedDate(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]struct{}, error) {
	if f.freshErr != nil {
		return nil, f.freshErr
	}
	if f.fresh == nil {
		return map[string]struct{}{}, nil
	}
	return f.fresh, nil
}

func (f *fakeOccupancy) Invalidate(ctx context.Context, providerID uuid.UUID, dates ...time.Time) {
	for _, date := range dates {
		f.invalidated = append(f.invalidated, scheduling.DateKey(date))
	}
}

var _ service.OccupancyRegistry = (*fakeOccupancy)(nil)

// bookingNow is 9 June 2025 (a Monday) at 08:00 local time.
var bookingNow = time.Date(2025, time.June, 9, 8, 0, 0, 0, time.Local)

func newBookingFixture(t *testing.T) (*bookingUsecase, *fakeAppointmentRepo, *fakeOccupancy) {
	t.Helper()
	repo := newFakeAppointmentRepo()
	occ := &fakeOccupancy{}
	u := NewBookingUsecase(testGormDB(t), testLogger(), repo, occ).(*bookingUsecase)
	u.now = func() time.Time { return bookingNow }
	return u, repo, occ
}

func patientContext(patientID uuid.UUID) context.Context {
	return middleware.WithPatientID(context.Background(), patientID)
}

func requireRejection(t *testing.T, err error, reason RejectReason) {
	t.Helper()
	require.Error(t, err)
	rejection, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, reason, rejection.Reason)
	assert.NotEmpty(t, rejection.Message)
}

func TestSubmitBookingRequiresIdentity(t *testing.T) {
	u, _, _ := newBookingFixture(t)

	_, err := u.SubmitBooking(context.Background(), &dto.BookingRequest{
		ProviderID: uuid.New(),
		SlotDate:   "2025-06-09",
		SlotTime:   "09:10",
	})
	requireRejection(t, err, ReasonNoIdentity)
}

func TestSubmitBookingRequiresSlotSelection(t *testing.T) {
	u, repo, _ := newBookingFixture(t)
	ctx := patientContext(uuid.New())

	cases := []dto.BookingRequest{
		{ProviderID: uuid.New(), SlotDate: "", SlotTime: "09:10"},
		{ProviderID: uuid.New(), SlotDate: "2025-06-09", SlotTime: "   "},
		{ProviderID: uuid.Nil, SlotDate: "2025-06-09", SlotTime: "09:10"},
		{ProviderID: uuid.New(), SlotDate: "09/06/2025", SlotTime: "09:10"},
	}
	for _, req := range cases {
		_, err := u.SubmitBooking(ctx, &req)
		requireRejection(t, err, ReasonNoSlotSelected)
	}
	assert.Empty(t, repo.created)
}

func TestSubmitBookingRejectsElapsedSlot(t *testing.T) {
	u, repo, _ := newBookingFixture(t)

	_, err := u.SubmitBooking(patientContext(uuid.New()), &dto.BookingRequest{
		ProviderID: uuid.New(),
		SlotDate:   "2025-06-09",
		SlotTime:   "07:50",
	})
	requireRejection(t, err, ReasonSlotElapsed)
	assert.Empty(t, repo.created)
}

func TestSubmitBookingRejectsSelfConflict(t *testing.T) {
	u, repo, _ := newBookingFixture(t)
	patientID := uuid.New()
	repo.active = []entity.Appointment{{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local),
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}}

	// "9:10 AM" and the stored "09:10" are the same slot once normalized,
	// even against a different provider.
	_, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		ProviderID: uuid.New(),
		SlotDate:   "2025-06-09",
		SlotTime:   "9:10 AM",
	})
	requireRejection(t, err, ReasonSelfConflict)
	assert.Empty(t, repo.created)
}

func TestSubmitBookingRejectsOtherConflict(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	occ.fresh = map[string]struct{}{"09:10": {}}

	_, err := u.SubmitBooking(patientContext(uuid.New()), &dto.BookingRequest{
		ProviderID: uuid.New(),
		SlotDate:   "2025-06-09",
		SlotTime:   "09:10",
	})
	requireRejection(t, err, ReasonOtherConflict)
	assert.Empty(t, repo.created)
}

func TestSubmitBookingCreatesAppointment(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()
	providerID := uuid.New()

	resp, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		ProviderID: providerID,
		SlotDate:   "2025-06-09",
		SlotTime:   "9:10 AM",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, patientID, created.PatientID)
	assert.Equal(t, providerID, created.ProviderID)
	assert.Equal(t, "9:10 AM", created.SlotTime)
	assert.Equal(t, "09:10", created.SlotTimeKey)
	assert.Equal(t, entity.AppointmentStatusBooked, created.Status)

	assert.Equal(t, "09:10", resp.SlotTimeKey)
	assert.Equal(t, "2025-06-09", resp.SlotDate)
	assert.Equal(t, []string{"9_6_2025"}, occ.invalidated)
}

func TestSubmitBookingTranslatesStoreConflict(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	repo.createErr = domainRepo.ErrSlotTaken

	_, err := u.SubmitBooking(patientContext(uuid.New()), &dto.BookingRequest{
		ProviderID: uuid.New(),
		SlotDate:   "2025-06-09",
		SlotTime:   "09:10",
	})
	requireRejection(t, err, ReasonSlotTaken)
	assert.Empty(t, occ.invalidated, "a failed create must not invalidate the cache")
}

func TestSubmitBookingReschedulesExisting(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()
	providerID := uuid.New()

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  providerID,
		SlotDate:    time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		SlotTime:    "09:10",
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}
	repo.byID[target.ID] = target
	repo.active = []entity.Appointment{*target}

	resp, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Empty(t, repo.created, "reschedule must not create a second appointment")
	require.Len(t, repo.rescheduled, 1)
	assert.Equal(t, target.ID, repo.rescheduled[0].id)
	assert.Equal(t, "10:30", repo.rescheduled[0].timeKey)

	assert.Equal(t, target.ID, resp.ID)
	assert.Equal(t, providerID, resp.ProviderID)
	assert.Equal(t, "2025-06-11", resp.SlotDate)

	// Both the vacated date and the new one must re-derive.
	assert.ElementsMatch(t, []string{"10_6_2025", "11_6_2025"}, occ.invalidated)
}

func TestSubmitBookingRescheduleKeepsOwnSlot(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 11, 0, 0, 0, 0, time.Local),
		SlotTime:    "10:30",
		SlotTimeKey: "10:30",
		Status:      entity.AppointmentStatusBooked,
	}
	repo.byID[target.ID] = target
	repo.active = []entity.Appointment{*target}

	// The registry shows the slot taken, but it is the target's own hold.
	occ.fresh = map[string]struct{}{"10:30": {}}

	_, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	require.NoError(t, err)
	require.Len(t, repo.rescheduled, 1)
}

func TestSubmitBookingRescheduleRejectsForeignTarget(t *testing.T) {
	u, repo, _ := newBookingFixture(t)

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}
	repo.byID[target.ID] = target

	_, err := u.SubmitBooking(patientContext(uuid.New()), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	requireRejection(t, err, ReasonNotFound)
	assert.Empty(t, repo.rescheduled)
}

func TestSubmitBookingRescheduleRejectsFinalizedTarget(t *testing.T) {
	u, repo, _ := newBookingFixture(t)
	patientID := uuid.New()

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusCancelled,
	}
	repo.byID[target.ID] = target

	_, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	requireRejection(t, err, ReasonNotFound)
}

func TestSubmitBookingRescheduleLosesCommitRace(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}
	repo.byID[target.ID] = target
	repo.rescheduleRows = 0 // finalized between validation and commit

	_, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	requireRejection(t, err, ReasonNotFound)
	assert.Empty(t, occ.invalidated)
}

func TestSubmitBookingRescheduleTranslatesStoreConflict(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	target := &entity.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}
	repo.byID[target.ID] = target
	repo.rescheduleErr = domainRepo.ErrSlotTaken

	_, err := u.SubmitBooking(patientContext(patientID), &dto.BookingRequest{
		SlotDate:     "2025-06-11",
		SlotTime:     "10:30",
		RescheduleID: &target.ID,
	})
	requireRejection(t, err, ReasonSlotTaken)
	assert.Empty(t, occ.invalidated, "a failed reschedule must not invalidate the cache")
}

func TestCancelAppointment(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	appointment := &entity.Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: uuid.New(),
		SlotDate:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:     entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment

	require.NoError(t, u.CancelAppointment(patientContext(patientID), appointment.ID))
	assert.Equal(t, []string{"10_6_2025"}, occ.invalidated)
}

func TestCancelAppointmentNotFound(t *testing.T) {
	u, _, _ := newBookingFixture(t)

	err := u.CancelAppointment(patientContext(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelAppointmentNotOwned(t *testing.T) {
	u, repo, _ := newBookingFixture(t)

	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Status:    entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment

	err := u.CancelAppointment(patientContext(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotOwned)
}

func TestCancelAppointmentAlreadyFinalized(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		Status:    entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment
	repo.cancelRows = 0 // second cancel loses the guard

	err := u.CancelAppointment(patientContext(patientID), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentFinalized)
	assert.Empty(t, occ.invalidated)
}

func TestCompleteAppointmentByOwner(t *testing.T) {
	u, repo, occ := newBookingFixture(t)
	patientID := uuid.New()

	appointment := &entity.Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: uuid.New(),
		SlotDate:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:     entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment

	require.NoError(t, u.CompleteAppointment(patientContext(patientID), appointment.ID))
	assert.Equal(t, []string{"10_6_2025"}, occ.invalidated)

	repo.completeRows = 0
	err := u.CompleteAppointment(patientContext(patientID), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentFinalized)
}

func TestCompleteAppointmentByStrangerRejected(t *testing.T) {
	u, repo, occ := newBookingFixture(t)

	appointment := &entity.Appointment{
		ID:         uuid.New(),
		PatientID:  uuid.New(),
		ProviderID: uuid.New(),
		SlotDate:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:     entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment

	// Another patient must not be able to finalize someone else's
	// appointment and free its slot.
	err := u.CompleteAppointment(patientContext(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotOwned)
	assert.Empty(t, occ.invalidated)
}

func TestCompleteAppointmentByStaffRole(t *testing.T) {
	u, repo, occ := newBookingFixture(t)

	appointment := &entity.Appointment{
		ID:         uuid.New(),
		PatientID:  uuid.New(),
		ProviderID: uuid.New(),
		SlotDate:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:     entity.AppointmentStatusBooked,
	}
	repo.byID[appointment.ID] = appointment

	ctx := middleware.WithRole(patientContext(uuid.New()), RoleProvider)
	require.NoError(t, u.CompleteAppointment(ctx, appointment.ID))
	assert.Equal(t, []string{"10_6_2025"}, occ.invalidated)
}

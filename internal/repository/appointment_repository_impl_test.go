package repository

import (
	"regexp"
	"testing"
	"time"

	"go-clinic-appointments/internal/domain/entity"
	domainRepo "go-clinic-appointments/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens gorm over sqlmock with the same TranslateError setting the
// real connection uses, so unique violations map exactly as in production.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func uniqueViolation() *pgconn.PgError {
	return &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_appointments_active_slot",
	}
}

func TestCreateReturnsGeneratedID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	appointment := &entity.Appointment{
		PatientID:   uuid.New(),
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local),
		SlotTime:    "9:10 AM",
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	}
	require.NoError(t, repo.Create(db, appointment))
	assert.Equal(t, id, appointment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTranslatesUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
		WillReturnError(uniqueViolation())

	err := repo.Create(db, &entity.Appointment{
		PatientID:   uuid.New(),
		ProviderID:  uuid.New(),
		SlotDate:    time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local),
		SlotTime:    "09:10",
		SlotTimeKey: "09:10",
		Status:      entity.AppointmentStatusBooked,
	})
	assert.ErrorIs(t, err, domainRepo.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFoundReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "appointments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	appointment, err := repo.FindByID(db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, appointment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByProviderBetween(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()
	providerID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "patient_id", "provider_id", "slot_date", "slot_time", "slot_time_key", "status"}).
		AddRow(uuid.New().String(), uuid.New().String(), providerID.String(),
			time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local), "9:10 AM", "09:10", "booked")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "appointments"`)).
		WillReturnRows(rows)

	from := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local)
	appointments, err := repo.FindActiveByProviderBetween(db, providerID, from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, "09:10", appointments[0].SlotTimeKey)
	assert.Equal(t, entity.AppointmentStatusBooked, appointments[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleReportsAffectedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.Reschedule(db, uuid.New(),
		time.Date(2025, time.June, 11, 0, 0, 0, 0, time.Local), "10:30", "10:30")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleFinalizedTargetAffectsNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.Reschedule(db, uuid.New(),
		time.Date(2025, time.June, 11, 0, 0, 0, 0, time.Local), "10:30", "10:30")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestRescheduleTranslatesUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnError(uniqueViolation())

	_, err := repo.Reschedule(db, uuid.New(),
		time.Date(2025, time.June, 11, 0, 0, 0, 0, time.Local), "10:30", "10:30")
	assert.ErrorIs(t, err, domainRepo.ErrSlotTaken)
}

func TestCancelAppointmentGuardsOnStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows, err := repo.CancelAppointment(db, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows, err = repo.CancelAppointment(db, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "already-finalized rows must not match the guard")
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

var _ appointment.Repository = (*AppointmentRepository)(nil)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return translateWriteErr(err, "creating appointment")
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching appointment %s: %w", id, err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(a).
		Where("deleted_at IS NULL").
		Select("patient_id", "appointment_date", "scheduled_at", "duration_mins", "category", "status", "notes", "confirmed_at").
		Updates(a)
	if res.Error != nil {
		return translateWriteErr(res.Error, "saving appointment")
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND deleted_at IS NULL", a.ID).
		Updates(map[string]any{
			"status":              a.Status,
			"confirmed_at":        a.ConfirmedAt,
			"cancelled_at":        a.CancelledAt,
			"cancellation_reason": a.CancellationReason,
			"cancelled_by":        a.CancelledBy,
		})
	if res.Error != nil {
		return fmt.Errorf("updating appointment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	tx := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Where("deleted_at IS NULL")

	if q.Date != nil {
		tx = tx.Where("appointment_date = ?", q.Date.Format(time.DateOnly))
	}
	if q.PatientID != nil {
		tx = tx.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if !q.IncludeCancelled {
		tx = tx.Where("status <> ?", appointment.StatusCancelled)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	var rows []*appointment.Appointment
	err := tx.Order("scheduled_at ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &appointment.PagedAppointments{
		Appointments: rows,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages(total, q.PageSize),
	}, nil
}

func (r *AppointmentRepository) ListActiveByDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error) {
	var rows []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("appointment_date = ? AND status <> ? AND deleted_at IS NULL", date.Format(time.DateOnly), appointment.StatusCancelled).
		Order("scheduled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments on %s: %w", date.Format(time.DateOnly), err)
	}
	return rows, nil
}

// WithDateLock takes a transaction-scoped advisory lock keyed by the civil
// date. It is released on commit or rollback.
func (r *AppointmentRepository) WithDateLock(ctx context.Context, date time.Time, fn func(appointment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", dateLockKey(date)).Error; err != nil {
			return fmt.Errorf("locking %s: %w", date.Format(time.DateOnly), err)
		}
		return fn(&AppointmentRepository{db: tx})
	})
}

func dateLockKey(date time.Time) string {
	return "appointments:" + date.Format(time.DateOnly)
}

func translateWriteErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == database.ActiveStartIndex {
		return appointment.ErrSlotTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new appointment and assigns its ID. Returns
	// ErrSlotTaken when the storage layer rejects a duplicate active start.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save writes every scheduling field of an existing appointment.
	Save(ctx context.Context, a *Appointment) error

	// UpdateStatus updates the status of appointment
	UpdateStatus(ctx context.Context, a *Appointment) error

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// ListActiveByDate returns non-cancelled appointments on the given civil date.
	ListActiveByDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	// WithDateLock runs fn while holding an exclusive lock on date. The
	// Repository passed to fn shares the lock's transaction.
	WithDateLock(ctx context.Context, date time.Time, fn func(Repository) error) error
}

package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Category is the appointment type. One configured value (Urgency by
// default) overrides the closed-interval and closed-day rules.
type Category string

const (
	CategoryConsult      Category = "Consult"
	CategoryCleaning     Category = "Cleaning"
	CategoryFilling      Category = "Filling"
	CategoryExtraction   Category = "Extraction"
	CategoryEndodontics  Category = "Endodontics"
	CategoryOrthodontics Category = "Orthodontics"
	CategoryUrgency      Category = "Urgency"
)

// State transitions possibilities:
//
//	pending → confirmed
//	pending → cancelled
//	confirmed → cancelled
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether an appointment in this status occupies its slot.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID int64 `gorm:"column:patient_id;not null;index"`

	// Date is the civil date in the clinic timezone, stored separately so
	// per-day reads and locks do not depend on timestamp arithmetic.
	Date         time.Time `gorm:"column:appointment_date;type:date;not null;index"`
	ScheduledAt  time.Time `gorm:"column:scheduled_at;not null;index"`
	DurationMins int       `gorm:"column:duration_mins;not null;default:30"`
	Category     Category  `gorm:"column:category;type:varchar(50);not null;index"`
	Status       Status    `gorm:"column:status;type:varchar(30);not null;default:'pending';index"`

	Notes string `gorm:"column:notes;type:text"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`

	// Cancellation tracking
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

func (a *Appointment) IsActive() bool {
	return a.Status.IsActive()
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCancelled},
		StatusCancelled: {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (a *Appointment) Confirm() error {
	if !a.CanTransitionTo(StatusConfirmed) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	a.Status = StatusConfirmed
	a.ConfirmedAt = &now
	return nil
}

// Cancel is a soft delete: the row stays but no longer blocks its slot.
func (a *Appointment) Cancel(reason string, cancelledBy uuid.UUID) error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = reason
	a.CancelledBy = &cancelledBy
	return nil
}

type CancelAppointmentCommand struct {
	Reason string
}

type ListAppointmentsQuery struct {
	Date             *time.Time
	PatientID        *int64
	Status           *Status
	IncludeCancelled bool
	Page             int
	PageSize         int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}

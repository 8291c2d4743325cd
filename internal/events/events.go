package events

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
)

// Type doubles as the routing key on the events exchange.
type Type string

const (
	AppointmentBooked      Type = "appointment.booked"
	AppointmentRescheduled Type = "appointment.rescheduled"
	AppointmentConfirmed   Type = "appointment.confirmed"
	AppointmentCancelled   Type = "appointment.cancelled"
)

type Event struct {
	ID          uuid.UUID          `json:"id"`
	Type        Type               `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	ActorID     uuid.UUID          `json:"actor_id"`
	Appointment AppointmentPayload `json:"appointment"`
}

type AppointmentPayload struct {
	ID              uuid.UUID `json:"id"`
	PatientID       int64     `json:"patient_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
}

func New(t Type, a *appointment.Appointment, actor uuid.UUID, at time.Time) Event {
	local := a.ScheduledAt.In(a.Date.Location())
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: at.UTC(),
		ActorID:    actor,
		Appointment: AppointmentPayload{
			ID:              a.ID,
			PatientID:       a.PatientID,
			Date:            a.Date.Format(time.DateOnly),
			Time:            local.Format("15:04"),
			ScheduledAt:     a.ScheduledAt.UTC(),
			DurationMinutes: a.DurationMins,
			Category:        string(a.Category),
			Status:          string(a.Status),
			Reason:          a.CancellationReason,
		},
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher is used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

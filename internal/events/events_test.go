package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNew_UsesClinicLocalTime(t *testing.T) {
	loc := time.FixedZone("CLT", -3*3600)
	a := &appointment.Appointment{
		ID:           uuid.New(),
		PatientID:    42,
		Date:         time.Date(2026, 10, 19, 0, 0, 0, 0, loc),
		ScheduledAt:  time.Date(2026, 10, 19, 10, 30, 0, 0, loc).UTC(),
		DurationMins: 60,
		Category:     appointment.CategoryCleaning,
		Status:       appointment.StatusPending,
	}

	e := New(AppointmentBooked, a, uuid.New(), time.Now())
	if e.Appointment.Date != "2026-10-19" || e.Appointment.Time != "10:30" {
		t.Errorf("expected 2026-10-19 10:30, got %s %s", e.Appointment.Date, e.Appointment.Time)
	}
	if e.Appointment.DurationMinutes != 60 || e.Appointment.Category != "Cleaning" {
		t.Errorf("unexpected payload: %+v", e.Appointment)
	}
}

func TestPublishing(t *testing.T) {
	a := &appointment.Appointment{
		ID:          uuid.New(),
		Date:        time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		ScheduledAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Status:      appointment.StatusCancelled,
	}
	e := New(AppointmentCancelled, a, uuid.New(), time.Now())

	msg, err := publishing(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Errorf("expected persistent json message, got mode=%d type=%s", msg.DeliveryMode, msg.ContentType)
	}
	if msg.MessageId != e.ID.String() {
		t.Errorf("expected message id %s, got %s", e.ID, msg.MessageId)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if decoded.Type != AppointmentCancelled {
		t.Errorf("expected %s, got %s", AppointmentCancelled, decoded.Type)
	}
}

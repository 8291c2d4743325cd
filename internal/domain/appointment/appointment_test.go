package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppointment_EndsAt(t *testing.T) {
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	a := &Appointment{ScheduledAt: start, DurationMins: 90}
	if got := a.EndsAt(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("expected 11:30, got %s", got.Format("15:04"))
	}
}

func TestAppointment_Transitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, tt := range tests {
		a := &Appointment{Status: tt.from}
		if got := a.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestAppointment_Cancel(t *testing.T) {
	by := uuid.New()
	a := &Appointment{Status: StatusConfirmed}
	if err := a.Cancel("patient request", by); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCancelled || a.IsActive() {
		t.Errorf("expected cancelled inactive appointment, got %s", a.Status)
	}
	if a.CancelledAt == nil || a.CancelledBy == nil || *a.CancelledBy != by {
		t.Error("expected cancellation metadata to be recorded")
	}
	if err := a.Cancel("again", by); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestAppointment_Confirm(t *testing.T) {
	a := &Appointment{Status: StatusPending}
	if err := a.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ConfirmedAt == nil {
		t.Error("expected confirmed_at to be set")
	}
	if err := a.Confirm(); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

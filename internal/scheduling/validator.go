package scheduling

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Candidate is a proposed booking. In ModeEdit, ID names the stored
// appointment so it is not compared against itself, and Status carries the
// status to keep (or StatusCancelled to cancel without rescheduling checks).
type Candidate struct {
	ID           uuid.UUID
	PatientID    int64
	Date         time.Time
	Time         Clock
	DurationMins int
	Category     appointment.Category
	Status       appointment.Status
	Notes        string
}

// Validator runs the ordered booking checks. It holds no per-request state
// and may be shared between goroutines.
type Validator struct {
	policy *Policy
	// Now is the reference instant for the past-booking rule.
	Now func() time.Time
}

func NewValidator(p *Policy) *Validator {
	return &Validator{policy: p, Now: time.Now}
}

func (v *Validator) Policy() *Policy { return v.policy }

// Validate checks c against the calendar and against existing, which must
// hold the appointments on c's date. existing is only read. Checks run in a
// fixed order and the first failure decides the outcome.
func (v *Validator) Validate(c Candidate, mode Mode, existing []*appointment.Appointment) Outcome {
	p := v.policy
	c.Category = appointment.Category(strings.TrimSpace(string(c.Category)))

	// Cancelling never re-validates, not even stored fields that predate
	// the current calendar.
	if mode == ModeEdit && c.Status == appointment.StatusCancelled {
		return Accepted(v.prepare(c, mode, p.Date(c.Date)))
	}

	if c.PatientID <= 0 || c.Date.IsZero() || !c.Time.IsSet() || c.DurationMins <= 0 || c.Category == "" {
		return Rejected(ReasonMissingFields)
	}
	if !p.IsAllowedDuration(c.DurationMins) {
		return Rejected(ReasonInvalidDuration)
	}

	date := p.Date(c.Date)
	exclude := uuid.Nil
	if mode == ModeEdit {
		exclude = c.ID
	}

	override := p.IsOverride(c.Category)

	if p.IsFullyClosedDay(date) && !override {
		return Rejected(ReasonFullyClosedDay)
	}
	if p.StartsInsideClosedInterval(c.Time) && !override {
		return Rejected(ReasonClosedInterval)
	}
	if !p.IsGridAligned(c.Time) {
		return Rejected(ReasonBadGranularity)
	}

	now := v.Now()
	start := c.Time.On(date)
	if start.Before(now) {
		return Rejected(ReasonPastDateTime)
	}
	if !p.IsWithinOperatingHours(c.Time) {
		return Rejected(ReasonOutsideHours)
	}

	idx := NewOverlapIndex(existing)
	rec := NewRecommender(p, idx, date, c.Category, exclude, now)

	if idx.Overlaps(NewInterval(start, c.DurationMins), exclude) {
		t, tOK := rec.NextAvailableSlot(c.Time, c.DurationMins)
		d, dOK := rec.MaxFittingDuration(c.Time, c.DurationMins)
		return Conflict(ReasonOverlap, t, tOK, d, dOK)
	}

	if !p.EndsByClose(c.Time, c.DurationMins) {
		d, dOK := rec.MaxFittingDuration(c.Time, c.DurationMins)
		return Conflict(ReasonEndsAfterClosing, NoClock, false, d, dOK)
	}

	if !override && p.CrossesClosedInterval(c.Time, c.DurationMins) {
		// Prefer shortening before the interval; otherwise offer the
		// first start after it.
		if d, ok := rec.MaxFittingDuration(c.Time, c.DurationMins); ok {
			return Conflict(ReasonCrossesClosedInterval, NoClock, false, d, true)
		}
		_, closedEnd := p.ClosedInterval()
		from := max(closedEnd, c.Time.Add(p.GridMinutes()))
		t, ok := rec.firstFit(from, c.DurationMins)
		return Conflict(ReasonCrossesClosedInterval, t, ok, 0, false)
	}

	return Accepted(v.prepare(c, mode, date))
}

// prepare builds the record to persist. Create always starts pending; edit
// keeps the status the caller passed.
func (v *Validator) prepare(c Candidate, mode Mode, date time.Time) *appointment.Appointment {
	status := appointment.StatusPending
	id := uuid.Nil
	if mode == ModeEdit {
		id = c.ID
		if c.Status != "" {
			status = c.Status
		}
	}
	return &appointment.Appointment{
		ID:           id,
		PatientID:    c.PatientID,
		Date:         date,
		ScheduledAt:  c.Time.On(date),
		DurationMins: c.DurationMins,
		Category:     c.Category,
		Status:       status,
		Notes:        c.Notes,
	}
}

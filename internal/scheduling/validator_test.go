package scheduling

import (
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
)

var (
	testNow = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	monday  = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	sunday  = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

const (
	consult = appointment.CategoryConsult
	urgency = appointment.CategoryUrgency
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v := NewValidator(newTestPolicy(t))
	v.Now = func() time.Time { return testNow }
	return v
}

func candidate(date time.Time, at Clock, mins int, cat appointment.Category) Candidate {
	return Candidate{PatientID: 1, Date: date, Time: at, DurationMins: mins, Category: cat}
}

func at(date time.Time, h, m, mins int) *appointment.Appointment {
	return &appointment.Appointment{
		ID:           uuid.New(),
		ScheduledAt:  NewClock(h, m).On(date),
		DurationMins: mins,
		Category:     consult,
		Status:       appointment.StatusPending,
	}
}

func assertOutcome(t *testing.T, o Outcome, kind Kind, reason Reason) {
	t.Helper()
	if o.Kind != kind || o.Reason != reason {
		t.Fatalf("expected %s/%s, got %s/%s (%s)", kind, reason, o.Kind, o.Reason, o.Message)
	}
}

func assertSuggestedTime(t *testing.T, o Outcome, want Clock) {
	t.Helper()
	if o.SuggestedTime == nil {
		t.Fatalf("expected suggested time %s, got none", want)
	}
	if *o.SuggestedTime != want {
		t.Errorf("expected suggested time %s, got %s", want, *o.SuggestedTime)
	}
}

func assertSuggestedDuration(t *testing.T, o Outcome, want int) {
	t.Helper()
	if o.SuggestedDuration == nil {
		t.Fatalf("expected suggested duration %d, got none", want)
	}
	if *o.SuggestedDuration != want {
		t.Errorf("expected suggested duration %d, got %d", want, *o.SuggestedDuration)
	}
}

// ---------- Reference scenarios ----------

func TestValidate_AcceptsFreeWeekdaySlot(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(monday, NewClock(10, 0), 30, consult), ModeCreate, nil)

	assertOutcome(t, o, KindAccepted, "")
	if o.Appointment == nil {
		t.Fatal("accepted outcome must carry the appointment")
	}
	if o.Appointment.Status != appointment.StatusPending {
		t.Errorf("expected pending status, got %s", o.Appointment.Status)
	}
	if !o.Appointment.ScheduledAt.Equal(time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected scheduled_at %s", o.Appointment.ScheduledAt)
	}
	if o.Appointment.ID != uuid.Nil {
		t.Error("create must not assign an ID")
	}
}

func TestValidate_RejectsFullyClosedDay(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(sunday, NewClock(10, 0), 30, consult), ModeCreate, nil)
	assertOutcome(t, o, KindRejected, ReasonFullyClosedDay)
	if o.Message == "" {
		t.Error("expected a human message")
	}
}

func TestValidate_OverrideOpensClosedDay(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(sunday, NewClock(10, 0), 30, urgency), ModeCreate, nil)
	assertOutcome(t, o, KindAccepted, "")
}

func TestValidate_OverlapSuggestsPriorBookingEnd(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(monday, 10, 0, 30)}

	o := v.Validate(candidate(monday, NewClock(10, 15), 30, consult), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonOverlap)
	assertSuggestedTime(t, o, NewClock(10, 30))
	if o.SuggestedDuration != nil {
		t.Errorf("15 minutes at 10:15 still overlaps, got suggestion %d", *o.SuggestedDuration)
	}
}

func TestValidate_StartAtClosedIntervalCrossesIt(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(monday, NewClock(13, 0), 60, consult), ModeCreate, nil)
	assertOutcome(t, o, KindConflict, ReasonCrossesClosedInterval)
	assertSuggestedTime(t, o, NewClock(16, 30))
}

func TestValidate_EndsAfterClosingSuggestsShorter(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(monday, NewClock(20, 0), 90, consult), ModeCreate, nil)
	assertOutcome(t, o, KindConflict, ReasonEndsAfterClosing)
	assertSuggestedDuration(t, o, 30)
	if o.SuggestedTime != nil {
		t.Error("a later start cannot end earlier")
	}
}

// ---------- Check order ----------

func TestValidate_CheckOrder(t *testing.T) {
	pastMonday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	pastSunday := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Candidate
		want Reason
	}{
		{"missing patient", Candidate{Date: monday, Time: NewClock(10, 0), DurationMins: 30, Category: consult}, ReasonMissingFields},
		{"missing date", Candidate{PatientID: 1, Time: NewClock(10, 0), DurationMins: 30, Category: consult}, ReasonMissingFields},
		{"missing time", candidate(monday, NoClock, 30, consult), ReasonMissingFields},
		{"missing duration", candidate(monday, NewClock(10, 0), 0, consult), ReasonMissingFields},
		{"blank category", candidate(monday, NewClock(10, 0), 30, "  "), ReasonMissingFields},
		{"duration outside set", candidate(monday, NewClock(10, 0), 45, consult), ReasonInvalidDuration},
		{"duration outside set on closed day", candidate(sunday, NewClock(10, 0), 45, consult), ReasonInvalidDuration},
		{"closed day before everything else", candidate(pastSunday, NewClock(13, 10), 30, consult), ReasonFullyClosedDay},
		{"closed interval before granularity", candidate(monday, NewClock(13, 10), 30, consult), ReasonClosedInterval},
		{"granularity before past", candidate(pastMonday, NewClock(10, 10), 30, consult), ReasonBadGranularity},
		{"past before hours", candidate(pastMonday, NewClock(7, 0), 30, consult), ReasonPastDateTime},
		{"before opening", candidate(monday, NewClock(8, 45), 30, consult), ReasonOutsideHours},
		{"at closing", candidate(monday, NewClock(20, 30), 15, consult), ReasonOutsideHours},
		{"override still bound by hours", candidate(sunday, NewClock(21, 0), 15, urgency), ReasonOutsideHours},
		{"override still bound by grid", candidate(monday, NewClock(13, 20), 15, urgency), ReasonBadGranularity},
	}

	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := v.Validate(tt.c, ModeCreate, nil)
			assertOutcome(t, o, KindRejected, tt.want)
		})
	}
}

func TestValidate_OverlapBeatsClosingAndClosedInterval(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(monday, 20, 0, 30)}

	o := v.Validate(candidate(monday, NewClock(20, 0), 90, consult), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonOverlap)
	if o.HasSuggestion() {
		t.Error("nothing fits at or after 20:00")
	}
}

func TestValidate_PastIsComparedToNow(t *testing.T) {
	v := newTestValidator(t)
	v.Now = func() time.Time { return time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC) }

	assertOutcome(t, v.Validate(candidate(monday, NewClock(10, 0), 30, consult), ModeCreate, nil), KindRejected, ReasonPastDateTime)
	assertOutcome(t, v.Validate(candidate(monday, NewClock(10, 15), 30, consult), ModeCreate, nil), KindAccepted, "")
}

// ---------- Override category ----------

func TestValidate_OverrideBypassesClosedInterval(t *testing.T) {
	v := newTestValidator(t)
	assertOutcome(t, v.Validate(candidate(monday, NewClock(13, 15), 30, urgency), ModeCreate, nil), KindAccepted, "")
	assertOutcome(t, v.Validate(candidate(monday, NewClock(12, 0), 240, urgency), ModeCreate, nil), KindAccepted, "")
}

func TestValidate_OverrideStillChecksOverlap(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(sunday, 10, 0, 60)}
	o := v.Validate(candidate(sunday, NewClock(10, 30), 30, urgency), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonOverlap)
	assertSuggestedTime(t, o, NewClock(11, 0))
}

// ---------- Suggestions ----------

func TestValidate_OverlapOffersBothSuggestions(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(monday, 10, 30, 30)}

	o := v.Validate(candidate(monday, NewClock(10, 0), 60, consult), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonOverlap)
	assertSuggestedTime(t, o, NewClock(11, 0))
	assertSuggestedDuration(t, o, 30)
}

func TestValidate_SaturatedDayHasNoSuggestion(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{
		at(monday, 9, 0, 240),
		at(monday, 16, 30, 240),
	}

	o := v.Validate(candidate(monday, NewClock(10, 0), 30, consult), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonOverlap)
	if o.HasSuggestion() {
		t.Errorf("expected no suggestion, got time=%v duration=%v", o.SuggestedTime, o.SuggestedDuration)
	}
}

func TestValidate_CrossingPrefersShorterDuration(t *testing.T) {
	v := newTestValidator(t)
	o := v.Validate(candidate(monday, NewClock(12, 0), 90, consult), ModeCreate, nil)
	assertOutcome(t, o, KindConflict, ReasonCrossesClosedInterval)
	assertSuggestedDuration(t, o, 60)
	if o.SuggestedTime != nil {
		t.Error("time suggestion only when no shorter duration fits")
	}
}

func TestValidate_CrossingAfterIntervalSkipsBookings(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(monday, 16, 30, 60)}
	o := v.Validate(candidate(monday, NewClock(13, 0), 60, consult), ModeCreate, existing)
	assertOutcome(t, o, KindConflict, ReasonCrossesClosedInterval)
	assertSuggestedTime(t, o, NewClock(17, 30))
}

func TestValidate_CancelledBookingsDoNotBlock(t *testing.T) {
	v := newTestValidator(t)
	cancelled := at(monday, 10, 0, 30)
	cancelled.Status = appointment.StatusCancelled

	o := v.Validate(candidate(monday, NewClock(10, 0), 30, consult), ModeCreate, []*appointment.Appointment{cancelled})
	assertOutcome(t, o, KindAccepted, "")
}

// ---------- Edit mode ----------

func TestValidate_EditDoesNotOverlapItself(t *testing.T) {
	v := newTestValidator(t)
	stored := at(monday, 10, 0, 30)
	stored.Status = appointment.StatusConfirmed
	existing := []*appointment.Appointment{stored}

	c := candidate(monday, NewClock(10, 0), 30, consult)
	c.ID = stored.ID
	c.Status = appointment.StatusConfirmed

	o := v.Validate(c, ModeEdit, existing)
	assertOutcome(t, o, KindAccepted, "")
	if o.Appointment.ID != stored.ID {
		t.Error("edit must keep the appointment ID")
	}
	if o.Appointment.Status != appointment.StatusConfirmed {
		t.Errorf("edit must keep status, got %s", o.Appointment.Status)
	}

	// The same candidate as a new booking collides with the stored one.
	assertOutcome(t, v.Validate(c, ModeCreate, existing), KindConflict, ReasonOverlap)
}

func TestValidate_EditExtendsOverOwnSlot(t *testing.T) {
	v := newTestValidator(t)
	stored := at(monday, 10, 0, 30)
	c := candidate(monday, NewClock(10, 0), 60, consult)
	c.ID = stored.ID

	assertOutcome(t, v.Validate(c, ModeEdit, []*appointment.Appointment{stored}), KindAccepted, "")
}

func TestValidate_CancellationSkipsSchedulingRules(t *testing.T) {
	v := newTestValidator(t)
	c := candidate(sunday, NewClock(13, 10), 30, consult)
	c.ID = uuid.New()
	c.Status = appointment.StatusCancelled

	o := v.Validate(c, ModeEdit, nil)
	assertOutcome(t, o, KindAccepted, "")
	if o.Appointment.Status != appointment.StatusCancelled {
		t.Errorf("expected cancelled, got %s", o.Appointment.Status)
	}

	legacy := c
	legacy.DurationMins = 45
	assertOutcome(t, v.Validate(legacy, ModeEdit, nil), KindAccepted, "")

	legacy.PatientID = 0
	assertOutcome(t, v.Validate(legacy, ModeEdit, nil), KindAccepted, "")

	create := c
	create.DurationMins = 45
	assertOutcome(t, v.Validate(create, ModeCreate, nil), KindRejected, ReasonInvalidDuration)
}

func TestValidate_DoesNotMutateExisting(t *testing.T) {
	v := newTestValidator(t)
	existing := []*appointment.Appointment{at(monday, 11, 0, 30), at(monday, 10, 0, 30)}
	first := existing[0].ID

	v.Validate(candidate(monday, NewClock(10, 0), 30, consult), ModeCreate, existing)
	if existing[0].ID != first || len(existing) != 2 {
		t.Error("validator must not reorder or modify the caller's slice")
	}
}

// ---------- Properties ----------

func sameOutcome(a, b Outcome) bool {
	if a.Kind != b.Kind || a.Reason != b.Reason {
		return false
	}
	if (a.SuggestedTime == nil) != (b.SuggestedTime == nil) || (a.SuggestedDuration == nil) != (b.SuggestedDuration == nil) {
		return false
	}
	if a.SuggestedTime != nil && *a.SuggestedTime != *b.SuggestedTime {
		return false
	}
	if a.SuggestedDuration != nil && *a.SuggestedDuration != *b.SuggestedDuration {
		return false
	}
	return true
}

func TestValidate_Properties(t *testing.T) {
	v := newTestValidator(t)
	p := v.Policy()
	closedStart, closedEnd := p.ClosedInterval()

	existing := []*appointment.Appointment{
		at(monday, 9, 30, 60),
		at(monday, 11, 0, 15),
		at(monday, 12, 15, 30),
		at(monday, 17, 0, 90),
		at(monday, 19, 45, 30),
	}

	for _, cat := range []appointment.Category{consult, urgency} {
		for start := NewClock(8, 0); start <= NewClock(21, 0); start = start.Add(5) {
			for _, mins := range p.AllowedDurations() {
				c := candidate(monday, start, mins, cat)
				o := v.Validate(c, ModeCreate, existing)

				if again := v.Validate(c, ModeCreate, existing); !sameOutcome(o, again) {
					t.Fatalf("%s %s+%d: validation is not idempotent", cat, start, mins)
				}

				switch o.Kind {
				case KindAccepted:
					if !p.IsGridAligned(start) {
						t.Errorf("%s: accepted off-grid start", start)
					}
					if start < p.Open() || start.Add(mins) > p.Close() {
						t.Errorf("%s+%d: accepted outside operating hours", start, mins)
					}
					if cat != urgency && start < closedEnd && start.Add(mins) > closedStart {
						t.Errorf("%s+%d: accepted across the closed interval", start, mins)
					}
					iv := NewInterval(start.On(monday), mins)
					for _, e := range existing {
						if iv.Overlaps(Interval{Start: e.ScheduledAt, End: e.EndsAt()}) {
							t.Errorf("%s+%d: accepted over an existing booking", start, mins)
						}
					}
				case KindConflict:
					if o.SuggestedTime != nil {
						follow := candidate(monday, *o.SuggestedTime, mins, cat)
						if got := v.Validate(follow, ModeCreate, existing); !got.IsAccepted() {
							t.Errorf("%s+%d: suggested time %s is itself %s/%s", start, mins, *o.SuggestedTime, got.Kind, got.Reason)
						}
						if *o.SuggestedTime <= start {
							t.Errorf("%s+%d: suggested time %s is not later", start, mins, *o.SuggestedTime)
						}
					}
					if o.SuggestedDuration != nil {
						follow := candidate(monday, start, *o.SuggestedDuration, cat)
						if got := v.Validate(follow, ModeCreate, existing); !got.IsAccepted() {
							t.Errorf("%s+%d: suggested duration %d is itself %s/%s", start, mins, *o.SuggestedDuration, got.Kind, got.Reason)
						}
						if *o.SuggestedDuration >= mins {
							t.Errorf("%s+%d: suggested duration %d is not shorter", start, mins, *o.SuggestedDuration)
						}
					}
				}
			}
		}
	}
}

func TestValidate_AcceptedBookingsNeverOverlap(t *testing.T) {
	v := newTestValidator(t)
	var booked []*appointment.Appointment

	durations := []int{30, 90, 15, 60, 240, 30, 15}
	i := 0
	for start := NewClock(9, 0); start < NewClock(20, 30); start = start.Add(15) {
		cat := consult
		if i%5 == 0 {
			cat = urgency
		}
		o := v.Validate(candidate(monday, start, durations[i%len(durations)], cat), ModeCreate, booked)
		if o.IsAccepted() {
			o.Appointment.ID = uuid.New()
			booked = append(booked, o.Appointment)
		}
		i++
	}

	if len(booked) == 0 {
		t.Fatal("expected some bookings to be accepted")
	}
	for a := 0; a < len(booked); a++ {
		for b := a + 1; b < len(booked); b++ {
			ia := Interval{Start: booked[a].ScheduledAt, End: booked[a].EndsAt()}
			ib := Interval{Start: booked[b].ScheduledAt, End: booked[b].EndsAt()}
			if ia.Overlaps(ib) {
				t.Errorf("bookings %s and %s overlap", ClockOf(ia.Start), ClockOf(ib.Start))
			}
		}
	}
}

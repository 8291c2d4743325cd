package scheduling

import "github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"

type Kind string

const (
	KindAccepted Kind = "accepted"
	KindRejected Kind = "rejected"
	KindConflict Kind = "conflict"
)

// Reason is a stable machine-readable code for a failed check.
type Reason string

const (
	ReasonMissingFields         Reason = "MISSING_FIELDS"
	ReasonInvalidDuration       Reason = "INVALID_DURATION"
	ReasonFullyClosedDay        Reason = "FULLY_CLOSED_DAY"
	ReasonClosedInterval        Reason = "CLOSED_INTERVAL"
	ReasonBadGranularity        Reason = "BAD_GRANULARITY"
	ReasonPastDateTime          Reason = "PAST_DATE_TIME"
	ReasonOutsideHours          Reason = "OUTSIDE_HOURS"
	ReasonOverlap               Reason = "OVERLAP"
	ReasonEndsAfterClosing      Reason = "ENDS_AFTER_CLOSING"
	ReasonCrossesClosedInterval Reason = "CROSSES_CLOSED_INTERVAL"
)

var reasonMessages = map[Reason]string{
	ReasonMissingFields:         "patient, date, time, duration and category are required",
	ReasonInvalidDuration:       "duration is not one of the allowed appointment lengths",
	ReasonFullyClosedDay:        "the clinic is closed on this day",
	ReasonClosedInterval:        "the clinic is closed at this time of day",
	ReasonBadGranularity:        "appointments must start on a quarter-hour boundary",
	ReasonPastDateTime:          "appointments cannot be booked in the past",
	ReasonOutsideHours:          "the requested time is outside operating hours",
	ReasonOverlap:               "the requested time overlaps another appointment",
	ReasonEndsAfterClosing:      "the appointment would end after closing time",
	ReasonCrossesClosedInterval: "the appointment would run into the closed interval",
}

func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Outcome is the result of validation. Exactly one of the three shapes is
// populated: Accepted carries Appointment, Rejected carries Reason, and
// Conflict carries Reason plus optional suggestions.
type Outcome struct {
	Kind              Kind
	Reason            Reason
	Message           string
	Appointment       *appointment.Appointment
	SuggestedTime     *Clock
	SuggestedDuration *int
}

func (o Outcome) IsAccepted() bool { return o.Kind == KindAccepted }

// HasSuggestion is false when the caller has to pick another date.
func (o Outcome) HasSuggestion() bool {
	return o.SuggestedTime != nil || o.SuggestedDuration != nil
}

func Accepted(a *appointment.Appointment) Outcome {
	return Outcome{Kind: KindAccepted, Appointment: a}
}

func Rejected(r Reason) Outcome {
	return Outcome{Kind: KindRejected, Reason: r, Message: r.Message()}
}

// Conflict keeps only the suggestions that exist.
func Conflict(r Reason, t Clock, tOK bool, d int, dOK bool) Outcome {
	o := Outcome{Kind: KindConflict, Reason: r, Message: r.Message()}
	if tOK {
		o.SuggestedTime = &t
	}
	if dOK {
		o.SuggestedDuration = &d
	}
	return o
}

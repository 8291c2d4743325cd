package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/scheduling"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AppointmentService struct {
	repo        appointment.Repository
	patientRepo patient.Repository
	validator   *scheduling.Validator
	auditSvc    *AuditService
	publisher   events.Publisher
	metrics     *metrics.Collector
	log         *zap.Logger
	tracer      trace.Tracer
}

func NewAppointmentService(
	repo appointment.Repository,
	patientRepo patient.Repository,
	validator *scheduling.Validator,
	auditSvc *AuditService,
	publisher events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		patientRepo: patientRepo,
		validator:   validator,
		auditSvc:    auditSvc,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		tracer:      otel.Tracer("dentaflow/service/appointment"),
	}
}

func (s *AppointmentService) Policy() *scheduling.Policy {
	return s.validator.Policy()
}

// ValidateAndPrepare runs the booking checks against the current state of
// c's date without writing anything. In ModeEdit, c.ID must name a stored
// appointment; an empty status keeps the stored one and any other status
// must be a transition Reschedule would allow.
func (s *AppointmentService) ValidateAndPrepare(ctx context.Context, c scheduling.Candidate, mode scheduling.Mode) (scheduling.Outcome, error) {
	ctx, span := s.startSpan(ctx, "AppointmentService.ValidateAndPrepare", c, mode)
	defer span.End()

	if mode == scheduling.ModeEdit {
		stored, err := s.repo.GetByID(ctx, c.ID)
		if err != nil {
			return scheduling.Outcome{}, s.fail(span, err)
		}
		if c.Status == "" {
			c.Status = stored.Status
		}
		if !c.Status.IsValid() {
			return scheduling.Outcome{}, s.fail(span, appointment.ErrInvalidStatus)
		}
		if c.Status != stored.Status && !stored.CanTransitionTo(c.Status) {
			return scheduling.Outcome{}, s.fail(span, appointment.ErrInvalidStatusTransition)
		}
	}

	out, err := s.validate(ctx, s.repo, c, mode)
	if err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}
	s.observe(span, mode, out)
	return out, nil
}

// Schedule books c. The date is locked while the day is re-read and
// validated so two requests cannot both accept overlapping slots.
func (s *AppointmentService) Schedule(ctx context.Context, actor Actor, c scheduling.Candidate) (scheduling.Outcome, error) {
	ctx, span := s.startSpan(ctx, "AppointmentService.Schedule", c, scheduling.ModeCreate)
	defer span.End()

	if err := actor.canSchedule(); err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}

	out, err := s.writeLocked(ctx, c, scheduling.ModeCreate, func(tx appointment.Repository, a *appointment.Appointment) error {
		a.CreatedBy = actor.UserID
		return tx.Create(ctx, a)
	})
	if err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}
	s.observe(span, scheduling.ModeCreate, out)

	if out.IsAccepted() {
		a := out.Appointment
		s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
		s.log.Info("appointment booked",
			zap.String("appointment_id", a.ID.String()),
			zap.Int64("patient_id", a.PatientID),
			zap.Time("scheduled_at", a.ScheduledAt),
			zap.Int("duration_mins", a.DurationMins),
		)
		s.auditSvc.LogAsync(AuditEntry{
			Actor:        actor,
			Action:       domain.ActionCreate,
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			Changes:      fmt.Sprintf(`{"scheduled_at":%q,"duration_mins":%d}`, a.ScheduledAt.Format(time.RFC3339), a.DurationMins),
		})
		s.publish(ctx, events.AppointmentBooked, a, actor)
	}
	return out, nil
}

// Reschedule edits the appointment id. A candidate with status cancelled is
// a cancellation and skips the calendar checks.
func (s *AppointmentService) Reschedule(ctx context.Context, actor Actor, id uuid.UUID, c scheduling.Candidate) (scheduling.Outcome, error) {
	c.ID = id
	ctx, span := s.startSpan(ctx, "AppointmentService.Reschedule", c, scheduling.ModeEdit)
	defer span.End()

	if err := actor.canSchedule(); err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}
	if c.Status == "" {
		c.Status = stored.Status
	}
	if !c.Status.IsValid() {
		return scheduling.Outcome{}, s.fail(span, appointment.ErrInvalidStatus)
	}

	if c.Status == appointment.StatusCancelled {
		a, err := s.cancel(ctx, actor, stored, "")
		if err != nil {
			return scheduling.Outcome{}, s.fail(span, err)
		}
		out := scheduling.Accepted(a)
		s.observe(span, scheduling.ModeEdit, out)
		return out, nil
	}

	if c.Status != stored.Status && !stored.CanTransitionTo(c.Status) {
		return scheduling.Outcome{}, s.fail(span, appointment.ErrInvalidStatusTransition)
	}

	out, err := s.writeLocked(ctx, c, scheduling.ModeEdit, func(tx appointment.Repository, a *appointment.Appointment) error {
		applyEdit(stored, a)
		return tx.Save(ctx, stored)
	})
	if err != nil {
		return scheduling.Outcome{}, s.fail(span, err)
	}
	if out.IsAccepted() {
		out.Appointment = stored
	}
	s.observe(span, scheduling.ModeEdit, out)

	if out.IsAccepted() {
		s.metrics.AppointmentsTotal.WithLabelValues(string(stored.Status)).Inc()
		s.log.Info("appointment rescheduled",
			zap.String("appointment_id", stored.ID.String()),
			zap.Time("scheduled_at", stored.ScheduledAt),
			zap.Int("duration_mins", stored.DurationMins),
		)
		s.auditSvc.LogAsync(AuditEntry{
			Actor:        actor,
			Action:       domain.ActionUpdate,
			ResourceType: "appointment",
			ResourceID:   stored.ID.String(),
			Changes:      fmt.Sprintf(`{"scheduled_at":%q,"duration_mins":%d,"status":%q}`, stored.ScheduledAt.Format(time.RFC3339), stored.DurationMins, stored.Status),
		})
		s.publish(ctx, events.AppointmentRescheduled, stored, actor)
	}
	return out, nil
}

func (s *AppointmentService) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*appointment.Appointment, error) {
	if err := actor.canSchedule(); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Confirm(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Actor: actor, Action: domain.ActionUpdate, ResourceType: "appointment", ResourceID: id.String(),
		Changes: `{"status":"confirmed"}`,
	})
	s.publish(ctx, events.AppointmentConfirmed, a, actor)
	return a, nil
}

// Cancel frees the appointment's slot. The row is kept.
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, cmd *appointment.CancelAppointmentCommand) (*appointment.Appointment, error) {
	if err := actor.canSchedule(); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, actor, a, cmd.Reason)
}

func (s *AppointmentService) cancel(ctx context.Context, actor Actor, a *appointment.Appointment, reason string) (*appointment.Appointment, error) {
	if err := a.Cancel(reason, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.log.Info("appointment cancelled", zap.String("appointment_id", a.ID.String()))
	s.auditSvc.LogAsync(AuditEntry{
		Actor: actor, Action: domain.ActionUpdate, ResourceType: "appointment", ResourceID: a.ID.String(),
		Changes: fmt.Sprintf(`{"status":"cancelled","reason":%q}`, reason),
	})
	s.publish(ctx, events.AppointmentCancelled, a, actor)
	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Actor: actor, Action: domain.ActionRead, ResourceType: "appointment", ResourceID: id.String(),
	})
	return a, nil
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.PageSize <= 0 || q.PageSize > maxPageSize {
		q.PageSize = defaultPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Status != nil {
		if !q.Status.IsValid() {
			return nil, appointment.ErrInvalidStatus
		}
		if *q.Status == appointment.StatusCancelled {
			q.IncludeCancelled = true
		}
	}
	if q.Date != nil {
		d := s.Policy().Date(*q.Date)
		q.Date = &d
	}
	return s.repo.List(ctx, q)
}

// Availability lists the starts on date at which a booking of mins in
// category would currently be accepted.
func (s *AppointmentService) Availability(ctx context.Context, date time.Time, mins int, category appointment.Category) ([]scheduling.Clock, error) {
	p := s.Policy()
	if !p.IsAllowedDuration(mins) {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("duration_minutes must be one of %v", p.AllowedDurations())}}
	}
	if category == "" {
		return nil, &ValidationError{Fields: []string{"category is required"}}
	}

	day := p.Date(date)
	existing, err := s.repo.ListActiveByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("loading appointments for %s: %w", day.Format(time.DateOnly), err)
	}

	rec := scheduling.NewRecommender(p, scheduling.NewOverlapIndex(existing), day, category, uuid.Nil, s.validator.Now())
	return rec.FreeSlots(mins), nil
}

// validate loads c's day from repo and runs the checks.
func (s *AppointmentService) validate(ctx context.Context, repo appointment.Repository, c scheduling.Candidate, mode scheduling.Mode) (scheduling.Outcome, error) {
	// Rejections never depend on other bookings, so the day is only read
	// when the calendar rules pass.
	out := s.validator.Validate(c, mode, nil)
	if out.Kind == scheduling.KindRejected {
		return out, nil
	}
	if out.IsAccepted() && mode == scheduling.ModeEdit && c.Status == appointment.StatusCancelled {
		return out, nil
	}

	day := s.Policy().Date(c.Date)
	existing, err := repo.ListActiveByDate(ctx, day)
	if err != nil {
		return scheduling.Outcome{}, fmt.Errorf("loading appointments for %s: %w", day.Format(time.DateOnly), err)
	}
	return s.validator.Validate(c, mode, existing), nil
}

// writeLocked validates c under the date lock and, when accepted, calls
// write inside the same transaction. A unique-index race is reported as an
// overlap conflict.
func (s *AppointmentService) writeLocked(
	ctx context.Context,
	c scheduling.Candidate,
	mode scheduling.Mode,
	write func(tx appointment.Repository, a *appointment.Appointment) error,
) (scheduling.Outcome, error) {
	pre := s.validator.Validate(c, mode, nil)
	if pre.Kind == scheduling.KindRejected {
		return pre, nil
	}

	var out scheduling.Outcome
	day := s.Policy().Date(c.Date)
	start := time.Now()

	err := s.repo.WithDateLock(ctx, day, func(tx appointment.Repository) error {
		var err error
		out, err = s.validate(ctx, tx, c, mode)
		if err != nil || !out.IsAccepted() {
			return err
		}
		if err := s.verifyPatient(ctx, c.PatientID); err != nil {
			return err
		}
		return write(tx, out.Appointment)
	})
	s.metrics.LockWaitDuration.Observe(time.Since(start).Seconds())

	if errors.Is(err, appointment.ErrSlotTaken) {
		s.log.Warn("slot taken by a concurrent booking",
			zap.Time("scheduled_at", c.Time.On(day)),
		)
		return scheduling.Conflict(scheduling.ReasonOverlap, scheduling.NoClock, false, 0, false), nil
	}
	if err != nil {
		return scheduling.Outcome{}, err
	}
	return out, nil
}

func (s *AppointmentService) verifyPatient(ctx context.Context, id int64) error {
	p, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsActive() {
		return patient.ErrPatientInactive
	}
	return nil
}

// applyEdit copies the scheduling fields of a validated edit onto stored.
func applyEdit(stored, a *appointment.Appointment) {
	if a.Status == appointment.StatusConfirmed && stored.Status != appointment.StatusConfirmed {
		now := time.Now()
		stored.ConfirmedAt = &now
	}
	stored.PatientID = a.PatientID
	stored.Date = a.Date
	stored.ScheduledAt = a.ScheduledAt
	stored.DurationMins = a.DurationMins
	stored.Category = a.Category
	stored.Status = a.Status
	stored.Notes = a.Notes
}

// publish is best effort: the booking is already committed.
func (s *AppointmentService) publish(ctx context.Context, t events.Type, a *appointment.Appointment, actor Actor) {
	err := s.publisher.Publish(ctx, events.New(t, a, actor.UserID, time.Now()))
	if err != nil {
		s.metrics.EventsPublishedTotal.WithLabelValues(string(t), "error").Inc()
		s.log.Error("failed to publish appointment event",
			zap.String("type", string(t)),
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.metrics.EventsPublishedTotal.WithLabelValues(string(t), "ok").Inc()
}

func (s *AppointmentService) startSpan(ctx context.Context, name string, c scheduling.Candidate, mode scheduling.Mode) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("scheduling.mode", mode.String()),
		attribute.String("appointment.category", string(c.Category)),
		attribute.String("appointment.time", c.Time.String()),
		attribute.Int("appointment.duration_mins", c.DurationMins),
	))
}

func (s *AppointmentService) observe(span trace.Span, mode scheduling.Mode, out scheduling.Outcome) {
	s.metrics.BookingOutcomes.WithLabelValues(mode.String(), string(out.Kind), string(out.Reason)).Inc()
	if out.SuggestedTime != nil {
		s.metrics.SuggestionsTotal.WithLabelValues("time").Inc()
	}
	if out.SuggestedDuration != nil {
		s.metrics.SuggestionsTotal.WithLabelValues("duration").Inc()
	}
	span.SetAttributes(
		attribute.String("scheduling.outcome", string(out.Kind)),
		attribute.String("scheduling.reason", string(out.Reason)),
	)
}

func (s *AppointmentService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

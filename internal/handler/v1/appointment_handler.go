package v1

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/scheduling"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AppointmentService is the subset of service.AppointmentService the HTTP
// layer calls.
type AppointmentService interface {
	Policy() *scheduling.Policy
	ValidateAndPrepare(ctx context.Context, c scheduling.Candidate, mode scheduling.Mode) (scheduling.Outcome, error)
	Schedule(ctx context.Context, actor service.Actor, c scheduling.Candidate) (scheduling.Outcome, error)
	Reschedule(ctx context.Context, actor service.Actor, id uuid.UUID, c scheduling.Candidate) (scheduling.Outcome, error)
	Confirm(ctx context.Context, actor service.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor service.Actor, id uuid.UUID, cmd *appointment.CancelAppointmentCommand) (*appointment.Appointment, error)
	Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*appointment.Appointment, error)
	List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error)
	Availability(ctx context.Context, date time.Time, mins int, category appointment.Category) ([]scheduling.Clock, error)
}

type AppointmentHandler struct {
	svc AppointmentService
}

func NewAppointmentHandler(svc AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

func (h *AppointmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	appts := rg.Group("/appointments")
	appts.POST("", h.create)
	appts.GET("", h.list)
	appts.POST("/validate", h.validate)
	appts.GET("/availability", h.availability)
	appts.GET("/:id", h.get)
	appts.PUT("/:id", h.update)
	appts.POST("/:id/confirm", h.confirm)
	appts.POST("/:id/cancel", h.cancel)
}

// appointmentRequest carries no binding tags: missing values are reported
// as a MISSING_FIELDS rejection rather than a 400.
type appointmentRequest struct {
	PatientID       int64  `json:"patient_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Category        string `json:"category"`
	Notes           string `json:"notes"`
	Status          string `json:"status"`
}

type validateRequest struct {
	appointmentRequest
	// AppointmentID switches the dry run to edit mode.
	AppointmentID *uuid.UUID `json:"appointment_id"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type appointmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	PatientID          int64                `json:"patient_id"`
	Date               string               `json:"date"`
	Time               scheduling.Clock     `json:"time"`
	DurationMinutes    int                  `json:"duration_minutes"`
	Category           appointment.Category `json:"category"`
	Status             appointment.Status   `json:"status"`
	Notes              string               `json:"notes,omitempty"`
	ScheduledAt        time.Time            `json:"scheduled_at"`
	EndsAt             time.Time            `json:"ends_at"`
	ConfirmedAt        *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
}

type outcomeResponse struct {
	Outcome           scheduling.Kind      `json:"outcome"`
	Code              scheduling.Reason    `json:"code,omitempty"`
	Message           string               `json:"message,omitempty"`
	SuggestedTime     *scheduling.Clock    `json:"suggested_time,omitempty"`
	SuggestedDuration *int                 `json:"suggested_duration,omitempty"`
	Appointment       *appointmentResponse `json:"appointment,omitempty"`
}

type pagedResponse struct {
	Items      []appointmentResponse `json:"items"`
	TotalCount int64                 `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

type availabilityResponse struct {
	Date            string               `json:"date"`
	DurationMinutes int                  `json:"duration_minutes"`
	Category        appointment.Category `json:"category"`
	Slots           []scheduling.Clock   `json:"slots"`
}

func (h *AppointmentHandler) create(c *gin.Context) {
	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	cand, err := h.candidate(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out, err := h.svc.Schedule(c.Request.Context(), actorFrom(c), cand)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !out.IsAccepted() {
		respondOutcome(c, out)
		return
	}
	respondCreated(c, h.toResponse(out.Appointment))
}

func (h *AppointmentHandler) update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	cand, err := h.candidate(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out, err := h.svc.Reschedule(c.Request.Context(), actorFrom(c), id, cand)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !out.IsAccepted() {
		respondOutcome(c, out)
		return
	}
	respondOK(c, h.toResponse(out.Appointment))
}

func (h *AppointmentHandler) validate(c *gin.Context) {
	var req validateRequest
	if !bindJSON(c, &req) {
		return
	}
	cand, err := h.candidate(req.appointmentRequest)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	mode := scheduling.ModeCreate
	if req.AppointmentID != nil {
		mode = scheduling.ModeEdit
		cand.ID = *req.AppointmentID
	}

	out, err := h.svc.ValidateAndPrepare(c.Request.Context(), cand, mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := outcomeResponse{
		Outcome:           out.Kind,
		Code:              out.Reason,
		Message:           out.Message,
		SuggestedTime:     out.SuggestedTime,
		SuggestedDuration: out.SuggestedDuration,
	}
	if out.Appointment != nil {
		r := h.toResponse(out.Appointment)
		resp.Appointment = &r
	}
	respondOK(c, resp)
}

func (h *AppointmentHandler) confirm(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Confirm(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.toResponse(a))
}

func (h *AppointmentHandler) cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Cancel(c.Request.Context(), actorFrom(c), id, &appointment.CancelAppointmentCommand{
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.toResponse(a))
}

func (h *AppointmentHandler) get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.toResponse(a))
}

func (h *AppointmentHandler) list(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	var invalid []string
	if raw := c.Query("date"); raw != "" {
		d, err := h.parseDate(raw)
		if err != nil {
			invalid = append(invalid, err.Error())
		} else {
			q.Date = &d
		}
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			invalid = append(invalid, "patient_id must be a positive integer")
		} else {
			q.PatientID = &id
		}
	}
	if raw := c.Query("status"); raw != "" {
		s := appointment.Status(raw)
		q.Status = &s
	}
	if raw := c.Query("include_cancelled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			invalid = append(invalid, "include_cancelled must be a boolean")
		}
		q.IncludeCancelled = v
	}
	if len(invalid) > 0 {
		respondServiceError(c, &service.ValidationError{Fields: invalid})
		return
	}

	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]appointmentResponse, 0, len(page.Appointments))
	for _, a := range page.Appointments {
		items = append(items, h.toResponse(a))
	}
	respondOK(c, pagedResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func (h *AppointmentHandler) availability(c *gin.Context) {
	var invalid []string

	date, err := h.parseDate(c.Query("date"))
	if err != nil {
		invalid = append(invalid, err.Error())
	}
	mins, err := strconv.Atoi(c.Query("duration"))
	if err != nil || mins <= 0 {
		invalid = append(invalid, "duration must be a positive number of minutes")
	}
	category := appointment.Category(strings.TrimSpace(c.Query("category")))
	if category == "" {
		category = appointment.CategoryConsult
	}
	if len(invalid) > 0 {
		respondServiceError(c, &service.ValidationError{Fields: invalid})
		return
	}

	slots, err := h.svc.Availability(c.Request.Context(), date, mins, category)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if slots == nil {
		slots = []scheduling.Clock{}
	}
	respondOK(c, availabilityResponse{
		Date:            date.Format(time.DateOnly),
		DurationMinutes: mins,
		Category:        category,
		Slots:           slots,
	})
}

// candidate converts the wire request. Empty values pass through so the
// validator can report them; malformed ones are a ValidationError.
func (h *AppointmentHandler) candidate(req appointmentRequest) (scheduling.Candidate, error) {
	cand := scheduling.Candidate{
		PatientID:    req.PatientID,
		Time:         scheduling.NoClock,
		DurationMins: req.DurationMinutes,
		Category:     appointment.Category(strings.TrimSpace(req.Category)),
		Status:       appointment.Status(strings.TrimSpace(req.Status)),
		Notes:        strings.TrimSpace(req.Notes),
	}

	var invalid []string
	if req.Date != "" {
		d, err := h.parseDate(req.Date)
		if err != nil {
			invalid = append(invalid, err.Error())
		}
		cand.Date = d
	}
	if req.Time != "" {
		t, err := scheduling.ParseClock(req.Time)
		if err != nil {
			invalid = append(invalid, "time: "+err.Error())
		}
		cand.Time = t
	}
	if len(invalid) > 0 {
		return scheduling.Candidate{}, &service.ValidationError{Fields: invalid}
	}
	return cand, nil
}

func (h *AppointmentHandler) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), h.svc.Policy().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be formatted YYYY-MM-DD, got %q", raw)
	}
	return d, nil
}

func (h *AppointmentHandler) toResponse(a *appointment.Appointment) appointmentResponse {
	loc := h.svc.Policy().Location()
	return appointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		Date:               a.Date.Format(time.DateOnly),
		Time:               scheduling.ClockOf(a.ScheduledAt.In(loc)),
		DurationMinutes:    a.DurationMins,
		Category:           a.Category,
		Status:             a.Status,
		Notes:              a.Notes,
		ScheduledAt:        a.ScheduledAt.In(loc),
		EndsAt:             a.EndsAt().In(loc),
		ConfirmedAt:        a.ConfirmedAt,
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
	}
}

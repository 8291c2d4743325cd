package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/scheduling"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// OutcomeErrorResponse is the body of a rejected (422) or conflicting (409)
// booking.
type OutcomeErrorResponse struct {
	Error             string            `json:"error"`
	Code              scheduling.Reason `json:"code"`
	SuggestedTime     *scheduling.Clock `json:"suggested_time,omitempty"`
	SuggestedDuration *int              `json:"suggested_duration,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondOutcome writes a non-accepted outcome.
func respondOutcome(c *gin.Context, out scheduling.Outcome) {
	status := http.StatusUnprocessableEntity
	if out.Kind == scheduling.KindConflict {
		status = http.StatusConflict
	}
	c.JSON(status, OutcomeErrorResponse{
		Error:             out.Message,
		Code:              out.Reason,
		SuggestedTime:     out.SuggestedTime,
		SuggestedDuration: out.SuggestedDuration,
	})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "INVALID_TRANSITION"})

	case errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, patient.ErrPatientInactive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// actorFrom builds the service caller from the auth claims.
func actorFrom(c *gin.Context) service.Actor {
	a := service.Actor{
		IPAddress: c.ClientIP(),
		RequestID: middleware.GetRequestID(c),
	}
	if claims := middleware.GetClaims(c); claims != nil {
		a.UserID = claims.UserID
		a.Role = claims.Role
	}
	return a
}

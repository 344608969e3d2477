package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/availability"
	"coldstore-backend/internal/model"
	"coldstore-backend/internal/store"
)

// ActorHeader names the acting user, set by the identity layer in front of the API.
const ActorHeader = "X-Actor"

const defaultActor = "system"

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store  store.Store
	window availability.Window
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, window availability.Window, log logrus.FieldLogger) *Handler {
	if window.Location == nil {
		window.Location = time.UTC
	}
	return &Handler{
		store:  s,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		conflict   *apperr.ConflictError
		transition *apperr.InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Error:   validation.Error(),
			Code:    "validation_error",
			Details: map[string]any{"field": validation.Field, "reason": validation.Reason},
		})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{
			Error:   notFound.Error(),
			Code:    "not_found",
			Details: map[string]any{"entity": notFound.Entity, "id": notFound.ID},
		})
	case errors.As(err, &conflict):
		ids := conflict.ConflictingIDs
		if ids == nil {
			ids = []string{}
		}
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{
			Error:   conflict.Error(),
			Code:    "conflict",
			Details: map[string]any{"invariant": conflict.Invariant, "conflictingIds": ids},
		})
	case errors.As(err, &transition):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{
			Error:   transition.Error(),
			Code:    "invalid_state_transition",
			Details: map[string]any{"from": transition.From, "to": transition.To},
		})
	default:
		c.Error(err)
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Error: "internal error",
			Code:  "internal_error",
		})
	}
}

func (h *Handler) badRequest(c *gin.Context, field, format string, args ...any) {
	h.respondError(c, apperr.Validation(field, format, args...))
}

// actor returns the acting user of the request.
func actor(c *gin.Context) string {
	if a := strings.TrimSpace(c.GetHeader(ActorHeader)); a != "" {
		return a
	}
	return defaultActor
}

// uuidParam parses a path parameter, answering 400 on failure.
func (h *Handler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.badRequest(c, name, "%q is not a valid id", c.Param(name))
		return uuid.Nil, false
	}
	return id, true
}

// uuidQuery parses an optional query parameter; required ones must be present.
func (h *Handler) uuidQuery(c *gin.Context, name string, required bool) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			h.badRequest(c, name, "is required")
			return uuid.Nil, false
		}
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.badRequest(c, name, "%q is not a valid id", raw)
		return uuid.Nil, false
	}
	return id, true
}

// dateQuery parses a YYYY-MM-DD query parameter, defaulting to today in the facility location.
func (h *Handler) dateQuery(c *gin.Context, name string) (model.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return model.DateOf(h.now(), h.window.Location), true
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		h.badRequest(c, name, "%q is not a valid calendar date (YYYY-MM-DD)", raw)
		return model.Date{}, false
	}
	return d, true
}

// parseInstant accepts RFC3339 timestamps or plain dates, the latter meaning
// midnight in the facility location.
func (h *Handler) parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.Start(h.window.Location), nil
}

// bindJSON decodes the body, answering 400 on malformed input.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, "body", "%v", err)
		return false
	}
	return true
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coldstore-backend/internal/model"
	"coldstore-backend/internal/store"
)

type createReservationRequest struct {
	CellID     uuid.UUID `json:"cellId"`
	FacilityID uuid.UUID `json:"facilityId"`
	CaseRef    string    `json:"caseRef"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Note       *string   `json:"note"`
}

type advanceStatusRequest struct {
	Status model.ReservationStatus `json:"status"`
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CreateReservation handles POST /api/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.store.CreateReservation(c.Request.Context(), store.NewReservation{
		CellID:     req.CellID,
		FacilityID: req.FacilityID,
		CaseRef:    req.CaseRef,
		Start:      req.Start,
		End:        req.End,
		Note:       req.Note,
		CreatedBy:  actor(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GetReservation handles GET /api/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	r, err := h.store.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// AdvanceReservationStatus handles PATCH /api/reservations/:id/status
func (h *Handler) AdvanceReservationStatus(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req advanceStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.store.AdvanceStatus(c.Request.Context(), id, req.Status, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// RescheduleReservation handles PATCH /api/reservations/:id/interval
func (h *Handler) RescheduleReservation(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.store.Reschedule(c.Request.Context(), id, req.Start, req.End, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListReservations handles GET /api/reservations?cell=&facility=&from=&to=&include_cancelled=
func (h *Handler) ListReservations(c *gin.Context) {
	var (
		filter store.ReservationFilter
		ok     bool
	)
	if filter.CellID, ok = h.uuidQuery(c, "cell", false); !ok {
		return
	}
	if filter.FacilityID, ok = h.uuidQuery(c, "facility", false); !ok {
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if (from == "") != (to == "") {
		h.badRequest(c, "range", "from and to must be given together")
		return
	}
	if from != "" {
		start, err := h.parseInstant(from)
		if err != nil {
			h.badRequest(c, "from", "%q is neither RFC3339 nor YYYY-MM-DD", from)
			return
		}
		end, err := h.parseInstant(to)
		if err != nil {
			h.badRequest(c, "to", "%q is neither RFC3339 nor YYYY-MM-DD", to)
			return
		}
		filter.Range = &store.TimeRange{From: start, To: end}
	}

	if raw := c.Query("include_cancelled"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			h.badRequest(c, "include_cancelled", "%q is not a boolean", raw)
			return
		}
		filter.IncludeCancelled = include
	}

	reservations, err := h.store.ListReservations(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

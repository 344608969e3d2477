package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coldstore-backend/internal/availability"
	"coldstore-backend/internal/model"
	"coldstore-backend/internal/status"
)

type createCellRequest struct {
	FacilityID uuid.UUID `json:"facilityId"`
	Label      string    `json:"label"`
}

type createCellBatchRequest struct {
	FacilityID uuid.UUID `json:"facilityId"`
	Prefix     string    `json:"prefix"`
	Count      int       `json:"count"`
}

type setCellStatusRequest struct {
	Status model.CellStatus `json:"status"`
	Note   *string          `json:"note"`
}

// ListCells handles GET /api/cells?facility=
func (h *Handler) ListCells(c *gin.Context) {
	facilityID, ok := h.uuidQuery(c, "facility", true)
	if !ok {
		return
	}
	cells, err := h.store.ListCells(c.Request.Context(), facilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cells)
}

// CreateCell handles POST /api/cells
func (h *Handler) CreateCell(c *gin.Context) {
	var req createCellRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cell, err := h.store.CreateCell(c.Request.Context(), req.FacilityID, req.Label, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cell)
}

// CreateCellBatch handles POST /api/cells/batch
func (h *Handler) CreateCellBatch(c *gin.Context) {
	var req createCellBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cells, err := h.store.CreateCellBatch(c.Request.Context(), req.FacilityID, req.Prefix, req.Count, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cells)
}

// GetCell handles GET /api/cells/:id
func (h *Handler) GetCell(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	cell, err := h.store.GetCell(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// SetCellStatus handles PATCH /api/cells/:id/status
func (h *Handler) SetCellStatus(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req setCellStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cell, err := h.store.SetCellStatus(c.Request.Context(), id, req.Status, req.Note, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// DeleteCell handles DELETE /api/cells/:id
func (h *Handler) DeleteCell(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteCell(c.Request.Context(), id, actor(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type effectiveStatusResponse struct {
	CellID uuid.UUID `json:"cellId"`
	At     time.Time `json:"at"`
	status.Result
}

// GetEffectiveStatus handles GET /api/cells/:id/effective-status?at=
func (h *Handler) GetEffectiveStatus(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	at := h.now()
	if raw := c.Query("at"); raw != "" {
		var err error
		if at, err = h.parseInstant(raw); err != nil {
			h.badRequest(c, "at", "%q is neither RFC3339 nor YYYY-MM-DD", raw)
			return
		}
	}

	ctx := c.Request.Context()
	cell, err := h.store.GetCell(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	loc := h.window.Location
	snap, err := h.store.Snapshot(ctx, cell.FacilityID, availability.DayRange(model.DateOf(at, loc)), loc)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, effectiveStatusResponse{
		CellID: cell.ID,
		At:     at.UTC(),
		Result: status.At(*cell, snap.Reservations, snap.Blocks, at, loc),
	})
}

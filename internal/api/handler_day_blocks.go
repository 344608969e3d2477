package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coldstore-backend/internal/model"
)

type blockDayRequest struct {
	FacilityID uuid.UUID `json:"facilityId"`
	Date       string    `json:"date"`
	Reason     string    `json:"reason"`
}

// BlockDay handles POST /api/facility-day-blocks
func (h *Handler) BlockDay(c *gin.Context) {
	var req blockDayRequest
	if !h.bindJSON(c, &req) {
		return
	}
	block, err := h.store.BlockDay(c.Request.Context(), req.FacilityID, req.Date, req.Reason, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

// ListBlocks handles GET /api/facility-day-blocks?facility=&from=&to=
func (h *Handler) ListBlocks(c *gin.Context) {
	facilityID, ok := h.uuidQuery(c, "facility", true)
	if !ok {
		return
	}
	from, ok := h.dateQuery(c, "from")
	if !ok {
		return
	}
	to := from.AddDays(30)
	if c.Query("to") != "" {
		if to, ok = h.dateQuery(c, "to"); !ok {
			return
		}
	}

	blocks, err := h.store.ListBlocks(c.Request.Context(), facilityID, model.DateRange{From: from, To: to})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

// UnblockDay handles DELETE /api/facility-day-blocks/:id. Unknown ids are not an error.
func (h *Handler) UnblockDay(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.UnblockDay(c.Request.Context(), id, actor(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coldstore-backend/internal/availability"
)

// GetDayView handles GET /api/availability/day?facility=&date=
func (h *Handler) GetDayView(c *gin.Context) {
	facilityID, ok := h.uuidQuery(c, "facility", true)
	if !ok {
		return
	}
	date, ok := h.dateQuery(c, "date")
	if !ok {
		return
	}

	snap, err := h.store.Snapshot(c.Request.Context(), facilityID, availability.DayRange(date), h.window.Location)
	if err != nil {
		h.respondError(c, err)
		return
	}
	grid, err := availability.ProjectDay(snap, date, h.window)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

// GetWeekView handles GET /api/availability/week?facility=&weekStart=
func (h *Handler) GetWeekView(c *gin.Context) {
	facilityID, ok := h.uuidQuery(c, "facility", true)
	if !ok {
		return
	}
	date, ok := h.dateQuery(c, "weekStart")
	if !ok {
		return
	}

	week := availability.WeekRange(date, h.window)
	snap, err := h.store.Snapshot(c.Request.Context(), facilityID, week, h.window.Location)
	if err != nil {
		h.respondError(c, err)
		return
	}
	grid, err := availability.ProjectWeek(snap, week.From, h.window)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

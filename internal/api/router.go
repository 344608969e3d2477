package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"coldstore-backend/config"
	"coldstore-backend/internal/availability"
	"coldstore-backend/internal/mw"
	"coldstore-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))

	handler := NewHandler(s, availability.WindowFrom(cfg.Availability), log)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// Stored responses of mutating requests, keyed by Idempotency-Key
	ttl := time.Duration(cfg.Server.IdempotencyTTLSeconds) * time.Second
	idempotency := mw.Idempotency(cache.New(ttl, 2*ttl), ttl, ActorHeader)

	api := r.Group("/api")
	api.GET("/healthz", handler.Healthz)
	api.Use(rateLimiter, idempotency)
	{
		api.GET("/cells", handler.ListCells)
		api.POST("/cells", handler.CreateCell)
		api.POST("/cells/batch", handler.CreateCellBatch)
		api.GET("/cells/:id", handler.GetCell)
		api.PATCH("/cells/:id/status", handler.SetCellStatus)
		api.DELETE("/cells/:id", handler.DeleteCell)
		api.GET("/cells/:id/effective-status", handler.GetEffectiveStatus)

		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations", handler.ListReservations)
		api.GET("/reservations/:id", handler.GetReservation)
		api.PATCH("/reservations/:id/status", handler.AdvanceReservationStatus)
		api.PATCH("/reservations/:id/interval", handler.RescheduleReservation)

		api.POST("/facility-day-blocks", handler.BlockDay)
		api.GET("/facility-day-blocks", handler.ListBlocks)
		api.DELETE("/facility-day-blocks/:id", handler.UnblockDay)

		api.GET("/availability/day", handler.GetDayView)
		api.GET("/availability/week", handler.GetWeekView)
	}

	return r
}

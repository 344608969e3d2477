// Package notification fans committed domain events out to subscribers.
// Delivery to people (mail, push) lives behind a Subscriber and is outside
// the reservation engine.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"coldstore-backend/internal/event"
	"coldstore-backend/internal/model"
)

// Subscriber receives every dispatched event.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, e event.Event) error
}

// Dispatcher is an event.Publisher backed by a pool of workers.
type Dispatcher struct {
	size        int
	jobs        chan event.Event
	subscribers []Subscriber
	log         logrus.FieldLogger
	wg          sync.WaitGroup
}

// NewDispatcher creates a dispatcher with size workers and a queue of queueSize events.
func NewDispatcher(size, queueSize int, log logrus.FieldLogger, subscribers ...Subscriber) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &Dispatcher{
		size:        size,
		jobs:        make(chan event.Event, queueSize),
		subscribers: subscribers,
		log:         log,
	}
}

// Start launches the worker goroutines. Once ctx is cancelled they deliver
// whatever is still queued and exit.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.WithField("worker", id)
	log.Debug("event worker started")
	// Events describe committed writes, so delivery outlives cancellation.
	deliverCtx := context.WithoutCancel(ctx)
	for {
		select {
		case e := <-d.jobs:
			d.deliver(deliverCtx, e)
		case <-ctx.Done():
			n := d.drain(deliverCtx)
			log.WithField("drained", n).Debug("event worker shutting down")
			return
		}
	}
}

// drain delivers queued events until the queue is empty.
func (d *Dispatcher) drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case e := <-d.jobs:
			d.deliver(ctx, e)
			n++
		default:
			return n
		}
	}
}

// Publish queues e without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(_ context.Context, e event.Event) {
	select {
	case d.jobs <- e:
	default:
		d.log.WithFields(logrus.Fields{"event": e.ID, "type": e.Type}).Error("event queue full, dropping event")
	}
}

// Jobs returns the queue for testing.
func (d *Dispatcher) Jobs() chan event.Event {
	return d.jobs
}

func (d *Dispatcher) deliver(ctx context.Context, e event.Event) {
	for _, sub := range d.subscribers {
		if err := sub.Handle(ctx, e); err != nil {
			d.log.WithFields(logrus.Fields{
				"event":      e.ID,
				"type":       e.Type,
				"subscriber": sub.Name(),
			}).WithError(err).Error("subscriber failed")
		}
	}
}

// AuditSubscriber persists every event as a model.AuditEntry.
type AuditSubscriber struct {
	db *gorm.DB
}

func NewAuditSubscriber(db *gorm.DB) *AuditSubscriber {
	return &AuditSubscriber{db: db}
}

func (s *AuditSubscriber) Name() string { return "audit" }

func (s *AuditSubscriber) Handle(ctx context.Context, e event.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	entry := model.AuditEntry{
		ID:         e.ID,
		Type:       string(e.Type),
		FacilityID: e.FacilityID,
		EntityID:   e.EntityID,
		Actor:      e.Actor,
		OccurredAt: e.OccurredAt,
		Data:       string(data),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit entry %s: %w", e.ID, err)
	}
	return nil
}

// LogSubscriber writes every event to the log.
type LogSubscriber struct {
	log logrus.FieldLogger
}

func NewLogSubscriber(log logrus.FieldLogger) *LogSubscriber {
	return &LogSubscriber{log: log}
}

func (s *LogSubscriber) Name() string { return "log" }

func (s *LogSubscriber) Handle(_ context.Context, e event.Event) error {
	s.log.WithFields(logrus.Fields{
		"event":    e.ID,
		"type":     e.Type,
		"facility": e.FacilityID,
		"entity":   e.EntityID,
		"actor":    e.Actor,
	}).Info("domain event")
	return nil
}

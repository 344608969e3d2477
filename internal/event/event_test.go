package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	facility, entity := uuid.New(), uuid.New()
	e := New(DayBlocked, facility, entity, "manager", map[string]any{"date": "2025-01-10"})

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, DayBlocked, e.Type)
	assert.Equal(t, facility, e.FacilityID)
	assert.Equal(t, entity, e.EntityID)
	assert.Equal(t, "UTC", e.OccurredAt.Location().String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Publish(context.Background(), New(CellCreated, uuid.New(), uuid.New(), "system", nil))
		}()
	}
	wg.Wait()

	assert.Len(t, r.Events(), 20)
	assert.Len(t, r.Types(), 20)

	events := r.Events()
	events[0].Type = CellDeleted
	assert.Equal(t, CellCreated, r.Events()[0].Type, "Events returns a copy")
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coldstore-backend/config"
	"coldstore-backend/internal/availability"
	"coldstore-backend/internal/db"
	"coldstore-backend/internal/model"
	"coldstore-backend/internal/status"
	"coldstore-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	facility uuid.UUID
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	log, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	s := store.NewGormStore(gormDB, store.Options{Logger: log})
	return &testServer{router: NewRouter(s, cfg, log), facility: uuid.New()}
}

func (ts *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) createCell(t *testing.T, label string) model.Cell {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/cells", gin.H{"facilityId": ts.facility, "label": label})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Cell](t, w)
}

func (ts *testServer) book(cellID uuid.UUID, start, end string, headers ...string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, "/api/reservations", gin.H{
		"cellId":     cellID,
		"facilityId": ts.facility,
		"caseRef":    "dossier-42",
		"start":      start,
		"end":        end,
	}, headers...)
}

func (ts *testServer) effective(t *testing.T, cellID uuid.UUID, at string) effectiveStatusResponse {
	t.Helper()
	w := ts.do(http.MethodGet, "/api/cells/"+cellID.String()+"/effective-status?at="+at, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[effectiveStatusResponse](t, w)
}

func TestScenarios(t *testing.T) {
	ts := setupRouter(t)
	c1 := ts.createCell(t, "C1")
	c2 := ts.createCell(t, "C2")

	// booking success
	w := ts.book(c1.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z", ActorHeader, "uitvaartleider")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[model.Reservation](t, w)
	assert.Equal(t, model.ReservationPending, first.Status)
	assert.Equal(t, "uitvaartleider", first.CreatedBy)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/availability/week?facility=%s&weekStart=2025-01-10", ts.facility), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	week := decode[availability.WeekGrid](t, w)
	assert.Equal(t, "2025-01-06", week.WeekStart.String())
	require.Len(t, week.Rows, 2)
	assert.Equal(t, status.Pending, week.Rows[0].Days[4].Status)
	assert.Equal(t, first.ID, week.Rows[0].Days[4].Reservation.ID)

	// booking conflict
	w = ts.book(c1.ID, "2025-01-10T14:00:00Z", "2025-01-10T18:00:00Z")
	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decode[errorResponse](t, w)
	assert.Equal(t, "conflict", errBody.Code)
	assert.Equal(t, "reservation_no_overlap", errBody.Details["invariant"])
	assert.Equal(t, []any{first.ID.String()}, errBody.Details["conflictingIds"])

	// day block overrides reservation
	w = ts.do(http.MethodPost, "/api/facility-day-blocks", gin.H{"facilityId": ts.facility, "date": "2025-01-10", "reason": "parket beslag"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, status.Blocked, ts.effective(t, c1.ID, "2025-01-10T09:00:00Z").Status)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/availability/day?facility=%s&date=2025-01-10", ts.facility), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	day := decode[availability.DayGrid](t, w)
	require.NotNil(t, day.Block)
	assert.Equal(t, status.Blocked, day.Rows[0].Summary.Status)

	// manual occupied overridden by reservation
	w = ts.do(http.MethodPatch, "/api/cells/"+c2.ID.String()+"/status", gin.H{"status": "OCCUPIED", "note": "body without booking"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, status.Occupied, ts.effective(t, c2.ID, "2025-01-11T10:00:00Z").Status)

	w = ts.book(c2.ID, "2025-01-11T09:00:00Z", "2025-01-11T12:00:00Z")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := ts.effective(t, c2.ID, "2025-01-11T10:00:00Z")
	assert.Equal(t, status.Pending, res.Status)
	require.NotNil(t, res.Reservation)
}

func TestErrorMapping(t *testing.T) {
	ts := setupRouter(t)
	cell := ts.createCell(t, "C1")
	w := ts.book(cell.ID, "2099-01-10T08:00:00Z", "2099-01-10T16:00:00Z")
	require.Equal(t, http.StatusCreated, w.Code)
	r := decode[model.Reservation](t, w)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed id", http.MethodGet, "/api/cells/not-a-uuid", nil, http.StatusBadRequest, "validation_error"},
		{"unknown cell", http.MethodGet, "/api/cells/" + uuid.NewString(), nil, http.StatusNotFound, "not_found"},
		{"missing facility", http.MethodGet, "/api/cells", nil, http.StatusBadRequest, "validation_error"},
		{"inverted interval", http.MethodPost, "/api/reservations", gin.H{
			"cellId": cell.ID, "facilityId": ts.facility, "caseRef": "x",
			"start": "2025-01-12T10:00:00Z", "end": "2025-01-12T09:00:00Z",
		}, http.StatusBadRequest, "validation_error"},
		{"malformed body", http.MethodPost, "/api/cells", "{", http.StatusBadRequest, "validation_error"},
		{"skipping confirmation", http.MethodPatch, "/api/reservations/" + r.ID.String() + "/status",
			gin.H{"status": "OCCUPIED"}, http.StatusUnprocessableEntity, "invalid_state_transition"},
		{"deleting a booked cell", http.MethodDelete, "/api/cells/" + cell.ID.String(), nil, http.StatusConflict, "conflict"},
		{"batch too large", http.MethodPost, "/api/cells/batch", gin.H{"facilityId": ts.facility, "prefix": "K", "count": 51},
			http.StatusBadRequest, "validation_error"},
		{"short block reason", http.MethodPost, "/api/facility-day-blocks", gin.H{"facilityId": ts.facility, "date": "2025-01-10", "reason": "short"},
			http.StatusBadRequest, "validation_error"},
		{"bad list range", http.MethodGet, "/api/reservations?cell=" + cell.ID.String() + "&from=2025-01-10", nil,
			http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, w).Code)
		})
	}
}

func TestReservationLifecycle(t *testing.T) {
	ts := setupRouter(t)
	cell := ts.createCell(t, "C1")
	w := ts.book(cell.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z")
	require.Equal(t, http.StatusCreated, w.Code)
	r := decode[model.Reservation](t, w)
	path := "/api/reservations/" + r.ID.String()

	w = ts.do(http.MethodPatch, path+"/interval", gin.H{"start": "2025-01-10T10:00:00Z", "end": "2025-01-10T18:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2025-01-10T10:00:00Z", decode[model.Reservation](t, w).StartAt.Format("2006-01-02T15:04:05Z07:00"))

	for _, next := range []string{"CONFIRMED", "OCCUPIED"} {
		w = ts.do(http.MethodPatch, path+"/status", gin.H{"status": next})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = ts.do(http.MethodPatch, path+"/status", gin.H{"status": "CANCELLED"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ReservationOccupied, decode[model.Reservation](t, w).Status)
}

func TestListReservations(t *testing.T) {
	ts := setupRouter(t)
	cell := ts.createCell(t, "C1")
	keep := decode[model.Reservation](t, ts.book(cell.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z"))
	drop := decode[model.Reservation](t, ts.book(cell.ID, "2025-01-11T08:00:00Z", "2025-01-11T16:00:00Z"))
	w := ts.do(http.MethodPatch, "/api/reservations/"+drop.ID.String()+"/status", gin.H{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/reservations?facility=%s", ts.facility), nil)
	require.Equal(t, http.StatusOK, w.Code)
	live := decode[[]model.Reservation](t, w)
	require.Len(t, live, 1)
	assert.Equal(t, keep.ID, live[0].ID)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/reservations?cell=%s&include_cancelled=true&from=2025-01-11&to=2025-01-12", cell.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]model.Reservation](t, w)
	require.Len(t, all, 1)
	assert.Equal(t, drop.ID, all[0].ID)

	w = ts.do(http.MethodGet, "/api/reservations", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotentCreate(t *testing.T) {
	ts := setupRouter(t)
	cell := ts.createCell(t, "C1")

	first := ts.book(cell.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z", "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	again := ts.book(cell.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z", "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusCreated, again.Code, "replayed instead of conflicting")
	assert.Equal(t, decode[model.Reservation](t, first).ID, decode[model.Reservation](t, again).ID)
}

func TestIdempotentCreate_KeyReuse(t *testing.T) {
	ts := setupRouter(t)
	c1 := ts.createCell(t, "C1")
	c2 := ts.createCell(t, "C2")

	first := ts.book(c1.ID, "2025-01-10T08:00:00Z", "2025-01-10T16:00:00Z", "Idempotency-Key", "k", ActorHeader, "alice")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	// same actor, different payload
	w := ts.book(c2.ID, "2025-01-11T08:00:00Z", "2025-01-11T16:00:00Z", "Idempotency-Key", "k", ActorHeader, "alice")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "idempotency_key_reused", decode[errorResponse](t, w).Code)

	// another actor reusing the key gets its own booking
	w = ts.book(c2.ID, "2025-01-11T08:00:00Z", "2025-01-11T16:00:00Z", "Idempotency-Key", "k", ActorHeader, "bob")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
	second := decode[model.Reservation](t, w)
	assert.NotEqual(t, decode[model.Reservation](t, first).ID, second.ID)
	assert.Equal(t, c2.ID, second.CellID)

	w = ts.do(http.MethodGet, "/api/reservations?cell="+c2.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Reservation](t, w), 1)
}

func TestCellsAndBlocks(t *testing.T) {
	ts := setupRouter(t)

	w := ts.do(http.MethodPost, "/api/cells/batch", gin.H{"facilityId": ts.facility, "prefix": "Koelcel", "count": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode[[]model.Cell](t, w), 3)

	w = ts.do(http.MethodGet, "/api/cells?facility="+ts.facility.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	cells := decode[[]model.Cell](t, w)
	require.Len(t, cells, 3)
	assert.Equal(t, "Koelcel 1", cells[0].Label)

	w = ts.do(http.MethodDelete, "/api/cells/"+cells[0].ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodGet, "/api/cells/"+cells[0].ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/facility-day-blocks", gin.H{"facilityId": ts.facility, "date": "2025-01-10", "reason": "parket beslag"})
	require.Equal(t, http.StatusCreated, w.Code)
	block := decode[model.DayBlock](t, w)

	w = ts.do(http.MethodPost, "/api/facility-day-blocks", gin.H{"facilityId": ts.facility, "date": "2025-01-10", "reason": "parket beslag"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/facility-day-blocks?facility=%s&from=2025-01-01&to=2025-01-31", ts.facility), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.DayBlock](t, w), 1)

	for i := 0; i < 2; i++ {
		w = ts.do(http.MethodDelete, "/api/facility-day-blocks/"+block.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestHealthz(t *testing.T) {
	ts := setupRouter(t)
	w := ts.do(http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

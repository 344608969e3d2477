package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2025, Month: time.January, Day: 10}, d)
	assert.Equal(t, "2025-01-10", d.String())

	for _, bad := range []string{"", "2025-02-30", "10-01-2025", "2025-1-10", "2025-13-01"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d, _ := ParseDate("2024-02-28")
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-02-21", d.AddDays(-7).String())
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))

	r := DateRange{From: d, To: d.AddDays(2)}
	assert.True(t, r.Contains(d.AddDays(1)))
	assert.False(t, r.Contains(d.AddDays(3)))
}

func TestDate_StartUsesLocation(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	d, _ := ParseDate("2025-01-10")
	start := d.Start(ams)
	assert.Equal(t, "2025-01-09T23:00:00Z", start.UTC().Format(time.RFC3339))
	assert.Equal(t, d, DateOf(start, ams))
	assert.Equal(t, "2025-01-09", DateOf(start, time.UTC).String())
}

func TestDate_ScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2025-03-04"))
	assert.Equal(t, "2025-03-04", d.String())
	require.NoError(t, d.Scan([]byte("2025-03-05")))
	assert.Equal(t, "2025-03-05", d.String())
	require.NoError(t, d.Scan(time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-06", d.String())
	assert.Error(t, d.Scan(42))

	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-03-06"}`, string(b))

	var back struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back.D)
}

func TestReservationStatus_Transitions(t *testing.T) {
	all := []ReservationStatus{ReservationPending, ReservationConfirmed, ReservationOccupied, ReservationCancelled}
	legal := map[[2]ReservationStatus]bool{
		{ReservationPending, ReservationConfirmed}:   true,
		{ReservationPending, ReservationCancelled}:   true,
		{ReservationConfirmed, ReservationOccupied}:  true,
		{ReservationConfirmed, ReservationCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]ReservationStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestReservation_HalfOpenInterval(t *testing.T) {
	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	r := Reservation{StartAt: base, EndAt: base.Add(8 * time.Hour)}

	assert.True(t, r.Covers(base))
	assert.False(t, r.Covers(base.Add(8*time.Hour)))
	assert.True(t, r.Overlaps(base.Add(6*time.Hour), base.Add(10*time.Hour)))
	assert.False(t, r.Overlaps(base.Add(8*time.Hour), base.Add(10*time.Hour)), "back-to-back is legal")
	assert.False(t, r.Overlaps(base.Add(-2*time.Hour), base), "back-to-back is legal")
}

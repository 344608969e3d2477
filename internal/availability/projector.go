// Package availability turns a store snapshot into the calendar grids shown
// to facility staff. It performs no I/O; every status comes from package status.
package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"coldstore-backend/config"
	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/model"
	"coldstore-backend/internal/status"
	"coldstore-backend/internal/store"
)

// Window is the visible part of a day plus the calendar conventions of the facility.
type Window struct {
	StartHour int
	EndHour   int // exclusive, 24 means midnight of the next day
	Location  *time.Location
	WeekStart time.Weekday
}

// WindowFrom builds a Window from the loaded availability config.
func WindowFrom(cfg config.AvailabilityConfig) Window {
	w := Window{
		StartHour: cfg.DayWindow.StartHour,
		EndHour:   cfg.DayWindow.EndHour,
		Location:  cfg.Location,
		WeekStart: cfg.Weekday,
	}
	if w.Location == nil {
		w.Location = time.UTC
	}
	return w
}

func (w Window) validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return apperr.Validation("window", "hours [%d, %d) are not a valid day window", w.StartHour, w.EndHour)
	}
	return nil
}

func (w Window) bounds(day model.Date) (time.Time, time.Time) {
	start := time.Date(day.Year, day.Month, day.Day, w.StartHour, 0, 0, 0, w.Location)
	end := time.Date(day.Year, day.Month, day.Day, w.EndHour, 0, 0, 0, w.Location)
	return start, end
}

// Slot is one visible hour of a cell. Hour is the local wall-clock hour of
// Start and repeats on the day clocks fall back.
type Slot struct {
	Hour          int              `json:"hour"`
	Start         time.Time        `json:"start"`
	Status        status.Effective `json:"status"`
	ReservationID *uuid.UUID       `json:"reservationId,omitempty"`
}

// Segment places a reservation on the day window. Left and Width are ratios
// of the window span.
type Segment struct {
	ReservationID uuid.UUID               `json:"reservationId"`
	CaseRef       string                  `json:"caseRef"`
	Status        model.ReservationStatus `json:"status"`
	Start         time.Time               `json:"start"`
	End           time.Time               `json:"end"`
	Left          float64                 `json:"left"`
	Width         float64                 `json:"width"`
	ClippedStart  bool                    `json:"clippedStart"`
	ClippedEnd    bool                    `json:"clippedEnd"`
}

// CellDay is one row of the day grid.
type CellDay struct {
	Cell     model.Cell    `json:"cell"`
	Summary  status.Result `json:"summary"`
	Slots    []Slot        `json:"slots"`
	Segments []Segment     `json:"segments"`
}

// DayGrid is the single-day view of a facility.
type DayGrid struct {
	FacilityID uuid.UUID       `json:"facilityId"`
	Date       model.Date      `json:"date"`
	StartHour  int             `json:"startHour"`
	EndHour    int             `json:"endHour"`
	Block      *model.DayBlock `json:"block,omitempty"`
	Rows       []CellDay       `json:"rows"`
}

// CellWeek is one row of the week grid, one result per day.
type CellWeek struct {
	Cell model.Cell      `json:"cell"`
	Days []status.Result `json:"days"`
}

// WeekGrid is the seven-day view of a facility.
type WeekGrid struct {
	FacilityID uuid.UUID    `json:"facilityId"`
	WeekStart  model.Date   `json:"weekStart"`
	Days       []model.Date `json:"days"`
	Rows       []CellWeek   `json:"rows"`
}

// DayRange is the date range a snapshot must cover for ProjectDay.
func DayRange(date model.Date) model.DateRange {
	return model.DateRange{From: date, To: date}
}

// WeekRange aligns date back to the window's week start and returns the seven days.
func WeekRange(date model.Date, w Window) model.DateRange {
	offset := (int(date.Weekday()) - int(w.WeekStart) + 7) % 7
	from := date.AddDays(-offset)
	return model.DateRange{From: from, To: from.AddDays(6)}
}

// ProjectDay builds the day grid for date. The snapshot must include date.
func ProjectDay(snap *store.Snapshot, date model.Date, w Window) (*DayGrid, error) {
	if w.Location == nil {
		w.Location = time.UTC
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	if !snap.Days.Contains(date) {
		return nil, apperr.Validation("date", "%s is outside the loaded range %s..%s", date, snap.Days.From, snap.Days.To)
	}

	winStart, winEnd := w.bounds(date)
	span := winEnd.Sub(winStart)
	grid := &DayGrid{
		FacilityID: snap.FacilityID,
		Date:       date,
		StartHour:  w.StartHour,
		EndHour:    w.EndHour,
		Rows:       make([]CellDay, 0, len(snap.Cells)),
	}
	for i := range snap.Blocks {
		if snap.Blocks[i].Day == date && snap.Blocks[i].FacilityID == snap.FacilityID {
			grid.Block = &snap.Blocks[i]
		}
	}

	for _, cell := range snap.Cells {
		row := CellDay{
			Cell:     cell,
			Summary:  status.OnDay(cell, snap.Reservations, snap.Blocks, date, w.Location),
			Slots:    make([]Slot, 0, int(span/time.Hour)),
			Segments: []Segment{},
		}

		// Elapsed hours, so a DST day has 23 or 25 slots with distinct starts.
		for at := winStart; at.Before(winEnd); at = at.Add(time.Hour) {
			res := status.At(cell, snap.Reservations, snap.Blocks, at, w.Location)
			slot := Slot{Hour: at.In(w.Location).Hour(), Start: at, Status: res.Status}
			if res.Reservation != nil {
				id := res.Reservation.ID
				slot.ReservationID = &id
			}
			row.Slots = append(row.Slots, slot)
		}

		for _, r := range cellReservations(cell, snap.Reservations, winStart, winEnd) {
			start, end := r.StartAt, r.EndAt
			seg := Segment{
				ReservationID: r.ID,
				CaseRef:       r.CaseRef,
				Status:        r.Status,
				Start:         r.StartAt,
				End:           r.EndAt,
			}
			if start.Before(winStart) {
				start, seg.ClippedStart = winStart, true
			}
			if end.After(winEnd) {
				end, seg.ClippedEnd = winEnd, true
			}
			seg.Left = float64(start.Sub(winStart)) / float64(span)
			seg.Width = float64(end.Sub(start)) / float64(span)
			row.Segments = append(row.Segments, seg)
		}

		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

// ProjectWeek builds the week grid for the week containing weekStart.
func ProjectWeek(snap *store.Snapshot, weekStart model.Date, w Window) (*WeekGrid, error) {
	if w.Location == nil {
		w.Location = time.UTC
	}
	week := WeekRange(weekStart, w)
	if !snap.Days.Contains(week.From) || !snap.Days.Contains(week.To) {
		return nil, apperr.Validation("weekStart", "week %s..%s is outside the loaded range %s..%s",
			week.From, week.To, snap.Days.From, snap.Days.To)
	}

	grid := &WeekGrid{
		FacilityID: snap.FacilityID,
		WeekStart:  week.From,
		Days:       make([]model.Date, 7),
		Rows:       make([]CellWeek, 0, len(snap.Cells)),
	}
	for i := range grid.Days {
		grid.Days[i] = week.From.AddDays(i)
	}

	for _, cell := range snap.Cells {
		row := CellWeek{Cell: cell, Days: make([]status.Result, len(grid.Days))}
		for i, day := range grid.Days {
			row.Days[i] = status.OnDay(cell, snap.Reservations, snap.Blocks, day, w.Location)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

// cellReservations returns the live reservations of cell overlapping [from, to), by start then id.
func cellReservations(cell model.Cell, reservations []model.Reservation, from, to time.Time) []model.Reservation {
	var out []model.Reservation
	for _, r := range reservations {
		if r.CellID == cell.ID && r.Active() && r.Overlaps(from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return status.Less(out[i], out[j]) })
	return out
}

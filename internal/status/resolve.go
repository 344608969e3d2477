// Package status computes the single effective status of a cell.
//
// Precedence, first match wins:
//
//  1. a day block on the facility for the queried date  -> BLOCKED
//  2. administrative status OUT_OF_SERVICE              -> OUT_OF_SERVICE
//  3. a non-cancelled reservation covering the query    -> the reservation's status
//  4. administrative status OCCUPIED                    -> OCCUPIED
//  5. otherwise                                         -> FREE
//
// Every view of availability goes through At or OnDay so the rules live in one place.
package status

import (
	"time"

	"coldstore-backend/internal/model"
)

// Effective is the resolved availability state of a cell.
type Effective string

const (
	Blocked      Effective = "BLOCKED"
	OutOfService Effective = "OUT_OF_SERVICE"
	Pending      Effective = "PENDING"
	Confirmed    Effective = "CONFIRMED"
	Occupied     Effective = "OCCUPIED"
	Free         Effective = "FREE"
)

// Result is the outcome of a resolution. Reservation is set when rule 3
// matched and Block when rule 1 matched.
type Result struct {
	Status      Effective          `json:"status"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
	Block       *model.DayBlock    `json:"block,omitempty"`
}

// At resolves the status of cell at an instant. The calendar date used for
// day blocks is the date of the instant in loc.
func At(cell model.Cell, reservations []model.Reservation, blocks []model.DayBlock, at time.Time, loc *time.Location) Result {
	return resolve(cell, blocks, model.DateOf(at, loc), func() *model.Reservation {
		return earliest(cell, reservations, func(r model.Reservation) bool { return r.Covers(at) })
	})
}

// OnDay resolves the status of cell for a whole calendar day. When several
// reservations overlap the day, the one with the earliest start (then lowest
// id) represents it.
func OnDay(cell model.Cell, reservations []model.Reservation, blocks []model.DayBlock, day model.Date, loc *time.Location) Result {
	start, end := day.Start(loc), day.AddDays(1).Start(loc)
	return resolve(cell, blocks, day, func() *model.Reservation {
		return earliest(cell, reservations, func(r model.Reservation) bool { return r.Overlaps(start, end) })
	})
}

func resolve(cell model.Cell, blocks []model.DayBlock, day model.Date, reservation func() *model.Reservation) Result {
	if b := blockFor(cell.FacilityID.String(), blocks, day); b != nil {
		return Result{Status: Blocked, Block: b}
	}
	if cell.Status == model.CellOutOfService {
		return Result{Status: OutOfService}
	}
	if r := reservation(); r != nil {
		return Result{Status: Effective(r.Status), Reservation: r}
	}
	if cell.Status == model.CellOccupied {
		return Result{Status: Occupied}
	}
	return Result{Status: Free}
}

func blockFor(facilityID string, blocks []model.DayBlock, day model.Date) *model.DayBlock {
	for i := range blocks {
		if blocks[i].Day == day && blocks[i].FacilityID.String() == facilityID {
			return &blocks[i]
		}
	}
	return nil
}

// earliest returns the active reservation of cell matching pred with the
// smallest (start, id). Reservations of other cells are skipped so callers
// can pass a facility-wide slice.
func earliest(cell model.Cell, reservations []model.Reservation, pred func(model.Reservation) bool) *model.Reservation {
	var best *model.Reservation
	for i := range reservations {
		r := &reservations[i]
		if r.CellID != cell.ID || !r.Active() || !pred(*r) {
			continue
		}
		if best == nil || Less(*r, *best) {
			best = r
		}
	}
	return best
}

// Less orders reservations by start time, then by id.
func Less(a, b model.Reservation) bool {
	if !a.StartAt.Equal(b.StartAt) {
		return a.StartAt.Before(b.StartAt)
	}
	return a.ID.String() < b.ID.String()
}

package calendar

import (
	"time"

	"sporty/models"
)

// MonthSegment is the part of an event drawn in one week row. A multi-day
// event is a single segment spanning Span columns from Column.
type MonthSegment struct {
	Block
	Column          int     `json:"column"`
	Span            int     `json:"span"`
	Lane            int     `json:"lane"`
	Top             float64 `json:"top"`
	ContinuesBefore bool    `json:"continuesBefore"`
	ContinuesAfter  bool    `json:"continuesAfter"`
}

// Overflow is the "+N more" affordance of a month cell.
type Overflow struct {
	Count    int      `json:"count"`
	EventIDs []string `json:"eventIds"`
}

// MonthCell is one day of the month grid. Count covers every event touching
// the day, rendered or hidden.
type MonthCell struct {
	Date     time.Time `json:"date"`
	InMonth  bool      `json:"inMonth"`
	Count    int       `json:"count"`
	Overflow *Overflow `json:"overflow,omitempty"`
}

// WeekRow is one row of the month grid.
type WeekRow struct {
	Start    time.Time      `json:"start"`
	Cells    []MonthCell    `json:"cells"`
	Segments []MonthSegment `json:"segments"`
}

func (e *Engine) projectMonth(events []models.TeamEvent, anchor time.Time, r Range) []WeekRow {
	var rows []WeekRow
	for start := r.Start; start.Before(r.End); start = start.AddDate(0, 0, 7) {
		rows = append(rows, e.weekRow(events, start, anchor.Month()))
	}
	return rows
}

// weekRow lays out one row. A cell shows at most MaxVisibleEvents lanes; a
// cell that cannot fit its events shows one lane fewer and turns the rest into
// its overflow. A spanning segment is drawn only when every cell it crosses
// has room for its lane, so each cell's rendered and hidden events add up to
// its Count.
func (e *Engine) weekRow(events []models.TeamEvent, weekStart time.Time, month time.Month) WeekRow {
	var (
		segments []MonthSegment
		spans    []span
	)
	for _, ev := range events {
		first, last := e.dayBounds(ev)
		a := daysBetween(weekStart, first)
		b := daysBetween(weekStart, last)
		if b < 0 || a > 6 {
			continue
		}
		s := span{first: max(a, 0), last: min(b, 6)}
		spans = append(spans, s)
		segments = append(segments, MonthSegment{
			Block:           blockOf(ev),
			Column:          s.first,
			Span:            s.last - s.first + 1,
			ContinuesBefore: a < 0,
			ContinuesAfter:  b > 6,
		})
	}
	lanes := assignLanes(spans, 7)

	var counts, deepest [7]int
	for c := range deepest {
		deepest[c] = -1
	}
	for i, s := range spans {
		for c := s.first; c <= s.last; c++ {
			counts[c]++
			deepest[c] = max(deepest[c], lanes[i])
		}
	}

	capacity := e.cfg.MaxVisibleEvents
	var visible [7]int
	for c := range visible {
		visible[c] = capacity
		if counts[c] > capacity || deepest[c] >= capacity {
			visible[c] = capacity - 1
		}
	}

	row := WeekRow{Start: weekStart, Segments: []MonthSegment{}}
	var hidden [7][]string
	for i, seg := range segments {
		seg.Lane = lanes[i]
		seg.Top = float64(seg.Lane * (EventHeight + EventGap))
		limit := capacity
		for c := spans[i].first; c <= spans[i].last; c++ {
			limit = min(limit, visible[c])
		}
		if seg.Lane < limit {
			row.Segments = append(row.Segments, seg)
			continue
		}
		for c := spans[i].first; c <= spans[i].last; c++ {
			hidden[c] = append(hidden[c], seg.EventID)
		}
	}

	row.Cells = make([]MonthCell, 7)
	for c := range row.Cells {
		date := weekStart.AddDate(0, 0, c)
		cell := MonthCell{Date: date, InMonth: date.Month() == month, Count: counts[c]}
		if len(hidden[c]) > 0 {
			cell.Overflow = &Overflow{Count: len(hidden[c]), EventIDs: hidden[c]}
		}
		row.Cells[c] = cell
	}
	return row
}

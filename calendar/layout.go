package calendar

import (
	"sort"
	"time"

	"sporty/models"
)

// ordered returns a copy of events sorted by start ascending, end descending
// and id, so that layout never depends on input order.
func ordered(events []models.TeamEvent) []models.TeamEvent {
	out := make([]models.TeamEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartAt.Equal(b.StartAt) {
			return a.StartAt.Before(b.StartAt)
		}
		ae, be := effectiveEnd(a), effectiveEnd(b)
		if !ae.Equal(be) {
			return ae.After(be)
		}
		return a.ID < b.ID
	})
	return out
}

// effectiveEnd treats a missing or inverted end as a zero-length event.
func effectiveEnd(ev models.TeamEvent) time.Time {
	if ev.EndAt.Before(ev.StartAt) {
		return ev.StartAt
	}
	return ev.EndAt
}

// dayBounds returns the first and last local day an event occupies. An event
// ending exactly at midnight does not occupy the following day.
func (e *Engine) dayBounds(ev models.TeamEvent) (first, last time.Time) {
	start := ev.StartAt.In(e.cfg.Location)
	end := effectiveEnd(ev).In(e.cfg.Location)
	first = e.startOfDay(start)
	last = e.startOfDay(end)
	if end.After(start) && end.Equal(last) {
		last = last.AddDate(0, 0, -1)
	}
	return first, last
}

func (e *Engine) touchesDay(ev models.TeamEvent, day time.Time) bool {
	first, last := e.dayBounds(ev)
	return daysBetween(first, day) >= 0 && daysBetween(day, last) >= 0
}

// span is a run of day columns [first, last] inside one week row.
type span struct {
	first, last int
}

// assignLanes places spans, in order, into the lowest lane whose columns are
// all free.
func assignLanes(spans []span, columns int) []int {
	lanes := make([]int, len(spans))
	var occupied [][]bool
	for i, s := range spans {
		lane := 0
		for ; lane < len(occupied); lane++ {
			if laneFree(occupied[lane], s) {
				break
			}
		}
		if lane == len(occupied) {
			occupied = append(occupied, make([]bool, columns))
		}
		for c := s.first; c <= s.last; c++ {
			occupied[lane][c] = true
		}
		lanes[i] = lane
	}
	return lanes
}

func laneFree(row []bool, s span) bool {
	for c := s.first; c <= s.last; c++ {
		if row[c] {
			return false
		}
	}
	return true
}

// interval is a vertical extent in minutes from the top of the grid.
type interval struct {
	start, end float64
}

// assignColumns places intervals, sorted by start, into the lowest free
// column. Intervals that transitively overlap form a cluster; every member of
// a cluster shares the cluster's column count.
func assignColumns(items []interval) (cols []int, counts []int) {
	cols = make([]int, len(items))
	counts = make([]int, len(items))

	clusterStart := 0
	var clusterEnd float64
	var columnEnds []float64
	closeCluster := func(upTo int) {
		for k := clusterStart; k < upTo; k++ {
			counts[k] = len(columnEnds)
		}
	}

	for i, it := range items {
		if i > clusterStart && it.start >= clusterEnd {
			closeCluster(i)
			clusterStart = i
			columnEnds = columnEnds[:0]
		}
		col := -1
		for c, end := range columnEnds {
			if end <= it.start {
				col = c
				break
			}
		}
		if col < 0 {
			col = len(columnEnds)
			columnEnds = append(columnEnds, it.end)
		} else {
			columnEnds[col] = it.end
		}
		cols[i] = col
		if i == clusterStart || it.end > clusterEnd {
			clusterEnd = it.end
		}
	}
	closeCluster(len(items))
	return cols, counts
}

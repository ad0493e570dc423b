package calendar

import (
	"sort"
	"time"

	"sporty/models"
)

// TimedSegment is the part of an event drawn in one day column of the time
// grid. Top and Height are pixels from the first visible hour; Left and Width
// are fractions of the column.
type TimedSegment struct {
	Block
	Top             float64 `json:"top"`
	Height          float64 `json:"height"`
	Left            float64 `json:"left"`
	Width           float64 `json:"width"`
	Column          int     `json:"column"`
	Columns         int     `json:"columns"`
	Clamped         bool    `json:"clamped"`
	ContinuesBefore bool    `json:"continuesBefore"`
	ContinuesAfter  bool    `json:"continuesAfter"`
}

// DayColumn is one day of the week or day view.
type DayColumn struct {
	Date     time.Time      `json:"date"`
	Segments []TimedSegment `json:"segments"`
}

func (e *Engine) projectTimeGrid(events []models.TeamEvent, r Range) []DayColumn {
	var days []DayColumn
	for day := r.Start; day.Before(r.End); day = day.AddDate(0, 0, 1) {
		days = append(days, e.dayColumn(events, day))
	}
	return days
}

// minuteOfDay is the wall-clock minute of t on day; the following midnight
// is 24:00.
func minuteOfDay(t, day time.Time) float64 {
	if daysBetween(day, t) > 0 {
		return 24 * 60
	}
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}

func (e *Engine) dayColumn(events []models.TeamEvent, day time.Time) DayColumn {
	loc := e.cfg.Location
	nextDay := day.AddDate(0, 0, 1)
	winStart := float64(e.cfg.StartHour * 60)
	winEnd := float64(e.cfg.EndHour * 60)
	minDur := e.cfg.minDurationMinutes()
	gridHeight := (winEnd - winStart) / 60 * e.cfg.HourHeight

	var (
		segments []TimedSegment
		extents  []interval
	)
	for _, ev := range events {
		if !e.touchesDay(ev, day) {
			continue
		}
		start := ev.StartAt.In(loc)
		end := effectiveEnd(ev).In(loc)

		seg := TimedSegment{Block: blockOf(ev)}
		from, to := 0.0, 24*60.0
		if start.Before(day) {
			seg.ContinuesBefore = true
		} else {
			from = minuteOfDay(start, day)
		}
		if end.After(nextDay) {
			seg.ContinuesAfter = true
		} else {
			to = minuteOfDay(end, day)
		}

		visFrom := min(max(from, winStart), winEnd)
		visTo := min(max(to, winStart), winEnd)
		seg.Clamped = visFrom != from || visTo != to
		seg.Top = (visFrom - winStart) / 60 * e.cfg.HourHeight
		seg.Height = max((visTo-visFrom)/60*e.cfg.HourHeight, e.cfg.MinBlockHeight)
		// A minimum-height block near or past the bottom edge is pulled up to
		// end at the edge, like blocks before StartHour sit at the top.
		if bottom := gridHeight - seg.Height; seg.Top > bottom {
			seg.Top = max(bottom, 0)
			visFrom = max(winEnd-minDur, winStart)
		}

		segments = append(segments, seg)
		extents = append(extents, interval{start: visFrom, end: max(visTo, visFrom+minDur)})
	}

	// Clipping can reorder segments; restore display order before packing.
	idx := make([]int, len(segments))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := extents[idx[a]], extents[idx[b]]
		if ea.start != eb.start {
			return ea.start < eb.start
		}
		if ea.end != eb.end {
			return ea.end > eb.end
		}
		return segments[idx[a]].EventID < segments[idx[b]].EventID
	})
	sortedSegs := make([]TimedSegment, len(idx))
	sortedExt := make([]interval, len(idx))
	for i, k := range idx {
		sortedSegs[i] = segments[k]
		sortedExt[i] = extents[k]
	}

	cols, counts := assignColumns(sortedExt)
	for i := range sortedSegs {
		sortedSegs[i].Column = cols[i]
		sortedSegs[i].Columns = counts[i]
		sortedSegs[i].Width = 1 / float64(counts[i])
		sortedSegs[i].Left = float64(cols[i]) * sortedSegs[i].Width
	}
	return DayColumn{Date: day, Segments: sortedSegs}
}

package calendar

import (
	"strings"
	"time"

	"sporty/apperrors"
)

// View is the calendar granularity.
type View string

const (
	ViewMonth  View = "month"
	ViewWeek   View = "week"
	ViewDay    View = "day"
	ViewAgenda View = "agenda"
)

// ParseView reads a view name; an empty string selects the month view.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewMonth, nil
	case ViewMonth, ViewWeek, ViewDay, ViewAgenda:
		return v, nil
	}
	return "", apperrors.Invalid("view", "view must be one of month, week, day, agenda")
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Engine projects events with a fixed Config.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.normalized()}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	t = t.In(e.cfg.Location)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.cfg.Location)
}

func (e *Engine) startOfWeek(t time.Time) time.Time {
	day := e.startOfDay(t)
	diff := (int(day.Weekday()) - int(e.cfg.WeekStartsOn) + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// addMonths moves by n months keeping the day of month, clamped to the last
// day of the target month (31 Jan + 1 month = 28/29 Feb).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// daysBetween counts calendar days from a to b, ignoring clock time and DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Navigate steps the anchor by one view unit per step; negative steps go back.
func (e *Engine) Navigate(anchor time.Time, view View, step int) time.Time {
	anchor = anchor.In(e.cfg.Location)
	switch view {
	case ViewMonth:
		return addMonths(anchor, step)
	case ViewWeek:
		return anchor.AddDate(0, 0, 7*step)
	case ViewDay:
		return anchor.AddDate(0, 0, step)
	case ViewAgenda:
		return anchor.AddDate(0, 0, e.cfg.AgendaDays*step)
	}
	return anchor
}

// Today is the anchor for "jump to today".
func (e *Engine) Today(now time.Time) time.Time {
	return e.startOfDay(now)
}

// VisibleRange is the span of days a view covers around anchor.
func (e *Engine) VisibleRange(anchor time.Time, view View) Range {
	switch view {
	case ViewMonth:
		day := e.startOfDay(anchor)
		first := day.AddDate(0, 0, 1-day.Day())
		last := first.AddDate(0, 1, -1)
		return Range{Start: e.startOfWeek(first), End: e.startOfWeek(last).AddDate(0, 0, 7)}
	case ViewWeek:
		start := e.startOfWeek(anchor)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}
	case ViewAgenda:
		start := e.startOfDay(anchor)
		return Range{Start: start, End: start.AddDate(0, 0, e.cfg.AgendaDays)}
	default:
		start := e.startOfDay(anchor)
		return Range{Start: start, End: start.AddDate(0, 0, 1)}
	}
}

// Title is the toolbar caption: "June 2025" for a month, "Jun - Jul 2025"
// for a week or agenda window crossing a month boundary, "1 Jun 2025" for a day.
func (e *Engine) Title(anchor time.Time, view View) string {
	anchor = anchor.In(e.cfg.Location)
	switch view {
	case ViewMonth:
		return anchor.Format("January 2006")
	case ViewWeek:
		start := e.startOfWeek(anchor)
		return spanTitle(start, start.AddDate(0, 0, 6))
	case ViewAgenda:
		start := e.startOfDay(anchor)
		return spanTitle(start, start.AddDate(0, 0, e.cfg.AgendaDays-1))
	default:
		return anchor.Format("2 Jan 2006")
	}
}

func spanTitle(start, end time.Time) string {
	if start.Year() == end.Year() && start.Month() == end.Month() {
		return start.Format("January 2006")
	}
	return start.Format("Jan") + " - " + end.Format("Jan 2006")
}

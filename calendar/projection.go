package calendar

import (
	"time"

	"sporty/models"
)

// Color is the palette name a block is drawn with.
type Color string

const (
	ColorSky     Color = "sky"
	ColorRose    Color = "rose"
	ColorEmerald Color = "emerald"
	ColorAmber   Color = "amber"
)

// ColorFor maps an event category to its block color.
func ColorFor(t models.EventType) Color {
	switch t {
	case models.EventMatch:
		return ColorRose
	case models.EventSocial:
		return ColorEmerald
	case models.EventOther:
		return ColorAmber
	default:
		return ColorSky
	}
}

// Block is the event reference every view renders.
type Block struct {
	EventID  string           `json:"eventId"`
	TeamID   string           `json:"teamId"`
	Name     string           `json:"name"`
	Type     models.EventType `json:"type"`
	Color    Color            `json:"color"`
	StartAt  time.Time        `json:"startAt"`
	EndAt    time.Time        `json:"endAt"`
	Location *string          `json:"location,omitempty"`
}

func blockOf(ev models.TeamEvent) Block {
	return Block{
		EventID:  ev.ID,
		TeamID:   ev.TeamID,
		Name:     ev.Name,
		Type:     ev.EventType,
		Color:    ColorFor(ev.EventType),
		StartAt:  ev.StartAt,
		EndAt:    effectiveEnd(ev),
		Location: ev.Location,
	}
}

// Projection is the positioned layout of one view. Exactly one of Weeks,
// Days and Agenda is filled, depending on View.
type Projection struct {
	View   View        `json:"view"`
	Title  string      `json:"title"`
	Anchor time.Time   `json:"anchor"`
	Range  Range       `json:"range"`
	Prev   time.Time   `json:"prev"`
	Next   time.Time   `json:"next"`
	Weeks  []WeekRow   `json:"weeks,omitempty"`
	Days   []DayColumn `json:"days,omitempty"`
	Agenda []AgendaDay `json:"agenda,omitempty"`
}

// Project lays events out for the view around anchor. Events outside the
// visible range are ignored.
func (e *Engine) Project(events []models.TeamEvent, anchor time.Time, view View) Projection {
	anchor = anchor.In(e.cfg.Location)
	p := Projection{
		View:   view,
		Title:  e.Title(anchor, view),
		Anchor: anchor,
		Range:  e.VisibleRange(anchor, view),
		Prev:   e.Navigate(anchor, view, -1),
		Next:   e.Navigate(anchor, view, 1),
	}

	sorted := ordered(events)
	switch view {
	case ViewMonth:
		p.Weeks = e.projectMonth(sorted, anchor, p.Range)
	case ViewWeek, ViewDay:
		p.Days = e.projectTimeGrid(sorted, p.Range)
	case ViewAgenda:
		p.Agenda = e.projectAgenda(sorted, p.Range)
	}
	return p
}

// ExpandDay lists every event touching day in display order. It backs the
// "+N more" popover of a month cell.
func (e *Engine) ExpandDay(events []models.TeamEvent, day time.Time) []Block {
	day = e.startOfDay(day)
	var blocks []Block
	for _, ev := range ordered(events) {
		if e.touchesDay(ev, day) {
			blocks = append(blocks, blockOf(ev))
		}
	}
	return blocks
}

// AgendaDay is one day of the agenda list.
type AgendaDay struct {
	Date   time.Time `json:"date"`
	Blocks []Block   `json:"blocks"`
}

func (e *Engine) projectAgenda(events []models.TeamEvent, r Range) []AgendaDay {
	var days []AgendaDay
	for day := r.Start; day.Before(r.End); day = day.AddDate(0, 0, 1) {
		var blocks []Block
		for _, ev := range events {
			if e.touchesDay(ev, day) {
				blocks = append(blocks, blockOf(ev))
			}
		}
		if len(blocks) > 0 {
			days = append(days, AgendaDay{Date: day, Blocks: blocks})
		}
	}
	return days
}

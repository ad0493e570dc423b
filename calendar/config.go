// Package calendar projects a flat list of team events onto month, week, day
// and agenda views, and turns pointer gestures over those views into
// reschedule requests.
//
// Every projection is a pure function of (events, anchor, view, Config):
// the same input always yields the same blocks in the same order.
package calendar

import "time"

const (
	// EventHeight and EventGap size a lane in a month cell, in pixels.
	EventHeight = 24
	EventGap    = 4
	// WeekCellsHeight is the pixel height of one hour row in the time grid.
	WeekCellsHeight = 64
	// SlotMinutes is the granularity of time-grid drop cells.
	SlotMinutes = 15
	// DragThreshold is the pointer distance, in pixels, that turns a press
	// into a drag. Anything shorter is a click.
	DragThreshold = 5.0
	// AgendaDaysToShow is the agenda window and navigation step.
	AgendaDaysToShow = 30
)

// Config controls the projection geometry. Zero fields take the defaults of
// DefaultConfig.
type Config struct {
	Location     *time.Location
	WeekStartsOn time.Weekday

	// StartHour and EndHour bound the visible time grid, [StartHour, EndHour).
	StartHour int
	EndHour   int

	HourHeight     float64
	MinBlockHeight float64

	// MaxVisibleEvents is the lane capacity of a month cell.
	MaxVisibleEvents int
	AgendaDays       int
}

func DefaultConfig() Config {
	return Config{
		Location:         time.UTC,
		WeekStartsOn:     time.Sunday,
		StartHour:        0,
		EndHour:          24,
		HourHeight:       WeekCellsHeight,
		MinBlockHeight:   EventHeight,
		MaxVisibleEvents: 3,
		AgendaDays:       AgendaDaysToShow,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Location == nil {
		c.Location = def.Location
	}
	if c.WeekStartsOn < time.Sunday || c.WeekStartsOn > time.Saturday {
		c.WeekStartsOn = def.WeekStartsOn
	}
	if c.StartHour < 0 || c.StartHour > 23 {
		c.StartHour = def.StartHour
	}
	if c.EndHour <= c.StartHour || c.EndHour > 24 {
		c.EndHour = def.EndHour
	}
	if c.HourHeight <= 0 {
		c.HourHeight = def.HourHeight
	}
	if c.MinBlockHeight <= 0 {
		c.MinBlockHeight = def.MinBlockHeight
	}
	if c.MaxVisibleEvents < 1 {
		c.MaxVisibleEvents = def.MaxVisibleEvents
	}
	if c.AgendaDays < 1 {
		c.AgendaDays = def.AgendaDays
	}
	return c
}

// minDurationMinutes is the shortest time span a block visually occupies.
func (c Config) minDurationMinutes() float64 {
	return c.MinBlockHeight / c.HourHeight * 60
}

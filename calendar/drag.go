package calendar

import (
	"math"
	"time"

	"sporty/apperrors"
	"sporty/models"
)

// DragState is the gesture state of a DragSession.
type DragState string

const (
	StateIdle           DragState = "idle"
	StatePending        DragState = "pending"
	StateDragging       DragState = "dragging"
	StateDroppedValid   DragState = "dropped-valid"
	StateDroppedInvalid DragState = "dropped-invalid"
	StateCancelled      DragState = "cancelled"
	StateClicked        DragState = "clicked"
)

// Point is a pointer position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DropTarget is the calendar cell under the pointer. Time-grid cells carry
// the minute of day of their quarter-hour slot; month cells leave Minutes nil
// and keep the event's original time of day.
type DropTarget struct {
	Date    time.Time
	Minutes *int
}

// DragSession recognises one press-move-release gesture on an event card.
// A press that travels less than DragThreshold is a click; beyond it the card
// is dragged and the next Drop decides the new start.
type DragSession struct {
	loc *time.Location

	state    DragState
	event    models.TeamEvent
	origin   Point
	duration time.Duration
	start    time.Time
	end      time.Time
	err      error
}

func NewDragSession(loc *time.Location) *DragSession {
	if loc == nil {
		loc = time.UTC
	}
	return &DragSession{loc: loc, state: StateIdle}
}

func (s *DragSession) State() DragState { return s.state }
func (s *DragSession) Event() models.TeamEvent { return s.event }

// Err explains a dropped-invalid state.
func (s *DragSession) Err() error { return s.err }

// Proposal returns the new schedule of a valid drop.
func (s *DragSession) Proposal() (start, end time.Time, ok bool) {
	if s.state != StateDroppedValid {
		return time.Time{}, time.Time{}, false
	}
	return s.start, s.end, true
}

// PointerDown starts a new gesture on event, discarding any previous one.
func (s *DragSession) PointerDown(event models.TeamEvent, p Point) DragState {
	*s = DragSession{loc: s.loc, state: StatePending, event: event, origin: p}
	return s.state
}

// PointerMove promotes a pending press to a drag once the pointer has
// travelled DragThreshold pixels.
func (s *DragSession) PointerMove(p Point) DragState {
	if s.state == StatePending && math.Hypot(p.X-s.origin.X, p.Y-s.origin.Y) >= DragThreshold {
		s.begin()
	}
	return s.state
}

func (s *DragSession) begin() {
	s.state = StateDragging
	s.duration = s.event.Duration()
}

// PointerUp outside any drop target: a pending press is a click, an active
// drag is cancelled.
func (s *DragSession) PointerUp() DragState {
	switch s.state {
	case StatePending:
		s.state = StateClicked
	case StateDragging:
		s.state = StateCancelled
	}
	return s.state
}

// Drop ends an active drag over target. A nil target is a drop outside the
// calendar and cancels the drag.
func (s *DragSession) Drop(target *DropTarget) DragState {
	if s.state != StateDragging {
		return s.state
	}
	if target == nil {
		s.state = StateCancelled
		return s.state
	}
	start, err := TargetInstant(*target, s.event.StartAt, s.loc)
	if err != nil {
		s.state = StateDroppedInvalid
		s.err = err
		return s.state
	}
	s.start = start
	s.end = start.Add(s.duration)
	s.state = StateDroppedValid
	return s.state
}

// Cancel aborts the gesture; nothing is written.
func (s *DragSession) Cancel() DragState {
	if s.state == StatePending || s.state == StateDragging {
		s.state = StateCancelled
	}
	return s.state
}

// TargetInstant is the start instant a drop on target represents.
func TargetInstant(target DropTarget, original time.Time, loc *time.Location) (time.Time, error) {
	if target.Date.IsZero() {
		return time.Time{}, apperrors.Invalid("targetDate", "target date is required")
	}
	y, m, d := target.Date.In(loc).Date()
	if target.Minutes == nil {
		o := original.In(loc)
		return time.Date(y, m, d, o.Hour(), o.Minute(), o.Second(), o.Nanosecond(), loc), nil
	}
	minutes := *target.Minutes
	if minutes < 0 || minutes >= 24*60 || minutes%SlotMinutes != 0 {
		return time.Time{}, apperrors.Invalid("targetMinutes", "target time must be a quarter hour within the day")
	}
	return time.Date(y, m, d, 0, minutes, 0, 0, loc), nil
}

// Resize validates a new end for event; the start is unchanged.
func Resize(event models.TeamEvent, newEnd time.Time) (start, end time.Time, err error) {
	if newEnd.Before(event.StartAt) {
		return time.Time{}, time.Time{}, apperrors.Invalid("endAt", "end time must not be before start time")
	}
	return event.StartAt, newEnd, nil
}

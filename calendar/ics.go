package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"sporty/models"
)

// ExportICS renders a team's events as a VCALENDAR with one VEVENT each.
func ExportICS(team *models.Team, events []models.TeamEvent, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//sporty//team calendar//EN")
	cal.SetXWRCalName(team.Name)

	for _, ev := range ordered(events) {
		vevent := cal.AddEvent(ev.ID)
		vevent.SetDtStampTime(now.UTC())
		vevent.SetModifiedAt(ev.UpdatedAt.UTC())
		vevent.SetStartAt(ev.StartAt.UTC())
		vevent.SetEndAt(effectiveEnd(ev).UTC())
		vevent.SetSummary(ev.Name)
		vevent.AddProperty(ical.ComponentPropertyCategories, string(ev.EventType))
		if ev.Location != nil {
			vevent.SetLocation(*ev.Location)
		}
		if ev.Note != nil {
			vevent.SetDescription(*ev.Note)
		}
	}
	return cal.Serialize()
}

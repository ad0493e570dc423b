package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
)

// Counts summarizes one event's answers. The three fields add up to the
// team's member count at read time.
type Counts struct {
	Attending    int64 `json:"attending"`
	NotAttending int64 `json:"notAttending"`
	NotResponded int64 `json:"notResponded"`
}

// NonResponder is a team member without an answer for an event. ID is the
// membership id.
type NonResponder struct {
	ID   string             `json:"id"`
	User models.UserSummary `json:"user"`
}

// MemberStats is one member's all-time attendance on a team.
type MemberStats struct {
	UserID         string  `json:"userId"`
	UserName       string  `json:"userName"`
	UserImage      *string `json:"userImage"`
	AttendedCount  int64   `json:"attendedCount"`
	TotalEvents    int64   `json:"totalEvents"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// AttendanceService is the Attendance Aggregator. Everything is computed on
// read; nothing is maintained incrementally.
type AttendanceService struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Memberships   repository.MembershipRepository
	Access        *Access
	Cache         cache.Cache
	CacheTTL      time.Duration
	Logger        *logrus.Entry
}

func NewAttendanceService(store *repository.Store, c cache.Cache, ttl time.Duration, logger *logrus.Entry) *AttendanceService {
	return &AttendanceService{
		Events:        store.Events,
		Registrations: store.Registrations,
		Memberships:   store.Memberships,
		Access:        NewAccess(store.Memberships),
		Cache:         c,
		CacheTTL:      ttl,
		Logger:        logger.WithField("component", "attendance"),
	}
}

func (s *AttendanceService) memberEvent(ctx context.Context, actor *models.User, eventID string) (*models.TeamEvent, error) {
	event, err := s.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	if _, err := s.Access.RequireMember(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}
	return event, nil
}

// GetCounts returns attending, not-attending and non-responded counts.
func (s *AttendanceService) GetCounts(ctx context.Context, actor *models.User, eventID string) (Counts, error) {
	event, err := s.memberEvent(ctx, actor, eventID)
	if err != nil {
		return Counts{}, err
	}

	var counts Counts
	err = cached(ctx, s.Cache, s.CacheTTL, s.Logger, event.TeamID, cache.CountsKey(event.ID), &counts, func() error {
		c, err := s.computeCounts(ctx, event)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	return counts, err
}

func (s *AttendanceService) computeCounts(ctx context.Context, event *models.TeamEvent) (Counts, error) {
	byType, err := s.Registrations.CountByType(ctx, event.ID)
	if err != nil {
		return Counts{}, storeError(err, errEventNotFound.Message)
	}
	members, err := s.Memberships.CountByTeam(ctx, event.TeamID)
	if err != nil {
		return Counts{}, storeError(err, "team not found")
	}

	counts := Counts{
		Attending:    byType[models.Attending],
		NotAttending: byType[models.NotAttending],
	}
	// Registrations of former members can outnumber the current roster.
	counts.NotResponded = members - counts.Attending - counts.NotAttending
	if counts.NotResponded < 0 {
		counts.NotResponded = 0
	}
	return counts, nil
}

// GetNonResponded lists the members with no registration for the event, in
// membership order.
func (s *AttendanceService) GetNonResponded(ctx context.Context, actor *models.User, eventID string) ([]NonResponder, error) {
	event, err := s.memberEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	result := []NonResponder{}
	err = cached(ctx, s.Cache, s.CacheTTL, s.Logger, event.TeamID, cache.NonRespondedKey(event.ID), &result, func() error {
		members, err := nonRespondingMembers(ctx, s.Memberships, s.Registrations, event)
		if err != nil {
			return err
		}
		result = make([]NonResponder, 0, len(members))
		for _, m := range members {
			entry := NonResponder{ID: m.ID}
			if m.User != nil {
				entry.User = m.User.Summary()
			}
			result = append(result, entry)
		}
		return nil
	})
	return result, err
}

// nonRespondingMembers is the set difference between the roster and the
// users who answered.
func nonRespondingMembers(ctx context.Context, memberships repository.MembershipRepository, registrations repository.RegistrationRepository, event *models.TeamEvent) ([]models.TeamMember, error) {
	members, err := memberships.ListByTeam(ctx, event.TeamID)
	if err != nil {
		return nil, storeError(err, "team not found")
	}
	registered, err := registrations.ListUserIDsByEvent(ctx, event.ID)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}

	answered := make(map[string]struct{}, len(registered))
	for _, id := range registered {
		answered[id] = struct{}{}
	}

	var missing []models.TeamMember
	for _, m := range members {
		if _, ok := answered[m.UserID]; !ok {
			missing = append(missing, m)
		}
	}
	return missing, nil
}

// GetTeamStats returns per-member attendance over every event the team has
// ever had, most attended first. Ties keep membership order.
func (s *AttendanceService) GetTeamStats(ctx context.Context, actor *models.User, teamID string) ([]MemberStats, error) {
	if _, err := s.Access.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}

	stats := []MemberStats{}
	err := cached(ctx, s.Cache, s.CacheTTL, s.Logger, teamID, cache.StatsKey(), &stats, func() error {
		computed, err := s.computeStats(ctx, teamID)
		if err != nil {
			return err
		}
		stats = computed
		return nil
	})
	return stats, err
}

// ExportTeamStats writes the team's attendance statistics as CSV. Only team
// managers may export.
func (s *AttendanceService) ExportTeamStats(ctx context.Context, actor *models.User, teamID string, w io.Writer) error {
	if _, err := s.Access.RequireManager(ctx, actor, teamID); err != nil {
		return err
	}
	stats, err := s.GetTeamStats(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if err := WriteStatsCSV(w, stats); err != nil {
		return apperrors.Internal("failed to write attendance export", err)
	}
	return nil
}

func (s *AttendanceService) computeStats(ctx context.Context, teamID string) ([]MemberStats, error) {
	members, err := s.Memberships.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team not found")
	}
	totalEvents, err := s.Events.CountByTeam(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team not found")
	}
	attended, err := s.Registrations.CountAttendingByUser(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team not found")
	}

	stats := make([]MemberStats, 0, len(members))
	for _, m := range members {
		entry := MemberStats{
			UserID:        m.UserID,
			AttendedCount: attended[m.UserID],
			TotalEvents:   totalEvents,
		}
		if m.User != nil {
			entry.UserName = m.User.Name
			entry.UserImage = m.User.Image
		}
		entry.AttendanceRate = AttendanceRate(entry.AttendedCount, totalEvents)
		stats = append(stats, entry)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AttendedCount > stats[j].AttendedCount
	})
	return stats, nil
}

// AttendanceRate is attended/total as a percentage; 0 when the team has no events.
func AttendanceRate(attended, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}

// StatsCSVHeader is the first row of the attendance export.
var StatsCSVHeader = []string{"Navn", "Antall deltakelser", "Totalt arrangementer", "Oppmøteprosent"}

// WriteStatsCSV renders stats as the attendance export.
func WriteStatsCSV(w io.Writer, stats []MemberStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatsCSVHeader); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.UserName,
			strconv.FormatInt(s.AttendedCount, 10),
			strconv.FormatInt(s.TotalEvents, 10),
			fmt.Sprintf("%.1f%%", s.AttendanceRate),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

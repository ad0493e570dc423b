package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

// MembersPageSize is the number of members per listing page.
const MembersPageSize = 20

var errMembershipNotFound = apperrors.NotFound("membership not found")

// MemberEntry is one row of a team's member listing.
type MemberEntry struct {
	ID        string             `json:"id"`
	Role      models.TeamRole    `json:"role"`
	User      models.UserSummary `json:"user"`
	CreatedAt time.Time          `json:"createdAt"`
}

// MembersPage is one page of a team's members, newest first.
type MembersPage struct {
	Members    []MemberEntry `json:"memberships"`
	Page       int           `json:"page"`
	NextPage   *int          `json:"nextPage"`
	TotalPages int           `json:"totalPages"`
	Total      int64         `json:"total"`
}

// ExternalMembership is a group membership reported by the membership API.
type ExternalMembership = utils.GroupMembership

// MembershipSource fetches the caller's memberships from the external
// membership API.
type MembershipSource interface {
	FetchMemberships(ctx context.Context, token string) ([]ExternalMembership, error)
}

// SyncResult tallies what a membership sync changed.
type SyncResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// MembershipService manages who belongs to which team.
type MembershipService struct {
	Memberships repository.MembershipRepository
	Teams       repository.TeamRepository
	Users       repository.UserRepository
	Access      *Access
	Source      MembershipSource
	Cache       cache.Cache
	Logger      *logrus.Entry
}

func NewMembershipService(store *repository.Store, source MembershipSource, c cache.Cache, logger *logrus.Entry) *MembershipService {
	return &MembershipService{
		Memberships: store.Memberships,
		Teams:       store.Teams,
		Users:       store.Users,
		Access:      NewAccess(store.Memberships),
		Source:      source,
		Cache:       c,
		Logger:      logger.WithField("component", "memberships"),
	}
}

// ListMembers pages through a team's members, optionally filtered by a
// case-insensitive name substring. Pages start at 1.
func (s *MembershipService) ListMembers(ctx context.Context, actor *models.User, teamID string, page int, search string) (*MembersPage, error) {
	if _, err := s.Access.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	members, total, err := s.Memberships.Search(ctx, teamID, search, (page-1)*MembersPageSize, MembersPageSize)
	if err != nil {
		return nil, storeError(err, errTeamNotFound.Message)
	}

	result := &MembersPage{
		Members:    make([]MemberEntry, 0, len(members)),
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / MembersPageSize)),
		Total:      total,
	}
	for _, m := range members {
		entry := MemberEntry{ID: m.ID, Role: m.Role, CreatedAt: m.CreatedAt}
		if m.User != nil {
			entry.User = m.User.Summary()
		}
		result.Members = append(result.Members, entry)
	}
	if len(members) == MembersPageSize {
		next := page + 1
		result.NextPage = &next
	}
	return result, nil
}

// AddMember puts a user on a team. ADMIN only.
func (s *MembershipService) AddMember(ctx context.Context, actor *models.User, teamID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	if _, err := s.Access.Require(ctx, actor, teamID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.Invalid("role", "role must be ADMIN, SUBADMIN or USER")
	}
	if _, err := s.Teams.FindByID(ctx, teamID); err != nil {
		return nil, storeError(err, errTeamNotFound.Message)
	}
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		return nil, storeError(err, "user not found")
	}

	member := &models.TeamMember{UserID: userID, TeamID: teamID, Role: role}
	if err := s.Memberships.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("user is already a member of this team")
		}
		return nil, storeError(err, errTeamNotFound.Message)
	}
	invalidate(ctx, s.Cache, s.Logger, teamID)
	return member, nil
}

func (s *MembershipService) teamMembership(ctx context.Context, teamID, membershipID string) (*models.TeamMember, error) {
	member, err := s.Memberships.FindByID(ctx, membershipID)
	if err != nil {
		return nil, storeError(err, errMembershipNotFound.Message)
	}
	if member.TeamID != teamID {
		return nil, errMembershipNotFound
	}
	return member, nil
}

// UpdateRole changes a member's role. ADMIN only.
func (s *MembershipService) UpdateRole(ctx context.Context, actor *models.User, teamID, membershipID string, role models.TeamRole) (*models.TeamMember, error) {
	if _, err := s.Access.Require(ctx, actor, teamID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.Invalid("role", "role must be ADMIN, SUBADMIN or USER")
	}
	member, err := s.teamMembership(ctx, teamID, membershipID)
	if err != nil {
		return nil, err
	}

	if err := s.Memberships.UpdateRole(ctx, member.ID, role); err != nil {
		return nil, storeError(err, errMembershipNotFound.Message)
	}
	member.Role = role
	utils.LogEvent("membership_role_changed", map[string]interface{}{
		"membership_id": member.ID,
		"team_id":       teamID,
		"role":          role,
		"actor_id":      actor.ID,
	})
	return member, nil
}

// RemoveMember takes a user off a team. ADMIN only. The member's existing
// registrations stay in the ledger.
func (s *MembershipService) RemoveMember(ctx context.Context, actor *models.User, teamID, membershipID string) error {
	if _, err := s.Access.Require(ctx, actor, teamID, models.RoleAdmin); err != nil {
		return err
	}
	member, err := s.teamMembership(ctx, teamID, membershipID)
	if err != nil {
		return err
	}
	if err := s.Memberships.Delete(ctx, member.ID); err != nil {
		return storeError(err, errMembershipNotFound.Message)
	}
	invalidate(ctx, s.Cache, s.Logger, teamID)
	return nil
}

// MyMemberships lists the actor's teams with roles.
func (s *MembershipService) MyMemberships(ctx context.Context, actor *models.User) ([]models.TeamMember, error) {
	members, err := s.Memberships.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, errMembershipNotFound.Message)
	}
	return members, nil
}

// RoleFromMembershipType maps an external membership type onto a team role:
// plain members become USER, every other type ADMIN.
func RoleFromMembershipType(membershipType string) models.TeamRole {
	if membershipType == "MEMBER" {
		return models.RoleUser
	}
	return models.RoleAdmin
}

// Sync mirrors the actor's external group memberships onto teams with a
// matching slug. Unknown groups are skipped; duplicate pairs created by a
// concurrent sync are logged and skipped.
func (s *MembershipService) Sync(ctx context.Context, actor *models.User, token string) (SyncResult, error) {
	var result SyncResult
	if s.Source == nil {
		return result, apperrors.BadRequest("membership sync is not configured")
	}

	external, err := s.Source.FetchMemberships(ctx, token)
	if err != nil {
		utils.LogError("membership_fetch_failed", err, map[string]interface{}{"user_id": actor.ID})
		return result, apperrors.BadRequest("could not fetch memberships from the membership service")
	}

	slugs := make([]string, 0, len(external))
	for _, m := range external {
		slugs = append(slugs, m.GroupSlug)
	}
	teams, err := s.Teams.ListBySlugs(ctx, slugs)
	if err != nil {
		return result, storeError(err, errTeamNotFound.Message)
	}
	bySlug := make(map[string]models.Team, len(teams))
	for _, t := range teams {
		bySlug[t.Slug] = t
	}

	for _, m := range external {
		team, ok := bySlug[m.GroupSlug]
		if !ok {
			result.Skipped++
			continue
		}
		role := RoleFromMembershipType(m.MembershipType)

		existing, err := s.Memberships.FindByUserAndTeam(ctx, actor.ID, team.ID)
		switch {
		case err == nil:
			if existing.Role == role {
				result.Unchanged++
				continue
			}
			if err := s.Memberships.UpdateRole(ctx, existing.ID, role); err != nil {
				return result, storeError(err, errMembershipNotFound.Message)
			}
			result.Updated++
		case errors.Is(err, repository.ErrNotFound):
			member := &models.TeamMember{UserID: actor.ID, TeamID: team.ID, Role: role}
			if err := s.Memberships.Create(ctx, member); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					s.Logger.WithFields(logrus.Fields{
						"user_id": actor.ID,
						"team_id": team.ID,
					}).Warn("membership created concurrently, skipping")
					result.Skipped++
					continue
				}
				return result, storeError(err, errTeamNotFound.Message)
			}
			result.Created++
		default:
			return result, storeError(err, errMembershipNotFound.Message)
		}
		invalidate(ctx, s.Cache, s.Logger, team.ID)
	}

	utils.LogEvent("memberships_synced", map[string]interface{}{
		"user_id":   actor.ID,
		"created":   result.Created,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
		"skipped":   result.Skipped,
	})
	return result, nil
}

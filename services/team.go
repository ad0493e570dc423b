package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

var errTeamNotFound = apperrors.NotFound("team not found")

// TeamInput carries the editable fields of a team. An empty slug is derived
// from the name.
type TeamInput struct {
	Name string
	Slug string
}

// TeamService handles site-level team administration.
type TeamService struct {
	Teams       repository.TeamRepository
	Memberships repository.MembershipRepository
	Access      *Access
	Cache       cache.Cache
	Logger      *logrus.Entry
}

func NewTeamService(store *repository.Store, c cache.Cache, logger *logrus.Entry) *TeamService {
	return &TeamService{
		Teams:       store.Teams,
		Memberships: store.Memberships,
		Access:      NewAccess(store.Memberships),
		Cache:       c,
		Logger:      logger.WithField("component", "teams"),
	}
}

func normalizeTeamInput(in *TeamInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Invalid("name", "name is required")
	}
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = utils.Slugify(in.Name)
	}
	if !utils.IsSlug(in.Slug) {
		return apperrors.Invalid("slug", "slug may only contain lowercase letters, digits and dashes")
	}
	return nil
}

func (s *TeamService) checkConflict(ctx context.Context, in TeamInput, excludeID string) error {
	existing, err := s.Teams.FindConflicting(ctx, in.Name, in.Slug, excludeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err, errTeamNotFound.Message)
	}
	if existing.Name == in.Name {
		return &apperrors.Error{Kind: apperrors.KindConflict, Message: "a team with this name already exists", Field: "name"}
	}
	return &apperrors.Error{Kind: apperrors.KindConflict, Message: "a team with this slug already exists", Field: "slug"}
}

func teamWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.Conflict("a team with this name or slug already exists")
	}
	return storeError(err, errTeamNotFound.Message)
}

// List returns every team.
func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	teams, err := s.Teams.List(ctx)
	if err != nil {
		return nil, storeError(err, errTeamNotFound.Message)
	}
	return teams, nil
}

// Get returns a team to one of its members.
func (s *TeamService) Get(ctx context.Context, actor *models.User, teamID string) (*models.Team, models.TeamRole, error) {
	role, err := s.Access.RequireMember(ctx, actor, teamID)
	if err != nil {
		return nil, "", err
	}
	team, err := s.Teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, "", storeError(err, errTeamNotFound.Message)
	}
	return team, role, nil
}

func (s *TeamService) Create(ctx context.Context, actor *models.User, in TeamInput) (*models.Team, error) {
	if err := RequireSiteAdmin(actor); err != nil {
		return nil, err
	}
	if err := normalizeTeamInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, in, ""); err != nil {
		return nil, err
	}

	team := &models.Team{Name: in.Name, Slug: in.Slug}
	if err := s.Teams.Create(ctx, team); err != nil {
		return nil, teamWriteError(err)
	}
	utils.LogEvent("team_created", map[string]interface{}{
		"team_id":  team.ID,
		"slug":     team.Slug,
		"actor_id": actor.ID,
	})
	return team, nil
}

func (s *TeamService) Update(ctx context.Context, actor *models.User, teamID string, in TeamInput) (*models.Team, error) {
	if err := RequireSiteAdmin(actor); err != nil {
		return nil, err
	}
	team, err := s.Teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, storeError(err, errTeamNotFound.Message)
	}
	if err := normalizeTeamInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, in, team.ID); err != nil {
		return nil, err
	}

	team.Name = in.Name
	team.Slug = in.Slug
	if err := s.Teams.Update(ctx, team); err != nil {
		return nil, teamWriteError(err)
	}
	return team, nil
}

// Delete removes an empty team. confirm must repeat the team name.
func (s *TeamService) Delete(ctx context.Context, actor *models.User, teamID, confirm string) error {
	if err := RequireSiteAdmin(actor); err != nil {
		return err
	}
	team, err := s.Teams.FindByID(ctx, teamID)
	if err != nil {
		return storeError(err, errTeamNotFound.Message)
	}
	if strings.TrimSpace(confirm) != team.Name {
		return apperrors.Invalid("confirm", "confirmation does not match the team name")
	}

	members, err := s.Memberships.CountByTeam(ctx, team.ID)
	if err != nil {
		return storeError(err, errTeamNotFound.Message)
	}
	if members > 0 {
		return apperrors.Conflict("team still has members; remove them before deleting the team")
	}

	if err := s.Teams.Delete(ctx, team.ID); err != nil {
		return storeError(err, errTeamNotFound.Message)
	}
	invalidate(ctx, s.Cache, s.Logger, team.ID)
	utils.LogEvent("team_deleted", map[string]interface{}{
		"team_id":  team.ID,
		"actor_id": actor.ID,
	})
	return nil
}

package services

import (
	"context"
	"errors"

	"sporty/apperrors"
	"sporty/models"
	"sporty/repository"
)

var (
	errNoTeamAccess   = apperrors.Forbidden("you do not have access to this team")
	errNotPermitted   = apperrors.Forbidden("you are not allowed to do this")
	errSiteAdminsOnly = apperrors.Forbidden("only site administrators can do this")
)

// Access resolves an actor's role on a team.
type Access struct {
	Memberships repository.MembershipRepository
}

func NewAccess(memberships repository.MembershipRepository) *Access {
	return &Access{Memberships: memberships}
}

// RoleOn returns the actor's role on the team. Site administrators act as
// ADMIN on every team. Non-members get FORBIDDEN.
func (a *Access) RoleOn(ctx context.Context, actor *models.User, teamID string) (models.TeamRole, error) {
	if actor == nil {
		return "", errNoTeamAccess
	}
	if actor.IsAdmin {
		return models.RoleAdmin, nil
	}
	member, err := a.Memberships.FindByUserAndTeam(ctx, actor.ID, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", errNoTeamAccess
	}
	if err != nil {
		return "", apperrors.Internal("failed to load membership", err)
	}
	return member.Role, nil
}

// Require returns the actor's role when it is one of roles, FORBIDDEN otherwise.
func (a *Access) Require(ctx context.Context, actor *models.User, teamID string, roles ...models.TeamRole) (models.TeamRole, error) {
	role, err := a.RoleOn(ctx, actor, teamID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r == role {
			return role, nil
		}
	}
	return "", errNotPermitted
}

// RequireMember accepts any role on the team.
func (a *Access) RequireMember(ctx context.Context, actor *models.User, teamID string) (models.TeamRole, error) {
	return a.RoleOn(ctx, actor, teamID)
}

// RequireManager accepts ADMIN and SUBADMIN.
func (a *Access) RequireManager(ctx context.Context, actor *models.User, teamID string) (models.TeamRole, error) {
	return a.Require(ctx, actor, teamID, models.RoleAdmin, models.RoleSubadmin)
}

// RequireSiteAdmin guards global team administration.
func RequireSiteAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin {
		return errSiteAdminsOnly
	}
	return nil
}

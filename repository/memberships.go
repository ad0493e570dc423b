package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"sporty/models"
)

// MembershipRepository stores (user, team, role) rows.
type MembershipRepository interface {
	Create(ctx context.Context, member *models.TeamMember) error
	FindByID(ctx context.Context, id string) (*models.TeamMember, error)
	FindByUserAndTeam(ctx context.Context, userID, teamID string) (*models.TeamMember, error)
	// ListByTeam returns every member with its user, oldest membership first.
	ListByTeam(ctx context.Context, teamID string) ([]models.TeamMember, error)
	// Search pages through a team's members, newest first, filtering on a
	// case-insensitive name substring.
	Search(ctx context.Context, teamID, search string, offset, limit int) ([]models.TeamMember, int64, error)
	ListByUser(ctx context.Context, userID string) ([]models.TeamMember, error)
	CountByTeam(ctx context.Context, teamID string) (int64, error)
	UpdateRole(ctx context.Context, id string, role models.TeamRole) error
	Delete(ctx context.Context, id string) error
}

type membershipRepository struct {
	db *gorm.DB
}

func (r *membershipRepository) Create(ctx context.Context, member *models.TeamMember) error {
	return translate(r.db.WithContext(ctx).Omit("Team", "User").Create(member).Error)
}

func (r *membershipRepository) FindByID(ctx context.Context, id string) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&member).Error; err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *membershipRepository) FindByUserAndTeam(ctx context.Context, userID, teamID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		First(&member).Error
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *membershipRepository) ListByTeam(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("created_at ASC").Order("id ASC").
		Find(&members).Error
	return members, translate(err)
}

func (r *membershipRepository) Search(ctx context.Context, teamID, search string, offset, limit int) ([]models.TeamMember, int64, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.TeamMember{}).
			Where("team_members.team_id = ?", teamID)
		if search != "" {
			query = query.
				Joins("JOIN users ON users.id = team_members.user_id").
				Where("LOWER(users.name) LIKE ?", "%"+search+"%")
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var members []models.TeamMember
	err := scoped().
		Preload("User").
		Order("team_members.created_at DESC").Order("team_members.id ASC").
		Offset(offset).Limit(limit).
		Find(&members).Error
	return members, total, translate(err)
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error
	return members, translate(err)
}

func (r *membershipRepository) CountByTeam(ctx context.Context, teamID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error
	return count, translate(err)
}

func (r *membershipRepository) UpdateRole(ctx context.Context, id string, role models.TeamRole) error {
	res := r.db.WithContext(ctx).Model(&models.TeamMember{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TeamMember{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

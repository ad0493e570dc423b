package repository

import (
	"context"

	"gorm.io/gorm"
	"sporty/models"
)

// TeamRepository stores teams.
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Team, error)
	// FindConflicting returns a team other than excludeID that already uses
	// the name or slug.
	FindConflicting(ctx context.Context, name, slug, excludeID string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	ListBySlugs(ctx context.Context, slugs []string) ([]models.Team, error)
}

type teamRepository struct {
	db *gorm.DB
}

func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	return translate(r.db.WithContext(ctx).Omit("Members", "Events").Create(team).Error)
}

func (r *teamRepository) Update(ctx context.Context, team *models.Team) error {
	res := r.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ?", team.ID).
		Updates(map[string]interface{}{
			"name": team.Name,
			"slug": team.Slug,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventIDs := tx.Model(&models.TeamEvent{}).Select("id").Where("team_id = ?", id)
		if err := tx.Where("event_id IN (?)", eventIDs).Delete(&models.Registration{}).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamEvent{}).Error; err != nil {
			return translate(err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Team{})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *teamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (r *teamRepository) FindConflicting(ctx context.Context, name, slug, excludeID string) (*models.Team, error) {
	var team models.Team
	query := r.db.WithContext(ctx).Where("(name = ? OR slug = ?)", name, slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.First(&team).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).Order("name ASC").Find(&teams).Error
	return teams, translate(err)
}

func (r *teamRepository) ListBySlugs(ctx context.Context, slugs []string) ([]models.Team, error) {
	var teams []models.Team
	if len(slugs) == 0 {
		return teams, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&teams).Error
	return teams, translate(err)
}

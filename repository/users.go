package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"sporty/models"
)

// UserRepository reads and provisions accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// Search pages through all users, newest first. Every word of search
	// must appear in the name or the email.
	Search(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	SetEmailNotifications(ctx context.Context, id string, enabled bool) error
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return translate(r.db.WithContext(ctx).Omit("Memberships", "Registrations").Create(user).Error)
}

func (r *userRepository) Search(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error) {
	words := strings.Fields(strings.ToLower(search))
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.User{})
		for _, word := range words {
			pattern := "%" + word + "%"
			query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var users []models.User
	err := scoped().
		Order("created_at DESC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, total, translate(err)
}

func (r *userRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.updateColumn(ctx, id, "is_admin", isAdmin)
}

func (r *userRepository) SetEmailNotifications(ctx context.Context, id string, enabled bool) error {
	return r.updateColumn(ctx, id, "email_notifications_enabled", enabled)
}

// updateColumn writes one column so that false is stored, not skipped as a
// zero value.
func (r *userRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

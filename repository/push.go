package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sporty/models"
)

// PushSubscriptionRepository stores web push endpoints.
type PushSubscriptionRepository interface {
	// Upsert stores sub, moving an existing endpoint to sub.UserID with the
	// new keys.
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	// DeleteByUserAndEndpoint removes the caller's endpoint and reports how
	// many rows went.
	DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]models.PushSubscription, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type pushSubscriptionRepository struct {
	db *gorm.DB
}

func (r *pushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "updated_at"}),
	}).Create(sub).Error
	return translate(err)
}

func (r *pushSubscriptionRepository) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	return res.RowsAffected, translate(res.Error)
}

func (r *pushSubscriptionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, translate(err)
}

func (r *pushSubscriptionRepository) ListByUsers(ctx context.Context, userIDs []string) ([]models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&subs).Error
	return subs, translate(err)
}

func (r *pushSubscriptionRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.PushSubscription{}).Error)
}

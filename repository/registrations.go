package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sporty/models"
)

// RegistrationRepository stores the Registration Ledger.
type RegistrationRepository interface {
	// Upsert inserts the (user, event) row or updates its type and comment in
	// place. The unique pair constraint makes concurrent upserts converge on a
	// single row; the last committed write wins.
	Upsert(ctx context.Context, userID, eventID string, t models.RegistrationType, comment *string) (*models.Registration, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error)
	ListUserIDsByEvent(ctx context.Context, eventID string) ([]string, error)
	CountByType(ctx context.Context, eventID string) (map[models.RegistrationType]int64, error)
	// CountAttendingByUser counts ATTENDING registrations per user over all
	// events of the team.
	CountAttendingByUser(ctx context.Context, teamID string) (map[string]int64, error)
	Delete(ctx context.Context, id string) error
}

type registrationRepository struct {
	db *gorm.DB
}

func (r *registrationRepository) Upsert(ctx context.Context, userID, eventID string, t models.RegistrationType, comment *string) (*models.Registration, error) {
	reg := models.Registration{
		UserID:  userID,
		EventID: eventID,
		Type:    t,
		Comment: comment,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "comment", "updated_at"}),
	}).Create(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	// On conflict the generated id is discarded; read back the stored row.
	return r.FindByUserAndEvent(ctx, userID, eventID)
}

func (r *registrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at ASC").Order("id ASC").
		Find(&regs).Error
	return regs, translate(err)
}

func (r *registrationRepository) ListUserIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ?", eventID).
		Pluck("user_id", &ids).Error
	return ids, translate(err)
}

func (r *registrationRepository) CountByType(ctx context.Context, eventID string) (map[models.RegistrationType]int64, error) {
	var rows []struct {
		Type  models.RegistrationType
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Registration{}).
		Select("type, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := make(map[models.RegistrationType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

func (r *registrationRepository) CountAttendingByUser(ctx context.Context, teamID string) (map[string]int64, error) {
	var rows []struct {
		UserID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Registration{}).
		Select("registrations.user_id AS user_id, COUNT(*) AS count").
		Joins("JOIN team_events ON team_events.id = registrations.event_id").
		Where("team_events.team_id = ? AND registrations.type = ?", teamID, models.Attending).
		Group("registrations.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Count
	}
	return counts, nil
}

func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Registration{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

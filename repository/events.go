package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"sporty/models"
)

// EventRepository is the Event Store.
type EventRepository interface {
	Create(ctx context.Context, event *models.TeamEvent) error
	Update(ctx context.Context, event *models.TeamEvent) error
	UpdateSchedule(ctx context.Context, id string, start, end time.Time, deadline *time.Time) error
	// Delete removes the event and every registration for it.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.TeamEvent, error)
	ListByTeam(ctx context.Context, teamID string) ([]models.TeamEvent, error)
	ListOngoingByTeam(ctx context.Context, teamID string, now time.Time) ([]models.TeamEvent, error)
	ListPastByTeam(ctx context.Context, teamID string, now time.Time) ([]models.TeamEvent, error)
	// ListByTeamsInRange returns events intersecting [from, to).
	ListByTeamsInRange(ctx context.Context, teamIDs []string, from, to time.Time) ([]models.TeamEvent, error)
	// ListUnansweredForUser returns upcoming events of the user's teams that
	// the user has not registered for.
	ListUnansweredForUser(ctx context.Context, userID string, now time.Time) ([]models.TeamEvent, error)
	CountByTeam(ctx context.Context, teamID string) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

func normalizeEvent(event *models.TeamEvent) {
	event.StartAt = event.StartAt.UTC()
	event.EndAt = event.EndAt.UTC()
	if event.RegistrationDeadline != nil {
		d := event.RegistrationDeadline.UTC()
		event.RegistrationDeadline = &d
	}
}

func (r *eventRepository) Create(ctx context.Context, event *models.TeamEvent) error {
	normalizeEvent(event)
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *eventRepository) Update(ctx context.Context, event *models.TeamEvent) error {
	normalizeEvent(event)
	res := r.db.WithContext(ctx).Model(&models.TeamEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"name":                  event.Name,
			"event_type":            event.EventType,
			"start_at":              event.StartAt,
			"end_at":                event.EndAt,
			"location":              event.Location,
			"note":                  event.Note,
			"registration_deadline": event.RegistrationDeadline,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) UpdateSchedule(ctx context.Context, id string, start, end time.Time, deadline *time.Time) error {
	values := map[string]interface{}{
		"start_at":   start.UTC(),
		"end_at":     end.UTC(),
		"updated_at": time.Now().UTC(),
	}
	if deadline != nil {
		values["registration_deadline"] = deadline.UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.TeamEvent{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Registrations first to respect the foreign key
		if err := tx.Where("event_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return translate(err)
		}
		res := tx.Where("id = ?", id).Delete(&models.TeamEvent{})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *eventRepository) FindByID(ctx context.Context, id string) (*models.TeamEvent, error) {
	var event models.TeamEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

func (r *eventRepository) ListByTeam(ctx context.Context, teamID string) ([]models.TeamEvent, error) {
	var events []models.TeamEvent
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("start_at ASC").Order("id ASC").
		Find(&events).Error
	return events, translate(err)
}

func (r *eventRepository) ListOngoingByTeam(ctx context.Context, teamID string, now time.Time) ([]models.TeamEvent, error) {
	var events []models.TeamEvent
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND end_at >= ?", teamID, now.UTC()).
		Order("start_at ASC").Order("id ASC").
		Find(&events).Error
	return events, translate(err)
}

func (r *eventRepository) ListPastByTeam(ctx context.Context, teamID string, now time.Time) ([]models.TeamEvent, error) {
	var events []models.TeamEvent
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND end_at < ?", teamID, now.UTC()).
		Order("start_at DESC").Order("id ASC").
		Find(&events).Error
	return events, translate(err)
}

func (r *eventRepository) ListByTeamsInRange(ctx context.Context, teamIDs []string, from, to time.Time) ([]models.TeamEvent, error) {
	var events []models.TeamEvent
	if len(teamIDs) == 0 {
		return events, nil
	}
	err := r.db.WithContext(ctx).
		Where("team_id IN ?", teamIDs).
		Where("start_at < ? AND end_at >= ?", to.UTC(), from.UTC()).
		Order("start_at ASC").Order("id ASC").
		Find(&events).Error
	return events, translate(err)
}

func (r *eventRepository) ListUnansweredForUser(ctx context.Context, userID string, now time.Time) ([]models.TeamEvent, error) {
	var events []models.TeamEvent
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = team_events.team_id AND team_members.user_id = ?", userID).
		Where("team_events.start_at >= ?", now.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM registrations WHERE registrations.event_id = team_events.id AND registrations.user_id = ?)", userID).
		Preload("Team").
		Order("team_events.start_at ASC").
		Find(&events).Error
	return events, translate(err)
}

func (r *eventRepository) CountByTeam(ctx context.Context, teamID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TeamEvent{}).Where("team_id = ?", teamID).Count(&count).Error
	return count, translate(err)
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Team{},
		&TeamMember{},
		&TeamEvent{},
		&Registration{},
		&PushSubscription{},
	)
}

// CreateDemoData seeds a development database with one team, its admin and a
// handful of upcoming events. Existing rows are left untouched.
func CreateDemoData(db *gorm.DB, now time.Time) error {
	admin := User{Email: "admin@example.com", Name: "Demo Admin", IsAdmin: true}
	if err := db.FirstOrCreate(&admin, "email = ?", admin.Email).Error; err != nil {
		return err
	}

	team := Team{Name: "Demo Team", Slug: "demo-team"}
	if err := db.FirstOrCreate(&team, "slug = ?", team.Slug).Error; err != nil {
		return err
	}

	member := TeamMember{UserID: admin.ID, TeamID: team.ID, Role: RoleAdmin}
	if err := db.FirstOrCreate(&member, "user_id = ? AND team_id = ?", admin.ID, team.ID).Error; err != nil {
		return err
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC)
	demoEvents := []struct {
		name      string
		eventType EventType
		offset    int
		duration  time.Duration
	}{
		{"Training", EventTraining, 1, 90 * time.Minute},
		{"Home match", EventMatch, 3, 2 * time.Hour},
		{"Training", EventTraining, 5, 90 * time.Minute},
		{"Season party", EventSocial, 10, 4 * time.Hour},
	}
	for _, e := range demoEvents {
		start := day.AddDate(0, 0, e.offset)
		// Registration closes a day before kickoff
		deadline := start.Add(-24 * time.Hour)
		event := TeamEvent{
			TeamID:               team.ID,
			Name:                 e.name,
			EventType:            e.eventType,
			StartAt:              start,
			EndAt:                start.Add(e.duration),
			RegistrationDeadline: &deadline,
		}
		if err := db.FirstOrCreate(&event, "team_id = ? AND name = ? AND start_at = ?", team.ID, e.name, start).Error; err != nil {
			return err
		}
	}
	return nil
}

package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

// UsersPageSize is the number of accounts per admin listing page.
const UsersPageSize = 25

// UserEntry is an account as site administrators see it.
type UserEntry struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Email                     string    `json:"email"`
	Image                     *string   `json:"image"`
	IsAdmin                   bool      `json:"isAdmin"`
	IsActive                  bool      `json:"isActive"`
	EmailNotificationsEnabled bool      `json:"emailNotificationsEnabled"`
	CreatedAt                 time.Time `json:"createdAt"`
}

func newUserEntry(u models.User) UserEntry {
	return UserEntry{
		ID:                        u.ID,
		Name:                      u.Name,
		Email:                     u.Email,
		Image:                     u.Image,
		IsAdmin:                   u.IsAdmin,
		IsActive:                  u.IsActive,
		EmailNotificationsEnabled: u.EmailNotificationsEnabled,
		CreatedAt:                 u.CreatedAt,
	}
}

// UsersPage is one page of accounts, newest first.
type UsersPage struct {
	Users      []UserEntry `json:"users"`
	Page       int         `json:"page"`
	NextPage   *int        `json:"nextPage"`
	TotalPages int         `json:"totalPages"`
	Total      int64       `json:"total"`
}

// UserService is the site administrators' view of every account.
type UserService struct {
	Users  repository.UserRepository
	Logger *logrus.Entry
}

func NewUserService(store *repository.Store, logger *logrus.Entry) *UserService {
	return &UserService{
		Users:  store.Users,
		Logger: logger.WithField("component", "users"),
	}
}

// List pages through accounts. Every whitespace-separated word of search must
// match the name or the email, ignoring case.
func (s *UserService) List(ctx context.Context, actor *models.User, page int, search string) (*UsersPage, error) {
	if err := RequireSiteAdmin(actor); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	users, total, err := s.Users.Search(ctx, search, (page-1)*UsersPageSize, UsersPageSize)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	result := &UsersPage{
		Users:      make([]UserEntry, 0, len(users)),
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / UsersPageSize)),
		Total:      total,
	}
	for _, u := range users {
		result.Users = append(result.Users, newUserEntry(u))
	}
	if len(users) == UsersPageSize {
		next := page + 1
		result.NextPage = &next
	}
	return result, nil
}

// SetAdmin grants or revokes site administration. Administrators cannot
// revoke their own flag, so the site always keeps one.
func (s *UserService) SetAdmin(ctx context.Context, actor *models.User, userID string, isAdmin bool) (*UserEntry, error) {
	if err := RequireSiteAdmin(actor); err != nil {
		return nil, err
	}
	if userID == actor.ID && !isAdmin {
		return nil, apperrors.Invalid("isAdmin", "you cannot remove your own administrator role")
	}
	if err := s.Users.SetAdmin(ctx, userID, isAdmin); err != nil {
		return nil, storeError(err, "user not found")
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	utils.LogEvent("site_admin_changed", map[string]interface{}{
		"user_id":  userID,
		"is_admin": isAdmin,
		"actor_id": actor.ID,
	})
	entry := newUserEntry(*user)
	return &entry, nil
}

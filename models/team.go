package models

// TeamRole is a member's role inside one team.
type TeamRole string

const (
	RoleAdmin    TeamRole = "ADMIN"
	RoleSubadmin TeamRole = "SUBADMIN"
	RoleUser     TeamRole = "USER"
)

func (r TeamRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSubadmin, RoleUser:
		return true
	}
	return false
}

// Privileged reports whether the role may manage events and bypass the
// registration deadline.
func (r TeamRole) Privileged() bool {
	return r == RoleAdmin || r == RoleSubadmin
}

// Team is an organizational unit members join; it scopes events and memberships.
type Team struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Relations
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Events  []TeamEvent  `gorm:"foreignKey:TeamID" json:"-"`
}

// TeamMember is the (user, team, role) relation. At most one row exists per
// (user, team) pair.
type TeamMember struct {
	Base
	UserID string   `gorm:"size:36;not null;uniqueIndex:idx_team_members_user_team" json:"user_id"`
	TeamID string   `gorm:"size:36;not null;uniqueIndex:idx_team_members_user_team;index" json:"team_id"`
	Role   TeamRole `gorm:"size:16;not null;default:'USER'" json:"role"`

	// Relations
	Team *Team `json:"team,omitempty"`
	User *User `json:"user,omitempty"`
}

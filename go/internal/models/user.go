package models

import (
	"time"
)

// User is a registered player as returned by the users API
type User struct {
	ID                int        `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone,omitempty"`
	Avatar            *string    `json:"avatar,omitempty"`
	IsApproved        bool       `json:"is_approved"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	IsStaff           bool       `json:"is_staff"`
	IsParticipating   bool       `json:"is_participating"`
	TotalTagsGiven    int        `json:"total_tags_given"`
	TotalTagsReceived int        `json:"total_tags_received"`
	TotalPoints       int        `json:"total_points"`
	TotalTimeHeld     Duration   `json:"total_time_held"`
	CreatedAt         time.Time  `json:"created_at"`
}

// DisplayName prefers the full name and falls back to the username
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Credentials is the login request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up request body
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone,omitempty"`
}

// ProfileUpdate carries the editable profile fields
type ProfileUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PasswordChange is the change_password request body
type PasswordChange struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// TokenPair is issued by the token endpoint
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleBase  = "base"
)

// User models a learner or administrator account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name"`
	Surname       string    `json:"surname"`
	Phone         string    `json:"phone,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	Stack         string    `json:"stack,omitempty"`
	Track         string    `json:"track,omitempty"`
	Proficiency   string    `json:"proficiency,omitempty"`
	Stage         int       `json:"stage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Role reports the access role derived from IsAdmin.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleBase
}

// Audience returns the classification used to filter content for u.
func (u *User) Audience() Audience {
	return Audience{
		Stack:       u.Stack,
		Track:       u.Track,
		Proficiency: u.Proficiency,
		Stage:       u.Stage,
	}
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Username      *string
	FirstName     *string
	Surname       *string
	Phone         *string
	Gender        *string
	Stack         *string
	Track         *string
	Proficiency   *string
	Stage         *int
	PasswordHash  *string
	EmailVerified *bool
	IsAdmin       *bool
}

// IsEmpty reports whether the update carries no changes.
func (u UserUpdate) IsEmpty() bool {
	return u == UserUpdate{}
}

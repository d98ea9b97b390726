package ports

import (
	"context"
	"time"

	"github.com/kodecamp/lms/internal/core/domain"
)

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	FirstName   string
	Surname     string
	Email       string
	Password    string
	Username    string
	Phone       string
	Gender      string
	Stack       string
	Track       string
	Proficiency string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// ProfileInput is a partial profile update. Nil fields are left untouched.
// NewPassword requires OldPassword.
type ProfileInput struct {
	FirstName   *string
	Surname     *string
	Username    *string
	Phone       *string
	Gender      *string
	Stack       *string
	Track       *string
	Proficiency *string
	OldPassword string
	NewPassword string
}

// AuthService covers the credential lifecycle:
// register → verify email → login, plus password recovery.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	VerifyEmail(ctx context.Context, code string) (*domain.User, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirmPassword string) error
	UpdateProfile(ctx context.Context, user *domain.User, in ProfileInput) (*domain.User, error)
	SetPermission(ctx context.Context, actor *domain.User, email string) (*domain.User, error)
	// Authenticate resolves a session token to its user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

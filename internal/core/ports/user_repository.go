package ports

import (
	"context"

	"github.com/kodecamp/lms/internal/core/domain"
)

// UserRepository persists users. Emails are stored lower-cased and are
// unique at the store level; Create and Update report a violation as
// domain.ErrDuplicateEmail or domain.ErrUsernameTaken.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Update applies the non-nil fields of upd and returns the stored user.
	Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)
}

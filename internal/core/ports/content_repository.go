package ports

import (
	"context"

	"github.com/kodecamp/lms/internal/core/domain"
)

// ContentFilter selects content of one kind. A nil Audience returns every
// item; otherwise only items visible to that audience are returned.
type ContentFilter struct {
	Kind     domain.ContentKind
	Audience *domain.Audience
	Page     int // 1-based
	Limit    int
}

// ContentRepository persists dashboard content and task submissions.
type ContentRepository interface {
	Create(ctx context.Context, c *domain.Content) (*domain.Content, error)
	FindByID(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error)
	// List returns a page of items, newest first, and the total match count.
	List(ctx context.Context, filter ContentFilter) ([]*domain.Content, int64, error)
	CreateSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
}

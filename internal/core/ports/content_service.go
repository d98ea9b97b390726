package ports

import (
	"context"

	"github.com/kodecamp/lms/internal/core/domain"
)

// CreateContentInput carries the fields of any content kind.
type CreateContentInput struct {
	Kind         domain.ContentKind
	Title        string
	Body         string
	Stack        string
	Track        string
	Proficiency  string
	Stage        *int
	General      bool
	MediaURL     string
	Filesize     string
	DeadlineDays int
}

// ListContentInput carries pagination for the list endpoints.
type ListContentInput struct {
	Kind  domain.ContentKind
	Page  int
	Limit int
}

// ListContentResult is one page of content.
type ListContentResult struct {
	Items      []*domain.Content
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ContentService exposes the dashboard content use cases.
type ContentService interface {
	Create(ctx context.Context, actor *domain.User, in CreateContentInput) (*domain.Content, error)
	List(ctx context.Context, viewer *domain.User, in ListContentInput) (*ListContentResult, error)
	Get(ctx context.Context, viewer *domain.User, kind domain.ContentKind, id string) (*domain.Content, error)
	SubmitTask(ctx context.Context, user *domain.User, taskID, url string) (*domain.Submission, error)
}

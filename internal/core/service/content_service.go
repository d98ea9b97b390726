package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ContentService implements ports.ContentService.
type ContentService struct {
	repo ports.ContentRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewContentService(repo ports.ContentRepository, log zerolog.Logger) *ContentService {
	return &ContentService{repo: repo, log: log, now: time.Now}
}

// Create stores a new content item. Only admins may create content.
func (s *ContentService) Create(ctx context.Context, actor *domain.User, in ports.CreateContentInput) (*domain.Content, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, domain.ErrAdminRequired
	}
	if !in.Kind.Valid() {
		return nil, domain.NewValidationError("unknown content kind")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}

	stack := domain.Normalize(in.Stack)
	track := domain.Normalize(in.Track)
	proficiency := domain.Normalize(in.Proficiency)
	if err := domain.ValidateClassification(stack, track, proficiency); err != nil {
		return nil, err
	}
	if in.Stage != nil && *in.Stage < 0 {
		return nil, domain.NewValidationError("stage must not be negative")
	}

	general := in.Kind == domain.KindAnnouncement && in.General
	if stack == "" && !general {
		return nil, domain.NewValidationError("stack field is required")
	}

	now := s.now().UTC()
	c := &domain.Content{
		Kind:        in.Kind,
		Title:       title,
		Body:        strings.TrimSpace(in.Body),
		Stack:       stack,
		Track:       track,
		Proficiency: proficiency,
		Stage:       in.Stage,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		General:     general,
	}

	switch in.Kind {
	case domain.KindLesson, domain.KindResource:
		c.MediaURL = strings.TrimSpace(in.MediaURL)
		c.Filesize = strings.TrimSpace(in.Filesize)
	case domain.KindPromotionTask:
		if in.DeadlineDays <= 0 {
			return nil, domain.NewValidationError("deadline must be at least 1 day")
		}
		deadline := now.AddDate(0, 0, in.DeadlineDays)
		c.Active = true
		c.Deadline = &deadline
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, storeError("create content", err)
	}

	s.log.Info().
		Str("kind", string(created.Kind)).
		Str("content_id", created.ID).
		Str("creator_id", actor.ID).
		Msg("content created")
	return created, nil
}

// List returns a page of content visible to viewer. Admins see everything.
func (s *ContentService) List(ctx context.Context, viewer *domain.User, in ports.ListContentInput) (*ports.ListContentResult, error) {
	if !in.Kind.Valid() {
		return nil, domain.NewValidationError("unknown content kind")
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	filter := ports.ContentFilter{Kind: in.Kind, Page: page, Limit: limit}
	if !viewer.IsAdmin {
		a := viewer.Audience()
		filter.Audience = &a
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError("list content", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListContentResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns a single item. Items outside a non-admin viewer's audience
// are reported as not found.
func (s *ContentService) Get(ctx context.Context, viewer *domain.User, kind domain.ContentKind, id string) (*domain.Content, error) {
	c, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, storeError("find content", err)
	}
	if !viewer.IsAdmin && !c.Visible(viewer.Audience()) {
		return nil, domain.ErrContentNotFound
	}
	return c, nil
}

// SubmitTask records user's submission for an active promotion task.
func (s *ContentService) SubmitTask(ctx context.Context, user *domain.User, taskID, url string) (*domain.Submission, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domain.NewValidationError("url is required")
	}

	task, err := s.Get(ctx, user, domain.KindPromotionTask, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !task.Active {
		return nil, domain.ErrTaskInactive
	}
	if task.Deadline != nil && !now.Before(*task.Deadline) {
		return nil, domain.ErrTaskDeadlinePassed
	}

	sub, err := s.repo.CreateSubmission(ctx, &domain.Submission{
		TaskID:    task.ID,
		UserID:    user.ID,
		URL:       url,
		Submitted: true,
		CreatedAt: now,
	})
	if err != nil {
		return nil, storeError("create submission", err)
	}

	s.log.Info().Str("task_id", task.ID).Str("user_id", user.ID).Msg("task submitted")
	return sub, nil
}

var _ ports.ContentService = (*ContentService)(nil)

package domain

import "time"

// ContentKind identifies one of the dashboard content collections.
type ContentKind string

const (
	KindAnnouncement  ContentKind = "announcement"
	KindLesson        ContentKind = "lesson"
	KindPromotionTask ContentKind = "promotion_task"
	KindResource      ContentKind = "resource"
)

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	switch k {
	case KindAnnouncement, KindLesson, KindPromotionTask, KindResource:
		return true
	}
	return false
}

// Content is an announcement, lesson, promotion task or resource. Fields
// that only apply to one kind are left zero for the others.
type Content struct {
	ID          string      `json:"id"`
	Kind        ContentKind `json:"kind"`
	Title       string      `json:"title"`
	Body        string      `json:"content"`
	Stack       string      `json:"stack,omitempty"`
	Track       string      `json:"track,omitempty"`
	Proficiency string      `json:"proficiency,omitempty"`
	Stage       *int        `json:"stage,omitempty"`
	CreatorID   string      `json:"creator_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// announcements
	General bool `json:"general,omitempty"`

	// resources and lessons
	MediaURL string `json:"media_url,omitempty"`
	Filesize string `json:"filesize,omitempty"`

	// promotion tasks
	Active   bool       `json:"active,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Feedback string     `json:"feedback,omitempty"`
}

// Visible reports whether c targets the audience a. General announcements
// are visible to everyone; everything else must match every classification
// field the content sets.
func (c *Content) Visible(a Audience) bool {
	if c.Kind == KindAnnouncement && c.General {
		return true
	}
	if c.Stack != "" && c.Stack != a.Stack {
		return false
	}
	if c.Track != "" && c.Track != a.Track {
		return false
	}
	if c.Proficiency != "" && c.Proficiency != a.Proficiency {
		return false
	}
	if c.Stage != nil && *c.Stage != a.Stage {
		return false
	}
	return true
}

// Submission is a learner's answer to a promotion task.
type Submission struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Submitted bool      `json:"submitted"`
	Graded    bool      `json:"graded"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"`
}

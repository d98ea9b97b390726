package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
)

const (
	collectionContents    = "contents"
	collectionSubmissions = "submissions"
)

// ContentRepository implements ports.ContentRepository using MongoDB. All
// content kinds share one collection, discriminated by kind.
type ContentRepository struct {
	contents    *mongo.Collection
	submissions *mongo.Collection
}

func NewContentRepository(db *mongo.Database) *ContentRepository {
	return &ContentRepository{
		contents:    db.Collection(collectionContents),
		submissions: db.Collection(collectionSubmissions),
	}
}

type contentDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Kind        string             `bson:"kind"`
	Title       string             `bson:"title"`
	Body        string             `bson:"content"`
	Stack       string             `bson:"stack,omitempty"`
	Track       string             `bson:"track,omitempty"`
	Proficiency string             `bson:"proficiency,omitempty"`
	Stage       *int               `bson:"stage,omitempty"`
	CreatorID   string             `bson:"creator_id"`
	General     bool               `bson:"general"`
	MediaURL    string             `bson:"media_url,omitempty"`
	Filesize    string             `bson:"filesize,omitempty"`
	Active      bool               `bson:"active"`
	Deadline    *time.Time         `bson:"deadline,omitempty"`
	Feedback    string             `bson:"feedback,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *contentDocument) toDomain() *domain.Content {
	return &domain.Content{
		ID:          d.ID.Hex(),
		Kind:        domain.ContentKind(d.Kind),
		Title:       d.Title,
		Body:        d.Body,
		Stack:       d.Stack,
		Track:       d.Track,
		Proficiency: d.Proficiency,
		Stage:       d.Stage,
		CreatorID:   d.CreatorID,
		General:     d.General,
		MediaURL:    d.MediaURL,
		Filesize:    d.Filesize,
		Active:      d.Active,
		Deadline:    d.Deadline,
		Feedback:    d.Feedback,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type submissionDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TaskID    string             `bson:"task_id"`
	UserID    string             `bson:"user_id"`
	URL       string             `bson:"url"`
	Submitted bool               `bson:"submitted"`
	Graded    bool               `bson:"graded"`
	Passed    bool               `bson:"passed"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (r *ContentRepository) Create(ctx context.Context, c *domain.Content) (*domain.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := contentDocument{
		Kind:        string(c.Kind),
		Title:       c.Title,
		Body:        c.Body,
		Stack:       c.Stack,
		Track:       c.Track,
		Proficiency: c.Proficiency,
		Stage:       c.Stage,
		CreatorID:   c.CreatorID,
		General:     c.General,
		MediaURL:    c.MediaURL,
		Filesize:    c.Filesize,
		Active:      c.Active,
		Deadline:    c.Deadline,
		Feedback:    c.Feedback,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}

	res, err := r.contents.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *ContentRepository) FindByID(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrContentNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc contentDocument
	err = r.contents.FindOne(ctx, bson.M{"_id": oid, "kind": string(kind)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContentNotFound
		}
		return nil, fmt.Errorf("find content: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns one page of content, newest first.
func (r *ContentRepository) List(ctx context.Context, f ports.ContentFilter) ([]*domain.Content, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := contentFilter(f)

	total, err := r.contents.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.contents.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find content: %w", err)
	}
	defer cur.Close(ctx)

	var docs []contentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode content: %w", err)
	}

	items := make([]*domain.Content, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toDomain())
	}
	return items, total, nil
}

// contentFilter mirrors domain.Content.Visible: a classification field the
// item leaves unset matches any audience.
func contentFilter(f ports.ContentFilter) bson.M {
	filter := bson.M{"kind": string(f.Kind)}
	if f.Audience == nil {
		return filter
	}

	a := f.Audience
	filter["$or"] = bson.A{
		bson.M{"general": true},
		bson.M{
			"stack":       bson.M{"$in": bson.A{a.Stack, nil}},
			"track":       bson.M{"$in": bson.A{a.Track, nil}},
			"proficiency": bson.M{"$in": bson.A{a.Proficiency, nil}},
			"stage":       bson.M{"$in": bson.A{a.Stage, nil}},
		},
	}
	return filter
}

func (r *ContentRepository) CreateSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := submissionDocument{
		TaskID:    s.TaskID,
		UserID:    s.UserID,
		URL:       s.URL,
		Submitted: s.Submitted,
		Graded:    s.Graded,
		Passed:    s.Passed,
		CreatedAt: s.CreatedAt.UTC(),
	}

	res, err := r.submissions.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	out := *s
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		out.ID = oid.Hex()
	}
	return &out, nil
}

// EnsureIndexes creates the indexes backing the list queries and the
// one-submission-per-task rule.
func (r *ContentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.contents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "stack", Value: 1}, {Key: "track", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("content indexes: %w", err)
	}

	_, err = r.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "task_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("submission indexes: %w", err)
	}
	return nil
}

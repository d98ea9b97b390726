package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kodecamp/lms/internal/core/domain"
)

const (
	collectionUsers = "users"

	indexUserEmail    = "email_unique"
	indexUserUsername = "username_unique"
)

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Email         string             `bson:"email"`
	Username      string             `bson:"username,omitempty"`
	FirstName     string             `bson:"first_name"`
	Surname       string             `bson:"surname"`
	Phone         string             `bson:"phone,omitempty"`
	Gender        string             `bson:"gender,omitempty"`
	PasswordHash  string             `bson:"hashed_password"`
	EmailVerified bool               `bson:"email_verified"`
	IsAdmin       bool               `bson:"is_admin"`
	Stack         string             `bson:"stack,omitempty"`
	Track         string             `bson:"track,omitempty"`
	Proficiency   string             `bson:"proficiency,omitempty"`
	Stage         int                `bson:"stage"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		Surname:       u.Surname,
		Phone:         u.Phone,
		Gender:        u.Gender,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		Stack:         u.Stack,
		Track:         u.Track,
		Proficiency:   u.Proficiency,
		Stage:         u.Stage,
		CreatedAt:     u.CreatedAt.UTC(),
		UpdatedAt:     u.UpdatedAt.UTC(),
	}
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Username:      d.Username,
		FirstName:     d.FirstName,
		Surname:       d.Surname,
		Phone:         d.Phone,
		Gender:        d.Gender,
		PasswordHash:  d.PasswordHash,
		EmailVerified: d.EmailVerified,
		IsAdmin:       d.IsAdmin,
		Stack:         d.Stack,
		Track:         d.Track,
		Proficiency:   d.Proficiency,
		Stage:         d.Stage,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Create inserts a new user. Uniqueness of email and username is enforced
// by the indexes created in EnsureIndexes.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toUserDocument(user)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, userDuplicateError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// Update applies upd atomically and returns the document after the update.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set, unset := userUpdateDocument(upd)
	set["updated_at"] = time.Now().UTC()
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc userDocument
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, userDuplicateError(err)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain(), nil
}

// userUpdateDocument splits upd into $set and $unset operands. Optional
// string fields set to "" are removed so the sparse username index keeps
// ignoring them.
func userUpdateDocument(upd domain.UserUpdate) (set, unset bson.M) {
	set, unset = bson.M{}, bson.M{}

	optional := map[string]*string{
		"username":    upd.Username,
		"phone":       upd.Phone,
		"gender":      upd.Gender,
		"stack":       upd.Stack,
		"track":       upd.Track,
		"proficiency": upd.Proficiency,
	}
	for field, v := range optional {
		switch {
		case v == nil:
		case *v == "":
			unset[field] = ""
		default:
			set[field] = *v
		}
	}

	if upd.FirstName != nil {
		set["first_name"] = *upd.FirstName
	}
	if upd.Surname != nil {
		set["surname"] = *upd.Surname
	}
	if upd.PasswordHash != nil {
		set["hashed_password"] = *upd.PasswordHash
	}
	if upd.Stage != nil {
		set["stage"] = *upd.Stage
	}
	if upd.EmailVerified != nil {
		set["email_verified"] = *upd.EmailVerified
	}
	if upd.IsAdmin != nil {
		set["is_admin"] = *upd.IsAdmin
	}
	return set, unset
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexUserEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUserUsername).SetUnique(true).SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func userDuplicateError(err error) error {
	if strings.Contains(err.Error(), indexUserUsername) {
		return domain.ErrUsernameTaken
	}
	return domain.ErrDuplicateEmail
}

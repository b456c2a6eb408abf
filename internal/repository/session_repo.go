package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
)

const sessionCollectionName = "user_sessions"

var sessionInvalidUpdateFields = []string{"_id", "userId", "userAgent"}

// SessionRepository persists per-(user, device) 2FA verification state.
type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionCollectionName)}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	if s.LastLogin.IsZero() {
		s.LastLogin = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

// FindByUserIDAndUserAgent returns (nil, nil) when no session exists for
// the pair.
func (r *SessionRepository) FindByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) (*model.Session, error) {
	var s model.Session
	err := r.coll.FindOne(ctx, bson.M{"userId": userID, "userAgent": userAgent}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update mutates the session for the pair, keeping userId and userAgent
// immutable, and returns the updated document.
func (r *SessionRepository) Update(ctx context.Context, userID primitive.ObjectID, userAgent string, updates bson.M) (*model.Session, error) {
	set := bson.M{}
	for k, v := range updates {
		set[k] = v
	}
	for _, field := range sessionInvalidUpdateFields {
		delete(set, field)
	}
	set["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s model.Session
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"userId": userID, "userAgent": userAgent}, bson.M{"$set": set}, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteByUserIDAndUserAgent removes the session for this device only.
// Deleting a missing session is not an error.
func (r *SessionRepository) DeleteByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID, "userAgent": userAgent})
	return err
}

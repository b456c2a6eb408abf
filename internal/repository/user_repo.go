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

const userCollectionName = "users"

// userInvalidUpdateFields are silently stripped from every update.
var userInvalidUpdateFields = []string{"_id", "email", "username", "createdAt"}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollectionName)}
}

// Create inserts a new user document and returns its generated id.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (primitive.ObjectID, error) {
	u.CreatedAt = time.Now()
	res, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

// FindOneByID returns (nil, nil) when no user matches.
func (r *UserRepository) FindOneByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOneByEmail returns (nil, nil) when no user matches.
func (r *UserRepository) FindOneByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies the given fields, drops immutable ones, stamps updatedAt
// and returns the document as stored after the update.
func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*model.User, error) {
	set := bson.M{}
	for k, v := range updates {
		set[k] = v
	}
	for _, field := range userInvalidUpdateFields {
		delete(set, field)
	}
	set["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u model.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

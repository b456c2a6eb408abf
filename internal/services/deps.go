package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
)

// UserRepository is the credential store. Lookups return (nil, nil) when no
// document matches, so callers can tell "absent" from "store failure".
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (primitive.ObjectID, error)
	FindOneByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindOneByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*model.User, error)
}

// SessionRepository is the per-(user, device) step-up session registry.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) (*model.Session, error)
	Update(ctx context.Context, userID primitive.ObjectID, userAgent string, updates bson.M) (*model.Session, error)
	DeleteByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) error
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Uploader stores image bytes and returns the served URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, folder string) (string, error)
}

// OTPAuthenticator is the TOTP primitive: secret generation, QR rendering
// and time-windowed code validation.
type OTPAuthenticator interface {
	GenerateSecret(accountName string) (string, error)
	QRCodePNG(accountName, secret string) (string, error)
	Validate(code, secret string) bool
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session records the 2FA verification state of one (user, device) pair.
// The device key is the client-declared User-Agent string, so two physical
// devices sharing an agent string share one session, and an agent-string
// change (browser update) drops the verified state.
type Session struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        primitive.ObjectID `bson:"userId"`
	UserAgent     string             `bson:"userAgent"`
	Is2FAVerified bool               `bson:"is_2fa_verified"`
	LastLogin     time.Time          `bson:"last_login"`
	UpdatedAt     *time.Time         `bson:"updatedAt"`
}

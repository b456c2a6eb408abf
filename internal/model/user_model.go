package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User is the persisted account document. Password, verify token and the
// 2FA secret never leave the service layer; see PublicUser.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Password     string             `bson:"password"` // bcrypt hash
	Username     string             `bson:"username"`
	DisplayName  string             `bson:"displayName"`
	Avatar       *string            `bson:"avatar"`
	Role         string             `bson:"role"`
	IsActive     bool               `bson:"isActive"`
	VerifyToken  *string            `bson:"verifyToken"`
	Require2FA   bool               `bson:"require_2fa"`
	TwoFASecret  *string            `bson:"secretKey_2fa"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    *time.Time         `bson:"updatedAt"`
	Destroy      bool               `bson:"_destroy"`
}

// PublicUser is the redacted view returned to clients.
type PublicUser struct {
	ID          string     `json:"_id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Avatar      *string    `json:"avatar"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	Require2FA  bool       `json:"require_2fa"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Public strips credentials and secrets from a stored user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:          u.ID.Hex(),
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Role:        u.Role,
		IsActive:    u.IsActive,
		Require2FA:  u.Require2FA,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// UsernameFromEmail derives the default username/display name from the
// email's local part.
func UsernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
)

// --- in-memory repositories mimicking the mongo-backed ones ---

type fakeUserRepo struct {
	users map[string]*model.User // keyed by hex id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	stored := *u
	stored.ID = id
	stored.CreatedAt = time.Now()
	r.users[id.Hex()] = &stored
	return id, nil
}

func (r *fakeUserRepo) FindOneByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	u, ok := r.users[id.Hex()]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindOneByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*model.User, error) {
	u, ok := r.users[id.Hex()]
	if !ok {
		return nil, nil
	}
	for k, v := range updates {
		switch k {
		case "isActive":
			u.IsActive = v.(bool)
		case "verifyToken":
			if v == nil {
				u.VerifyToken = nil
			} else {
				tok := v.(string)
				u.VerifyToken = &tok
			}
		case "password":
			u.Password = v.(string)
		case "displayName":
			u.DisplayName = v.(string)
		case "avatar":
			av := v.(string)
			u.Avatar = &av
		case "require_2fa":
			u.Require2FA = v.(bool)
		case "secretKey_2fa":
			sec := v.(string)
			u.TwoFASecret = &sec
		case "_id", "email", "username", "createdAt":
			// immutable, dropped like the real repository does
		}
	}
	now := time.Now()
	u.UpdatedAt = &now
	copied := *u
	return &copied, nil
}

type fakeSessionRepo struct {
	sessions map[string]*model.Session // keyed by userHex + "|" + userAgent
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*model.Session{}}
}

func sessionKey(userID primitive.ObjectID, userAgent string) string {
	return userID.Hex() + "|" + userAgent
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *model.Session) error {
	stored := *s
	stored.ID = primitive.NewObjectID()
	if stored.LastLogin.IsZero() {
		stored.LastLogin = time.Now()
	}
	r.sessions[sessionKey(s.UserID, s.UserAgent)] = &stored
	return nil
}

func (r *fakeSessionRepo) FindByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) (*model.Session, error) {
	s, ok := r.sessions[sessionKey(userID, userAgent)]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, userID primitive.ObjectID, userAgent string, updates bson.M) (*model.Session, error) {
	s, ok := r.sessions[sessionKey(userID, userAgent)]
	if !ok {
		return nil, nil
	}
	for k, v := range updates {
		switch k {
		case "is_2fa_verified":
			s.Is2FAVerified = v.(bool)
		case "last_login":
			s.LastLogin = v.(time.Time)
		}
	}
	now := time.Now()
	s.UpdatedAt = &now
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) DeleteByUserIDAndUserAgent(ctx context.Context, userID primitive.ObjectID, userAgent string) error {
	delete(r.sessions, sessionKey(userID, userAgent))
	return nil
}

// --- collaborators ---

type sentEmail struct {
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	sent []sentEmail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

type fakeUploader struct {
	uploads int
	url     string
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads++
	return u.url, nil
}

type rejectingValidator struct{ reason string }

func (v *rejectingValidator) Validate(ctx context.Context, email string) error {
	return errors.New(v.reason)
}

// fakeOTP accepts one known-good code against whatever secret is stored.
type fakeOTP struct {
	secret    string
	validCode string
	genErr    error
}

func (o *fakeOTP) GenerateSecret(accountName string) (string, error) {
	if o.genErr != nil {
		return "", o.genErr
	}
	return o.secret, nil
}

func (o *fakeOTP) QRCodePNG(accountName, secret string) (string, error) {
	return "data:image/png;base64,FAKEQR-" + secret, nil
}

func (o *fakeOTP) Validate(code, secret string) bool {
	return code == o.validCode
}

// --- helpers ---

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return string(hash)
}

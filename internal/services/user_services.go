package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/apperr"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/validation"
)

const (
	bcryptCost   = 10
	avatarFolder = "trelloUsers"
)

// UserService handles the account lifecycle: registration, email
// verification and profile updates.
type UserService struct {
	users          UserRepository
	emailValidator EmailValidator
	mailer         Mailer
	uploader       Uploader
	webDomain      string
	logger         *zap.Logger
}

func NewUserService(users UserRepository, ev EmailValidator, mailer Mailer, uploader Uploader, webDomain string, logger *zap.Logger) *UserService {
	return &UserService{
		users:          users,
		emailValidator: ev,
		mailer:         mailer,
		uploader:       uploader,
		webDomain:      webDomain,
		logger:         logger,
	}
}

// Register creates an inactive account and dispatches the verification
// email. Delivery failures are logged, never surfaced: registration must
// not fail solely because notification did.
func (s *UserService) Register(ctx context.Context, email, password string) (*model.PublicUser, error) {
	existed, err := s.users.FindOneByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not check existing email")
	}
	if existed != nil {
		return nil, apperr.New(apperr.KindConflict, "Email already exists!")
	}

	if err := s.emailValidator.Validate(ctx, email); err != nil {
		return nil, apperr.New(apperr.KindBadRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(err, "could not hash password")
	}

	username := model.UsernameFromEmail(email)
	verifyToken := uuid.NewString()
	newUser := &model.User{
		Email:       email,
		Password:    string(hash),
		Username:    username,
		DisplayName: username,
		Role:        model.RoleClient,
		IsActive:    false,
		VerifyToken: &verifyToken,
	}

	id, err := s.users.Create(ctx, newUser)
	if err != nil {
		return nil, apperr.Wrap(err, "could not create user")
	}

	user, err := s.users.FindOneByID(ctx, id)
	if err != nil || user == nil {
		return nil, apperr.Wrap(err, "could not load created user")
	}

	verificationLink := fmt.Sprintf("%s/account/verification?email=%s&token=%s", s.webDomain, user.Email, verifyToken)
	subject := "Trello Web: Please verify your email address to activate your account!"
	htmlContent := fmt.Sprintf(`
		<h2>Welcome to Trello Web!</h2>
		<h4>Please click the link below to verify your email address:</h4>
		<h4>%s</h4>
		<h4>If you did not create an account using this email address, please ignore this email.</h4>
	`, verificationLink)

	if err := s.mailer.Send(ctx, user.Email, subject, htmlContent); err != nil {
		s.logger.Error("failed to send verification email",
			zap.String("email", user.Email),
			zap.Error(err))
	}

	return user.Public(), nil
}

// VerifyAccount consumes the single-use verification token and activates
// the account.
func (s *UserService) VerifyAccount(ctx context.Context, email, token string) (*model.PublicUser, error) {
	user, err := s.users.FindOneByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not look up user")
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "User not found!")
	}
	if user.IsActive {
		return nil, apperr.New(apperr.KindBadRequest, "Account has already activated!")
	}
	if user.VerifyToken == nil || *user.VerifyToken != token {
		return nil, apperr.New(apperr.KindAuthentication, "Invalid token!")
	}

	updated, err := s.users.Update(ctx, user.ID, bson.M{
		"isActive":    true,
		"verifyToken": nil,
	})
	if err != nil || updated == nil {
		return nil, apperr.Wrap(err, "could not activate account")
	}
	return updated.Public(), nil
}

// UpdateProfile applies one of three mutually exclusive update modes, in
// priority order: password change, avatar upload, generic field update.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *validation.UpdateUserRequest, avatar []byte) (*model.PublicUser, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "User not found!")
	}

	user, err := s.users.FindOneByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not look up user")
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "User not found!")
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.KindAuthentication, "Your account is not activated!")
	}

	switch {
	case req.CurrentPassword != "" && req.NewPassword != "":
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
			return nil, apperr.New(apperr.KindNotAcceptable, "Current password is incorrect!")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			return nil, apperr.Wrap(err, "could not hash password")
		}
		return s.update(ctx, id, bson.M{"password": string(hash)})

	case len(avatar) > 0:
		url, err := s.uploader.Upload(ctx, avatar, avatarFolder)
		if err != nil {
			return nil, apperr.Wrap(err, "could not upload avatar")
		}
		return s.update(ctx, id, bson.M{"avatar": url})

	default:
		updates := bson.M{}
		if req.DisplayName != "" {
			updates["displayName"] = req.DisplayName
		}
		return s.update(ctx, id, updates)
	}
}

func (s *UserService) update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*model.PublicUser, error) {
	updated, err := s.users.Update(ctx, id, updates)
	if err != nil || updated == nil {
		return nil, apperr.Wrap(err, "could not update user")
	}
	return updated.Public(), nil
}

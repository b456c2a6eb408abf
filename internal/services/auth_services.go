package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/apperr"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/token"
)

// AuthService orchestrates login, logout, token refresh and the per-device
// two-factor (step-up) flow.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	access   *token.Issuer
	refresh  *token.Issuer
	otp      OTPAuthenticator
	logger   *zap.Logger
}

func NewAuthService(users UserRepository, sessions SessionRepository, access, refresh *token.Issuer, otp OTPAuthenticator, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		access:   access,
		refresh:  refresh,
		otp:      otp,
		logger:   logger,
	}
}

// TokenPair bundles a fresh access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is the login response: tokens, the redacted user and, when a
// step-up session exists for this device, its verification state.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	*model.PublicUser
	Is2FAVerified *bool      `json:"is_2fa_verified,omitempty"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// TwoFAResult pairs the redacted user with the device session state after a
// step-up operation.
type TwoFAResult struct {
	*model.PublicUser
	Is2FAVerified bool      `json:"is_2fa_verified"`
	LastLogin     time.Time `json:"last_login"`
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password produce the identical error, so account existence never
// leaks. For accounts requiring 2FA a device session is created lazily on
// first login.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (*LoginResult, error) {
	user, err := s.users.FindOneByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not look up user")
	}
	if user == nil {
		return nil, apperr.New(apperr.KindAuthentication, "Email or password is incorrect!")
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.KindAccountInactive, "Your account is not activated!")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindAuthentication, "Email or password is incorrect!")
	}

	session, err := s.sessions.FindByUserIDAndUserAgent(ctx, user.ID, userAgent)
	if err != nil {
		return nil, apperr.Wrap(err, "could not look up session")
	}
	if session == nil && user.Require2FA {
		session = &model.Session{
			UserID:        user.ID,
			UserAgent:     userAgent,
			Is2FAVerified: false,
			LastLogin:     time.Now(),
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, apperr.Wrap(err, "could not create session")
		}
		s.logger.Info("created 2fa session on login",
			zap.String("userId", user.ID.Hex()),
			zap.String("userAgent", userAgent))
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		PublicUser:   user.Public(),
	}
	if session != nil {
		result.Is2FAVerified = &session.Is2FAVerified
		result.LastLogin = &session.LastLogin
	}
	return result, nil
}

// RefreshToken rotates the token pair. Any verification failure maps to the
// distinct re-authenticate error so the client forces a full login instead
// of retrying.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return nil, apperr.New(apperr.KindTokenInvalid, "Please sign in!")
	}

	accessToken, err := s.access.Generate(claims.UserID, claims.Email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not create access token")
	}
	newRefreshToken, err := s.refresh.Generate(claims.UserID, claims.Email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not create refresh token")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout deletes this device's session only; other devices keep theirs.
// Logging out with no session is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, userAgent string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "User not found!")
	}
	if err := s.sessions.DeleteByUserIDAndUserAgent(ctx, id, userAgent); err != nil {
		return apperr.Wrap(err, "could not delete session")
	}
	return nil
}

// Get2FAQRCode returns the provisioning QR for the account's TOTP secret,
// generating and persisting the secret on first call. The secret is stable
// for the life of the account; later calls reuse it.
func (s *AuthService) Get2FAQRCode(ctx context.Context, userID string) (string, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	var secret string
	if user.TwoFASecret != nil && *user.TwoFASecret != "" {
		secret = *user.TwoFASecret
	} else {
		secret, err = s.otp.GenerateSecret(user.Email)
		if err != nil {
			return "", apperr.Wrap(err, "could not generate 2fa secret")
		}
		if _, err := s.users.Update(ctx, user.ID, bson.M{"secretKey_2fa": secret}); err != nil {
			return "", apperr.Wrap(err, "could not store 2fa secret")
		}
	}

	qr, err := s.otp.QRCodePNG(user.Email, secret)
	if err != nil {
		return "", apperr.Wrap(err, "could not render qr code")
	}
	return qr, nil
}

// Enable2FA turns the step-up requirement on after the user proves
// possession of the secret, and marks this device's session verified
// (creating it if needed).
func (s *AuthService) Enable2FA(ctx context.Context, userID, otpCode, userAgent string) (*TwoFAResult, error) {
	user, err := s.checkOTP(ctx, userID, otpCode)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.Update(ctx, user.ID, bson.M{"require_2fa": true})
	if err != nil || updated == nil {
		return nil, apperr.Wrap(err, "could not enable 2fa")
	}

	now := time.Now()
	session, err := s.sessions.FindByUserIDAndUserAgent(ctx, user.ID, userAgent)
	if err != nil {
		return nil, apperr.Wrap(err, "could not look up session")
	}
	if session == nil {
		session = &model.Session{
			UserID:        user.ID,
			UserAgent:     userAgent,
			Is2FAVerified: true,
			LastLogin:     now,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, apperr.Wrap(err, "could not create session")
		}
	} else {
		session, err = s.sessions.Update(ctx, user.ID, userAgent, bson.M{
			"is_2fa_verified": true,
			"last_login":      now,
		})
		if err != nil || session == nil {
			return nil, apperr.Wrap(err, "could not update session")
		}
	}

	return &TwoFAResult{
		PublicUser:    updated.Public(),
		Is2FAVerified: session.Is2FAVerified,
		LastLogin:     session.LastLogin,
	}, nil
}

// Verify2FA marks the existing device session verified. It never creates a
// session: login is expected to have created one already.
func (s *AuthService) Verify2FA(ctx context.Context, userID, otpCode, userAgent string) (*TwoFAResult, error) {
	user, err := s.checkOTP(ctx, userID, otpCode)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, user.ID, userAgent, bson.M{"is_2fa_verified": true})
	if err != nil {
		return nil, apperr.Wrap(err, "could not update session")
	}
	if session == nil {
		return nil, apperr.New(apperr.KindNotFound, "Session not found!")
	}

	return &TwoFAResult{
		PublicUser:    user.Public(),
		Is2FAVerified: session.Is2FAVerified,
		LastLogin:     session.LastLogin,
	}, nil
}

// Disable2FA clears the step-up requirement account-wide and deletes this
// device's session only. Sessions on other devices are left behind; they
// stop mattering once require_2fa is false.
func (s *AuthService) Disable2FA(ctx context.Context, userID, otpCode, userAgent string) (*model.PublicUser, error) {
	user, err := s.checkOTP(ctx, userID, otpCode)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteByUserIDAndUserAgent(ctx, user.ID, userAgent); err != nil {
		return nil, apperr.Wrap(err, "could not delete session")
	}

	updated, err := s.users.Update(ctx, user.ID, bson.M{"require_2fa": false})
	if err != nil || updated == nil {
		return nil, apperr.Wrap(err, "could not disable 2fa")
	}
	return updated.Public(), nil
}

func (s *AuthService) generateTokenPair(user *model.User) (*TokenPair, error) {
	accessToken, err := s.access.Generate(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not create access token")
	}
	refreshToken, err := s.refresh.Generate(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not create refresh token")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*model.User, error) {
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
	return user, nil
}

// checkOTP loads the user and validates the one-time code against the
// stored secret. Shared precondition of enable/verify/disable.
func (s *AuthService) checkOTP(ctx context.Context, userID, otpCode string) (*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFASecret == nil || *user.TwoFASecret == "" {
		return nil, apperr.New(apperr.KindBadRequest, "Two-factor authentication has not been set up!")
	}
	if !s.otp.Validate(otpCode, *user.TwoFASecret) {
		return nil, apperr.New(apperr.KindBadRequest, "Invalid OTP token!")
	}
	return user, nil
}

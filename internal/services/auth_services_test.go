package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/apperr"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/model"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/token"
)

const (
	deviceA = "Mozilla/5.0 (Macintosh) Chrome/126"
	deviceB = "Mozilla/5.0 (Windows) Firefox/127"

	goodOTP = "123456"
	badOTP  = "000000"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	otp      *fakeOTP
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	otp := &fakeOTP{secret: "JBSWY3DPEHPK3PXP", validCode: goodOTP}
	svc := NewAuthService(
		users,
		sessions,
		token.NewIssuer("access-secret", time.Hour),
		token.NewIssuer("refresh-secret", 7*24*time.Hour),
		otp,
		zap.NewNop(),
	)
	return &authFixture{svc: svc, users: users, sessions: sessions, otp: otp}
}

func (f *authFixture) createUser(t *testing.T, email, password string, mutate ...func(*model.User)) primitive.ObjectID {
	t.Helper()
	u := &model.User{
		Email:    email,
		Password: mustHash(t, password),
		Username: model.UsernameFromEmail(email),
		Role:     model.RoleClient,
		IsActive: true,
	}
	for _, m := range mutate {
		m(u)
	}
	id, err := f.users.Create(context.Background(), u)
	require.NoError(t, err)
	return id
}

func withSecret(secret string) func(*model.User) {
	return func(u *model.User) { u.TwoFASecret = &secret }
}

func with2FARequired() func(*model.User) {
	return func(u *model.User) { u.Require2FA = true }
}

func inactive() func(*model.User) {
	return func(u *model.User) { u.IsActive = false }
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "john@example.com", "secret1")

	result, err := f.svc.Login(context.Background(), "john@example.com", "secret1", deviceA)
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "john@example.com", result.Email)
	assert.Nil(t, result.Is2FAVerified)
	assert.Nil(t, result.LastLogin)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIdentical(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "john@example.com", "secret1")

	_, errUnknown := f.svc.Login(context.Background(), "ghost@example.com", "secret1", deviceA)
	_, errWrongPw := f.svc.Login(context.Background(), "john@example.com", "wrong-pw", deviceA)

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(errUnknown))
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(errWrongPw))
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestLogin_InactiveAccount(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "john@example.com", "secret1", inactive())

	_, err := f.svc.Login(context.Background(), "john@example.com", "secret1", deviceA)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAccountInactive, apperr.KindOf(err))
}

func TestLogin_No2FA_NeverCreatesSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "john@example.com", "secret1")

	_, err := f.svc.Login(context.Background(), "john@example.com", "secret1", deviceA)
	require.NoError(t, err)
	assert.Empty(t, f.sessions.sessions)
}

func TestLogin_2FA_CreatesUnverifiedSessionLazily(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired(), withSecret("JBSWY3DPEHPK3PXP"))

	result, err := f.svc.Login(context.Background(), "john@example.com", "secret1", deviceA)
	require.NoError(t, err)

	require.Len(t, f.sessions.sessions, 1)
	sess, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	require.NotNil(t, sess)
	assert.False(t, sess.Is2FAVerified)

	require.NotNil(t, result.Is2FAVerified)
	assert.False(t, *result.Is2FAVerified)
	require.NotNil(t, result.LastLogin)

	// a second login on the same device does not create another session
	_, err = f.svc.Login(context.Background(), "john@example.com", "secret1", deviceA)
	require.NoError(t, err)
	assert.Len(t, f.sessions.sessions, 1)
}

func TestRefreshToken_Rotates(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1")

	refresh := token.NewIssuer("refresh-secret", 7*24*time.Hour)
	old, err := refresh.Generate(id.Hex(), "john@example.com")
	require.NoError(t, err)

	pair, err := f.svc.RefreshToken(context.Background(), old)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := refresh.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), claims.UserID)
}

func TestRefreshToken_ExpiredYieldsReauthenticateError(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1")

	expired, err := token.NewIssuer("refresh-secret", -time.Second).Generate(id.Hex(), "john@example.com")
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(context.Background(), expired)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTokenInvalid, apperr.KindOf(err))
	assert.NotEqual(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestRefreshToken_GarbageYieldsReauthenticateError(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	_, err := f.svc.RefreshToken(context.Background(), "not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, apperr.KindTokenInvalid, apperr.KindOf(err))
}

func TestLogout_DeletesOnlyThisDevice(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired())

	for _, device := range []string{deviceA, deviceB} {
		require.NoError(t, f.sessions.Create(context.Background(), &model.Session{
			UserID: id, UserAgent: device,
		}))
	}

	require.NoError(t, f.svc.Logout(context.Background(), id.Hex(), deviceA))

	gone, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	kept, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceB)
	assert.Nil(t, gone)
	assert.NotNil(t, kept)

	// logging out again is idempotent
	assert.NoError(t, f.svc.Logout(context.Background(), id.Hex(), deviceA))
}

func TestGet2FAQRCode_GeneratesSecretOnce(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1")

	qr1, err := f.svc.Get2FAQRCode(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Contains(t, qr1, "data:image/png;base64,")

	stored, _ := f.users.FindOneByID(context.Background(), id)
	require.NotNil(t, stored.TwoFASecret)
	first := *stored.TwoFASecret

	// second call reuses the persisted secret even if the primitive would
	// hand out a different one
	f.otp.secret = "DIFFERENTSECRET"
	qr2, err := f.svc.Get2FAQRCode(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Equal(t, qr1, qr2)

	stored, _ = f.users.FindOneByID(context.Background(), id)
	assert.Equal(t, first, *stored.TwoFASecret)
}

func TestGet2FAQRCode_UnknownUser(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	_, err := f.svc.Get2FAQRCode(context.Background(), primitive.NewObjectID().Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestEnable2FA_RequiresSecret(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1") // no secret issued

	_, err := f.svc.Enable2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestEnable2FA_InvalidCode(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", withSecret("JBSWY3DPEHPK3PXP"))

	_, err := f.svc.Enable2FA(context.Background(), id.Hex(), badOTP, deviceA)
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	stored, _ := f.users.FindOneByID(context.Background(), id)
	assert.False(t, stored.Require2FA)
	assert.Empty(t, f.sessions.sessions)
}

func TestEnable2FA_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", withSecret("JBSWY3DPEHPK3PXP"))

	result, err := f.svc.Enable2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.NoError(t, err)

	assert.True(t, result.Require2FA)
	assert.True(t, result.Is2FAVerified)

	stored, _ := f.users.FindOneByID(context.Background(), id)
	assert.True(t, stored.Require2FA)

	sess, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	require.NotNil(t, sess)
	assert.True(t, sess.Is2FAVerified)

	// no session materializes for another device
	other, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceB)
	assert.Nil(t, other)
}

func TestEnable2FA_ReplacesExistingSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", withSecret("JBSWY3DPEHPK3PXP"))

	require.NoError(t, f.sessions.Create(context.Background(), &model.Session{
		UserID: id, UserAgent: deviceA, Is2FAVerified: false,
	}))

	_, err := f.svc.Enable2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.NoError(t, err)

	require.Len(t, f.sessions.sessions, 1)
	sess, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	assert.True(t, sess.Is2FAVerified)
}

func TestVerify2FA_MarksSessionVerified(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired(), withSecret("JBSWY3DPEHPK3PXP"))

	// login created the unverified session
	require.NoError(t, f.sessions.Create(context.Background(), &model.Session{
		UserID: id, UserAgent: deviceA, Is2FAVerified: false,
	}))

	result, err := f.svc.Verify2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.NoError(t, err)
	assert.True(t, result.Is2FAVerified)

	sess, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	assert.True(t, sess.Is2FAVerified)
}

func TestVerify2FA_NoSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired(), withSecret("JBSWY3DPEHPK3PXP"))

	_, err := f.svc.Verify2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.sessions.sessions)
}

func TestDisable2FA_InvalidCodeLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired(), withSecret("JBSWY3DPEHPK3PXP"))

	require.NoError(t, f.sessions.Create(context.Background(), &model.Session{
		UserID: id, UserAgent: deviceA, Is2FAVerified: true,
	}))

	_, err := f.svc.Disable2FA(context.Background(), id.Hex(), badOTP, deviceA)
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	stored, _ := f.users.FindOneByID(context.Background(), id)
	assert.True(t, stored.Require2FA)
	sess, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	require.NotNil(t, sess)
	assert.True(t, sess.Is2FAVerified)
}

func TestDisable2FA_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	id := f.createUser(t, "john@example.com", "secret1", with2FARequired(), withSecret("JBSWY3DPEHPK3PXP"))

	for _, device := range []string{deviceA, deviceB} {
		require.NoError(t, f.sessions.Create(context.Background(), &model.Session{
			UserID: id, UserAgent: device, Is2FAVerified: true,
		}))
	}

	pub, err := f.svc.Disable2FA(context.Background(), id.Hex(), goodOTP, deviceA)
	require.NoError(t, err)
	assert.False(t, pub.Require2FA)

	stored, _ := f.users.FindOneByID(context.Background(), id)
	assert.False(t, stored.Require2FA)

	// only the calling device's session is removed
	gone, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceA)
	kept, _ := f.sessions.FindByUserIDAndUserAgent(context.Background(), id, deviceB)
	assert.Nil(t, gone)
	assert.NotNil(t, kept)
}

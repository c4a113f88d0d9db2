package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/pkg"
)

type fakeSessions struct {
	tokens map[uint64]string
}

func newFakeSessions() *fakeSessions { return &fakeSessions{tokens: map[uint64]string{}} }

func (f *fakeSessions) AddUserToken(userID uint64, token string) error {
	f.tokens[userID] = token
	return nil
}

func (f *fakeSessions) GetUserToken(userID uint64) (string, error) {
	token, ok := f.tokens[userID]
	if !ok {
		return "", assert.AnError
	}
	return token, nil
}

func (f *fakeSessions) ExtendUserToken(uint64) error { return nil }

func (f *fakeSessions) DeleteUserToken(userID uint64) error {
	delete(f.tokens, userID)
	return nil
}

type fakeResetCodes struct {
	pending   map[string]string
	confirmed map[string]string
}

func newFakeResetCodes() *fakeResetCodes {
	return &fakeResetCodes{pending: map[string]string{}, confirmed: map[string]string{}}
}

func (f *fakeResetCodes) PutPending(email, code string) error {
	f.pending[email] = code
	return nil
}

func (f *fakeResetCodes) GetPending(email string) (string, error) {
	code, ok := f.pending[email]
	if !ok {
		return "", assert.AnError
	}
	return code, nil
}

func (f *fakeResetCodes) Confirm(email string) error {
	code, ok := f.pending[email]
	if !ok {
		return assert.AnError
	}
	delete(f.pending, email)
	f.confirmed[email] = code
	return nil
}

func (f *fakeResetCodes) DeletePending(email string) error {
	delete(f.pending, email)
	return nil
}

func (f *fakeResetCodes) GetConfirmed(email string) (string, error) {
	code, ok := f.confirmed[email]
	if !ok {
		return "", assert.AnError
	}
	return code, nil
}

func (f *fakeResetCodes) DeleteConfirmed(email string) error {
	delete(f.confirmed, email)
	return nil
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:     "mai.tran@example.com",
		Password:  "Matkhau123",
		FirstName: "Mai",
		LastName:  "Trần",
		Phone:     "0905123456",
		Location:  "Đà Nẵng",
	}
}

func TestRegisterCreatesVolunteer(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{Sessions: newFakeSessions()})

	user, pair, err := svc.Register(validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, model.RoleVolunteer, user.Role)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := pkg.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleVolunteer, claims.Role)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})

	input := validRegisterInput()
	input.Password = "short"
	_, _, err := svc.Register(input)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Len(t, e.Details, 2) // too short, missing character classes
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})

	_, _, err := svc.Register(validRegisterInput())
	require.NoError(t, err)

	_, _, err = svc.Register(validRegisterInput())
	requireConflict(t, err, apperr.ReasonEmailTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})
	seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	_, _, err := svc.Login("mai@example.com", "WrongPass1")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, _, err = svc.Login("nobody@example.com", "Password1")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestLoginStoresSessionToken(t *testing.T) {
	db := newTestDB(t)
	sessions := newFakeSessions()
	svc := NewAuthService(db, testLogger(), AuthDeps{Sessions: sessions})
	user := seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	_, pair, err := svc.Login("mai@example.com", "Password1")
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, sessions.tokens[user.ID])
}

func TestRefreshRotatesPair(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})
	user := seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	pair, err := pkg.GeneratePair(user.ID, user.Role)
	require.NoError(t, err)

	fresh, err := svc.RefreshPair(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	_, err = svc.RefreshPair(pair.AccessToken) // access token is not a refresh token
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRefreshForDeletedAccountIsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})
	user := seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	pair, err := pkg.GeneratePair(user.ID, user.Role)
	require.NoError(t, err)

	require.NoError(t, db.Delete(&model.User{}, user.ID).Error)

	// The token itself is still valid; the identity behind it is gone.
	_, err = svc.RefreshPair(pair.RefreshToken)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestChangePasswordEndsSession(t *testing.T) {
	db := newTestDB(t)
	sessions := newFakeSessions()
	svc := NewAuthService(db, testLogger(), AuthDeps{Sessions: sessions})
	user := seedUser(t, db, "mai@example.com", model.RoleVolunteer)
	sessions.tokens[user.ID] = "stale"

	err := svc.ChangePassword(user.ID, "WrongPass1", "Matkhau456")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	require.NoError(t, svc.ChangePassword(user.ID, "Password1", "Matkhau456"))
	_, ok := sessions.tokens[user.ID]
	assert.False(t, ok)

	_, _, err = svc.Login("mai@example.com", "Matkhau456")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	db := newTestDB(t)
	resets := newFakeResetCodes()
	var sentTo string
	svc := NewAuthService(db, testLogger(), AuthDeps{
		ResetCodes: resets,
		SendEmail: func(to, subject, htmlBody string) error {
			sentTo = to
			return nil
		},
	})
	seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	require.NoError(t, svc.RequestPasswordReset("mai@example.com"))
	assert.Equal(t, "mai@example.com", sentTo)
	code := resets.pending["mai@example.com"]
	require.Len(t, code, 6)

	err := svc.VerifyResetCode("mai@example.com", "000000")
	if code != "000000" {
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	}

	require.NoError(t, svc.VerifyResetCode("mai@example.com", code))
	require.NoError(t, svc.ResetPassword("mai@example.com", code, "Matkhau789"))

	_, _, err = svc.Login("mai@example.com", "Matkhau789")
	require.NoError(t, err)

	// the confirmed code is single-use
	err = svc.ResetPassword("mai@example.com", code, "Matkhau000")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRequestResetDropsCodeWhenEmailFails(t *testing.T) {
	db := newTestDB(t)
	resets := newFakeResetCodes()
	svc := NewAuthService(db, testLogger(), AuthDeps{
		ResetCodes: resets,
		SendEmail: func(string, string, string) error {
			return assert.AnError
		},
	})
	seedUser(t, db, "mai@example.com", model.RoleVolunteer)

	err := svc.RequestPasswordReset("mai@example.com")
	assert.Equal(t, apperr.KindDependencyFailure, apperr.KindOf(err))
	// A code the user never received must not stay verifiable.
	assert.Empty(t, resets.pending)
}

func TestRequestResetForUnknownEmailIsSilent(t *testing.T) {
	db := newTestDB(t)
	resets := newFakeResetCodes()
	sent := false
	svc := NewAuthService(db, testLogger(), AuthDeps{
		ResetCodes: resets,
		SendEmail: func(string, string, string) error {
			sent = true
			return nil
		},
	})

	require.NoError(t, svc.RequestPasswordReset("ghost@example.com"))
	assert.False(t, sent)
	assert.Empty(t, resets.pending)
}

func TestCreatePrivilegedValidatesRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testLogger(), AuthDeps{})

	input := validRegisterInput()
	input.Email = "staff@example.com"

	_, err := svc.CreatePrivileged(input, model.RoleVolunteer)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	user, err := svc.CreatePrivileged(input, model.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, user.Role)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_New(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := e.users.Register(ctx, Registration{Email: "New@Example.com ", Password: "pw", FirstName: "Ann"})
	require.NoError(t, err)

	u, err := memUsers{e.store}.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, models.ProviderLocal, u.OAuthProvider)
	assert.True(t, e.passwords.Verify("pw", u.Password.String))
	assert.Equal(t, "Ann", u.FirstName.String)
	assert.False(t, u.SecondName.Valid)

	assert.Equal(t, []sentMail{{"verification", "new@example.com"}}, e.mailer.sent)
}

func TestRegister_DuplicateActive(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "taken@example.com", "pw", true)

	err := e.users.Register(context.Background(), Registration{Email: "taken@example.com", Password: "other"})
	require.NoError(t, err, "duplicate registration looks like success")
	assert.Equal(t, []sentMail{{"warning", "taken@example.com"}}, e.mailer.sent)
	assert.Len(t, e.store.users, 1)
}

func TestRegister_DuplicateInactive(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "pending@example.com", "pw", false)
	ctx := context.Background()

	require.NoError(t, e.users.Register(ctx, Registration{Email: "pending@example.com", Password: "pw"}))
	assert.Equal(t, []sentMail{{"verification", "pending@example.com"}}, e.mailer.sent)

	// a token now exists, so a second attempt inside the cooldown sends nothing
	_, err := e.verification.Issue(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.users.Register(ctx, Registration{Email: "pending@example.com", Password: "pw"}))
	assert.Len(t, e.mailer.sent, 1)
}

func TestActivate(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "pending@example.com", "pw", false)
	ctx := context.Background()

	raw, err := e.verification.Issue(ctx, u.ID)
	require.NoError(t, err)

	activated, err := e.users.Activate(ctx, raw)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	_, err = e.users.Activate(ctx, raw)
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestActivate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("already active", func(t *testing.T) {
		e := newTestEnv(t)
		u := e.addUser(t, "a@example.com", "pw", true)
		raw, err := e.verification.Issue(ctx, u.ID)
		require.NoError(t, err)

		_, err = e.users.Activate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrUserAlreadyActivated)
	})

	t.Run("user gone", func(t *testing.T) {
		e := newTestEnv(t)
		raw, err := e.verification.Issue(ctx, "ghost")
		require.NoError(t, err)

		_, err = e.users.Activate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		e := newTestEnv(t)
		u := e.addUser(t, "a@example.com", "pw", false)
		raw, err := e.verification.Issue(ctx, u.ID)
		require.NoError(t, err)

		e.clock.Advance(testVerifyLifetime + time.Second)
		_, err = e.users.Activate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrTokenExpired)
	})
}

func TestResendActivation(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "pending@example.com", "pw", false)
	e.addUser(t, "active@example.com", "pw", true)
	ctx := context.Background()

	assert.ErrorIs(t, e.users.ResendActivation(ctx, "nobody@example.com"), common.ErrUserNotFound)
	assert.ErrorIs(t, e.users.ResendActivation(ctx, "active@example.com"), common.ErrUserAlreadyActivated)

	require.NoError(t, e.users.ResendActivation(ctx, "pending@example.com"))

	// the fake mailer does not issue tokens; do it the way the real one would
	_, err := e.verification.Issue(ctx, u.ID)
	require.NoError(t, err)

	e.clock.Advance(10 * time.Second)
	err = e.users.ResendActivation(ctx, "PENDING@example.com")
	var rl *common.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 50*time.Second, rl.RetryAfter)

	e.clock.Advance(testCooldown)
	require.NoError(t, e.users.ResendActivation(ctx, "pending@example.com"))
	assert.Len(t, e.mailer.sent, 2)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "a@example.com", "old", true)
	ctx := context.Background()

	login, err := e.auth.Login(ctx, Credentials{Email: u.Email, Password: "old"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.users.ChangePassword(ctx, u.ID, "wrong", "new"), common.ErrInvalidPassword)
	assert.ErrorIs(t, e.users.ChangePassword(ctx, "ghost", "old", "new"), common.ErrUserNotFound)

	require.NoError(t, e.users.ChangePassword(ctx, u.ID, "old", "new"))

	_, err = e.auth.Refresh(ctx, login.RefreshToken, "")
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked, "sessions are signed out")

	_, err = e.auth.Login(ctx, Credentials{Email: u.Email, Password: "old"})
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
	_, err = e.auth.Login(ctx, Credentials{Email: u.Email, Password: "new"})
	assert.NoError(t, err)
}

func TestChangePassword_OAuthOnly(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "o@example.com", "", true)

	err := e.users.ChangePassword(context.Background(), u.ID, "", "new")
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestProfileAndDelete(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "a@example.com", "pw", true)
	ctx := context.Background()

	got, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	first := "Ada"
	updated, err := e.users.UpdateProfile(ctx, u.ID, models.UserProfile{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName.String)
	assert.False(t, updated.SecondName.Valid)

	raw, err := e.refresh.Issue(ctx, u.ID, IssueOptions{})
	require.NoError(t, err)

	require.NoError(t, e.users.Delete(ctx, u.ID))
	_, err = e.users.Get(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	assert.ErrorIs(t, e.users.Delete(ctx, u.ID), common.ErrUserNotFound)

	_, err = e.refresh.ValidateAndRotate(ctx, raw, "")
	assert.ErrorIs(t, err, common.ErrTokenInvalid, "tokens go with the user")

	_, err = e.users.UpdateProfile(ctx, u.ID, models.UserProfile{FirstName: &first})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestCreateActive(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.users.CreateActive(ctx, Registration{Email: " Ops@Example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, "ops@example.com", u.Email)
	assert.Empty(t, e.mailer.sent)

	_, err = e.auth.Login(ctx, Credentials{Email: "ops@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = e.users.CreateActive(ctx, Registration{Email: "ops@example.com", Password: "pw"})
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

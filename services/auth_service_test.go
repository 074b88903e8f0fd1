package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook-api/models"
	"tourbook-api/utils"
)

const confirmBase = "http://localhost:3000/confirm-email/"
const resetBase = "http://localhost:3000/api/v1/users/resetPassword/"

func signupInput(email string) SignupInput {
	return SignupInput{
		Name:            "Laura Wilson",
		Email:           email,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	}
}

func TestSignup_ConfirmThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// GIVEN: a fresh signup
	user, err := env.auth.Signup(ctx, signupInput("Laura@Example.com"), confirmBase)
	require.NoError(t, err)
	assert.Equal(t, "laura@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	require.Len(t, env.mailer.welcomeURLs, 1)

	// WHEN: logging in before confirming
	_, _, err = env.auth.Login(ctx, "laura@example.com", testPassword)

	// THEN
	require.Error(t, err)
	assert.Equal(t, "Please confirm your email address before logging in.", err.Error())

	// AND: confirming signs the user in
	confirmed, token, err := env.auth.ConfirmEmail(ctx, rawToken(t, env.mailer.welcomeURLs[0], confirmBase))
	require.NoError(t, err)
	assert.True(t, confirmed.ConfirmedEmail)
	assert.NotEmpty(t, token)

	_, token, err = env.auth.Login(ctx, "laura@example.com", testPassword)
	require.NoError(t, err)

	verified, claims, err := env.auth.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.Equal(t, user.ID, claims.UserID)

	// AND: the confirmation link is single use
	_, _, err = env.auth.ConfirmEmail(ctx, rawToken(t, env.mailer.welcomeURLs[0], confirmBase))
	assert.Equal(t, "Token is invalid or has expired", err.Error())
}

func TestSignup_ExpiredConfirmationBlocksLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.Signup(ctx, signupInput("laura@example.com"), confirmBase)
	require.NoError(t, err)

	env.advance(EmailConfirmTTL + time.Minute)
	_, _, err = env.auth.Login(ctx, "laura@example.com", testPassword)

	require.Error(t, err)
	assert.Equal(t, "The user does no longer exist. Please sign up.", err.Error())
}

func TestSignup_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "Laura Wilson", models.RoleUser)

	// GIVEN: a taken email and a self-assigned admin role
	in := signupInput("Laura.Wilson@example.com")
	in.Role = "admin"

	// WHEN
	_, err := env.auth.Signup(ctx, in, confirmBase)

	// THEN: both rules are reported and nothing is mailed
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr))
	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "Email already exists.", fields["email"])
	assert.Equal(t, "Role must be one of: user, guide, lead-guide.", fields["role"])
	assert.Empty(t, env.mailer.welcomeURLs)
}

func TestSignup_MailFailureClearsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.err = errMailDown

	_, err := env.auth.Signup(ctx, signupInput("laura@example.com"), confirmBase)

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstream))
	var stored models.User
	require.NoError(t, env.db.First(&stored, "email = ?", "laura@example.com").Error)
	assert.Nil(t, stored.EmailConfirmToken)
	assert.Nil(t, stored.EmailConfirmExpires)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	_, _, err := env.auth.Login(ctx, user.Email, "Wrong1!pass")
	assert.Equal(t, "Incorrect email or password", err.Error())

	_, _, err = env.auth.Login(ctx, "nobody@example.com", testPassword)
	assert.Equal(t, "Incorrect email or password", err.Error())
}

func TestVerify_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	_, _, err := env.auth.Verify(ctx, "")
	assert.Equal(t, "You are not logged in or your token is expired. Please log in again.", err.Error())

	_, _, err = env.auth.Verify(ctx, "not.a.token")
	assert.Equal(t, "Invalid token. Please log in again!", err.Error())

	token, err := env.auth.SignToken(user.ID)
	require.NoError(t, err)
	env.advance(91 * 24 * time.Hour)
	_, _, err = env.auth.Verify(ctx, token)
	assert.Equal(t, "Your token has expired! Please log in again.", err.Error())

	ghost, err := env.auth.SignToken("missing-user")
	require.NoError(t, err)
	_, _, err = env.auth.Verify(ctx, ghost)
	assert.Equal(t, utils.UserGone().Message, err.Error())
}

func TestUpdatePassword_InvalidatesOlderTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	oldToken, err := env.auth.SignToken(user.ID)
	require.NoError(t, err)

	// GIVEN: wrong or unchanged passwords are refused
	_, _, err = env.auth.UpdatePassword(ctx, user.ID, "Wrong1!pass", "N3w!Password")
	assert.Equal(t, "Your current password is wrong.", err.Error())
	_, _, err = env.auth.UpdatePassword(ctx, user.ID, testPassword, testPassword)
	assert.Equal(t, "New password cannot be the same as current Password.", err.Error())

	// WHEN: the password changes an hour later
	env.advance(time.Hour)
	_, newToken, err := env.auth.UpdatePassword(ctx, user.ID, testPassword, "N3w!Password")
	require.NoError(t, err)

	// THEN: the old token is stale and the new one verifies
	_, _, err = env.auth.Verify(ctx, oldToken)
	assert.Equal(t, utils.StalePassword().Message, err.Error())
	_, _, err = env.auth.Verify(ctx, newToken)
	assert.NoError(t, err)

	_, _, err = env.auth.Login(ctx, user.Email, "N3w!Password")
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	err := env.auth.ForgotPassword(ctx, "nobody@example.com", resetBase)
	assert.Equal(t, "There is no user with email address.", err.Error())

	require.NoError(t, env.auth.ForgotPassword(ctx, user.Email, resetBase))
	require.Len(t, env.mailer.resetURLs, 1)
	raw := rawToken(t, env.mailer.resetURLs[0], resetBase)

	_, token, err := env.auth.ResetPassword(ctx, raw, "N3w!Password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = env.auth.ResetPassword(ctx, raw, "Other!Pass1")
	assert.Equal(t, "Token is invalid or has expired", err.Error())
}

func TestResetPassword_ExpiresAfterTenMinutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	require.NoError(t, env.auth.ForgotPassword(ctx, user.Email, resetBase))

	env.advance(PasswordResetTTL + time.Second)
	_, _, err := env.auth.ResetPassword(ctx, rawToken(t, env.mailer.resetURLs[0], resetBase), "N3w!Password")

	assert.Equal(t, "Token is invalid or has expired", err.Error())
}

func TestLogout_ClearsPresence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	_, token, err := env.auth.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, token))
	require.NoError(t, env.auth.Logout(ctx, LoggedOutCookie))

	var stored models.User
	require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
	assert.False(t, stored.Active)
}

func TestPresence_DebouncesWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	assert.True(t, env.presence.Heartbeat(ctx, user))
	assert.True(t, user.Active)

	env.advance(30 * time.Second)
	assert.False(t, env.presence.Heartbeat(ctx, user))

	env.advance(PresenceThreshold)
	assert.True(t, env.presence.Heartbeat(ctx, user))

	var stored models.User
	require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.LastActiveAt)
	assert.True(t, stored.LastActiveAt.Equal(env.clock))

	assert.False(t, env.presence.Heartbeat(ctx, nil))
}

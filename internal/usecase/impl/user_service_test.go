package impl

import (
	"context"
	"testing"

	domainerrors "orderdesk/internal/domain/errors"
	"orderdesk/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterUser(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.users.RegisterUser(context.Background(), &usecase.RegisterUserInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret-password",
		Active:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, out.User)
	assert.Equal(t, "alice@example.com", out.User.Email)
	assert.NotEmpty(t, out.User.PasswordHash)
	assert.NotEqual(t, "secret-password", out.User.PasswordHash)
	assert.False(t, out.User.Admin)
}

func TestUserService_RegisterUser_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "taken@example.com", false)

	_, err := env.users.RegisterUser(context.Background(), &usecase.RegisterUserInput{
		Name:     "Other",
		Email:    "taken@example.com",
		Password: "another-password",
		Active:   true,
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "EMAIL_TAKEN", appErr.ErrorCode())
	assert.Equal(t, 400, appErr.HTTPCode())
}

func TestUserService_Login(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "login@example.com", false)

	out, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "login@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, user.ID, out.User.ID)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "wrongpass@example.com", false)

	_, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "wrongpass@example.com",
		Password: "not-the-password",
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CREDENTIALS", appErr.ErrorCode())
	assert.Equal(t, 400, appErr.HTTPCode())
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CREDENTIALS", appErr.ErrorCode())
}

func TestUserService_RefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "refresh@example.com", false)

	login, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "refresh@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	out, err := env.users.RefreshToken(context.Background(), &usecase.RefreshTokenInput{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
}

func TestUserService_RefreshToken_Garbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.RefreshToken(context.Background(), &usecase.RefreshTokenInput{
		RefreshToken: "not-a-jwt",
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", appErr.ErrorCode())
	assert.Equal(t, 401, appErr.HTTPCode())
}

func TestUserService_RefreshToken_AccessTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "mixup@example.com", false)

	login, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "mixup@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	// An access token must not pass where a refresh token is expected.
	_, err = env.users.RefreshToken(context.Background(), &usecase.RefreshTokenInput{
		RefreshToken: login.AccessToken,
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", appErr.ErrorCode())
}

func TestUserService_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "logout@example.com", false)

	login, err := env.users.Login(context.Background(), &usecase.LoginInput{
		Email:    "logout@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, env.users.Logout(context.Background(), &usecase.LogoutInput{
		RefreshToken: login.RefreshToken,
	}))

	// The session is gone, so the refresh token no longer works.
	_, err = env.users.RefreshToken(context.Background(), &usecase.RefreshTokenInput{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", appErr.ErrorCode())

	// Logging out again is a no-op.
	require.NoError(t, env.users.Logout(context.Background(), &usecase.LogoutInput{
		RefreshToken: login.RefreshToken,
	}))
}

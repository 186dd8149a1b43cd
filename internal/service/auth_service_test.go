package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/tiktok-scheduler/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterLogin(t *testing.T) {
	users := &repotest.Users{}
	s := NewAuthService(users)

	user, err := s.Register(context.Background(), " Someone@Example.com ", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", user.Email)
	assert.NotEqual(t, "long-enough", user.PasswordHash)

	_, err = s.Register(context.Background(), "someone@example.com", "another-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.Login(context.Background(), "SOMEONE@example.com", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Login(context.Background(), "someone@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(context.Background(), "nobody@example.com", "long-enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	s := NewAuthService(&repotest.Users{})

	_, err := s.Register(context.Background(), "not-an-email", "long-enough")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Register(context.Background(), "a@b.co", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService_GetUserInfo(t *testing.T) {
	users := &repotest.Users{}
	auth := NewAuthService(users)
	created, err := auth.Register(context.Background(), "me@example.com", "long-enough")
	require.NoError(t, err)

	s := NewUserService(users)
	user, err := s.GetUserInfo(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)

	_, err = s.GetUserInfo(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

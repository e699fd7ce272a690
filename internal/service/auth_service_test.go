package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/config"
	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/util"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthService) {
	t.Helper()
	f := newFixture(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return f, NewAuthService(f.userRepo, cfg, f.clk)
}

func TestRegister(t *testing.T) {
	f, svc := newAuthFixture(t)

	u := &model.User{Name: "Ada", Email: "ada@example.com", Password: "s3cret"}
	require.NoError(t, svc.Register(u))
	assert.Equal(t, model.Student, u.Role, "role defaults to student")
	assert.NotEqual(t, "s3cret", u.Password, "password is stored hashed")

	dup := &model.User{Name: "Ada again", Email: "ada@example.com", Password: "other"}
	assert.ErrorIs(t, svc.Register(dup), util.ErrEmailRegistered)

	stored, err := f.userRepo.FindByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Ada", stored.Name)
}

func TestLogin(t *testing.T) {
	f, svc := newAuthFixture(t)
	u := &model.User{Name: "Grace", Email: "grace@example.com", Password: "correct horse"}
	require.NoError(t, svc.Register(u))

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login("grace@example.com", "wrong")
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login("nobody@example.com", "whatever")
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("valid credentials", func(t *testing.T) {
		token, err := svc.Login("grace@example.com", "correct horse")
		require.NoError(t, err)
		claims, err := util.ParseJWT(token, "unit-test-secret")
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
		assert.Equal(t, model.Student, claims.Role)

		stored, err := f.userRepo.FindByID(u.ID)
		require.NoError(t, err)
		assert.Equal(t, testStart.Unix(), stored.LastLogin.Unix(), "last login is recorded")
	})
}

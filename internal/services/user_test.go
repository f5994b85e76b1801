package services_test

import (
	"context"
	"testing"

	"github.com/gotodo/apiserver/internal/services"
	"github.com/gotodo/apiserver/internal/store"
	"github.com/gotodo/apiserver/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotEqual(t, "pw123456", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123456")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@x.com", "pw123456")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "alice@x.com", "pw123456")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRegisterInvalidInput(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "alice@x.com", "pw123456"},
		{"empty email", "alice", "", "pw123456"},
		{"malformed email", "alice", "not-an-email", "pw123456"},
		{"empty password", "alice", "alice@x.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, services.ErrInvalidInput)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := services.NewUserService(storetest.NewUserRepository())

	_, err := svc.Authenticate(context.Background(), "nobody", "pw123456")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

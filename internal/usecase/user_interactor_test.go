package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserUseCase(store *memStore) UserUseCase {
	return NewUserUseCase(store, plainHasher{}, func() time.Time { return fixedNow }, logger.Discard())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newMemStore()
	uc := newUserUseCase(store)

	user, err := uc.Register(context.Background(), " Alice ", "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice", user.Username())
	assert.Equal(t, fixedNow, user.CreatedAt)
	assert.NotEqual(t, "password123", user.PasswordHash)

	got, err := uc.Authenticate(context.Background(), "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = uc.Authenticate(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = uc.Authenticate(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmailIsCaseInsensitive(t *testing.T) {
	store := newMemStore()
	uc := newUserUseCase(store)

	_, err := uc.Register(context.Background(), "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = uc.Register(context.Background(), "Alice 2", "ALICE@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestFindByUsername(t *testing.T) {
	store := newMemStore()
	bob := store.addUser("Bob", "bob@example.com")
	uc := newUserUseCase(store)

	got, err := uc.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = uc.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

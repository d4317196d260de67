package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/domain"
)

func newTestSession(id string, accountID uint, access, refresh string) *domain.Session {
	return &domain.Session{
		ID:               id,
		AccountID:        accountID,
		AccessTokenHash:  access,
		RefreshTokenHash: refresh,
		Device: domain.DeviceInfo{
			DeviceID:  "device-1",
			Platform:  "ios",
			UserAgent: "test-agent",
			IPAddress: "10.0.0.1",
		},
		IsActive:  true,
		ExpiresAt: time.Now().Add(21 * 24 * time.Hour),
	}
}

func TestSessionRepositoryImpl_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	session := newTestSession("01HSESSION0000000000000001", 1, "access-hash", "refresh-hash")
	require.NoError(t, repo.Create(ctx, session))

	tests := []struct {
		name    string
		find    func() (*domain.Session, error)
		wantErr error
	}{
		{"by access hash", func() (*domain.Session, error) { return repo.FindByAccessCredential(ctx, "access-hash") }, nil},
		{"by refresh hash", func() (*domain.Session, error) { return repo.FindByRefreshCredential(ctx, "refresh-hash") }, nil},
		{"unknown access hash", func() (*domain.Session, error) { return repo.FindByAccessCredential(ctx, "nope") }, domain.ErrSessionNotFound},
		{"empty refresh hash", func() (*domain.Session, error) { return repo.FindByRefreshCredential(ctx, "") }, domain.ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.find()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, session.ID, got.ID)
			assert.Equal(t, uint(1), got.AccountID)
			assert.True(t, got.IsActive)
			assert.Equal(t, "ios", got.Device.Platform)
			assert.Equal(t, "10.0.0.1", got.Device.IPAddress)
		})
	}
}

func TestSessionRepositoryImpl_UpdateManyByCredential(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, newTestSession("s1", 1, "shared", "r1")))
	require.NoError(t, repo.Create(ctx, newTestSession("s2", 1, "shared", "r2")))
	require.NoError(t, repo.Create(ctx, newTestSession("s3", 1, "other", "r3")))

	inactive := false
	n, err := repo.UpdateManyByCredential(ctx, "shared", domain.SessionUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.FindByRefreshCredential(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = repo.FindByRefreshCredential(ctx, "r3")
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	n, err = repo.UpdateManyByCredential(ctx, "missing", domain.SessionUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionRepositoryImpl_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, newTestSession("s1", 1, "old-access", "r1")))

	newAccess := "new-access"
	require.NoError(t, repo.Update(ctx, "s1", domain.SessionUpdate{AccessTokenHash: &newAccess}))

	got, err := repo.FindByAccessCredential(ctx, "new-access")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = repo.FindByAccessCredential(ctx, "old-access")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, repo.Update(ctx, "missing", domain.SessionUpdate{AccessTokenHash: &newAccess}), domain.ErrSessionNotFound)
}

func TestSessionRepositoryImpl_DeactivateByAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, newTestSession("s1", 1, "a1", "r1")))
	require.NoError(t, repo.Create(ctx, newTestSession("s2", 1, "a2", "r2")))
	require.NoError(t, repo.Create(ctx, newTestSession("s3", 2, "a3", "r3")))

	n, err := repo.DeactivateByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, refresh := range []string{"r1", "r2"} {
		got, err := repo.FindByRefreshCredential(ctx, refresh)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	}
	got, err := repo.FindByRefreshCredential(ctx, "r3")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

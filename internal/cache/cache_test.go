package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/geocoder89/credhub/internal/observability"
	"github.com/geocoder89/credhub/internal/repo/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c := NewMemory(time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v")))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

type countingUsers struct {
	Users
	byID int
}

func (c *countingUsers) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	c.byID++
	return c.Users.FindByID(ctx, id)
}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func (brokenBackend) Set(context.Context, string, []byte) error {
	return errors.New("redis down")
}

func TestCachedUsers_FoundUsersAlwaysComeFromStore(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	next := &countingUsers{Users: repo}
	prom := observability.NewProm(prometheus.NewRegistry())
	backend := NewMemory(time.Minute)

	users := NewCachedUsers(next, backend, observability.NewDiscardLogger(), prom)

	created, err := users.Insert(ctx, "a@b.com", "hash")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, ok, err := users.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.ID, got.ID)
	}

	assert.Equal(t, 3, next.byID)
	assert.Equal(t, 0, backend.Len(), "live users must not be cached")
	assert.Equal(t, 3.0, testutil.ToFloat64(prom.CacheLookups.WithLabelValues("miss")))
}

func TestCachedUsers_RemovedUserIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	users := NewCachedUsers(repo, NewMemory(time.Minute), observability.NewDiscardLogger(), nil)

	created, err := users.Insert(ctx, "a@b.com", "hash")
	require.NoError(t, err)

	_, ok, err := users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	repo.Delete(created.ID)

	_, ok, err = users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedUsers_AbsentIDIsRemembered(t *testing.T) {
	ctx := context.Background()
	next := &countingUsers{Users: memory.NewUsersRepo()}
	prom := observability.NewProm(prometheus.NewRegistry())
	backend := NewMemory(time.Minute)
	users := NewCachedUsers(next, backend, observability.NewDiscardLogger(), prom)

	for i := 0; i < 3; i++ {
		_, ok, err := users.FindByID(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, 1, next.byID)
	assert.Equal(t, 1, backend.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(prom.CacheLookups.WithLabelValues("hit")))

	raw, ok, err := backend.Get(ctx, goneKey("missing"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "hash")
}

func TestCachedUsers_InsertIsPassThrough(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory(time.Minute)
	users := NewCachedUsers(memory.NewUsersRepo(), backend, observability.NewDiscardLogger(), nil)

	_, err := users.Insert(ctx, "a@b.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, 0, backend.Len())

	_, err = users.Insert(ctx, "a@b.com", "hash")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestCachedUsers_BackendFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	users := NewCachedUsers(repo, brokenBackend{}, observability.NewDiscardLogger(), nil)

	created, err := users.Insert(ctx, "a@b.com", "hash")
	require.NoError(t, err)

	got, ok, err := users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)

	_, ok, err = users.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-events/internal/model"
)

func stores(t *testing.T) (map[string]Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Store{
		"redis":  NewRedisStore(rdb),
		"memory": NewMemoryStore(),
	}, mr
}

func TestStoreLifecycle(t *testing.T) {
	all, _ := stores(t)
	for name, st := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(time.Hour)
			s.UserID = 7
			s.Name = "Alice"
			s.Email = "alice@x.com"
			s.Role = model.RoleOrganizer
			s.CSRFToken = "abc"
			require.NoError(t, st.Save(ctx, s))

			got, err := st.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, s.ID, got.ID)
			assert.Equal(t, uint64(7), got.UserID)
			assert.Equal(t, model.RoleOrganizer, got.Role)
			assert.Equal(t, "abc", got.CSRFToken)
			assert.True(t, got.Authenticated())

			require.NoError(t, st.Delete(ctx, s.ID))
			_, err = st.Get(ctx, s.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreUnknownID(t *testing.T) {
	all, _ := stores(t)
	for name, st := range all {
		t.Run(name, func(t *testing.T) {
			_, err := st.Get(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisStoreExpires(t *testing.T) {
	all, mr := stores(t)
	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, all["redis"].Save(ctx, s))

	mr.FastForward(2 * time.Minute)
	_, err := all["redis"].Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpires(t *testing.T) {
	st := NewMemoryStore()
	now := time.Now()
	st.now = func() time.Time { return now }
	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, st.Save(ctx, s))

	st.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := st.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewSessionIsAnonymous(t *testing.T) {
	a, b := New(time.Hour), New(time.Hour)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Authenticated())
	assert.True(t, a.ExpiresAt.After(a.CreatedAt))
}

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s/0", endpoint)
}

func TestCachedStore(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rdb, err := ConnectRedis(ctx, url)
	require.NoError(t, err)

	inner := NewMemoryStore()
	store := NewCachedStore(inner, rdb, time.Minute)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	testStore(t, store)

	t.Run("lookups are served from the cache", func(t *testing.T) {
		require.NoError(t, store.InsertRoom(ctx, &models.Room{Name: "cached", CreatorID: "alice", CreatedAt: time.Now()}))

		// 直接從內層刪除，快取仍持有記錄
		require.NoError(t, inner.DeleteRoom(ctx, "cached"))
		room, err := store.FindRoomByName(ctx, "cached")
		require.NoError(t, err)
		assert.Equal(t, "alice", room.CreatorID)
	})

	t.Run("delete evicts the cached record", func(t *testing.T) {
		require.NoError(t, store.InsertRoom(ctx, &models.Room{Name: "evicted", CreatorID: "alice", CreatedAt: time.Now()}))
		_, err := store.FindRoomByName(ctx, "evicted")
		require.NoError(t, err)

		require.NoError(t, store.DeleteRoom(ctx, "evicted"))
		_, err = store.FindRoomByName(ctx, "evicted")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("lookup during delete does not resurrect the room", func(t *testing.T) {
		hooked := &lookupDuringDelete{MemoryStore: NewMemoryStore()}
		racing := NewCachedStore(hooked, rdb, time.Minute)
		hooked.lookup = func() {
			_, err := racing.FindRoomByName(ctx, "racing")
			require.NoError(t, err)
		}
		require.NoError(t, racing.InsertRoom(ctx, &models.Room{Name: "racing", CreatorID: "alice", CreatedAt: time.Now()}))

		require.NoError(t, racing.DeleteRoom(ctx, "racing"))
		n, err := rdb.Exists(ctx, roomKey("racing")).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = racing.FindRoomByName(ctx, "racing")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})
}

// lookupDuringDelete 在內層刪除前先執行一次查詢
type lookupDuringDelete struct {
	*MemoryStore
	lookup func()
}

func (s *lookupDuringDelete) DeleteRoom(ctx context.Context, name string) error {
	s.lookup()
	return s.MemoryStore.DeleteRoom(ctx, name)
}

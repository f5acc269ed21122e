package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore 對任一 Store 實作執行同一組行為測試
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("room name is unique", func(t *testing.T) {
		room := &models.Room{Name: "lobby", CreatorID: "alice", CreatedAt: time.Now()}
		require.NoError(t, store.InsertRoom(ctx, room))
		assert.False(t, room.ID.IsZero())

		err := store.InsertRoom(ctx, &models.Room{Name: "lobby", CreatorID: "bob", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, ErrRoomExists)

		// 名稱區分大小寫
		require.NoError(t, store.InsertRoom(ctx, &models.Room{Name: "Lobby", CreatorID: "bob", CreatedAt: time.Now()}))

		found, err := store.FindRoomByName(ctx, "lobby")
		require.NoError(t, err)
		assert.Equal(t, "alice", found.CreatorID)
	})

	t.Run("missing room", func(t *testing.T) {
		_, err := store.FindRoomByName(ctx, "nowhere")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.ErrorIs(t, store.DeleteRoom(ctx, "nowhere"), ErrRoomNotFound)
	})

	t.Run("rooms by creator", func(t *testing.T) {
		base := time.Now().Add(-time.Hour)
		for i := range 3 {
			require.NoError(t, store.InsertRoom(ctx, &models.Room{
				Name:      fmt.Sprintf("carol-%d", i),
				CreatorID: "carol",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}
		rooms, err := store.FindRoomsByCreator(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, rooms, 3)
		assert.Equal(t, "carol-0", rooms[0].Name)
		assert.Equal(t, "carol-2", rooms[2].Name)

		none, err := store.FindRoomsByCreator(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("recent messages are the newest oldest first", func(t *testing.T) {
		base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
		for i := range 5 {
			require.NoError(t, store.InsertMessage(ctx, &models.Message{
				Room:      "history",
				Author:    "alice",
				Text:      fmt.Sprintf("m%d", i),
				Timestamp: base.Add(time.Duration(i) * time.Second),
			}))
		}
		msgs, err := store.FindRecentMessages(ctx, "history", 3)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{"m2", "m3", "m4"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})

		empty, err := store.FindRecentMessages(ctx, "silent", 50)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("room deletion cascade", func(t *testing.T) {
		require.NoError(t, store.InsertRoom(ctx, &models.Room{Name: "doomed", CreatorID: "alice", CreatedAt: time.Now()}))
		for i := range 2 {
			require.NoError(t, store.InsertMessage(ctx, &models.Message{
				Room: "doomed", Author: "alice", Text: fmt.Sprint(i), Timestamp: time.Now(),
			}))
		}

		n, err := store.DeleteMessagesForRoom(ctx, "doomed")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		require.NoError(t, store.DeleteRoom(ctx, "doomed"))

		msgs, err := store.FindRecentMessages(ctx, "doomed", 50)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		_, err = store.FindRoomByName(ctx, "doomed")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("prune old messages", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.InsertMessage(ctx, &models.Message{Room: "prune", Author: "a", Text: "old", Timestamp: now.Add(-48 * time.Hour)}))
		require.NoError(t, store.InsertMessage(ctx, &models.Message{Room: "prune", Author: "a", Text: "new", Timestamp: now}))

		n, err := store.PruneMessages(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		msgs, err := store.FindRecentMessages(ctx, "prune", 50)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "new", msgs[0].Text)
	})

	t.Run("users", func(t *testing.T) {
		user := &models.User{Username: "dave", Password: "hash"}
		require.NoError(t, store.InsertUser(ctx, user))
		assert.False(t, user.ID.IsZero())
		assert.ErrorIs(t, store.InsertUser(ctx, &models.User{Username: "dave", Password: "x"}), ErrUserExists)

		found, err := store.FindUserByUsername(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "hash", found.Password)

		_, err = store.FindUserByUsername(ctx, "erin")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	require.NoError(t, store.Ping(ctx))
}

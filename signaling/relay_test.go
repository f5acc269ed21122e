package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arjun7095/Chat-Application/database"
	"github.com/arjun7095/Chat-Application/database/mocks"
	"github.com/arjun7095/Chat-Application/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMessageFanOut(t *testing.T) {
	h, store := newTestHub(t, Options{})
	ctx := context.Background()
	a := connect(h, "alice")
	b := connect(h, "bob")
	c := connect(h, "carol")
	lobby(t, h, a, b)
	_, err := h.CreateRoom(ctx, "kitchen", c.Identity())
	require.NoError(t, err)
	_, err = h.Join(ctx, c, "kitchen")
	require.NoError(t, err)
	drain(c)

	msg, err := h.SendMessage(ctx, a, "lobby", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Author)
	assert.False(t, msg.ID.IsZero())

	for _, member := range []*Conn{a, b} {
		got := named(drain(member), EventMessage)
		require.Len(t, got, 1)
		assert.Equal(t, "hi", got[0].Data.(models.Message).Text)
		assert.Equal(t, "alice", got[0].Data.(models.Message).Author)
	}
	assert.Empty(t, drain(c))

	history, err := store.FindRecentMessages(ctx, "lobby", 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	h, store := newTestHub(t, Options{})
	ctx := context.Background()
	a := connect(h, "alice")
	outsider := connect(h, "mallory")
	lobby(t, h, a)

	_, err := h.SendMessage(ctx, outsider, "lobby", "spoofed")
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Empty(t, drain(a))

	history, err := store.FindRecentMessages(ctx, "lobby", 50)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMessagesKeepSendOrderWithinRoom(t *testing.T) {
	h, _ := newTestHub(t, Options{SendBuffer: 512})
	a := connect(h, "alice")
	b := connect(h, "bob")
	lobby(t, h, a, b)

	var wg sync.WaitGroup
	for _, sender := range []*Conn{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_, err := h.SendMessage(context.Background(), sender, "lobby", fmt.Sprint(i))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	ra := named(drain(a), EventMessage)
	rb := named(drain(b), EventMessage)
	require.Len(t, ra, 100)
	assert.Equal(t, ra, rb)
}

func TestPostMessage(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	ctx := context.Background()
	a := connect(h, "alice")
	lobby(t, h, a)

	_, err := h.PostMessage(ctx, models.Identity{ID: "x", DisplayName: "api"}, "lobby", "from rest")
	require.NoError(t, err)
	got := named(drain(a), EventMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "api", got[0].Data.(models.Message).Author)

	_, err = h.PostMessage(ctx, models.Identity{ID: "x", DisplayName: "api"}, "missing", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistenceFailureIsNotBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	h := NewHub(store, Options{})
	ctx := context.Background()
	a := connect(h, "alice")
	b := connect(h, "bob")

	store.EXPECT().FindRoomByName(gomock.Any(), "lobby").
		Return(&models.Room{Name: "lobby", CreatorID: "id-alice"}, nil).Times(2)
	_, err := h.Join(ctx, a, "lobby")
	require.NoError(t, err)
	_, err = h.Join(ctx, b, "lobby")
	require.NoError(t, err)
	drain(a)
	drain(b)

	store.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	_, err = h.SendMessage(ctx, a, "lobby", "lost")
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Empty(t, drain(a))
	assert.Empty(t, drain(b))
}

func TestPersistenceCallsAreBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	h := NewHub(store, Options{PersistTimeout: 20 * time.Millisecond})
	a := connect(h, "alice")

	store.EXPECT().InsertRoom(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *models.Room) error {
			<-ctx.Done()
			return ctx.Err()
		})

	start := time.Now()
	_, err := h.CreateAndJoin(context.Background(), a, "slow")
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, drain(a))
	assert.Equal(t, NoRoom{}, a.CurrentRoom())
}

func TestStoreErrorsMapToTaxonomy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	h := NewHub(store, Options{})
	ctx := context.Background()

	store.EXPECT().InsertRoom(gomock.Any(), gomock.Any()).Return(database.ErrRoomExists)
	_, err := h.CreateRoom(ctx, "lobby", models.Identity{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.NotErrorIs(t, err, ErrPersistenceFailed)

	store.EXPECT().FindRoomByName(gomock.Any(), "gone").Return(nil, database.ErrRoomNotFound)
	_, err = h.LookupRoom(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

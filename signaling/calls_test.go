package signaling

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoParticipantCall(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	b := connect(h, "bob")
	lobby(t, h, a, b)

	require.NoError(t, h.CallRequest(a, "lobby"))
	assert.Empty(t, drain(a))
	reqs := named(drain(b), EventCallRequest)
	require.Len(t, reqs, 1)
	assert.Equal(t, CallRequest{From: a.ID(), Name: "alice"}, reqs[0].Data)

	require.NoError(t, h.CallAccepted(b, "lobby", a.ID()))
	assert.Empty(t, drain(b))
	acks := named(drain(a), EventCallAccepted)
	require.Len(t, acks, 1)
	assert.Equal(t, CallReply{From: b.ID(), To: a.ID()}, acks[0].Data)

	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, h.Participants("lobby"))
}

func TestLateJoinerIsAnnounced(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	b := connect(h, "bob")
	c := connect(h, "carol")
	lobby(t, h, a, b)
	require.NoError(t, h.CallRequest(a, "lobby"))
	require.NoError(t, h.CallAccepted(b, "lobby", a.ID()))
	drain(a)
	drain(b)

	_, err := h.Join(context.Background(), c, "lobby")
	require.NoError(t, err)
	ongoing := named(drain(c), EventOngoingCall)
	require.Len(t, ongoing, 1)
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, ongoing[0].Data.(OngoingCall).Participants)
	drain(a)
	drain(b)

	require.NoError(t, h.JoinCall(c, "lobby"))
	for _, peer := range []*Conn{a, b} {
		reqs := named(drain(peer), EventPeerJoinAnnounced)
		require.Len(t, reqs, 1)
		assert.Equal(t, CallRequest{From: c.ID(), Name: "carol", Join: true}, reqs[0].Data)
	}
	assert.Empty(t, drain(c))
	assert.ElementsMatch(t, []string{a.ID(), b.ID(), c.ID()}, h.Participants("lobby"))
}

func TestJoinCallIsIdempotent(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	b := connect(h, "bob")
	lobby(t, h, a, b)

	require.NoError(t, h.JoinCall(a, "lobby"))
	assert.Len(t, h.Participants("lobby"), 1)
	assert.Len(t, drain(b), 1)

	require.NoError(t, h.JoinCall(a, "lobby"))
	require.NoError(t, h.CallRequest(a, "lobby"))
	assert.Len(t, h.Participants("lobby"), 1)
	assert.Empty(t, drain(b))
}

func TestRejectionDoesNotEndTheCall(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	b := connect(h, "bob")
	c := connect(h, "carol")
	lobby(t, h, a, b, c)

	require.NoError(t, h.CallRequest(a, "lobby"))
	require.NoError(t, h.CallAccepted(b, "lobby", a.ID()))
	drain(a)
	drain(b)
	drain(c)

	require.NoError(t, h.CallRejected(c, "lobby", a.ID()))
	for _, peer := range []*Conn{a, b} {
		rejects := named(drain(peer), EventCallRejected)
		require.Len(t, rejects, 1)
		assert.Equal(t, CallReply{From: c.ID(), To: a.ID()}, rejects[0].Data)
	}
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, h.Participants("lobby"))
}

func TestDisconnectDuringCall(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	b := connect(h, "bob")
	c := connect(h, "carol")
	lobby(t, h, a, b, c)
	require.NoError(t, h.CallRequest(a, "lobby"))
	require.NoError(t, h.CallAccepted(b, "lobby", a.ID()))
	require.NoError(t, h.JoinCall(c, "lobby"))
	drain(a)
	drain(c)

	h.Disconnect(b)

	for _, peer := range []*Conn{a, c} {
		events := drain(peer)
		left := named(events, EventUserLeft)
		require.Len(t, left, 1)
		assert.Equal(t, UserLeft{ID: b.ID()}, left[0].Data)
		assert.Equal(t, []string{"bob has left the room"}, systemTexts(events))
	}
	assert.ElementsMatch(t, []string{a.ID(), c.ID()}, h.Participants("lobby"))
	assert.ElementsMatch(t, []string{a.ID(), c.ID()}, h.Members("lobby"))
	assert.Equal(t, NoRoom{}, b.CurrentRoom())

	// 重複回收不會再通知
	h.Disconnect(b)
	assert.Empty(t, drain(a))
}

func TestLastParticipantEndsTheCall(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	ctx := context.Background()
	a := connect(h, "alice")
	b := connect(h, "bob")
	c := connect(h, "carol")
	lobby(t, h, a, b)
	require.NoError(t, h.CallRequest(a, "lobby"))
	require.NoError(t, h.LeaveCall(a, "lobby"))

	assert.Empty(t, h.Participants("lobby"))
	left := named(drain(b), EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, InRoom{Name: "lobby"}, a.CurrentRoom())

	// 通話結束後新成員不再收到 ongoingCall
	_, err := h.Join(ctx, c, "lobby")
	require.NoError(t, err)
	assert.Empty(t, named(drain(c), EventOngoingCall))

	// 不在通話中時掛斷不做任何事
	require.NoError(t, h.LeaveCall(a, "lobby"))
	assert.Empty(t, named(drain(b), EventUserLeft))
}

func TestCallEventsRequireMembership(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(h, "alice")
	outsider := connect(h, "mallory")
	lobby(t, h, a)

	assert.ErrorIs(t, h.CallRequest(outsider, "lobby"), ErrNotMember)
	assert.ErrorIs(t, h.JoinCall(outsider, "lobby"), ErrNotMember)
	assert.ErrorIs(t, h.CallUser(outsider, "lobby", a.ID(), []byte(`{}`)), ErrNotMember)
	assert.ErrorIs(t, h.CallRequest(a, "elsewhere"), ErrNotMember)
	assert.Empty(t, h.Participants("lobby"))
	assert.Empty(t, drain(a))
}

func TestSignalRouting(t *testing.T) {
	offer := []byte(`{"type":"offer","sdp":"v=0"}`)

	t.Run("direct", func(t *testing.T) {
		h, _ := newTestHub(t, Options{Routing: RouteDirect})
		a := connect(h, "alice")
		b := connect(h, "bob")
		c := connect(h, "carol")
		lobby(t, h, a, b, c)

		require.NoError(t, h.CallUser(a, "lobby", b.ID(), offer))
		got := named(drain(b), EventCallUser)
		require.Len(t, got, 1)
		assert.Equal(t, Signal{Signal: offer, From: a.ID(), To: b.ID()}, got[0].Data)
		assert.Empty(t, drain(c))
		assert.Empty(t, drain(a))

		// 收件者不在房間內時退回廣播
		require.NoError(t, h.ICECandidate(a, "lobby", "ghost", []byte(`{"candidate":"x"}`)))
		assert.Len(t, named(drain(b), EventICECandidate), 1)
		assert.Len(t, named(drain(c), EventICECandidate), 1)
		assert.Empty(t, drain(a))
	})

	t.Run("broadcast", func(t *testing.T) {
		h, _ := newTestHub(t, Options{Routing: RouteBroadcast})
		a := connect(h, "alice")
		b := connect(h, "bob")
		c := connect(h, "carol")
		lobby(t, h, a, b, c)

		require.NoError(t, h.AnswerCall(b, "lobby", a.ID(), offer))
		for _, peer := range []*Conn{a, c} {
			got := named(drain(peer), EventCallAnswered)
			require.Len(t, got, 1)
			assert.Equal(t, Signal{Signal: offer, From: b.ID(), To: a.ID()}, got[0].Data)
		}
		assert.Empty(t, drain(b))
	})
}

func TestConcurrentJoinCall(t *testing.T) {
	h, _ := newTestHub(t, Options{SendBuffer: 1024})
	const n = 32

	conns := make([]*Conn, n)
	for i := range conns {
		conns[i] = connect(h, fmt.Sprintf("user-%d", i))
	}
	lobby(t, h, conns...)

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.JoinCall(c, "lobby"))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, h.CallRequest(c, "lobby"))
		}()
	}
	wg.Wait()

	assert.Len(t, h.Participants("lobby"), n)

	// 一半斷線，與剩下的人重複加入同時進行
	for i, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				h.Disconnect(c)
				return
			}
			assert.NoError(t, h.JoinCall(c, "lobby"))
		}()
	}
	wg.Wait()

	assert.Len(t, h.Participants("lobby"), n/2)
	for i, c := range conns {
		if i%2 == 0 {
			assert.NotContains(t, h.Participants("lobby"), c.ID())
			assert.NotContains(t, h.Members("lobby"), c.ID())
		}
	}
}

package signaling

import (
	"context"
	"fmt"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/rs/zerolog/log"
)

// Join 讓連線加入房間。房間不存在時回傳 ErrNotFound，成員關係不變。
// 原本所在的房間會先離開，並通知該房間的其他成員。
func (h *Hub) Join(ctx context.Context, c *Conn, name string) (RoomInfo, error) {
	rm, err := h.LookupRoom(ctx, name)
	if err != nil {
		return RoomInfo{}, err
	}
	notice := fmt.Sprintf("%s has joined the room", c.identity.DisplayName)
	return h.enter(c, rm, notice)
}

// CreateAndJoin 建立房間並讓建立者加入
func (h *Hub) CreateAndJoin(ctx context.Context, c *Conn, name string) (RoomInfo, error) {
	rm, err := h.CreateRoom(ctx, name, c.identity)
	if err != nil {
		return RoomInfo{}, err
	}
	c.deliver(Event{Name: EventRoomCreated, Data: RoomCreated{Room: name}})
	notice := fmt.Sprintf("%s created the room", c.identity.DisplayName)
	return h.enter(c, rm, notice)
}

// Leave 讓連線離開目前的房間；沒有所在房間時不做任何事
func (h *Hub) Leave(c *Conn) {
	h.leave(c)
}

func (h *Hub) enter(c *Conn, rm *models.Room, notice string) (RoomInfo, error) {
	info := RoomInfo{Room: rm.Name, CreatorID: rm.CreatorID}

	if current, ok := c.roomName(); ok && current == rm.Name {
		// 已在房間內：只補送房間資訊
		h.greet(c, h.record(rm.Name, false), info)
		return info, nil
	}
	h.leave(c)

	var r *room
	for {
		r = h.record(rm.Name, true)
		r.mu.Lock()
		if !r.retired {
			break
		}
		r.mu.Unlock()
	}
	if r.deleted {
		r.mu.Unlock()
		return RoomInfo{}, ErrNotFound
	}
	r.members[c.id] = c
	c.setRoom(InRoom{Name: rm.Name})
	r.broadcastLocked(Event{Name: EventMessage, Data: models.NewSystemMessage(rm.Name, notice)}, "")
	r.mu.Unlock()

	h.greet(c, r, info)
	log.Debug().Str("module", "signaling").
		Str("conn", c.id).
		Str("user", c.identity.DisplayName).
		Str("room", rm.Name).
		Msg("joined room")
	return info, nil
}

// greet 送出 roomInfo；房間正在通話時再送 ongoingCall
func (h *Hub) greet(c *Conn, r *room, info RoomInfo) {
	c.deliver(Event{Name: EventRoomInfo, Data: info})
	if r == nil {
		return
	}

	r.mu.Lock()
	var ongoing *OngoingCall
	if _, inCall := r.participants[c.id]; !inCall && len(r.participants) > 0 {
		ongoing = &OngoingCall{Room: r.name, Participants: r.participantIDs()}
	}
	r.mu.Unlock()

	if ongoing != nil {
		c.deliver(Event{Name: EventOngoingCall, Data: *ongoing})
	}
}

// leave 移除成員關係與通話參與，並通知房間內其餘成員
func (h *Hub) leave(c *Conn) bool {
	name, ok := c.roomName()
	if !ok {
		return false
	}
	r := h.record(name, false)
	if r == nil {
		c.setRoom(NoRoom{})
		return false
	}

	r.mu.Lock()
	if _, member := r.members[c.id]; !member {
		// 房間已被刪除，成員關係已清除
		r.mu.Unlock()
		return false
	}

	notice := fmt.Sprintf("%s has left the room", c.identity.DisplayName)
	unwind(c, name, []step{
		{"departure notice", func() {
			r.broadcastLocked(Event{Name: EventMessage, Data: models.NewSystemMessage(name, notice)}, c.id)
		}},
		{"userLeft notice", func() {
			r.broadcastLocked(Event{Name: EventUserLeft, Data: UserLeft{ID: c.id}}, c.id)
		}},
		{"membership", func() {
			delete(r.members, c.id)
			c.setRoom(NoRoom{})
		}},
		{"call participation", func() {
			r.dropParticipantLocked(c.id)
		}},
	})
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		h.prune(name)
	}

	log.Debug().Str("module", "signaling").
		Str("conn", c.id).
		Str("user", c.identity.DisplayName).
		Str("room", name).
		Msg("left room")
	return true
}

package signaling

import (
	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/rs/zerolog/log"
)

// 每個房間的通話狀態就是 participants 集合：非空代表通話進行中。
// 加入與移除皆為冪等操作，且都在 room.mu 內進行，
// 因此不同連線的 joinCall / callRequest / 斷線可以任意順序套用。

func (r *room) addParticipantLocked(id string) bool {
	if _, ok := r.participants[id]; ok {
		return false
	}
	if len(r.participants) == 0 {
		metrics.ActiveCalls.Inc()
	}
	r.participants[id] = struct{}{}
	return true
}

func (r *room) dropParticipantLocked(id string) bool {
	if _, ok := r.participants[id]; !ok {
		return false
	}
	delete(r.participants, id)
	if len(r.participants) == 0 {
		metrics.ActiveCalls.Dec()
		log.Debug().Str("module", "signaling").Str("room", r.name).Msg("call ended")
	}
	return true
}

// route 送出帶有 to 的信令。direct 模式下 to 為房間內其他成員時只送給對方，
// 否則退回廣播給除發送者外的所有成員，由客戶端依 to 過濾
func (h *Hub) route(r *room, from *Conn, to string, ev Event) {
	if h.opts.Routing == RouteDirect && to != from.id {
		if target, ok := r.members[to]; ok {
			target.deliver(ev)
			return
		}
	}
	r.broadcastLocked(ev, from.id)
}

// inRoom 在持有 room.mu 的情況下執行 fn；連線必須是該房間成員
func (h *Hub) inRoom(c *Conn, name string, fn func(r *room)) error {
	if current, ok := c.roomName(); !ok || current != name {
		return ErrNotMember
	}
	r := h.record(name, false)
	if r == nil {
		return ErrNotMember
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[c.id]; !member || r.deleted {
		return ErrNotMember
	}
	fn(r)
	return nil
}

// CallRequest 發起通話；發起者已在通話中時不做任何事
func (h *Hub) CallRequest(c *Conn, name string) error {
	return h.inRoom(c, name, func(r *room) {
		if !r.addParticipantLocked(c.id) {
			return
		}
		r.broadcastLocked(Event{Name: EventCallRequest, Data: CallRequest{
			From: c.id,
			Name: c.identity.DisplayName,
		}}, c.id)
	})
}

// CallAccepted 接受者加入通話，並通知房間其他成員
func (h *Hub) CallAccepted(c *Conn, name, to string) error {
	return h.inRoom(c, name, func(r *room) {
		r.addParticipantLocked(c.id)
		r.broadcastLocked(Event{Name: EventCallAccepted, Data: CallReply{From: c.id, To: to}}, c.id)
	})
}

// CallRejected 只是告知，不改變通話狀態
func (h *Hub) CallRejected(c *Conn, name, to string) error {
	return h.inRoom(c, name, func(r *room) {
		r.broadcastLocked(Event{Name: EventCallRejected, Data: CallReply{From: c.id, To: to}}, c.id)
	})
}

// JoinCall 中途加入通話，並向既有參與者宣告，讓他們各自對新成員發起連線
func (h *Hub) JoinCall(c *Conn, name string) error {
	return h.inRoom(c, name, func(r *room) {
		if !r.addParticipantLocked(c.id) {
			return
		}
		r.broadcastLocked(Event{Name: EventPeerJoinAnnounced, Data: CallRequest{
			From: c.id,
			Name: c.identity.DisplayName,
			Join: true,
		}}, c.id)
	})
}

// LeaveCall 掛斷但留在房間內
func (h *Hub) LeaveCall(c *Conn, name string) error {
	return h.inRoom(c, name, func(r *room) {
		if r.dropParticipantLocked(c.id) {
			r.broadcastLocked(Event{Name: EventUserLeft, Data: UserLeft{ID: c.id}}, c.id)
		}
	})
}

// CallUser 轉送 offer
func (h *Hub) CallUser(c *Conn, name, to string, signal []byte) error {
	return h.inRoom(c, name, func(r *room) {
		h.route(r, c, to, Event{Name: EventCallUser, Data: Signal{Signal: signal, From: c.id, To: to}})
	})
}

// AnswerCall 轉送 answer，對外事件名稱為 callAnswered
func (h *Hub) AnswerCall(c *Conn, name, to string, signal []byte) error {
	return h.inRoom(c, name, func(r *room) {
		h.route(r, c, to, Event{Name: EventCallAnswered, Data: Signal{Signal: signal, From: c.id, To: to}})
	})
}

func (h *Hub) ICECandidate(c *Conn, name, to string, candidate []byte) error {
	return h.inRoom(c, name, func(r *room) {
		h.route(r, c, to, Event{Name: EventICECandidate, Data: Signal{Candidate: candidate, From: c.id, To: to}})
	})
}

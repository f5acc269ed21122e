package signaling

import (
	"context"
	"time"

	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/arjun7095/Chat-Application/models"
)

// SendMessage 儲存並廣播訊息給房間所有成員（含發送者）。
// 發送者必須在該房間內；作者名稱取自連線身分。儲存失敗時不廣播。
func (h *Hub) SendMessage(ctx context.Context, c *Conn, name, text string) (*models.Message, error) {
	if current, ok := c.roomName(); !ok || current != name {
		return nil, ErrNotMember
	}
	r := h.record(name, false)
	if r == nil {
		return nil, ErrNotMember
	}

	r.relayMu.Lock()
	defer r.relayMu.Unlock()

	// 等待 relayMu 期間可能已被移出或房間已刪除
	r.mu.Lock()
	_, member := r.members[c.id]
	deleted := r.deleted
	r.mu.Unlock()
	if !member || deleted {
		return nil, ErrNotMember
	}

	return h.relay(ctx, r, c.identity, text)
}

// PostMessage 供 REST 使用：不要求連線，但房間必須存在
func (h *Hub) PostMessage(ctx context.Context, author models.Identity, name, text string) (*models.Message, error) {
	if _, err := h.LookupRoom(ctx, name); err != nil {
		return nil, err
	}

	r := h.lockRelay(name)
	defer func() {
		r.relayMu.Unlock()
		h.prune(name)
	}()

	r.mu.Lock()
	deleted := r.deleted
	r.mu.Unlock()
	if deleted {
		return nil, ErrNotFound
	}

	return h.relay(ctx, r, author, text)
}

// relay 呼叫前需持有 r.relayMu
func (h *Hub) relay(ctx context.Context, r *room, author models.Identity, text string) (*models.Message, error) {
	msg := &models.Message{
		Room:      r.name,
		Author:    author.DisplayName,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if err := h.persist(ctx, "insertMessage", func(ctx context.Context) error {
		return h.store.InsertMessage(ctx, msg)
	}); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.broadcastLocked(Event{Name: EventMessage, Data: *msg}, "")
	r.mu.Unlock()

	metrics.MessagesRelayed.Inc()
	return msg, nil
}

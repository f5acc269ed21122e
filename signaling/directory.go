package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/arjun7095/Chat-Application/models"
	"github.com/rs/zerolog/log"
)

// CreateRoom 建立房間；名稱已存在時回傳 ErrDuplicateName
func (h *Hub) CreateRoom(ctx context.Context, name string, creator models.Identity) (*models.Room, error) {
	rm := &models.Room{
		Name:      name,
		CreatorID: creator.ID,
		CreatedAt: time.Now().UTC(),
	}

	// 與同名房間的刪除互斥，確保 revive 看到的是刪除完成後的記錄
	r := h.lockRelay(name)
	defer func() {
		r.relayMu.Unlock()
		h.prune(name)
	}()

	if err := h.persist(ctx, "insertRoom", func(ctx context.Context) error {
		return h.store.InsertRoom(ctx, rm)
	}); err != nil {
		return nil, err
	}

	h.revive(name)
	log.Info().Str("module", "signaling").Str("room", name).Str("creator", creator.ID).Msg("room created")
	return rm, nil
}

// LookupRoom 查詢房間；不存在時回傳 ErrNotFound
func (h *Hub) LookupRoom(ctx context.Context, name string) (*models.Room, error) {
	var rm *models.Room
	err := h.persist(ctx, "findRoom", func(ctx context.Context) error {
		var err error
		rm, err = h.store.FindRoomByName(ctx, name)
		return err
	})
	return rm, err
}

// DeleteRoom 只允許建立者刪除。依序刪除訊息、房間記錄，再把目前成員移出並通知。
func (h *Hub) DeleteRoom(ctx context.Context, name string, requester models.Identity) error {
	rm, err := h.LookupRoom(ctx, name)
	if err != nil {
		return err
	}
	if rm.CreatorID != requester.ID {
		return ErrForbidden
	}

	// 持有 relayMu，避免刪除期間有新訊息寫入這個房間
	r := h.lockRelay(name)
	defer r.relayMu.Unlock()

	var purged int64
	if err := h.persist(ctx, "deleteMessages", func(ctx context.Context) error {
		var err error
		purged, err = h.store.DeleteMessagesForRoom(ctx, name)
		return err
	}); err != nil {
		return err
	}
	if err := h.persist(ctx, "deleteRoom", func(ctx context.Context) error {
		return h.store.DeleteRoom(ctx, name)
	}); err != nil {
		return err
	}

	evicted := h.evict(r)
	swept := h.sweep(time.Now())
	log.Info().Str("module", "signaling").
		Str("room", name).
		Int64("messages", purged).
		Int("evicted", evicted).
		Int("swept", swept).
		Msg("room deleted")
	return nil
}

// RoomsByCreator 列出某使用者建立的房間
func (h *Hub) RoomsByCreator(ctx context.Context, creatorID string) ([]models.Room, error) {
	var rooms []models.Room
	err := h.persist(ctx, "findRoomsByCreator", func(ctx context.Context) error {
		var err error
		rooms, err = h.store.FindRoomsByCreator(ctx, creatorID)
		return err
	})
	return rooms, err
}

// RecentMessages 回傳房間最近 limit 則訊息，由舊到新
func (h *Hub) RecentMessages(ctx context.Context, name string, limit int64) ([]models.Message, error) {
	var msgs []models.Message
	err := h.persist(ctx, "findRecentMessages", func(ctx context.Context) error {
		var err error
		msgs, err = h.store.FindRecentMessages(ctx, name, limit)
		return err
	})
	return msgs, err
}

// evict 標記房間已刪除，清空成員與通話並通知所有成員
func (h *Hub) evict(r *room) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = true
	r.deletedAt = time.Now()
	if len(r.participants) > 0 {
		metrics.ActiveCalls.Dec()
	}
	clear(r.participants)

	ev := Event{Name: EventRoomDeleted, Data: RoomDeleted{
		Room:    r.name,
		Message: fmt.Sprintf("Room %s has been deleted", r.name),
	}}
	n := len(r.members)
	for id, c := range r.members {
		c.setRoom(NoRoom{})
		c.deliver(ev)
		delete(r.members, id)
	}
	return n
}

// Package signaling 負責即時聊天室與通話信令的協調：
// 房間成員、訊息轉送、每個房間的通話參與者集合，以及斷線後的狀態回收。
package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arjun7095/Chat-Application/database"
	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/arjun7095/Chat-Application/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Routing 決定帶有 to 欄位的信令如何送達
type Routing string

const (
	// RouteDirect 只送給被指定的連線；找不到時退回整個房間廣播
	RouteDirect Routing = "direct"
	// RouteBroadcast 送給房間內除發送者外的所有人，由客戶端依 to 過濾
	RouteBroadcast Routing = "broadcast"
)

type Options struct {
	PersistTimeout time.Duration
	Routing        Routing
	SendBuffer     int
	// TombstoneTTL 是已刪除房間的記錄保留多久，用來擋下與刪除同時進行的加入
	TombstoneTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	if o.Routing == "" {
		o.Routing = RouteDirect
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.TombstoneTTL <= 0 {
		o.TombstoneTTL = time.Minute
	}
	return o
}

// room 是單一房間的即時狀態。
// 鎖的順序：room.relayMu -> Hub.mu -> room.mu -> Conn.mu。
// 持有 Hub.mu 時只能以 TryLock 取得 relayMu。
type room struct {
	name string

	// relayMu 讓同一房間的訊息依寫入完成順序廣播，也讓建立與刪除同名房間互斥
	relayMu sync.Mutex

	mu           sync.Mutex
	members      map[string]*Conn
	participants map[string]struct{}
	deleted      bool
	deletedAt    time.Time
	// retired 表示記錄已自 Hub 移除，持有舊指標的呼叫者需重新取得
	retired bool
}

func newRoom(name string) *room {
	return &room{
		name:         name,
		members:      make(map[string]*Conn),
		participants: make(map[string]struct{}),
	}
}

// broadcastLocked 呼叫前需持有 r.mu；exclude 為空字串表示不排除任何人
func (r *room) broadcastLocked(ev Event, exclude string) {
	for id, c := range r.members {
		if id == exclude {
			continue
		}
		c.deliver(ev)
	}
}

func (r *room) participantIDs() []string {
	return lo.Keys(r.participants)
}

// Hub 以房間名稱為索引保存所有房間的即時狀態，每個房間各自加鎖
type Hub struct {
	store    database.Store
	opts     Options
	validate *validator.Validate

	mu    sync.Mutex
	rooms map[string]*room
	conns map[string]*Conn
}

func NewHub(store database.Store, opts Options) *Hub {
	return &Hub{
		store:    store,
		opts:     opts.withDefaults(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		rooms:    make(map[string]*room),
		conns:    make(map[string]*Conn),
	}
}

// NewConn 建立一條使用 Hub 緩衝設定的連線並登記
func (h *Hub) NewConn(identity models.Identity) *Conn {
	c := NewConn(identity, h.opts.SendBuffer)
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	metrics.Connections.Inc()
	log.Debug().Str("module", "signaling").Str("conn", c.id).Str("user", identity.DisplayName).Msg("connection registered")
	return c
}

// record 取得房間狀態；create 為 true 時不存在就建立
func (h *Hub) record(name string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok && create {
		r = newRoom(name)
		h.rooms[name] = r
	}
	return r
}

// lockRelay 取得房間目前記錄的 relayMu；等待期間記錄被換掉時重試
func (h *Hub) lockRelay(name string) *room {
	for {
		r := h.record(name, true)
		r.relayMu.Lock()
		h.mu.Lock()
		current := h.rooms[name] == r
		h.mu.Unlock()
		if current {
			return r
		}
		r.relayMu.Unlock()
	}
}

// revive 在房間重新建立後，以新的狀態取代已刪除的舊記錄。呼叫前需持有舊記錄的 relayMu
func (h *Hub) revive(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[name]; ok {
		r.mu.Lock()
		deleted := r.deleted
		if deleted {
			r.retired = true
		}
		r.mu.Unlock()
		if !deleted {
			return
		}
	}
	h.rooms[name] = newRoom(name)
}

// prune 移除沒有成員的房間記錄；有人持有 relayMu 時略過
func (h *Hub) prune(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok || !r.relayMu.TryLock() {
		return
	}
	defer r.relayMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted || len(r.members) > 0 || len(r.participants) > 0 {
		return
	}
	r.retired = true
	delete(h.rooms, name)
}

// sweep 移除超過 TombstoneTTL 的已刪除房間記錄
func (h *Hub) sweep(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for name, r := range h.rooms {
		if !r.relayMu.TryLock() {
			continue
		}
		r.mu.Lock()
		if r.deleted && now.Sub(r.deletedAt) >= h.opts.TombstoneTTL {
			r.retired = true
			delete(h.rooms, name)
			n++
		}
		r.mu.Unlock()
		r.relayMu.Unlock()
	}
	return n
}

// Members 回傳房間目前的連線 id
func (h *Hub) Members(name string) []string {
	r := h.record(name, false)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.members)
}

// Participants 回傳房間目前通話中的 participant id
func (h *Hub) Participants(name string) []string {
	r := h.record(name, false)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantIDs()
}

// Shutdown 關閉所有連線；各連線的傳輸層隨後執行斷線回收
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := lo.Values(h.conns)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	log.Info().Str("module", "signaling").Int("connections", len(conns)).Msg("hub shut down")
}

// persist 以 PersistTimeout 限制儲存層呼叫。
// 找不到 / 名稱重複轉成對應的錯誤，其餘失敗（含逾時）包成 ErrPersistenceFailed
func (h *Hub) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.PersistTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.PersistDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrRoomNotFound):
		return ErrNotFound
	case errors.Is(err, database.ErrRoomExists):
		return ErrDuplicateName
	default:
		log.Error().Err(err).Str("module", "signaling").Str("op", op).Msg("persistence call failed")
		return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, op, err)
	}
}

package signaling

import (
	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/rs/zerolog/log"
)

type step struct {
	name string
	run  func()
}

// unwind 依序執行每個回收步驟；單一步驟失敗只記錄，不中斷後續步驟
func unwind(c *Conn, room string, steps []step) {
	for _, s := range steps {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Warn().Str("module", "signaling").
						Str("conn", c.id).
						Str("room", room).
						Str("step", s.name).
						Interface("panic", rec).
						Msg("reconcile step failed")
				}
			}()
			s.run()
		}()
	}
}

// Disconnect 在傳輸層斷線後回收連線持有的所有狀態：
// 通知房間其他成員（離開訊息、userLeft）、移除成員關係與通話參與，
// 最後的參與者離開時通話隨之結束。重複呼叫是安全的。
func (h *Hub) Disconnect(c *Conn) {
	room, _ := c.roomName()
	left := h.leave(c)
	h.forget(c)

	log.Info().Str("module", "signaling").
		Str("conn", c.id).
		Str("user", c.identity.DisplayName).
		Str("room", room).
		Bool("left", left).
		Msg("connection closed")
}

func (h *Hub) forget(c *Conn) {
	c.Close()

	h.mu.Lock()
	_, registered := h.conns[c.id]
	delete(h.conns, c.id)
	h.mu.Unlock()

	if registered {
		metrics.Connections.Dec()
	}
}

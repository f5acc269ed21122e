package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/arjun7095/Chat-Application/middleware"
	"github.com/arjun7095/Chat-Application/signaling"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// SDP 與 ICE candidate 可能有數 KB
	maxMessageSize = 64 * 1024
)

// Handler 處理 WebSocket 連線：握手前驗證身分，之後由 readPump 依序派送事件
type Handler struct {
	hub      *signaling.Hub
	guard    *middleware.IdentityGuard
	upgrader websocket.Upgrader
}

func NewHandler(hub *signaling.Hub, guard *middleware.IdentityGuard, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		guard: guard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 非瀏覽器客戶端不帶 Origin
				return origin == "" || lo.Contains(allowedOrigins, "*") || lo.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeHTTP 處理 WebSocket 連線請求
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.guard.Authenticate(r)
	if err != nil {
		log.Warn().Err(err).Str("module", "websocket").Str("remote", r.RemoteAddr).Msg("rejected connection")
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "websocket").Msg("failed to upgrade to WebSocket")
		return
	}

	c := h.hub.NewConn(identity)
	log.Info().Str("module", "websocket").
		Str("conn", c.ID()).
		Str("user", identity.DisplayName).
		Msg("client connected")

	go writePump(ws, c)
	readPump(context.WithoutCancel(r.Context()), h.hub, ws, c) // readPump 會在連線關閉時執行斷線回收
}

// 讀取用戶傳來的事件，依到達順序交給 Hub
func readPump(ctx context.Context, hub *signaling.Hub, ws *websocket.Conn, c *signaling.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		hub.Disconnect(c)
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error { ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, p, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "websocket").Str("conn", c.ID()).Msg("read failed")
			}
			return
		}
		// 錯誤已在 Dispatch 內記錄或回報
		_ = hub.Dispatch(ctx, c, p)
	}
}

// 把 Hub 排入的事件寫給前端；連線被關閉時送出 CloseMessage
func writePump(ws *websocket.Conn, c *signaling.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()
	for {
		select {
		case ev := <-c.Send():
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("module", "websocket").Str("event", ev.Name).Msg("failed to encode event")
				continue
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Str("module", "websocket").Str("conn", c.ID()).Msg("write failed")
				c.Close()
				return
			}

		case <-c.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		// 定時 ping 以偵測客戶端是否仍在線
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

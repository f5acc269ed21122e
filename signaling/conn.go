package signaling

import (
	"sync"

	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/arjun7095/Chat-Application/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CurrentRoom 是連線目前所在的房間：NoRoom 或 InRoom。
// 只會經由 join / leave 轉換。
type CurrentRoom interface {
	currentRoom()
}

type NoRoom struct{}

type InRoom struct {
	Name string
}

func (NoRoom) currentRoom() {}
func (InRoom) currentRoom() {}

// Conn 代表一條已通過身分驗證的即時連線。
// 對外事件寫入有緩衝的 send；緩衝滿時該事件被丟棄並關閉連線。
type Conn struct {
	id       string
	identity models.Identity

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	current CurrentRoom
}

func NewConn(identity models.Identity, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	return &Conn{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan Event, buffer),
		done:     make(chan struct{}),
		current:  NoRoom{},
	}
}

// ID 是連線 id，同時作為通話中的 participant id
func (c *Conn) ID() string { return c.id }

func (c *Conn) Identity() models.Identity { return c.identity }

// Send 回傳待寫出的事件；channel 永不關閉，結束請看 Done
func (c *Conn) Send() <-chan Event { return c.send }

// Done 在連線被關閉（斷線、踢除或關機）時關閉
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) CurrentRoom() CurrentRoom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Conn) roomName() (string, bool) {
	in, ok := c.CurrentRoom().(InRoom)
	return in.Name, ok
}

func (c *Conn) setRoom(room CurrentRoom) {
	c.mu.Lock()
	c.current = room
	c.mu.Unlock()
}

// deliver 非阻塞地把事件放入緩衝；接收端過慢就踢除，不影響其他接收者
func (c *Conn) deliver(ev Event) bool {
	select {
	case <-c.done:
		metrics.DroppedDeliveries.Inc()
		return false
	default:
	}

	select {
	case c.send <- ev:
		metrics.Deliveries.WithLabelValues(ev.Name).Inc()
		return true
	default:
		metrics.DroppedDeliveries.Inc()
		log.Warn().Str("module", "signaling").
			Str("conn", c.id).
			Str("event", ev.Name).
			Msg("send buffer full, closing connection")
		c.Close()
		return false
	}
}

package signaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/arjun7095/Chat-Application/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dispatch 解析並處理一個來自連線的事件。同一連線的事件必須依序呼叫。
// 格式錯誤的事件只記錄警告（連線保持開啟）；其他錯誤以 error 事件回報給該連線。
func (h *Hub) Dispatch(ctx context.Context, c *Conn, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		return h.reject(c, env.Event, fmt.Errorf("%w: malformed envelope", ErrProtocolViolation))
	}

	action, err := h.handle(ctx, c, env)
	switch {
	case err == nil:
		metrics.EventsReceived.WithLabelValues(env.Event, "ok").Inc()
		return nil
	case errors.Is(err, ErrProtocolViolation):
		return h.reject(c, env.Event, err)
	default:
		metrics.EventsReceived.WithLabelValues(env.Event, "error").Inc()
		log.Debug().Err(err).Str("module", "signaling").Str("conn", c.id).Str("event", env.Event).Msg("event failed")
		c.deliver(Event{Name: EventError, Data: ErrorMessage{Message: publicMessage(err, action)}})
		return err
	}
}

func (h *Hub) reject(c *Conn, event string, err error) error {
	metrics.EventsReceived.WithLabelValues("invalid", "rejected").Inc()
	log.Warn().Err(err).Str("module", "signaling").Str("conn", c.id).Str("event", event).Msg("ignoring inbound event")
	return err
}

// decode 解析並驗證事件內容
func (h *Hub) decode(data []byte, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return nil
}

// handle 回傳的 action 用於組出失敗時的錯誤訊息
func (h *Hub) handle(ctx context.Context, c *Conn, env Envelope) (string, error) {
	switch env.Event {
	case InCreateRoom:
		var req roomNameRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		_, err := h.CreateAndJoin(ctx, c, req.Name)
		return "create room", err

	case InJoinRoom:
		var req roomNameRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		_, err := h.Join(ctx, c, req.Name)
		return "join room", err

	case InLeaveRoom:
		h.Leave(c)
		return "leave room", nil

	case InDeleteRoom:
		var req roomNameRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		return "delete room", h.DeleteRoom(ctx, req.Name, c.identity)

	case InSendMessage:
		var req sendMessageRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		_, err := h.SendMessage(ctx, c, req.Room, req.Text)
		return "send message", err

	case InCallRequest, InJoinCall, InLeaveCall:
		var req callRoomRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		switch env.Event {
		case InCallRequest:
			return "start call", h.CallRequest(c, req.Room)
		case InJoinCall:
			return "join call", h.JoinCall(c, req.Room)
		default:
			return "leave call", h.LeaveCall(c, req.Room)
		}

	case InCallAccepted, InCallRejected:
		var req callReplyRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		if env.Event == InCallAccepted {
			return "accept call", h.CallAccepted(c, req.Room, req.To)
		}
		return "reject call", h.CallRejected(c, req.Room, req.To)

	case InCallUser, InAnswerCall:
		var req signalRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		if env.Event == InCallUser {
			return "call user", h.CallUser(c, req.Room, req.To, req.Signal)
		}
		return "answer call", h.AnswerCall(c, req.Room, req.To, req.Signal)

	case InICECandidate:
		var req candidateRequest
		if err := h.decode(env.Data, &req); err != nil {
			return "", err
		}
		return "relay candidate", h.ICECandidate(c, req.Room, req.To, req.Candidate)

	default:
		return "", fmt.Errorf("%w: unknown event %q", ErrProtocolViolation, env.Event)
	}
}

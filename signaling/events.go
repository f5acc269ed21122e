package signaling

import (
	jsoniter "github.com/json-iterator/go"
)

// Event 是送往客戶端的事件封包
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Envelope 是客戶端送來的事件封包，Data 依 Event 再解碼
type Envelope struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data"`
}

// 客戶端 -> 伺服器
const (
	InCreateRoom   = "createRoom"
	InJoinRoom     = "joinRoom"
	InLeaveRoom    = "leaveRoom"
	InDeleteRoom   = "deleteRoom"
	InSendMessage  = "sendMessage"
	InCallRequest  = "callRequest"
	InCallAccepted = "callAccepted"
	InCallRejected = "callRejected"
	InJoinCall     = "joinCall"
	InLeaveCall    = "leaveCall"
	InCallUser     = "callUser"
	InAnswerCall   = "answerCall"
	InICECandidate = "iceCandidate"
)

// 伺服器 -> 客戶端
const (
	EventRoomCreated  = "roomCreated"
	EventRoomInfo     = "roomInfo"
	EventRoomDeleted  = "roomDeleted"
	EventMessage      = "message"
	EventOngoingCall  = "ongoingCall"
	EventCallRequest  = "callRequest"
	EventCallAccepted = "callAccepted"
	EventCallRejected = "callRejected"
	EventCallUser     = "callUser"
	EventCallAnswered = "callAnswered"
	EventICECandidate = "iceCandidate"
	EventUserLeft     = "userLeft"
	EventError        = "error"

	// EventPeerJoinAnnounced 宣告有人中途加入通話。沿用 callRequest 的線路名稱，
	// 讓既有參與者各自對新成員發起連線；以 CallRequest.Join 與一般來電區分。
	EventPeerJoinAnnounced = EventCallRequest
)

type RoomCreated struct {
	Room string `json:"room"`
}

type RoomInfo struct {
	Room      string `json:"room"`
	CreatorID string `json:"creatorId"`
}

type RoomDeleted struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

type OngoingCall struct {
	Room         string   `json:"room"`
	Participants []string `json:"participants"`
}

type CallRequest struct {
	From string `json:"from"`
	Name string `json:"name"`
	Join bool   `json:"join"`
}

// CallReply 是 callAccepted / callRejected 的內容
type CallReply struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Signal 是 callUser / callAnswered / iceCandidate 的內容；signal 與 candidate 不解析，原樣轉送
type Signal struct {
	Signal    jsoniter.RawMessage `json:"signal,omitempty"`
	Candidate jsoniter.RawMessage `json:"candidate,omitempty"`
	From      string              `json:"from"`
	To        string              `json:"to"`
}

type UserLeft struct {
	ID string `json:"id"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// inbound payloads

type roomNameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type sendMessageRequest struct {
	Room string `json:"room" validate:"required,max=64"`
	Text string `json:"text" validate:"required,max=4000"`
}

type callRoomRequest struct {
	Room string `json:"room" validate:"required,max=64"`
	From string `json:"from"`
}

type callReplyRequest struct {
	Room string `json:"room" validate:"required,max=64"`
	To   string `json:"to" validate:"required"`
}

type signalRequest struct {
	Room   string              `json:"room" validate:"required,max=64"`
	To     string              `json:"to" validate:"required"`
	Signal jsoniter.RawMessage `json:"signal" validate:"required"`
}

type candidateRequest struct {
	Room      string              `json:"room" validate:"required,max=64"`
	To        string              `json:"to" validate:"required"`
	Candidate jsoniter.RawMessage `json:"candidate" validate:"required"`
}

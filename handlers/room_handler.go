package handlers

import (
	"fmt"
	"net/http"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/arjun7095/Chat-Application/signaling"
	"github.com/arjun7095/Chat-Application/utils"
	"github.com/gorilla/mux"
)

// CreateRoomRequest 定義創建房間的請求體
type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// PostMessageRequest 定義透過 REST 發送訊息的請求體
type PostMessageRequest struct {
	Room string `json:"room" validate:"required,max=64"`
	Text string `json:"text" validate:"required,max=4000"`
}

// RoomHandler 處理房間與訊息記錄的 REST 請求；狀態變更都經由 Hub，讓在線成員同步收到通知
type RoomHandler struct {
	hub          *signaling.Hub
	historyLimit int64
}

func NewRoomHandler(hub *signaling.Hub, historyLimit int64) *RoomHandler {
	return &RoomHandler{hub: hub, historyLimit: historyLimit}
}

func identityOrReject(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, err := utils.GetIdentityFromContext(r.Context())
	if err != nil {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return models.Identity{}, false
	}
	return identity, true
}

// ListRooms 列出呼叫者建立的房間
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}

	rooms, err := h.hub.RoomsByCreator(r.Context(), identity.ID)
	if err != nil {
		sendCoordinatorError(w, err, "fetch rooms")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// CreateRoom 建立房間但不加入
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}
	var req CreateRoomRequest
	if !decodeBody(w, r, &req) {
		return
	}

	room, err := h.hub.CreateRoom(r.Context(), req.Name, identity)
	if err != nil {
		sendCoordinatorError(w, err, "create room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// DeleteRoom 只有建立者可以刪除；在線成員會收到 roomDeleted
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["room"]

	if err := h.hub.DeleteRoom(r.Context(), name, identity); err != nil {
		sendCoordinatorError(w, err, "delete room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Room %s deleted successfully", name),
	})
}

// GetMessages 回傳房間最近的訊息，由舊到新
func (h *RoomHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["room"]

	messages, err := h.hub.RecentMessages(r.Context(), name, h.historyLimit)
	if err != nil {
		sendCoordinatorError(w, err, "fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// PostMessage 以呼叫者身分發送訊息並廣播給房間在線成員
func (h *RoomHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}
	var req PostMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.hub.PostMessage(r.Context(), identity, req.Room, req.Text)
	if err != nil {
		sendCoordinatorError(w, err, "save message")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

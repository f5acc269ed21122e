package database

import (
	"context"
	"errors"
	"time"

	"github.com/arjun7095/Chat-Application/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room name already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username already exists")
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/arjun7095/Chat-Application/database Store

// RoomStore 房間資料的存取介面，名稱區分大小寫且唯一
type RoomStore interface {
	FindRoomByName(ctx context.Context, name string) (*models.Room, error)
	FindRoomsByCreator(ctx context.Context, creatorID string) ([]models.Room, error)
	InsertRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, name string) error
}

// MessageStore 聊天訊息的存取介面
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	DeleteMessagesForRoom(ctx context.Context, room string) (int64, error)
	// FindRecentMessages 回傳最近 limit 則訊息，由舊到新排序
	FindRecentMessages(ctx context.Context, room string, limit int64) ([]models.Message, error)
	PruneMessages(ctx context.Context, before time.Time) (int64, error)
}

// UserStore 使用者帳號的存取介面
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
}

// Store 聚合所有持久化操作，供 signaling 與 handlers 使用
type Store interface {
	RoomStore
	MessageStore
	UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

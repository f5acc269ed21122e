package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SystemAuthor 是加入/離開等系統通知的作者名稱
const SystemAuthor = "System"

// Message 定義聊天訊息結構，儲存後不再修改
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Room      string             `bson:"room" json:"room"`
	Author    string             `bson:"username" json:"author"`
	Text      string             `bson:"message" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// NewSystemMessage 建立不寫入資料庫的系統通知
func NewSystemMessage(room, text string) Message {
	return Message{
		Room:      room,
		Author:    SystemAuthor,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

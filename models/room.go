package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room 定義聊天室結構，以名稱定址，建立者擁有刪除權。
// ID 只供儲存層內部使用
type Room struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	CreatorID string             `bson:"creatorId" json:"creatorId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

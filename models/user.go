package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialsRequest 是註冊與登入的請求內容
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=4,max=128"`
}

// ErrorResponse 定義錯誤回應結構
type ErrorResponse struct {
	Message string `json:"message"`
}

// User 定義使用者結構；Password 存放 bcrypt 雜湊，不輸出到 JSON
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Username string             `bson:"username" json:"username"`
	Password string             `bson:"password" json:"-"`
}

package utils

import (
	"context"
	"testing"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateJWT(t *testing.T) {
	// 準備測試資料
	userID := primitive.NewObjectID()
	username := "testuser"
	secret := "test-secret"

	tokenString, err := GenerateJWT(userID, username, secret, time.Hour)
	require.NoError(t, err, "生成 JWT 不應該返回錯誤")
	assert.NotEmpty(t, tokenString, "生成的 JWT token 不應該是空的")

	// 以原始 jwt 套件解析，確認 claims 內容
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		assert.True(t, ok, "非預期的簽名演算法")
		return []byte(secret), nil
	})
	require.NoError(t, err, "解析 JWT token 不應該返回錯誤")
	assert.True(t, token.Valid, "JWT token 應該是有效的")

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok, "無法讀取 JWT claims")
	assert.Equal(t, userID.Hex(), claims["userId"])
	assert.Equal(t, username, claims["username"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok, "exp claim 格式錯誤")
	assert.Greater(t, int64(exp), time.Now().Unix(), "過期時間應該在未來")
}

func TestParseToken(t *testing.T) {
	userID := primitive.NewObjectID()
	secret := "test-secret"

	valid, err := GenerateJWT(userID, "alice", secret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateJWT(userID, "alice", secret, -time.Minute)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		identity, err := ParseToken(valid, secret)
		require.NoError(t, err)
		assert.Equal(t, models.Identity{ID: userID.Hex(), DisplayName: "alice"}, identity)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ParseToken(valid, "other-secret")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := ParseToken(expired, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken("not-a-token", secret)
		assert.Error(t, err)
	})

	t.Run("bad user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"userId":   "123",
			"username": "alice",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = ParseToken(signed, secret)
		assert.Error(t, err)
	})
}

func TestIdentityContext(t *testing.T) {
	_, err := GetIdentityFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)

	want := models.Identity{ID: "u1", DisplayName: "alice"}
	got, err := GetIdentityFromContext(WithIdentity(context.Background(), want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

package utils

import (
	"context"
	"errors"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

// IdentityKey 是儲存在 context 中的已驗證身分的鍵
const IdentityKey contextKey = "identity"

var (
	ErrNoIdentity    = errors.New("identity not found in context")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims 是 token 內攜帶的聲明
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// WithIdentity 將身分放入 context
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentityFromContext 從 context 中提取身分
func GetIdentityFromContext(ctx context.Context) (models.Identity, error) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	if !ok {
		return models.Identity{}, ErrNoIdentity
	}
	return identity, nil
}

// ParseToken 驗證 JWT 並轉換為身分
func ParseToken(tokenString string, jwtSecret string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return models.Identity{}, err
	}
	if !token.Valid {
		return models.Identity{}, ErrInvalidClaims
	}

	// userId 必須是合法的 ObjectID hex
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
		return models.Identity{}, errors.New("invalid user ID format in token")
	}
	if claims.Username == "" {
		return models.Identity{}, ErrInvalidClaims
	}

	return models.Identity{ID: claims.UserID, DisplayName: claims.Username}, nil
}

// GenerateJWT 為用戶生成 JWT Token
func GenerateJWT(userID primitive.ObjectID, username string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID.Hex(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.New("failed to sign token")
	}
	return tokenString, nil
}

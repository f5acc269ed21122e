package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/arjun7095/Chat-Application/signaling"
	"github.com/arjun7095/Chat-Application/utils"
	"github.com/rs/zerolog/log"
)

// IdentityGuard 驗證連線或請求攜帶的 JWT，轉換成身分
type IdentityGuard struct {
	secret string
}

func NewIdentityGuard(secret string) *IdentityGuard {
	return &IdentityGuard{secret: secret}
}

// Verify 驗證 token 字串
func (g *IdentityGuard) Verify(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: missing token", signaling.ErrUnauthenticated)
	}
	identity, err := utils.ParseToken(token, g.secret)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", signaling.ErrUnauthenticated, err)
	}
	return identity, nil
}

// Authenticate 從 Authorization: Bearer <token> 取出 token；
// 瀏覽器的 WebSocket 無法自訂 header，因此也接受 ?token= 查詢參數
func (g *IdentityGuard) Authenticate(r *http.Request) (models.Identity, error) {
	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return models.Identity{}, err
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return g.Verify(token)
}

// JWTMiddleware 驗證 JWT Token 並將身分放入 context
func (g *IdentityGuard) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		token, err := bearerToken(authHeader)
		if err != nil {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		identity, err := g.Verify(token)
		if err != nil {
			log.Debug().Err(err).Str("module", "middleware").Msg("rejected token")
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithIdentity(r.Context(), identity)))
	})
}

var errBadAuthHeader = fmt.Errorf("%w: invalid authorization header", signaling.ErrUnauthenticated)

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errBadAuthHeader
	}
	return parts[1], nil
}


// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Hata varsa next'i çağırmaz, request burada durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/akinalp/relay/handlers"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/services"
)

// AuthMiddleware, bearer token doğrulama middleware'ı.
//
// Token'lar dış kimlik servisinde üretilir. Kullanıcı kaydı burada ilk
// görüldüğünde oluşturulur, ayrı bir kayıt akışı yoktur.
type AuthMiddleware struct {
	authService services.AuthService
	userService services.UserService
	log         *zap.Logger
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, userService services.UserService, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userService: userService,
		log:         log.Named("auth"),
	}
}

// Require, token zorunlu kılan middleware.
// Token yoksa veya geçersizse 401 Unauthorized.
//
// HTTP header formatı: Authorization: Bearer <token>
//
//  1. "Authorization" header'ını oku, "Bearer " prefix'ini kaldır
//  2. AuthService.ValidateAccessToken() ile doğrula
//  3. Kullanıcıyı kaydet (ilk kez görülüyorsa) → context'e ekle → next
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		if err := m.userService.EnsureUser(r.Context(), claims.UserID, claims.Username); err != nil {
			m.log.Error("failed to provision user", zap.String("user_id", claims.UserID), zap.Error(err))
			pkg.Error(w, err)
			return
		}

		user := &models.User{ID: claims.UserID, Username: claims.Username}
		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

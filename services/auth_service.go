// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır. Tüm iş
// kuralları burada yaşar: yetki kontrolleri, zaman pencereleri, blok
// ilişkileri ve event yayınları.
//
// Service ASLA http.Request/Response bilmez, sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz, Repository interface'i kullanır.
package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
)

// AuthService, access token doğrulaması. Token'lar dış kimlik servisi
// tarafından HS256 ile imzalanır; burada üretilmez.
type AuthService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

type authService struct {
	jwtSecret []byte
}

// NewAuthService, constructor.
func NewAuthService(jwtSecret string) AuthService {
	return &authService{jwtSecret: []byte(jwtSecret)}
}

// ValidateAccessToken, token'ı doğrular ve claim'leri döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	// user_id yoksa standart subject kullanılır.
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject", pkg.ErrUnauthorized)
	}

	return claims, nil
}

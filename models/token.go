package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token payload'ı. Token'lar dış bir kimlik servisi
// tarafından üretilir; burada sadece doğrulanıp okunur.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

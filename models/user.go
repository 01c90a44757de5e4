// Package models, uygulamanın domain modellerini tanımlar.
//
// JSON tag'leri API ve WebSocket payload'larının şeklini belirler.
package models

import (
	"fmt"
	"time"
)

// User, kimliği dışarıda doğrulanmış bir kullanıcı.
// Kayıt, kimlik ilk görüldüğünde (auth middleware / WS bağlantısı) oluşturulur.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// RelationKind, bir kullanıcının başka bir kullanıcıyla ilişki türü.
type RelationKind string

const (
	RelationBlock    RelationKind = "block"
	RelationMute     RelationKind = "mute"
	RelationFavorite RelationKind = "favorite"
	RelationContact  RelationKind = "contact"
)

// ParseRelationKind, URL'den gelen değeri doğrular. Contact listesi
// sadece mesaj gönderiminde dolar, toggle ile değiştirilemez.
func ParseRelationKind(s string) (RelationKind, error) {
	switch k := RelationKind(s); k {
	case RelationBlock, RelationMute, RelationFavorite:
		return k, nil
	default:
		return "", fmt.Errorf("unknown relation kind %q", s)
	}
}

// Relations, kullanıcının sahip olduğu ilişki kümeleri.
type Relations struct {
	Blocked   []string `json:"blocked"`
	Muted     []string `json:"muted"`
	Favorites []string `json:"favorites"`
	Contacts  []string `json:"contacts"`
}

// RelationToggleResult, toggle işleminin sonucu.
type RelationToggleResult struct {
	Kind     RelationKind `json:"kind"`
	TargetID string       `json:"target_id"`
	Active   bool         `json:"active"`
}

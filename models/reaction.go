package models

import (
	"fmt"
	"strings"
	"time"
)

// Reaction, bir kullanıcının mesaj üzerindeki tek canlı tepkisi.
// Her (mesaj, kullanıcı) çifti için en fazla bir kayıt vardır.
type Reaction struct {
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ToggleReactionRequest, reaction ekleme/değiştirme/kaldırma isteği.
//
// TargetUserID doluysa ve aktörden farklıysa moderasyon yoludur: mesajın
// sahibi o kullanıcının tepkisini emoji'den bağımsız olarak kaldırır.
type ToggleReactionRequest struct {
	Emoji        string `json:"emoji"`
	TargetUserID string `json:"target_user_id,omitempty"`
}

// Normalize, alanları kırpar. Emoji doğrulaması lifecycle kuralında yapılır
// çünkü moderasyon yolunda emoji gerekmez.
func (r *ToggleReactionRequest) Normalize() {
	r.Emoji = strings.TrimSpace(r.Emoji)
	r.TargetUserID = strings.TrimSpace(r.TargetUserID)
}

// IsModeration, isteğin başka bir kullanıcının tepkisini hedefleyip hedeflemediği.
func (r *ToggleReactionRequest) IsModeration(actorID string) bool {
	return r.TargetUserID != "" && r.TargetUserID != actorID
}

// String, log satırları için kısa gösterim.
func (r ToggleReactionRequest) String() string {
	if r.TargetUserID != "" {
		return fmt.Sprintf("remove(%s)", r.TargetUserID)
	}
	return r.Emoji
}

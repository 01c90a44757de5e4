package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageType, mesajın içerik türü.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// MaxContentLength, bir mesajın rune cinsinden üst sınırı.
const MaxContentLength = 2000

// MessageBase, direct ve grup mesajlarının ortak alanları.
//
// DeletedForEveryone true ise Content ve MediaURL temizlenmiştir ve bir daha
// doldurulmaz. DeletedFor, mesajı kendi görünümünden gizlemiş kullanıcılardır.
type MessageBase struct {
	ID                 string      `json:"id"`
	SenderID           string      `json:"sender_id"`
	Type               MessageType `json:"type"`
	Content            string      `json:"content"`
	MediaURL           *string     `json:"media_url"`
	ReplyToID          *string     `json:"reply_to_id"`
	CreatedAt          time.Time   `json:"created_at"`
	IsEdited           bool        `json:"is_edited"`
	EditedAt           *time.Time  `json:"edited_at"`
	DeletedFor         []string    `json:"deleted_for"`
	DeletedForEveryone bool        `json:"deleted_for_everyone"`
	DeletedAt          *time.Time  `json:"deleted_at"`
	Reactions          []Reaction  `json:"reactions"`
	StarredBy          []string    `json:"starred_by"`
}

// IsHiddenFor, mesajın userID'nin görünümünden gizlenip gizlenmediği.
func (m *MessageBase) IsHiddenFor(userID string) bool {
	return slices.Contains(m.DeletedFor, userID)
}

// IsStarredBy, userID'nin mesajı yıldızlayıp yıldızlamadığı.
func (m *MessageBase) IsStarredBy(userID string) bool {
	return slices.Contains(m.StarredBy, userID)
}

// ReactionOf, userID'nin canlı tepkisini döner.
func (m *MessageBase) ReactionOf(userID string) (Reaction, bool) {
	for _, r := range m.Reactions {
		if r.UserID == userID {
			return r, true
		}
	}
	return Reaction{}, false
}

// Message, iki kullanıcı arasındaki direct mesaj.
type Message struct {
	MessageBase
	ReceiverID string     `json:"receiver_id"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
}

// PeerOf, userID'nin konuşmadaki karşı tarafını döner.
func (m *Message) PeerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// IsParticipant, userID'nin gönderen veya alıcı olup olmadığı.
func (m *Message) IsParticipant(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// SendMessageRequest, yeni mesaj gönderme isteği (direct ve grup ortak).
// Image mesajlarında MediaURL zorunludur, Content opsiyonel başlıktır.
type SendMessageRequest struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	MediaURL  *string     `json:"media_url,omitempty"`
	ReplyToID *string     `json:"reply_to_id,omitempty"`
}

// Validate, isteği normalize eder ve kontrol eder.
func (r *SendMessageRequest) Validate() error {
	if r.Type == "" {
		r.Type = MessageTypeText
	}
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)

	if contentLen > MaxContentLength {
		return fmt.Errorf("message content must be at most %d characters", MaxContentLength)
	}

	if r.ReplyToID != nil {
		id := strings.TrimSpace(*r.ReplyToID)
		if id == "" {
			r.ReplyToID = nil
		} else {
			r.ReplyToID = &id
		}
	}

	switch r.Type {
	case MessageTypeText:
		if contentLen < 1 {
			return fmt.Errorf("message content is required")
		}
		r.MediaURL = nil
	case MessageTypeImage:
		if r.MediaURL == nil || strings.TrimSpace(*r.MediaURL) == "" {
			return fmt.Errorf("media_url is required for image messages")
		}
		url := strings.TrimSpace(*r.MediaURL)
		r.MediaURL = &url
	default:
		return fmt.Errorf("unknown message type %q", r.Type)
	}
	return nil
}

// EditMessageRequest, mesaj düzenleme isteği.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// Validate, EditMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *EditMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > MaxContentLength {
		return fmt.Errorf("message content must be at most %d characters", MaxContentLength)
	}
	return nil
}

// ClearHistoryRequest, bir konuşma veya grubun geçmişini aktör için gizler.
type ClearHistoryRequest struct {
	KeepStarred bool `json:"keep_starred"`
}

// ClearHistoryResult, kaç mesajın gizlendiği.
type ClearHistoryResult struct {
	Hidden int `json:"hidden"`
}

// ReadResult, mark-read sonucu: okundu olarak işaretlenen mesaj ID'leri.
type ReadResult struct {
	MessageIDs []string  `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}

// PageQuery, cursor-based sayfalama: Before'dan önceki en fazla Limit mesaj.
type PageQuery struct {
	Before string
	Limit  int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Normalize, Limit'i 1..MaxPageLimit aralığına çeker.
func (q *PageQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
}

// MessagePage, direct mesaj sayfası (yeniden eskiye).
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

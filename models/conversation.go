package models

import "time"

// ConversationSummary, bir kullanıcının bir peer ile olan direct konuşmasının özeti.
// Saklanmaz; her istekte mesajlardan türetilir.
type ConversationSummary struct {
	PeerID         string    `json:"peer_id"`
	LastMessage    *Message  `json:"last_message"`
	UnreadCount    int       `json:"unread_count"`
	LastActivityAt time.Time `json:"last_activity_at"`
	IsMuted        bool      `json:"is_muted"`
	IsFavorite     bool      `json:"is_favorite"`
	IsOnline       bool      `json:"is_online"`
}

// GroupSummary, kullanıcının üyesi olduğu bir grubun özeti.
// Henüz mesaj yoksa LastMessage nil, UnreadCount 0'dır.
type GroupSummary struct {
	Group          Group         `json:"group"`
	LastMessage    *GroupMessage `json:"last_message"`
	UnreadCount    int           `json:"unread_count"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
//   - Hub: presence registry. userID → açık bağlantı kümesi; online/offline geçişleri.
//   - Client: tek bir WebSocket bağlantısı (ReadPump/WritePump).
//   - TypingTracker: "X, Y'ye yazıyor" geçici durumu.
//   - Router: event'in hedef kullanıcı kümesini çözer ve Hub üzerinden dağıtır.
//
// Event akışı:
//  1. Kullanıcı mesaj gönderir → HTTP POST → Service → DB kayıt
//  2. Service, Router.Publish ile event'i hedef kullanıcılara yollar (aktör hariç)
//  3. Hub, event'i hedeflerin tüm bağlantılarının send buffer'ına koyar
//  4. Her client'ın WritePump'ı event'i WebSocket'e yazar
//
// Dağıtım fire-and-forget'tir: bağlantısı olmayan hedef için event düşer,
// kalıcı kayıt DB'dedir ve client yeniden bağlanınca çeker.
package ws

import (
	"time"

	"github.com/akinalp/relay/models"
)

// Event, WebSocket üzerinden iletilen bir mesaj.
//
// Seq, Hub genelinde artan sayaçtır; tek bir bağlantıya giden event'ler
// yayın sırasıyla ve artan seq ile gelir.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat"
	OpTyping    = "typing"
)

// Server → Client operasyonları
const (
	OpReady          = "ready"
	OpHeartbeatAck   = "heartbeat_ack"
	OpPresenceUpdate = "presence_update"
	OpTypingUpdate   = "typing_update"
	OpError          = "error"

	OpMessageCreate   = "message_create"
	OpMessageDelivery = "message_delivery"
	OpMessageUpdate   = "message_update"
	OpMessageDelete   = "message_delete"
	OpReactionUpdate  = "reaction_update"
	OpReadReceipt     = "read_receipt"

	OpGroupMessageCreate  = "group_message_create"
	OpGroupMessageUpdate  = "group_message_update"
	OpGroupMessageDelete  = "group_message_delete"
	OpGroupReactionUpdate = "group_reaction_update"
	OpGroupReadReceipt    = "group_read_receipt"

	OpGroupCreate       = "group_create"
	OpGroupUpdate       = "group_update"
	OpGroupDelete       = "group_delete"
	OpGroupMemberAdd    = "group_member_add"
	OpGroupMemberRemove = "group_member_remove"
)

// Presence durumları
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ReadyData, bağlantı kurulduğunda client'a gönderilen ilk event.
// Delta değil, o anki online kullanıcıların tam listesidir.
type ReadyData struct {
	UserID        string   `json:"user_id"`
	OnlineUserIDs []string `json:"online_user_ids"`
}

// PresenceData, bir kullanıcının online durumu değiştiğinde yayınlanır.
type PresenceData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// TypingData, client'tan gelen typing event'i. ToUserID veya GroupID'den biri dolu olmalı.
type TypingData struct {
	ToUserID string `json:"to_user_id,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// TypingUpdateData, typing_update event'inin payload'ı.
type TypingUpdateData struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id,omitempty"`
	GroupID    string `json:"group_id,omitempty"`
	IsTyping   bool   `json:"is_typing"`
}

// ErrorData, client event'i reddedildiğinde sadece o bağlantıya gönderilir.
type ErrorData struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// DeliveryData, mesaj gönderildikten sonra göndericinin kendi bağlantılarına
// giden onay. Delivered, alıcının yayın anında en az bir bağlantıya sahip olup
// olmadığıdır; Recipients ulaşılan bağlantı sayısı.
type DeliveryData struct {
	MessageID  string `json:"message_id"`
	GroupID    string `json:"group_id,omitempty"`
	Delivered  bool   `json:"delivered"`
	Recipients int    `json:"recipients"`
}

// MessageDeleteData, herkesten silme sonrası yayınlanır.
type MessageDeleteData struct {
	MessageID string    `json:"message_id"`
	GroupID   string    `json:"group_id,omitempty"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ReactionUpdateData, mesajın güncel reaction listesi.
type ReactionUpdateData struct {
	MessageID string            `json:"message_id"`
	GroupID   string            `json:"group_id,omitempty"`
	ActorID   string            `json:"actor_id"`
	Reactions []models.Reaction `json:"reactions"`
}

// ReadReceiptData, okundu bilgisi. Direct'te mesajların göndericisine,
// grupta diğer üyelere gider.
type ReadReceiptData struct {
	ReaderID   string    `json:"reader_id"`
	GroupID    string    `json:"group_id,omitempty"`
	MessageIDs []string  `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}

// GroupMemberData, üye ekleme/çıkarma ve admin değişikliklerinde yayınlanır.
type GroupMemberData struct {
	GroupID string   `json:"group_id"`
	ActorID string   `json:"actor_id"`
	UserIDs []string `json:"user_ids"`
}

// GroupDeleteData, grup silindiğinde eski üyelere gider.
type GroupDeleteData struct {
	GroupID string `json:"group_id"`
	ActorID string `json:"actor_id"`
}

package repository

import (
	"context"
	"time"

	"github.com/akinalp/relay/models"
)

// PeerStat, bir kullanıcının bir peer ile görünür mesaj geçmişinin özeti.
type PeerStat struct {
	PeerID         string
	LastActivityAt time.Time
	UnreadCount    int
}

// MessageRepository, direct mesaj veritabanı işlemleri için interface.
//
// Update sadece lifecycle alanlarını yazar (içerik, edit, herkesten silme,
// reaction, yıldız) ve per-message lock altında çağrılır. Okundu bilgisi ve
// deleted_for kümesi tek SQL statement'ı ile atomik olarak güncellenir; bu
// sayede toplu işlemler (MarkRead, HideAll) lock almadan çalışabilir.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Update(ctx context.Context, msg *models.Message) error

	// HideFor, userID'yi mesajın deleted_for kümesine ekler (idempotent).
	HideFor(ctx context.Context, id, userID string) error
	// HideAll, userID ile peerID arasındaki görünür mesajları userID için gizler.
	HideAll(ctx context.Context, userID, peerID string, keepStarred bool) (int, error)
	// MarkRead, senderID'den receiverID'ye giden okunmamış mesajları okundu yapar.
	MarkRead(ctx context.Context, receiverID, senderID string, at time.Time) ([]string, error)

	// ListConversation, iki kullanıcı arasındaki mesajları viewerID için gizlenmemiş
	// olarak yeniden eskiye döner. limit+1 satır okunup HasMore hesaplanır.
	ListConversation(ctx context.Context, viewerID, peerID string, page models.PageQuery) ([]models.Message, bool, error)
	ListStarred(ctx context.Context, userID string) ([]models.Message, error)
	PeerStats(ctx context.Context, userID string) ([]PeerStat, error)
}

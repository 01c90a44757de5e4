package repository

import (
	"context"
	"time"

	"github.com/akinalp/relay/models"
)

// GroupMessageRepository, grup mesajı veritabanı işlemleri için interface.
// Update/HideFor/HideAll/MarkRead ayrımı MessageRepository ile aynıdır.
type GroupMessageRepository interface {
	Create(ctx context.Context, msg *models.GroupMessage) error
	GetByID(ctx context.Context, id string) (*models.GroupMessage, error)
	Update(ctx context.Context, msg *models.GroupMessage) error

	HideFor(ctx context.Context, id, userID string) error
	HideAll(ctx context.Context, userID, groupID string, keepStarred bool) (int, error)
	// MarkRead, grupta userID'nin yazmadığı ve henüz okumadığı mesajlara
	// (userID, at) okundu kaydı ekler; etkilenen mesaj ID'lerini döner.
	MarkRead(ctx context.Context, groupID, userID string, at time.Time) ([]string, error)

	ListByGroup(ctx context.Context, groupID, viewerID string, page models.PageQuery) ([]models.GroupMessage, bool, error)
	ListStarred(ctx context.Context, userID string) ([]models.GroupMessage, error)
	// Latest, grupta viewerID için görünür en yeni mesajı döner; yoksa nil.
	Latest(ctx context.Context, groupID, viewerID string) (*models.GroupMessage, error)
	CountUnread(ctx context.Context, groupID, userID string) (int, error)
	DeleteByGroup(ctx context.Context, groupID string) error
}

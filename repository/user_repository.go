// Package repository, veritabanı erişim katmanını tanımlar.
//
// Her aggregate için bir interface dosyası ve bir sqlite_*.go implementasyonu
// vardır. Implementasyonlar database.TxQuerier alır; normal çağrılarda *sql.DB,
// transaction içinde *sql.Tx geçilir.
package repository

import (
	"context"

	"github.com/akinalp/relay/models"
)

// UserRepository, kullanıcı kimlik kayıtları için interface.
type UserRepository interface {
	// Upsert, kimliği ilk görüldüğünde kaydeder; varsa boş olmayan username'i günceller.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// ExistingIDs, verilen ID'lerden kayıtlı olanları döner.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// RelationRepository, kullanıcının block/mute/favorite/contact kümeleri için interface.
type RelationRepository interface {
	Add(ctx context.Context, userID, targetID string, kind models.RelationKind) error
	Remove(ctx context.Context, userID, targetID string, kind models.RelationKind) error
	Has(ctx context.Context, userID, targetID string, kind models.RelationKind) (bool, error)
	// IsBlockedEither, iki kullanıcıdan birinin diğerini engelleyip engellemediği.
	IsBlockedEither(ctx context.Context, a, b string) (bool, error)
	List(ctx context.Context, userID string) (*models.Relations, error)
}

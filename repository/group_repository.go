package repository

import (
	"context"
	"time"

	"github.com/akinalp/relay/models"
)

// GroupRepository, grup ve üyelik veritabanı işlemleri için interface.
// Create ve Delete birden fazla tabloya yazdığı için WithTx içinde çağrılır.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id string) (*models.Group, error)
	UpdateInfo(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
	TouchActivity(ctx context.Context, id string, at time.Time) error

	AddMember(ctx context.Context, groupID, userID string, isAdmin bool, at time.Time) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	SetAdmin(ctx context.Context, groupID, userID string, isAdmin bool) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
	ListByUser(ctx context.Context, userID string) ([]models.Group, error)
}

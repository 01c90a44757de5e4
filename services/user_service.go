package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/keylock"
	"github.com/akinalp/relay/repository"
)

// UserService, kullanıcı kimliği ve ilişki kümeleri (block/mute/favorite).
type UserService interface {
	// EnsureUser, kimliği ilk görüldüğünde kaydeder. ws.UserProvisioner'ı karşılar.
	EnsureUser(ctx context.Context, userID, username string) error
	GetRelations(ctx context.Context, userID string) (*models.Relations, error)
	ToggleRelation(ctx context.Context, userID string, kind models.RelationKind, targetID string) (*models.RelationToggleResult, error)
}

type userService struct {
	userRepo     repository.UserRepository
	relationRepo repository.RelationRepository
	locks        *keylock.Locker
	log          *zap.Logger
}

// NewUserService, constructor.
func NewUserService(
	userRepo repository.UserRepository,
	relationRepo repository.RelationRepository,
	log *zap.Logger,
) UserService {
	return &userService{
		userRepo:     userRepo,
		relationRepo: relationRepo,
		locks:        keylock.New(),
		log:          log.Named("users"),
	}
}

func (s *userService) EnsureUser(ctx context.Context, userID, username string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", pkg.ErrUnauthorized)
	}
	return s.userRepo.Upsert(ctx, &models.User{
		ID:        userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *userService) GetRelations(ctx context.Context, userID string) (*models.Relations, error) {
	return s.relationRepo.List(ctx, userID)
}

// ToggleRelation, ilişkiyi açar veya kapatır. Aynı (user, kind, target) için
// eş zamanlı toggle'lar sıraya sokulur.
func (s *userService) ToggleRelation(ctx context.Context, userID string, kind models.RelationKind, targetID string) (*models.RelationToggleResult, error) {
	if targetID == userID {
		return nil, fmt.Errorf("%w: cannot %s yourself", pkg.ErrBadRequest, kind)
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	unlock, err := s.locks.Lock(lockCtx, "rel:"+userID+":"+string(kind)+":"+targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	active, err := s.relationRepo.Has(ctx, userID, targetID, kind)
	if err != nil {
		return nil, err
	}

	if active {
		err = s.relationRepo.Remove(ctx, userID, targetID, kind)
	} else {
		err = s.relationRepo.Add(ctx, userID, targetID, kind)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debug("relation toggled",
		zap.String("user_id", userID),
		zap.String("target_id", targetID),
		zap.String("kind", string(kind)),
		zap.Bool("active", !active),
	)

	return &models.RelationToggleResult{Kind: kind, TargetID: targetID, Active: !active}, nil
}

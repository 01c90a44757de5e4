package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/repository"
	"github.com/akinalp/relay/ws"
)

// TypingNotifier, mesaj gönderiminde typing durumunu temizlemek için
// kullanılır. *ws.TypingTracker karşılar.
type TypingNotifier interface {
	ClearUser(from, toUserID string)
	ClearGroup(from, groupID string)
}

// TypingService, client'tan gelen typing event'lerini yetkilendirir ve
// tracker'a iletir.
type TypingService interface {
	// HandleTyping, Hub.OnTyping'e bağlanır.
	HandleTyping(userID string, data ws.TypingData) error
}

type typingService struct {
	tracker      *ws.TypingTracker
	userRepo     repository.UserRepository
	relationRepo repository.RelationRepository
	groupRepo    repository.GroupRepository
}

// NewTypingService, constructor.
func NewTypingService(
	tracker *ws.TypingTracker,
	userRepo repository.UserRepository,
	relationRepo repository.RelationRepository,
	groupRepo repository.GroupRepository,
) TypingService {
	return &typingService{
		tracker:      tracker,
		userRepo:     userRepo,
		relationRepo: relationRepo,
		groupRepo:    groupRepo,
	}
}

func (s *typingService) HandleTyping(userID string, data ws.TypingData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case data.GroupID != "" && data.ToUserID != "":
		return fmt.Errorf("%w: typing target must be a user or a group", pkg.ErrBadRequest)

	case data.GroupID != "":
		isMember, err := s.groupRepo.IsMember(ctx, data.GroupID, userID)
		if err != nil {
			return err
		}
		if !isMember {
			return fmt.Errorf("%w: not a member of this group", pkg.ErrForbidden)
		}
		s.tracker.SetGroupTyping(userID, data.GroupID, data.IsTyping)
		return nil

	case data.ToUserID != "":
		if data.ToUserID == userID {
			return fmt.Errorf("%w: cannot type to yourself", pkg.ErrBadRequest)
		}
		// false her zaman kabul edilir; tutulan bir kayıt varsa temizlenmelidir.
		if data.IsTyping {
			if _, err := s.userRepo.GetByID(ctx, data.ToUserID); err != nil {
				return err
			}
			blocked, err := s.relationRepo.IsBlockedEither(ctx, userID, data.ToUserID)
			if err != nil {
				return err
			}
			if blocked {
				return fmt.Errorf("%w: user is blocked", pkg.ErrForbidden)
			}
		}
		s.tracker.SetUserTyping(userID, data.ToUserID, data.IsTyping)
		return nil

	default:
		return fmt.Errorf("%w: typing target is required", pkg.ErrBadRequest)
	}
}

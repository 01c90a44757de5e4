package services

import (
	"cmp"
	"context"
	"slices"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/repository"
	"github.com/akinalp/relay/ws"
)

// ConversationService, kullanıcının konuşma ve grup listelerini türetir.
// Özetler saklanmaz; her istekte mesajlardan hesaplanır.
type ConversationService interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	ListGroupSummaries(ctx context.Context, userID string) ([]models.GroupSummary, error)
}

type conversationService struct {
	msgRepo      repository.MessageRepository
	groupMsgRepo repository.GroupMessageRepository
	groupRepo    repository.GroupRepository
	relationRepo repository.RelationRepository
	pub          ws.Publisher
}

// NewConversationService, constructor.
func NewConversationService(
	msgRepo repository.MessageRepository,
	groupMsgRepo repository.GroupMessageRepository,
	groupRepo repository.GroupRepository,
	relationRepo repository.RelationRepository,
	pub ws.Publisher,
) ConversationService {
	return &conversationService{
		msgRepo:      msgRepo,
		groupMsgRepo: groupMsgRepo,
		groupRepo:    groupRepo,
		relationRepo: relationRepo,
		pub:          pub,
	}
}

// ListConversations, her peer için en yeni görünür mesaj ve okunmamış sayısı.
//
// Peer kümesi: görünür mesajı olan herkes + contact ve favorite listeleri.
// Mesajı olmayan peer'lerde LastMessage nil, UnreadCount 0'dır.
// Sıralama: son aktivite (yeniden eskiye), eşitlikte peer ID.
func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	stats, err := s.msgRepo.PeerStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	relations, err := s.relationRepo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	byPeer := make(map[string]*models.ConversationSummary)
	add := func(peerID string) *models.ConversationSummary {
		if sum, ok := byPeer[peerID]; ok {
			return sum
		}
		sum := &models.ConversationSummary{
			PeerID:     peerID,
			IsMuted:    slices.Contains(relations.Muted, peerID),
			IsFavorite: slices.Contains(relations.Favorites, peerID),
			IsOnline:   s.pub.IsOnline(peerID),
		}
		byPeer[peerID] = sum
		return sum
	}

	for _, st := range stats {
		sum := add(st.PeerID)
		sum.UnreadCount = st.UnreadCount
		sum.LastActivityAt = st.LastActivityAt

		latest, _, err := s.msgRepo.ListConversation(ctx, userID, st.PeerID, models.PageQuery{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			sum.LastMessage = &latest[0]
		}
	}
	for _, peerID := range relations.Contacts {
		add(peerID)
	}
	for _, peerID := range relations.Favorites {
		add(peerID)
	}

	out := make([]models.ConversationSummary, 0, len(byPeer))
	for _, sum := range byPeer {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b models.ConversationSummary) int {
		if c := b.LastActivityAt.Compare(a.LastActivityAt); c != 0 {
			return c
		}
		return cmp.Compare(a.PeerID, b.PeerID)
	})
	return out, nil
}

// ListGroupSummaries, kullanıcının üyesi olduğu gruplar için özet.
func (s *conversationService) ListGroupSummaries(ctx context.Context, userID string) ([]models.GroupSummary, error) {
	groups, err := s.groupRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		latest, err := s.groupMsgRepo.Latest(ctx, g.ID, userID)
		if err != nil {
			return nil, err
		}
		unread, err := s.groupMsgRepo.CountUnread(ctx, g.ID, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.GroupSummary{
			Group:          g,
			LastMessage:    latest,
			UnreadCount:    unread,
			LastActivityAt: g.LastActivityAt,
		})
	}

	slices.SortFunc(out, func(a, b models.GroupSummary) int {
		if c := b.LastActivityAt.Compare(a.LastActivityAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Group.ID, b.Group.ID)
	})
	return out, nil
}

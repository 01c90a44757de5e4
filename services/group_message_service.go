package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/repository"
	"github.com/akinalp/relay/ws"
)

// GroupMessageService, grup mesajlarının iş mantığı.
// Kurallar DirectMessageService ile aynıdır; farklar:
//   - Her işlem için güncel üyelik gerekir.
//   - Admin, başka bir üyenin mesajını süre sınırı olmadan herkesten silebilir.
//   - Okundu bilgisi mesaj başına kullanıcı listesidir (read_by).
type GroupMessageService interface {
	Send(ctx context.Context, senderID, groupID string, req *models.SendMessageRequest) (*models.GroupMessage, error)
	List(ctx context.Context, userID, groupID string, page models.PageQuery) (*models.GroupMessagePage, error)
	Get(ctx context.Context, userID, messageID string) (*models.GroupMessage, error)
	ListStarred(ctx context.Context, userID string) ([]models.GroupMessage, error)

	Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.GroupMessage, error)
	DeleteForMe(ctx context.Context, userID, messageID string) error
	DeleteForEveryone(ctx context.Context, userID, messageID string) (*models.GroupMessage, error)

	ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (*models.GroupMessage, error)
	ToggleStar(ctx context.Context, userID, messageID string) (*models.GroupMessage, error)
	MarkRead(ctx context.Context, userID, groupID string) (*models.ReadResult, error)
	ClearHistory(ctx context.Context, userID, groupID string, req *models.ClearHistoryRequest) (*models.ClearHistoryResult, error)
}

type groupMessageService struct {
	db        *sql.DB
	msgRepo   repository.GroupMessageRepository
	groupRepo repository.GroupRepository
	lc        *Lifecycle
	pub       ws.Publisher
	typing    TypingNotifier
	log       *zap.Logger
}

// NewGroupMessageService, constructor.
func NewGroupMessageService(
	db *sql.DB,
	msgRepo repository.GroupMessageRepository,
	groupRepo repository.GroupRepository,
	lc *Lifecycle,
	pub ws.Publisher,
	typing TypingNotifier,
	log *zap.Logger,
) GroupMessageService {
	return &groupMessageService{
		db:        db,
		msgRepo:   msgRepo,
		groupRepo: groupRepo,
		lc:        lc,
		pub:       pub,
		typing:    typing,
		log:       log.Named("group_messages"),
	}
}

// lockGroup, üyelik değişikliklerinin de tuttuğu grup kilidini alır.
// Kilit altında yapılan üyelik kontrolü yazma bitene kadar geçerli kalır.
func (s *groupMessageService) lockGroup(ctx context.Context, groupID string) (func(), error) {
	return s.lc.Lock(ctx, "group:"+groupID)
}

// requireMember, grubun var olduğunu ve userID'nin üye olduğunu doğrular.
func (s *groupMessageService) requireMember(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, fmt.Errorf("%w: not a member of this group", pkg.ErrForbidden)
	}
	return group, nil
}

func (s *groupMessageService) Send(ctx context.Context, senderID, groupID string, req *models.SendMessageRequest) (*models.GroupMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	unlock, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.requireMember(ctx, senderID, groupID); err != nil {
		return nil, err
	}

	if req.ReplyToID != nil {
		parent, err := s.msgRepo.GetByID(ctx, *req.ReplyToID)
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: reply target not found", pkg.ErrBadRequest)
		}
		if err != nil {
			return nil, err
		}
		if parent.GroupID != groupID {
			return nil, fmt.Errorf("%w: reply target belongs to another group", pkg.ErrBadRequest)
		}
	}

	now := s.lc.Now()
	msg := &models.GroupMessage{
		MessageBase: models.MessageBase{
			ID:        uuid.NewString(),
			SenderID:  senderID,
			Type:      req.Type,
			Content:   req.Content,
			MediaURL:  req.MediaURL,
			ReplyToID: req.ReplyToID,
			CreatedAt: now,
		},
		GroupID: groupID,
		// Gönderici kendi mesajını okumuş sayılır.
		ReadBy: []models.ReadReceipt{{UserID: senderID, ReadAt: now}},
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteGroupMessageRepo(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewSQLiteGroupRepo(tx).TouchActivity(ctx, groupID, now)
	})
	if err != nil {
		return nil, err
	}

	s.typing.ClearGroup(senderID, groupID)

	recipients := s.pub.Publish(ws.OpGroupMessageCreate, msg, ws.Target{GroupID: groupID, Exclude: senderID})
	s.pub.Publish(ws.OpMessageDelivery, ws.DeliveryData{
		MessageID:  msg.ID,
		GroupID:    groupID,
		Delivered:  recipients > 0,
		Recipients: recipients,
	}, ws.Target{UserIDs: []string{senderID}})

	s.log.Debug("group message sent",
		zap.String("message_id", msg.ID),
		zap.String("group_id", groupID),
		zap.Int("recipients", recipients),
	)
	return msg, nil
}

func (s *groupMessageService) List(ctx context.Context, userID, groupID string, page models.PageQuery) (*models.GroupMessagePage, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	messages, hasMore, err := s.msgRepo.ListByGroup(ctx, groupID, userID, page)
	if err != nil {
		return nil, err
	}
	return &models.GroupMessagePage{Messages: messages, HasMore: hasMore}, nil
}

func (s *groupMessageService) Get(ctx context.Context, userID, messageID string) (*models.GroupMessage, error) {
	msg, _, err := s.loadVisible(ctx, userID, messageID)
	return msg, err
}

func (s *groupMessageService) ListStarred(ctx context.Context, userID string) ([]models.GroupMessage, error) {
	return s.msgRepo.ListStarred(ctx, userID)
}

// load, mesajı ve grubunu getirir; actor'ün güncel üye olduğunu doğrular.
func (s *groupMessageService) load(ctx context.Context, userID, messageID string) (*models.GroupMessage, *models.Group, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	group, err := s.requireMember(ctx, userID, msg.GroupID)
	if err != nil {
		return nil, nil, err
	}
	return msg, group, nil
}

func (s *groupMessageService) loadVisible(ctx context.Context, userID, messageID string) (*models.GroupMessage, *models.Group, error) {
	msg, group, err := s.load(ctx, userID, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg.IsHiddenFor(userID) {
		return nil, nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return msg, group, nil
}

// mutate, mesaj kilidi altında oku-değiştir-yaz döngüsünü çalıştırır.
func (s *groupMessageService) mutate(ctx context.Context, userID, messageID string, visible bool, fn func(msg *models.GroupMessage, group *models.Group) (bool, error)) (*models.GroupMessage, bool, error) {
	unlock, err := s.lc.Lock(ctx, "gmsg:"+messageID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	// Kilit sırası: önce mesaj, sonra grup. Grup işlemleri mesaj kilidi almaz.
	current, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	unlockGroup, err := s.lockGroup(ctx, current.GroupID)
	if err != nil {
		return nil, false, err
	}
	defer unlockGroup()

	var (
		msg   *models.GroupMessage
		group *models.Group
	)
	if visible {
		msg, group, err = s.loadVisible(ctx, userID, messageID)
	} else {
		msg, group, err = s.load(ctx, userID, messageID)
	}
	if err != nil {
		return nil, false, err
	}

	changed, err := fn(msg, group)
	if err != nil || !changed {
		return msg, false, err
	}
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

func (s *groupMessageService) Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.GroupMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	msg, _, err := s.mutate(ctx, userID, messageID, true, func(msg *models.GroupMessage, _ *models.Group) (bool, error) {
		if err := s.lc.CheckEdit(&msg.MessageBase, userID); err != nil {
			return false, err
		}
		s.lc.ApplyEdit(&msg.MessageBase, req.Content)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpGroupMessageUpdate, msg, ws.Target{GroupID: msg.GroupID, Exclude: userID})
	return msg, nil
}

func (s *groupMessageService) DeleteForMe(ctx context.Context, userID, messageID string) error {
	if _, _, err := s.load(ctx, userID, messageID); err != nil {
		return err
	}
	return s.msgRepo.HideFor(ctx, messageID, userID)
}

func (s *groupMessageService) DeleteForEveryone(ctx context.Context, userID, messageID string) (*models.GroupMessage, error) {
	msg, _, err := s.mutate(ctx, userID, messageID, false, func(msg *models.GroupMessage, group *models.Group) (bool, error) {
		if err := s.lc.CheckDeleteForEveryone(&msg.MessageBase, userID, group.IsAdmin(userID)); err != nil {
			return false, err
		}
		s.lc.ApplyDeleteForEveryone(&msg.MessageBase)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpGroupMessageDelete, ws.MessageDeleteData{
		MessageID: msg.ID,
		GroupID:   msg.GroupID,
		DeletedBy: userID,
		DeletedAt: *msg.DeletedAt,
	}, ws.Target{GroupID: msg.GroupID, Exclude: userID})

	s.log.Info("group message deleted for everyone",
		zap.String("message_id", msg.ID),
		zap.String("group_id", msg.GroupID),
		zap.String("actor_id", userID),
	)
	return msg, nil
}

func (s *groupMessageService) ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (*models.GroupMessage, error) {
	req.Normalize()

	msg, changed, err := s.mutate(ctx, userID, messageID, true, func(msg *models.GroupMessage, _ *models.Group) (bool, error) {
		return s.lc.ApplyReaction(&msg.MessageBase, userID, *req)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.pub.Publish(ws.OpGroupReactionUpdate, ws.ReactionUpdateData{
			MessageID: msg.ID,
			GroupID:   msg.GroupID,
			ActorID:   userID,
			Reactions: msg.Reactions,
		}, ws.Target{GroupID: msg.GroupID, Exclude: userID})
	}
	return msg, nil
}

func (s *groupMessageService) ToggleStar(ctx context.Context, userID, messageID string) (*models.GroupMessage, error) {
	msg, _, err := s.mutate(ctx, userID, messageID, true, func(msg *models.GroupMessage, _ *models.Group) (bool, error) {
		_, err := s.lc.ToggleStar(&msg.MessageBase, userID)
		return err == nil, err
	})
	return msg, err
}

func (s *groupMessageService) MarkRead(ctx context.Context, userID, groupID string) (*models.ReadResult, error) {
	unlock, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	now := s.lc.Now()
	ids, err := s.msgRepo.MarkRead(ctx, groupID, userID, now)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		s.pub.Publish(ws.OpGroupReadReceipt, ws.ReadReceiptData{
			ReaderID:   userID,
			GroupID:    groupID,
			MessageIDs: ids,
			ReadAt:     now,
		}, ws.Target{GroupID: groupID, Exclude: userID})
	}
	return &models.ReadResult{MessageIDs: ids, ReadAt: now}, nil
}

func (s *groupMessageService) ClearHistory(ctx context.Context, userID, groupID string, req *models.ClearHistoryRequest) (*models.ClearHistoryResult, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	n, err := s.msgRepo.HideAll(ctx, userID, groupID, req.KeepStarred)
	if err != nil {
		return nil, err
	}
	return &models.ClearHistoryResult{Hidden: n}, nil
}

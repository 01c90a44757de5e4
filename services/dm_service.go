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

// DirectMessageService, iki kullanıcı arasındaki mesajların iş mantığı.
//
// Mesaj:
//   - Send: Yeni mesaj (blok kontrolü, reply doğrulama, contact ekleme, typing temizleme)
//   - List / Get / ListStarred: Okuma (actor için gizlenmiş mesajlar hariç)
//   - Edit: Sadece gönderici, 15 dk içinde, sadece text
//   - DeleteForMe / DeleteForEveryone
//
// Reaction / Star / Read:
//   - ToggleReaction: Toggle + gönderici moderasyonu
//   - ToggleStar: Kullanıcıya özel, yayınlanmaz
//   - MarkRead: Peer'den gelen okunmamış mesajlar
//   - ClearHistory: Konuşmayı actor için toplu gizle
type DirectMessageService interface {
	Send(ctx context.Context, senderID, receiverID string, req *models.SendMessageRequest) (*models.Message, error)
	List(ctx context.Context, userID, peerID string, page models.PageQuery) (*models.MessagePage, error)
	Get(ctx context.Context, userID, messageID string) (*models.Message, error)
	ListStarred(ctx context.Context, userID string) ([]models.Message, error)

	Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.Message, error)
	DeleteForMe(ctx context.Context, userID, messageID string) error
	DeleteForEveryone(ctx context.Context, userID, messageID string) (*models.Message, error)

	ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (*models.Message, error)
	ToggleStar(ctx context.Context, userID, messageID string) (*models.Message, error)
	MarkRead(ctx context.Context, userID, peerID string) (*models.ReadResult, error)
	ClearHistory(ctx context.Context, userID, peerID string, req *models.ClearHistoryRequest) (*models.ClearHistoryResult, error)
}

type directMessageService struct {
	db           *sql.DB
	msgRepo      repository.MessageRepository
	userRepo     repository.UserRepository
	relationRepo repository.RelationRepository
	lc           *Lifecycle
	pub          ws.Publisher
	typing       TypingNotifier
	log          *zap.Logger
}

// NewDirectMessageService, constructor.
//
// db: Send'de mesaj + contact kaydı WithTx ile atomik yazılır.
func NewDirectMessageService(
	db *sql.DB,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	relationRepo repository.RelationRepository,
	lc *Lifecycle,
	pub ws.Publisher,
	typing TypingNotifier,
	log *zap.Logger,
) DirectMessageService {
	return &directMessageService{
		db:           db,
		msgRepo:      msgRepo,
		userRepo:     userRepo,
		relationRepo: relationRepo,
		lc:           lc,
		pub:          pub,
		typing:       typing,
		log:          log.Named("direct"),
	}
}

func (s *directMessageService) Send(ctx context.Context, senderID, receiverID string, req *models.SendMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", pkg.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	blocked, err := s.relationRepo.IsBlockedEither(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("%w: messaging is blocked between these users", pkg.ErrForbidden)
	}

	if req.ReplyToID != nil {
		if err := s.verifyReply(ctx, senderID, receiverID, *req.ReplyToID); err != nil {
			return nil, err
		}
	}

	msg := &models.Message{
		MessageBase: models.MessageBase{
			ID:        uuid.NewString(),
			SenderID:  senderID,
			Type:      req.Type,
			Content:   req.Content,
			MediaURL:  req.MediaURL,
			ReplyToID: req.ReplyToID,
			CreatedAt: s.lc.Now(),
		},
		ReceiverID: receiverID,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteMessageRepo(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewSQLiteRelationRepo(tx).Add(ctx, senderID, receiverID, models.RelationContact)
	})
	if err != nil {
		return nil, err
	}

	s.typing.ClearUser(senderID, receiverID)

	recipients := s.pub.Publish(ws.OpMessageCreate, msg, ws.Target{UserIDs: []string{receiverID}})
	s.pub.Publish(ws.OpMessageDelivery, ws.DeliveryData{
		MessageID:  msg.ID,
		Delivered:  recipients > 0,
		Recipients: recipients,
	}, ws.Target{UserIDs: []string{senderID}})

	s.log.Debug("message sent",
		zap.String("message_id", msg.ID),
		zap.String("sender_id", senderID),
		zap.Int("recipients", recipients),
	)
	return msg, nil
}

// verifyReply, yanıtlanan mesajın aynı konuşmada olduğunu doğrular.
func (s *directMessageService) verifyReply(ctx context.Context, senderID, receiverID, replyToID string) error {
	parent, err := s.msgRepo.GetByID(ctx, replyToID)
	if errors.Is(err, pkg.ErrNotFound) {
		return fmt.Errorf("%w: reply target not found", pkg.ErrBadRequest)
	}
	if err != nil {
		return err
	}
	if !parent.IsParticipant(senderID) || parent.PeerOf(senderID) != receiverID {
		return fmt.Errorf("%w: reply target belongs to another conversation", pkg.ErrBadRequest)
	}
	return nil
}

func (s *directMessageService) List(ctx context.Context, userID, peerID string, page models.PageQuery) (*models.MessagePage, error) {
	messages, hasMore, err := s.msgRepo.ListConversation(ctx, userID, peerID, page)
	if err != nil {
		return nil, err
	}
	return &models.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

func (s *directMessageService) Get(ctx context.Context, userID, messageID string) (*models.Message, error) {
	return s.loadVisible(ctx, userID, messageID)
}

func (s *directMessageService) ListStarred(ctx context.Context, userID string) ([]models.Message, error) {
	return s.msgRepo.ListStarred(ctx, userID)
}

// load, mesajı getirir ve actor'ün konuşmanın tarafı olduğunu doğrular.
func (s *directMessageService) load(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.IsParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	return msg, nil
}

// loadVisible, load + actor için gizlenmiş mesajı NotFound sayar.
func (s *directMessageService) loadVisible(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.load(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsHiddenFor(userID) {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return msg, nil
}

// mutate, mesaj kilidi altında oku-değiştir-yaz döngüsünü çalıştırır.
// fn false dönerse yazma atlanır.
func (s *directMessageService) mutate(ctx context.Context, userID, messageID string, visible bool, fn func(msg *models.Message) (bool, error)) (*models.Message, bool, error) {
	unlock, err := s.lc.Lock(ctx, "msg:"+messageID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	var msg *models.Message
	if visible {
		msg, err = s.loadVisible(ctx, userID, messageID)
	} else {
		msg, err = s.load(ctx, userID, messageID)
	}
	if err != nil {
		return nil, false, err
	}

	changed, err := fn(msg)
	if err != nil || !changed {
		return msg, false, err
	}
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

func (s *directMessageService) Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	msg, _, err := s.mutate(ctx, userID, messageID, true, func(msg *models.Message) (bool, error) {
		if err := s.lc.CheckEdit(&msg.MessageBase, userID); err != nil {
			return false, err
		}
		s.lc.ApplyEdit(&msg.MessageBase, req.Content)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpMessageUpdate, msg, ws.Target{UserIDs: []string{msg.ReceiverID}, Exclude: userID})
	return msg, nil
}

// DeleteForMe, her durumda izinlidir ve idempotenttir.
func (s *directMessageService) DeleteForMe(ctx context.Context, userID, messageID string) error {
	if _, err := s.load(ctx, userID, messageID); err != nil {
		return err
	}
	return s.msgRepo.HideFor(ctx, messageID, userID)
}

func (s *directMessageService) DeleteForEveryone(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, _, err := s.mutate(ctx, userID, messageID, false, func(msg *models.Message) (bool, error) {
		if err := s.lc.CheckDeleteForEveryone(&msg.MessageBase, userID, false); err != nil {
			return false, err
		}
		s.lc.ApplyDeleteForEveryone(&msg.MessageBase)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpMessageDelete, ws.MessageDeleteData{
		MessageID: msg.ID,
		DeletedBy: userID,
		DeletedAt: *msg.DeletedAt,
	}, ws.Target{UserIDs: []string{msg.PeerOf(userID)}, Exclude: userID})

	s.log.Info("message deleted for everyone", zap.String("message_id", msg.ID), zap.String("actor_id", userID))
	return msg, nil
}

func (s *directMessageService) ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (*models.Message, error) {
	req.Normalize()

	msg, changed, err := s.mutate(ctx, userID, messageID, true, func(msg *models.Message) (bool, error) {
		return s.lc.ApplyReaction(&msg.MessageBase, userID, *req)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.pub.Publish(ws.OpReactionUpdate, ws.ReactionUpdateData{
			MessageID: msg.ID,
			ActorID:   userID,
			Reactions: msg.Reactions,
		}, ws.Target{UserIDs: []string{msg.PeerOf(userID)}, Exclude: userID})
	}
	return msg, nil
}

// ToggleStar, yıldız kullanıcıya özeldir; yayın yapılmaz.
func (s *directMessageService) ToggleStar(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, _, err := s.mutate(ctx, userID, messageID, true, func(msg *models.Message) (bool, error) {
		_, err := s.lc.ToggleStar(&msg.MessageBase, userID)
		return err == nil, err
	})
	return msg, err
}

func (s *directMessageService) MarkRead(ctx context.Context, userID, peerID string) (*models.ReadResult, error) {
	now := s.lc.Now()
	ids, err := s.msgRepo.MarkRead(ctx, userID, peerID, now)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		s.pub.Publish(ws.OpReadReceipt, ws.ReadReceiptData{
			ReaderID:   userID,
			MessageIDs: ids,
			ReadAt:     now,
		}, ws.Target{UserIDs: []string{peerID}, Exclude: userID})
	}
	return &models.ReadResult{MessageIDs: ids, ReadAt: now}, nil
}

// ClearHistory, konuşmadaki görünür mesajları actor için gizler; yayın yapılmaz.
func (s *directMessageService) ClearHistory(ctx context.Context, userID, peerID string, req *models.ClearHistoryRequest) (*models.ClearHistoryResult, error) {
	n, err := s.msgRepo.HideAll(ctx, userID, peerID, req.KeepStarred)
	if err != nil {
		return nil, err
	}
	return &models.ClearHistoryResult{Hidden: n}, nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/repository"
	"github.com/akinalp/relay/ws"
)

// GroupService, grup ve üyelik iş mantığı.
//
// Rol kuralları:
//   - Creator her zaman üye ve admin'dir; çıkarılamaz, ayrılamaz, admin'liği alınamaz.
//   - Bilgi güncelleme, üye ekleme/çıkarma, admin atama: admin.
//   - Grubu silme: sadece creator (mesajlar da silinir).
type GroupService interface {
	Create(ctx context.Context, creatorID string, req *models.CreateGroupRequest) (*models.Group, error)
	Get(ctx context.Context, userID, groupID string) (*models.Group, error)
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	Update(ctx context.Context, actorID, groupID string, req *models.UpdateGroupRequest) (*models.Group, error)
	Delete(ctx context.Context, actorID, groupID string) error

	AddMembers(ctx context.Context, actorID, groupID string, req *models.AddMembersRequest) (*models.Group, error)
	RemoveMember(ctx context.Context, actorID, groupID, targetID string) (*models.Group, error)
	SetAdmin(ctx context.Context, actorID, groupID, targetID string, isAdmin bool) (*models.Group, error)
	Leave(ctx context.Context, userID, groupID string) error
}

type groupService struct {
	db        *sql.DB
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	lc        *Lifecycle
	pub       ws.Publisher
	typing    TypingNotifier
	log       *zap.Logger
}

// NewGroupService, constructor.
func NewGroupService(
	db *sql.DB,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	lc *Lifecycle,
	pub ws.Publisher,
	typing TypingNotifier,
	log *zap.Logger,
) GroupService {
	return &groupService{
		db:        db,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		lc:        lc,
		pub:       pub,
		typing:    typing,
		log:       log.Named("groups"),
	}
}

// requireUsers, tüm ID'lerin kayıtlı kullanıcı olduğunu doğrular.
func (s *groupService) requireUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	existing, err := s.userRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !slices.Contains(existing, id) {
			return fmt.Errorf("%w: user %s not found", pkg.ErrNotFound, id)
		}
	}
	return nil
}

func (s *groupService) Create(ctx context.Context, creatorID string, req *models.CreateGroupRequest) (*models.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	members := []string{creatorID}
	for _, id := range req.Members {
		if id != creatorID {
			members = append(members, id)
		}
	}
	if err := s.requireUsers(ctx, members[1:]); err != nil {
		return nil, err
	}

	now := s.lc.Now()
	group := &models.Group{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		CreatorID:      creatorID,
		Members:        members,
		Admins:         []string{creatorID},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return repository.NewSQLiteGroupRepo(tx).Create(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpGroupCreate, group, ws.Target{UserIDs: members, Exclude: creatorID})

	s.log.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("creator_id", creatorID),
		zap.Int("members", len(members)),
	)
	return group, nil
}

// load, grubu getirir ve actor'ün üye olduğunu doğrular.
func (s *groupService) load(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, fmt.Errorf("%w: not a member of this group", pkg.ErrForbidden)
	}
	return group, nil
}

// loadAsAdmin, load + admin kontrolü.
func (s *groupService) loadAsAdmin(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.load(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(userID) {
		return nil, fmt.Errorf("%w: only group admins can do this", pkg.ErrForbidden)
	}
	return group, nil
}

func (s *groupService) Get(ctx context.Context, userID, groupID string) (*models.Group, error) {
	return s.load(ctx, userID, groupID)
}

func (s *groupService) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}

func (s *groupService) Update(ctx context.Context, actorID, groupID string, req *models.UpdateGroupRequest) (*models.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	group, err := s.loadAsAdmin(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if err := s.groupRepo.UpdateInfo(ctx, groupID, group.Name, group.Description); err != nil {
		return nil, err
	}

	s.pub.Publish(ws.OpGroupUpdate, group, ws.Target{GroupID: groupID, Exclude: actorID})
	return group, nil
}

// Delete, grubu ve tüm mesajlarını tek transaction'da siler. Yayın, silmeden
// önce okunan üye listesine yapılır.
func (s *groupService) Delete(ctx context.Context, actorID, groupID string) error {
	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return err
	}
	defer unlock()

	group, err := s.load(ctx, actorID, groupID)
	if err != nil {
		return err
	}
	if group.CreatorID != actorID {
		return fmt.Errorf("%w: only the group creator can delete the group", pkg.ErrForbidden)
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteGroupMessageRepo(tx).DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		return repository.NewSQLiteGroupRepo(tx).Delete(ctx, groupID)
	})
	if err != nil {
		return err
	}

	s.pub.InvalidateGroup(groupID)
	s.pub.Publish(ws.OpGroupDelete, ws.GroupDeleteData{GroupID: groupID, ActorID: actorID},
		ws.Target{UserIDs: group.Members, Exclude: actorID})

	s.log.Info("group deleted", zap.String("group_id", groupID), zap.String("actor_id", actorID))
	return nil
}

func (s *groupService) AddMembers(ctx context.Context, actorID, groupID string, req *models.AddMembersRequest) (*models.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	group, err := s.loadAsAdmin(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, id := range req.UserIDs {
		if !group.IsMember(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return group, nil
	}
	if err := s.requireUsers(ctx, added); err != nil {
		return nil, err
	}

	now := s.lc.Now()
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteGroupRepo(tx)
		for _, id := range added {
			if err := repo.AddMember(ctx, groupID, id, false, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	group.Members = append(group.Members, added...)

	s.pub.InvalidateGroup(groupID)
	s.pub.Publish(ws.OpGroupMemberAdd, ws.GroupMemberData{GroupID: groupID, ActorID: actorID, UserIDs: added},
		ws.Target{GroupID: groupID, Exclude: actorID})
	return group, nil
}

func (s *groupService) RemoveMember(ctx context.Context, actorID, groupID, targetID string) (*models.Group, error) {
	if targetID == actorID {
		return nil, fmt.Errorf("%w: use leave to exit a group", pkg.ErrBadRequest)
	}

	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	group, err := s.loadAsAdmin(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(targetID) {
		return nil, fmt.Errorf("%w: user is not a member of this group", pkg.ErrNotFound)
	}
	if targetID == group.CreatorID {
		return nil, fmt.Errorf("%w: the group creator cannot be removed", pkg.ErrForbidden)
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, targetID); err != nil {
		return nil, err
	}
	group.Members = slices.DeleteFunc(group.Members, func(id string) bool { return id == targetID })
	group.Admins = slices.DeleteFunc(group.Admins, func(id string) bool { return id == targetID })

	s.afterMemberLeft(groupID, targetID)
	// Çıkarılan kullanıcı da bilgilendirilir.
	s.pub.Publish(ws.OpGroupMemberRemove, ws.GroupMemberData{GroupID: groupID, ActorID: actorID, UserIDs: []string{targetID}},
		ws.Target{GroupID: groupID, UserIDs: []string{targetID}, Exclude: actorID})
	return group, nil
}

func (s *groupService) SetAdmin(ctx context.Context, actorID, groupID, targetID string, isAdmin bool) (*models.Group, error) {
	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	group, err := s.loadAsAdmin(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(targetID) {
		return nil, fmt.Errorf("%w: user is not a member of this group", pkg.ErrNotFound)
	}
	if !isAdmin && targetID == group.CreatorID {
		return nil, fmt.Errorf("%w: the group creator cannot be demoted", pkg.ErrForbidden)
	}
	if group.IsAdmin(targetID) == isAdmin {
		return group, nil
	}

	if err := s.groupRepo.SetAdmin(ctx, groupID, targetID, isAdmin); err != nil {
		return nil, err
	}

	// Admins'i katılım sırasıyla yeniden kur.
	admins := make([]string, 0, len(group.Admins)+1)
	for _, id := range group.Members {
		if (id == targetID && isAdmin) || (id != targetID && group.IsAdmin(id)) {
			admins = append(admins, id)
		}
	}
	group.Admins = admins

	s.pub.Publish(ws.OpGroupUpdate, group, ws.Target{GroupID: groupID, Exclude: actorID})
	return group, nil
}

func (s *groupService) Leave(ctx context.Context, userID, groupID string) error {
	unlock, err := s.lc.Lock(ctx, "group:"+groupID)
	if err != nil {
		return err
	}
	defer unlock()

	group, err := s.load(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if group.CreatorID == userID {
		return fmt.Errorf("%w: the group creator cannot leave; delete the group instead", pkg.ErrForbidden)
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.afterMemberLeft(groupID, userID)
	s.pub.Publish(ws.OpGroupMemberRemove, ws.GroupMemberData{GroupID: groupID, ActorID: userID, UserIDs: []string{userID}},
		ws.Target{GroupID: groupID, Exclude: userID})
	return nil
}

// afterMemberLeft, üye cache'ini düşürür ve kullanıcının gruptaki typing kaydını temizler.
func (s *groupService) afterMemberLeft(groupID, userID string) {
	s.pub.InvalidateGroup(groupID)
	s.typing.ClearGroup(userID, groupID)
}

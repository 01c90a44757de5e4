package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/repository"
	"github.com/akinalp/relay/ws"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	Op     string
	Data   any
	Target ws.Target
}

// recordingPublisher, yayınları kaydeder. Online kullanıcılara giden her
// event bir bağlantıya ulaşmış sayılır.
type recordingPublisher struct {
	mu          sync.Mutex
	events      []publishedEvent
	online      map[string]bool
	members     map[string][]string
	invalidated []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{online: map[string]bool{}, members: map[string][]string{}}
}

func (p *recordingPublisher) Publish(op string, data any, target ws.Target) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Op: op, Data: data, Target: target})

	n := 0
	for _, id := range target.UserIDs {
		if id != target.Exclude && p.online[id] {
			n++
		}
	}
	for _, id := range p.members[target.GroupID] {
		if id != target.Exclude && p.online[id] {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *recordingPublisher) InvalidateGroup(groupID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated = append(p.invalidated, groupID)
}

func (p *recordingPublisher) setOnline(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

func (p *recordingPublisher) setMembers(groupID string, ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[groupID] = ids
}

// take, kaydedilen event'leri döner ve listeyi sıfırlar.
func (p *recordingPublisher) take() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.events
	p.events = nil
	return out
}

// byOp, verilen op'a sahip event'leri döner.
func byOp(events []publishedEvent, op string) []publishedEvent {
	var out []publishedEvent
	for _, e := range events {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db       *database.DB
	clock    *fakeClock
	pub      *recordingPublisher
	tracker  *ws.TypingTracker
	lc       *Lifecycle
	users    UserService
	direct   DirectMessageService
	groupMsg GroupMessageService
	groups   GroupService
	convs    ConversationService
	typing   TypingService

	msgRepo      repository.MessageRepository
	groupMsgRepo repository.GroupMessageRepository
	groupRepo    repository.GroupRepository
	relationRepo repository.RelationRepository
}

func newTestEnv(t *testing.T, userIDs ...string) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "relay.db"), database.Migrations(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop()
	clock := &fakeClock{now: t0}
	pub := newRecordingPublisher()
	tracker := ws.NewTypingTracker(pub, log)

	lc := NewLifecycle(DefaultRules())
	lc.SetClock(clock.Now)

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	relationRepo := repository.NewSQLiteRelationRepo(db.Conn)
	msgRepo := repository.NewSQLiteMessageRepo(db.Conn)
	groupMsgRepo := repository.NewSQLiteGroupMessageRepo(db.Conn)
	groupRepo := repository.NewSQLiteGroupRepo(db.Conn)

	env := &testEnv{
		db:       db,
		clock:    clock,
		pub:      pub,
		tracker:  tracker,
		lc:       lc,
		users:    NewUserService(userRepo, relationRepo, log),
		direct:   NewDirectMessageService(db.Conn, msgRepo, userRepo, relationRepo, lc, pub, tracker, log),
		groupMsg: NewGroupMessageService(db.Conn, groupMsgRepo, groupRepo, lc, pub, tracker, log),
		groups:   NewGroupService(db.Conn, groupRepo, userRepo, lc, pub, tracker, log),
		convs:    NewConversationService(msgRepo, groupMsgRepo, groupRepo, relationRepo, pub),
		typing:   NewTypingService(tracker, userRepo, relationRepo, groupRepo),

		msgRepo:      msgRepo,
		groupMsgRepo: groupMsgRepo,
		groupRepo:    groupRepo,
		relationRepo: relationRepo,
	}

	for _, id := range userIDs {
		require.NoError(t, env.users.EnsureUser(context.Background(), id, id))
	}
	return env
}

func text(content string) *models.SendMessageRequest {
	return &models.SendMessageRequest{Type: models.MessageTypeText, Content: content}
}

func image(url string) *models.SendMessageRequest {
	return &models.SendMessageRequest{Type: models.MessageTypeImage, MediaURL: &url}
}

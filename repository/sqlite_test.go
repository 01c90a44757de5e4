package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "relay.db"), database.Migrations(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func directMsg(id, from, to string, at time.Time) *models.Message {
	return &models.Message{
		MessageBase: models.MessageBase{
			ID: id, SenderID: from, Type: models.MessageTypeText, Content: "msg " + id, CreatedAt: at,
		},
		ReceiverID: to,
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)

	msg := directMsg("m1", "alice", "bob", t0)
	reply := "m0"
	msg.ReplyToID = &reply
	require.NoError(t, repo.Create(ctx, msg))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "msg m1", got.Content)
	assert.Equal(t, t0, got.CreatedAt)
	assert.Equal(t, "m0", *got.ReplyToID)
	assert.Empty(t, got.Reactions)
	assert.Empty(t, got.DeletedFor)
	assert.False(t, got.IsRead)

	edited := t0.Add(time.Minute)
	got.Content = "changed"
	got.IsEdited = true
	got.EditedAt = &edited
	got.Reactions = []models.Reaction{{UserID: "bob", Emoji: "👍", CreatedAt: edited}}
	got.StarredBy = []string{"bob"}
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Content)
	assert.True(t, again.IsEdited)
	assert.Equal(t, edited, *again.EditedAt)
	assert.Equal(t, []models.Reaction{{UserID: "bob", Emoji: "👍", CreatedAt: edited}}, again.Reactions)
	assert.Equal(t, []string{"bob"}, again.StarredBy)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	missing := directMsg("missing", "a", "b", t0)
	assert.ErrorIs(t, repo.Update(ctx, missing), pkg.ErrNotFound)
}

func TestUpdateDoesNotOverwriteReadOrHiddenState(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)
	require.NoError(t, repo.Create(ctx, directMsg("m1", "alice", "bob", t0)))

	stale, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)

	_, err = repo.MarkRead(ctx, "bob", "alice", t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.HideFor(ctx, "m1", "alice"))

	stale.StarredBy = []string{"bob"}
	require.NoError(t, repo.Update(ctx, stale))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.Equal(t, []string{"alice"}, got.DeletedFor)
	assert.Equal(t, []string{"bob"}, got.StarredBy)
}

func TestHideForIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)
	require.NoError(t, repo.Create(ctx, directMsg("m1", "alice", "bob", t0)))

	require.NoError(t, repo.HideFor(ctx, "m1", "bob"))
	require.NoError(t, repo.HideFor(ctx, "m1", "bob"))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.DeletedFor)
}

func TestListConversationPaginatesAndFiltersHidden(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)

	for i := 0; i < 5; i++ {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = to, from
		}
		require.NoError(t, repo.Create(ctx, directMsg(fmt.Sprintf("m%d", i), from, to, t0.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, repo.Create(ctx, directMsg("other", "alice", "carol", t0)))
	require.NoError(t, repo.HideFor(ctx, "m3", "alice"))

	page, hasMore, err := repo.ListConversation(ctx, "alice", "bob", models.PageQuery{Limit: 2})
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].ID)
	assert.Equal(t, "m2", page[1].ID)

	page, hasMore, err = repo.ListConversation(ctx, "alice", "bob", models.PageQuery{Before: "m2", Limit: 10})
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].ID)
	assert.Equal(t, "m0", page[1].ID)

	// Bob m3'ü hâlâ görür.
	page, _, err = repo.ListConversation(ctx, "bob", "alice", models.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestMarkReadAndPeerStats(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)

	require.NoError(t, repo.Create(ctx, directMsg("m1", "alice", "bob", t0)))
	require.NoError(t, repo.Create(ctx, directMsg("m2", "alice", "bob", t0.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, directMsg("m3", "bob", "alice", t0.Add(2*time.Second))))
	require.NoError(t, repo.Create(ctx, directMsg("m4", "carol", "bob", t0.Add(3*time.Second))))

	stats, err := repo.PeerStats(ctx, "bob")
	require.NoError(t, err)
	byPeer := map[string]PeerStat{}
	for _, s := range stats {
		byPeer[s.PeerID] = s
	}
	assert.Equal(t, 2, byPeer["alice"].UnreadCount)
	assert.Equal(t, t0.Add(2*time.Second), byPeer["alice"].LastActivityAt)
	assert.Equal(t, 1, byPeer["carol"].UnreadCount)

	ids, err := repo.MarkRead(ctx, "bob", "alice", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids)

	ids, err = repo.MarkRead(ctx, "bob", "alice", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.Equal(t, t0.Add(time.Hour), *got.ReadAt)

	// m4 hâlâ okunmamış, m3 alice'e gittiği için etkilenmez.
	m3, err := repo.GetByID(ctx, "m3")
	require.NoError(t, err)
	assert.False(t, m3.IsRead)
}

func TestHideAllKeepsStarred(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteMessageRepo(newTestDB(t).Conn)

	require.NoError(t, repo.Create(ctx, directMsg("m1", "alice", "bob", t0)))
	starred := directMsg("m2", "bob", "alice", t0.Add(time.Second))
	starred.StarredBy = []string{"alice"}
	require.NoError(t, repo.Create(ctx, starred))
	require.NoError(t, repo.Create(ctx, directMsg("m3", "alice", "carol", t0)))

	n, err := repo.HideAll(ctx, "alice", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	starredList, err := repo.ListStarred(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, starredList, 1)
	assert.Equal(t, "m2", starredList[0].ID)

	n, err = repo.HideAll(ctx, "alice", "bob", false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, _, err := repo.ListConversation(ctx, "alice", "bob", models.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, page)

	page, _, err = repo.ListConversation(ctx, "alice", "carol", models.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	groups := NewSQLiteGroupRepo(db.Conn)
	msgs := NewSQLiteGroupMessageRepo(db.Conn)

	g := &models.Group{
		ID: "g1", Name: "team", CreatorID: "alice",
		Members: []string{"alice", "bob"}, Admins: []string{"alice"},
		CreatedAt: t0, LastActivityAt: t0,
	}
	require.NoError(t, groups.Create(ctx, g))
	require.NoError(t, groups.AddMember(ctx, "g1", "carol", false, t0.Add(time.Second)))
	require.NoError(t, groups.SetAdmin(ctx, "g1", "bob", true))

	got, err := groups.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Members)
	assert.Equal(t, []string{"alice", "bob"}, got.Admins)

	for i, sender := range []string{"alice", "bob", "alice"} {
		at := t0.Add(time.Duration(i+1) * time.Minute)
		require.NoError(t, msgs.Create(ctx, &models.GroupMessage{
			MessageBase: models.MessageBase{ID: fmt.Sprintf("gm%d", i), SenderID: sender, Type: models.MessageTypeText, Content: "x", CreatedAt: at},
			GroupID:     "g1",
			ReadBy:      []models.ReadReceipt{{UserID: sender, ReadAt: at}},
		}))
	}

	n, err := msgs.CountUnread(ctx, "g1", "carol")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = msgs.CountUnread(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := msgs.MarkRead(ctx, "g1", "carol", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	ids, err = msgs.MarkRead(ctx, "g1", "carol", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids, "read receipts are unique per user")

	m, err := msgs.GetByID(ctx, "gm1")
	require.NoError(t, err)
	assert.Equal(t, []models.ReadReceipt{
		{UserID: "bob", ReadAt: t0.Add(2 * time.Minute)},
		{UserID: "carol", ReadAt: t0.Add(time.Hour)},
	}, m.ReadBy)

	latest, err := msgs.Latest(ctx, "g1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "gm2", latest.ID)

	require.NoError(t, msgs.HideFor(ctx, "gm2", "carol"))
	latest, err = msgs.Latest(ctx, "g1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "gm1", latest.ID)

	list, err := groups.ListByUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, groups.TouchActivity(ctx, "g1", t0.Add(time.Hour)))
	require.NoError(t, groups.TouchActivity(ctx, "g1", t0))
	got, err = groups.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), got.LastActivityAt)

	require.NoError(t, groups.Delete(ctx, "g1"))
	_, err = msgs.GetByID(ctx, "gm0")
	assert.ErrorIs(t, err, pkg.ErrNotFound, "messages cascade with the group")

	empty, err := msgs.Latest(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRelations(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	rel := NewSQLiteRelationRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)

	require.NoError(t, users.Upsert(ctx, &models.User{ID: "alice", Username: "alice", CreatedAt: t0}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "alice", Username: "", CreatedAt: t0}))
	u, err := users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	ids, err := users.ExistingIDs(ctx, []string{"alice", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	require.NoError(t, rel.Add(ctx, "alice", "bob", models.RelationBlock))
	require.NoError(t, rel.Add(ctx, "alice", "bob", models.RelationBlock))
	require.NoError(t, rel.Add(ctx, "alice", "carol", models.RelationContact))

	blocked, err := rel.IsBlockedEither(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, blocked)

	list, err := rel.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list.Blocked)
	assert.Equal(t, []string{"carol"}, list.Contacts)
	assert.Empty(t, list.Muted)

	require.NoError(t, rel.Remove(ctx, "alice", "bob", models.RelationBlock))
	has, err := rel.Has(ctx, "alice", "bob", models.RelationBlock)
	require.NoError(t, err)
	assert.False(t, has)
}

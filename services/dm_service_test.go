package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/ws"
)

func TestSendToOfflineUserIsDurable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)

	events := env.pub.take()
	created := byOp(events, ws.OpMessageCreate)
	require.Len(t, created, 1)
	assert.Equal(t, ws.Target{UserIDs: []string{"bob"}}, created[0].Target)

	acks := byOp(events, ws.OpMessageDelivery)
	require.Len(t, acks, 1)
	assert.Equal(t, ws.Target{UserIDs: []string{"alice"}}, acks[0].Target)
	assert.Equal(t, ws.DeliveryData{MessageID: msg.ID, Delivered: false, Recipients: 0}, acks[0].Data)

	got, err := env.direct.Get(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.False(t, got.IsRead)

	convs, err := env.convs.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "alice", convs[0].PeerID)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, msg.ID, convs[0].LastMessage.ID)
	assert.False(t, convs[0].LastMessage.IsRead)
	assert.Equal(t, 1, convs[0].UnreadCount)
}

func TestSendToOnlineUserAcksDelivery(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.pub.setOnline("bob", true)

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)

	acks := byOp(env.pub.take(), ws.OpMessageDelivery)
	require.Len(t, acks, 1)
	assert.Equal(t, ws.DeliveryData{MessageID: msg.ID, Delivered: true, Recipients: 1}, acks[0].Data)
}

func TestSendAddsReceiverToContacts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	_, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)

	rel, err := env.users.GetRelations(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, rel.Contacts)

	rel, err = env.users.GetRelations(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, rel.Contacts)
}

func TestSendRejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")

	_, err := env.direct.Send(ctx, "alice", "alice", text("me"))
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	_, err = env.direct.Send(ctx, "alice", "nobody", text("hi"))
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	_, err = env.direct.Send(ctx, "alice", "bob", text("   "))
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	_, err = env.direct.Send(ctx, "alice", "bob", &models.SendMessageRequest{Type: models.MessageTypeImage})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	// Blok her iki yönde de gönderimi engeller.
	_, err = env.users.ToggleRelation(ctx, "bob", models.RelationBlock, "alice")
	require.NoError(t, err)
	_, err = env.direct.Send(ctx, "alice", "bob", text("hi"))
	assert.True(t, errors.Is(err, pkg.ErrForbidden))
	_, err = env.direct.Send(ctx, "bob", "alice", text("hi"))
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	// Reddedilen işlemler yayın yapmaz.
	assert.Empty(t, env.pub.take())

	// Başka bir konuşmadaki mesaja yanıt verilemez.
	other, err := env.direct.Send(ctx, "carol", "bob", text("hey"))
	require.NoError(t, err)
	req := text("reply")
	req.ReplyToID = &other.ID
	_, err = env.direct.Send(ctx, "alice", "carol", req)
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	req = text("reply")
	req.ReplyToID = &other.ID
	reply, err := env.direct.Send(ctx, "bob", "carol", req)
	require.NoError(t, err)
	assert.Equal(t, other.ID, *reply.ReplyToID)
}

func TestSendClearsTypingState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	env.tracker.SetUserTyping("alice", "bob", true)
	env.pub.take()

	_, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)

	assert.False(t, env.tracker.IsUserTyping("alice", "bob"))

	events := env.pub.take()
	typing := byOp(events, ws.OpTypingUpdate)
	require.Len(t, typing, 1)
	assert.Equal(t, ws.TypingUpdateData{FromUserID: "alice", ToUserID: "bob", IsTyping: false}, typing[0].Data)
	assert.Equal(t, []string{"bob"}, typing[0].Target.UserIDs)

	// typing false, message_create'ten önce gelir.
	assert.Equal(t, ws.OpTypingUpdate, events[0].Op)
}

func TestEditWindowAndRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)
	env.pub.take()

	_, err = env.direct.Edit(ctx, "bob", msg.ID, &models.EditMessageRequest{Content: "hacked"})
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	env.clock.Advance(10 * time.Minute)
	edited, err := env.direct.Edit(ctx, "alice", msg.ID, &models.EditMessageRequest{Content: "hello!"})
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, "hello!", edited.Content)

	updates := byOp(env.pub.take(), ws.OpMessageUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, ws.Target{UserIDs: []string{"bob"}, Exclude: "alice"}, updates[0].Target)

	env.clock.Advance(5 * time.Minute)
	_, err = env.direct.Edit(ctx, "alice", msg.ID, &models.EditMessageRequest{Content: "too late"})
	assert.True(t, errors.Is(err, pkg.ErrWindowExpired))

	got, err := env.direct.Get(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello!", got.Content)
	assert.Empty(t, env.pub.take())

	img, err := env.direct.Send(ctx, "alice", "bob", image("https://cdn.example/a.png"))
	require.NoError(t, err)
	_, err = env.direct.Edit(ctx, "alice", img.ID, &models.EditMessageRequest{Content: "caption"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidState))
}

func TestDeleteForEveryoneDirect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", image("https://cdn.example/a.png"))
	require.NoError(t, err)
	env.pub.take()

	_, err = env.direct.DeleteForEveryone(ctx, "bob", msg.ID)
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	env.clock.Advance(30 * time.Minute)
	deleted, err := env.direct.DeleteForEveryone(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.DeletedForEveryone)
	assert.Empty(t, deleted.Content)
	assert.Nil(t, deleted.MediaURL)

	events := byOp(env.pub.take(), ws.OpMessageDelete)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"bob"}, events[0].Target.UserIDs)

	got, err := env.direct.Get(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.True(t, got.DeletedForEveryone)
	assert.Nil(t, got.MediaURL)

	_, err = env.direct.DeleteForEveryone(ctx, "alice", msg.ID)
	assert.True(t, errors.Is(err, pkg.ErrInvalidState))
	_, err = env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{Emoji: "👍"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidState))
	_, err = env.direct.ToggleStar(ctx, "bob", msg.ID)
	assert.True(t, errors.Is(err, pkg.ErrInvalidState))

	// Delete-for-me her durumda izinlidir.
	require.NoError(t, env.direct.DeleteForMe(ctx, "bob", msg.ID))

	late, err := env.direct.Send(ctx, "alice", "bob", text("late"))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	_, err = env.direct.DeleteForEveryone(ctx, "alice", late.ID)
	assert.True(t, errors.Is(err, pkg.ErrWindowExpired))
}

func TestDeleteForMeHidesOnlyForActor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)
	env.pub.take()

	require.NoError(t, env.direct.DeleteForMe(ctx, "bob", msg.ID))
	require.NoError(t, env.direct.DeleteForMe(ctx, "bob", msg.ID))
	assert.Empty(t, env.pub.take())

	_, err = env.direct.Get(ctx, "bob", msg.ID)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	page, err := env.direct.List(ctx, "bob", "alice", models.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	page, err = env.direct.List(ctx, "alice", "bob", models.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)

	raw, err := env.msgRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, raw.DeletedFor)

	err = env.direct.DeleteForMe(ctx, "carol", msg.ID)
	assert.True(t, errors.Is(err, pkg.ErrForbidden))
}

func TestReactionRoundTripDirect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)
	env.pub.take()

	got, err := env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{Emoji: "👍"})
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)

	updates := byOp(env.pub.take(), ws.OpReactionUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, []string{"alice"}, updates[0].Target.UserIDs)

	got, err = env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{Emoji: "👍"})
	require.NoError(t, err)
	assert.Empty(t, got.Reactions)

	stored, err := env.msgRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)

	_, err = env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{Emoji: ""})
	assert.True(t, errors.Is(err, pkg.ErrInvalidState))
}

func TestModerationRemoveDirect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("hello"))
	require.NoError(t, err)
	_, err = env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{Emoji: "🔥"})
	require.NoError(t, err)
	_, err = env.direct.ToggleReaction(ctx, "alice", msg.ID, &models.ToggleReactionRequest{Emoji: "👍"})
	require.NoError(t, err)
	env.pub.take()

	_, err = env.direct.ToggleReaction(ctx, "bob", msg.ID, &models.ToggleReactionRequest{TargetUserID: "alice"})
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	got, err := env.direct.ToggleReaction(ctx, "alice", msg.ID, &models.ToggleReactionRequest{TargetUserID: "bob"})
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, "alice", got.Reactions[0].UserID)
	require.Len(t, byOp(env.pub.take(), ws.OpReactionUpdate), 1)

	// Tekrar: hata yok, değişiklik yok, yayın yok.
	got, err = env.direct.ToggleReaction(ctx, "alice", msg.ID, &models.ToggleReactionRequest{TargetUserID: "bob"})
	require.NoError(t, err)
	assert.Len(t, got.Reactions, 1)
	assert.Empty(t, env.pub.take())
}

func TestConcurrentReactionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "u1")

	msg, err := env.direct.Send(ctx, "alice", "u1", text("hello"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := env.direct.ToggleStar(ctx, "u1", msg.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.direct.ToggleReaction(ctx, "alice", msg.ID, &models.ToggleReactionRequest{Emoji: "👍"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.direct.ToggleReaction(ctx, "u1", msg.ID, &models.ToggleReactionRequest{Emoji: "🔥"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Her toggle çift sayıda çalıştı: son durum başlangıçla aynı olmalı.
	stored, err := env.msgRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)
	assert.Empty(t, stored.StarredBy)
}

func TestStarAndListStarred(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", "bob", text("keep me"))
	require.NoError(t, err)
	env.pub.take()

	got, err := env.direct.ToggleStar(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStarredBy("bob"))
	assert.Empty(t, env.pub.take())

	starred, err := env.direct.ListStarred(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, starred, 1)

	starred, err = env.direct.ListStarred(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, starred)
}

func TestMarkReadDirect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	m1, err := env.direct.Send(ctx, "alice", "bob", text("one"))
	require.NoError(t, err)
	m2, err := env.direct.Send(ctx, "alice", "bob", text("two"))
	require.NoError(t, err)
	_, err = env.direct.Send(ctx, "bob", "alice", text("mine"))
	require.NoError(t, err)
	env.pub.take()

	env.clock.Advance(time.Minute)
	res, err := env.direct.MarkRead(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, res.MessageIDs)
	assert.Equal(t, t0.Add(time.Minute), res.ReadAt)

	receipts := byOp(env.pub.take(), ws.OpReadReceipt)
	require.Len(t, receipts, 1)
	assert.Equal(t, []string{"alice"}, receipts[0].Target.UserIDs)

	got, err := env.direct.Get(ctx, "alice", m1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)

	// İkinci çağrı no-op, yayın yok.
	res, err = env.direct.MarkRead(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Empty(t, res.MessageIDs)
	assert.Empty(t, env.pub.take())

	convs, err := env.convs.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 0, convs[0].UnreadCount)
}

func TestClearHistoryKeepStarred(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	keep, err := env.direct.Send(ctx, "alice", "bob", text("keep"))
	require.NoError(t, err)
	_, err = env.direct.Send(ctx, "bob", "alice", text("drop"))
	require.NoError(t, err)
	_, err = env.direct.ToggleStar(ctx, "alice", keep.ID)
	require.NoError(t, err)

	res, err := env.direct.ClearHistory(ctx, "alice", "bob", &models.ClearHistoryRequest{KeepStarred: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Hidden)

	page, err := env.direct.List(ctx, "alice", "bob", models.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, keep.ID, page.Messages[0].ID)

	res, err = env.direct.ClearHistory(ctx, "alice", "bob", &models.ClearHistoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Hidden)

	// Bob'un görünümü etkilenmez.
	page, err = env.direct.List(ctx, "bob", "alice", models.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/ws"
)

func TestHandleTypingDirect(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")

	require.NoError(t, env.typing.HandleTyping("alice", ws.TypingData{ToUserID: "bob", IsTyping: true}))
	assert.True(t, env.tracker.IsUserTyping("alice", "bob"))

	events := byOp(env.pub.take(), ws.OpTypingUpdate)
	require.Len(t, events, 1)
	assert.Equal(t, ws.Target{UserIDs: []string{"bob"}, Exclude: "alice"}, events[0].Target)

	require.NoError(t, env.typing.HandleTyping("alice", ws.TypingData{ToUserID: "bob", IsTyping: false}))
	assert.False(t, env.tracker.IsUserTyping("alice", "bob"))
}

func TestHandleTypingRejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")

	err := env.typing.HandleTyping("alice", ws.TypingData{IsTyping: true})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	err = env.typing.HandleTyping("alice", ws.TypingData{ToUserID: "alice", IsTyping: true})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	err = env.typing.HandleTyping("alice", ws.TypingData{ToUserID: "ghost", IsTyping: true})
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	_, err = env.users.ToggleRelation(ctx, "bob", models.RelationBlock, "alice")
	require.NoError(t, err)
	err = env.typing.HandleTyping("alice", ws.TypingData{ToUserID: "bob", IsTyping: true})
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	g := newGroup(t, env, "alice", "bob")
	err = env.typing.HandleTyping("carol", ws.TypingData{GroupID: g.ID, IsTyping: true})
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	assert.Equal(t, 0, env.tracker.Len())
	assert.Empty(t, byOp(env.pub.take(), ws.OpTypingUpdate))
}

package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSendMessageRequestValidate(t *testing.T) {
	r := SendMessageRequest{Content: "  hello  "}
	require.NoError(t, r.Validate())
	assert.Equal(t, MessageTypeText, r.Type)
	assert.Equal(t, "hello", r.Content)

	r = SendMessageRequest{Content: "   "}
	assert.Error(t, r.Validate())

	r = SendMessageRequest{Content: strings.Repeat("ş", MaxContentLength)}
	assert.NoError(t, r.Validate())
	r = SendMessageRequest{Content: strings.Repeat("ş", MaxContentLength+1)}
	assert.Error(t, r.Validate())

	r = SendMessageRequest{Type: MessageTypeImage}
	assert.Error(t, r.Validate())
	r = SendMessageRequest{Type: MessageTypeImage, MediaURL: strPtr(" https://cdn/x.png ")}
	require.NoError(t, r.Validate())
	assert.Equal(t, "https://cdn/x.png", *r.MediaURL)

	r = SendMessageRequest{Content: "hi", MediaURL: strPtr("x"), ReplyToID: strPtr("  ")}
	require.NoError(t, r.Validate())
	assert.Nil(t, r.MediaURL, "text messages carry no media")
	assert.Nil(t, r.ReplyToID)

	r = SendMessageRequest{Type: "video", Content: "x"}
	assert.Error(t, r.Validate())
}

func TestGroupRequests(t *testing.T) {
	c := CreateGroupRequest{Name: " team ", Members: []string{"b", " b", "", "c"}}
	require.NoError(t, c.Validate())
	assert.Equal(t, "team", c.Name)
	assert.Equal(t, []string{"b", "c"}, c.Members)

	c = CreateGroupRequest{Name: "  "}
	assert.Error(t, c.Validate())

	u := UpdateGroupRequest{}
	assert.Error(t, u.Validate())
	u = UpdateGroupRequest{Description: strPtr(" d ")}
	require.NoError(t, u.Validate())
	assert.Equal(t, "d", *u.Description)

	a := AddMembersRequest{UserIDs: []string{" "}}
	assert.Error(t, a.Validate())
}

func TestMessageHelpers(t *testing.T) {
	m := Message{
		MessageBase: MessageBase{
			SenderID:   "alice",
			DeletedFor: []string{"bob"},
			StarredBy:  []string{"alice"},
			Reactions:  []Reaction{{UserID: "bob", Emoji: "👍"}},
		},
		ReceiverID: "bob",
	}

	assert.Equal(t, "bob", m.PeerOf("alice"))
	assert.Equal(t, "alice", m.PeerOf("bob"))
	assert.True(t, m.IsParticipant("bob"))
	assert.False(t, m.IsParticipant("carol"))
	assert.True(t, m.IsHiddenFor("bob"))
	assert.True(t, m.IsStarredBy("alice"))

	r, ok := m.ReactionOf("bob")
	assert.True(t, ok)
	assert.Equal(t, "👍", r.Emoji)
	_, ok = m.ReactionOf("alice")
	assert.False(t, ok)
}

func TestParseRelationKind(t *testing.T) {
	k, err := ParseRelationKind("block")
	require.NoError(t, err)
	assert.Equal(t, RelationBlock, k)

	_, err = ParseRelationKind("contact")
	assert.Error(t, err)
}

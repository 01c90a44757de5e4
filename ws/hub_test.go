package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
)

// newTestClient, soketsiz bir client oluşturur; event'ler send kanalından okunur.
func newTestClient(h *Hub, userID string) *Client {
	return &Client{
		hub:    h,
		userID: userID,
		send:   make(chan []byte, 32),
		log:    zap.NewNop(),
	}
}

// drain, buffer'daki tüm event'leri okur.
func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return events
			}
			var e Event
			require.NoError(t, json.Unmarshal(raw, &e))
			events = append(events, e)
		default:
			return events
		}
	}
}

func ops(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Op)
	}
	return out
}

func presenceOf(t *testing.T, e Event) PresenceData {
	t.Helper()
	raw, err := json.Marshal(e.Data)
	require.NoError(t, err)
	var p PresenceData
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestRegisterSendsReadySnapshotFirst(t *testing.T) {
	h := NewHub(nil, nil)

	alice := newTestClient(h, "alice")
	h.Register(alice)
	drain(t, alice)

	bob := newTestClient(h, "bob")
	h.Register(bob)

	events := drain(t, bob)
	require.NotEmpty(t, events)
	assert.Equal(t, OpReady, events[0].Op)

	raw, err := json.Marshal(events[0].Data)
	require.NoError(t, err)
	var ready ReadyData
	require.NoError(t, json.Unmarshal(raw, &ready))
	assert.Equal(t, "bob", ready.UserID)
	assert.Equal(t, []string{"alice", "bob"}, ready.OnlineUserIDs)

	// Alice, bob'un online olduğunu görür; bob kendi presence'ını almaz.
	aliceEvents := drain(t, alice)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, OpPresenceUpdate, aliceEvents[0].Op)
	assert.Equal(t, PresenceData{UserID: "bob", Status: StatusOnline}, presenceOf(t, aliceEvents[0]))
	assert.NotContains(t, ops(events), OpPresenceUpdate)
}

func TestMultipleConnectionsPresence(t *testing.T) {
	h := NewHub(nil, nil)

	var firstConnects, disconnects []string
	h.OnUserFirstConnect(func(userID string) { firstConnects = append(firstConnects, userID) })
	h.OnUserFullyDisconnected(func(userID string) { disconnects = append(disconnects, userID) })

	watcher := newTestClient(h, "watcher")
	h.Register(watcher)

	phone := newTestClient(h, "alice")
	laptop := newTestClient(h, "alice")
	h.Register(phone)
	h.Register(laptop)

	assert.True(t, h.IsOnline("alice"))
	assert.Len(t, h.ConnectionsFor("alice"), 2)

	// Sadece ilk bağlantı online yayınlar.
	online := 0
	for _, e := range drain(t, watcher) {
		if e.Op == OpPresenceUpdate {
			online++
		}
	}
	assert.Equal(t, 1, online)

	h.Unregister(phone)
	assert.True(t, h.IsOnline("alice"))
	assert.Empty(t, drain(t, watcher))
	assert.Empty(t, disconnects)

	h.Unregister(laptop)
	assert.False(t, h.IsOnline("alice"))

	events := drain(t, watcher)
	require.Len(t, events, 1)
	assert.Equal(t, PresenceData{UserID: "alice", Status: StatusOffline}, presenceOf(t, events[0]))

	// Tekrar unregister no-op.
	h.Unregister(laptop)
	assert.Empty(t, drain(t, watcher))

	assert.Equal(t, []string{"watcher", "alice"}, firstConnects)
	assert.Equal(t, []string{"alice"}, disconnects)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub(nil, nil)
	c := newTestClient(h, "alice")
	h.Register(c)
	drain(t, c)

	h.Unregister(c)

	_, ok := <-c.send
	assert.False(t, ok)
}

func TestSendToUsersIsOrderedPerConnection(t *testing.T) {
	h := NewHub(nil, nil)
	c := newTestClient(h, "bob")
	h.Register(c)
	drain(t, c)

	for i := 0; i < 10; i++ {
		n := h.SendToUsers([]string{"bob", "offline"}, Event{Op: OpMessageCreate, Data: i})
		assert.Equal(t, 1, n)
	}

	events := drain(t, c)
	require.Len(t, events, 10)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
		assert.EqualValues(t, i, events[i].Data)
	}
}

func TestConcurrentDeliveriesKeepSeqOrderPerConnection(t *testing.T) {
	h := NewHub(nil, nil)
	bob := newTestClient(h, "bob")
	carol := newTestClient(h, "carol")
	h.Register(bob)
	h.Register(carol)
	drain(t, bob)
	drain(t, carol)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				h.SendToUsers([]string{"bob", "carol"}, Event{Op: OpMessageCreate, Data: i})
			}
		}()
	}
	wg.Wait()

	for _, c := range []*Client{bob, carol} {
		events := drain(t, c)
		require.Len(t, events, 20)
		for i := 1; i < len(events); i++ {
			assert.Greater(t, events[i].Seq, events[i-1].Seq)
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	m := metrics.NewNop()
	h := NewHub(nil, m)

	slow := &Client{hub: h, userID: "slow", send: make(chan []byte, 1), log: zap.NewNop()}
	h.Register(slow) // ready buffer'ı doldurur

	n := h.SendToUsers([]string{"slow"}, Event{Op: OpMessageCreate})
	assert.Equal(t, 0, n)

	assert.Eventually(t, func() bool { return !h.IsOnline("slow") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues(OpMessageCreate)))
}

func TestHeartbeatAck(t *testing.T) {
	h := NewHub(nil, nil)
	c := newTestClient(h, "alice")
	h.Register(c)
	drain(t, c)

	c.handleEvent(Event{Op: OpHeartbeat})

	events := drain(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, OpHeartbeatAck, events[0].Op)
}

func TestTypingRejectedSendsErrorToConnection(t *testing.T) {
	h := NewHub(nil, nil)

	var got TypingData
	h.OnTyping(func(userID string, data TypingData) error {
		got = data
		if data.ToUserID == "blocked" {
			return fmt.Errorf("%w: blocked", pkg.ErrForbidden)
		}
		return nil
	})

	c := newTestClient(h, "alice")
	h.Register(c)
	drain(t, c)

	c.handleEvent(Event{Op: OpTyping, Data: map[string]any{"to_user_id": "bob", "is_typing": true}})
	assert.Equal(t, TypingData{ToUserID: "bob", IsTyping: true}, got)
	assert.Empty(t, drain(t, c))

	c.handleEvent(Event{Op: OpTyping, Data: map[string]any{"to_user_id": "blocked", "is_typing": true}})
	events := drain(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, OpError, events[0].Op)

	raw, err := json.Marshal(events[0].Data)
	require.NoError(t, err)
	var e ErrorData
	require.NoError(t, json.Unmarshal(raw, &e))
	assert.Equal(t, ErrorData{Op: OpTyping, Reason: "forbidden"}, e)
}

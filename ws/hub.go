package ws

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/akinalp/relay/pkg/keylock"
	"github.com/akinalp/relay/pkg/metrics"
)

// Hub, presence registry: her kullanıcının açık bağlantı kümesini tutar.
//
// Bir kullanıcı, en az bir bağlantısı varsa online'dır. İlk bağlantıda diğer
// herkese "online", son bağlantı kapandığında "offline" yayınlanır. Aynı
// kullanıcının register/unregister işlemleri userLocks ile sıraya sokulur;
// farklı kullanıcılar birbirini beklemez.
type Hub struct {
	// clients: userID → bağlantı kümesi (bir kullanıcının birden fazla cihazı olabilir).
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	userLocks *keylock.Locker

	// seq, hub genelindeki event sayacı. Bağlantı başına sıra Client.enqueue'da korunur.
	seq atomic.Int64

	log     *zap.Logger
	metrics *metrics.Metrics

	onUserFirstConnect      func(userID string)
	onUserFullyDisconnected func(userID string)
	onTyping                func(userID string, data TypingData) error
}

// NewHub, yeni bir Hub oluşturur.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Hub{
		clients:   make(map[string]map[*Client]bool),
		userLocks: keylock.New(),
		log:       log.Named("presence"),
		metrics:   m,
	}
}

// OnUserFirstConnect, kullanıcının ilk bağlantısı kaydedildikten sonra çağrılır.
func (h *Hub) OnUserFirstConnect(fn func(userID string)) {
	h.onUserFirstConnect = fn
}

// OnUserFullyDisconnected, kullanıcının son bağlantısı kapandıktan ve offline
// yayınlandıktan sonra çağrılır (typing temizliği burada yapılır).
func (h *Hub) OnUserFullyDisconnected(fn func(userID string)) {
	h.onUserFullyDisconnected = fn
}

// OnTyping, client'tan gelen typing event'ini işleyecek fonksiyonu ayarlar.
func (h *Hub) OnTyping(fn func(userID string, data TypingData) error) {
	h.onTyping = fn
}

func (h *Hub) lockUser(userID string) func() {
	// Background context: presence geçişleri zaman aşımına uğramaz.
	unlock, _ := h.userLocks.Lock(context.Background(), "user:"+userID)
	return unlock
}

// Register, bağlantıyı kullanıcının kümesine ekler. Client'a önce ready
// snapshot'ı gider; kullanıcının ilk bağlantısıysa diğer herkese online yayınlanır.
func (h *Hub) Register(client *Client) {
	unlock := h.lockUser(client.userID)
	defer unlock()

	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok {
		conns = make(map[*Client]bool)
		h.clients[client.userID] = conns
	}
	first := len(conns) == 0
	conns[client] = true
	total := len(conns)
	online := len(h.clients)
	h.mu.Unlock()

	h.metrics.Connections.Inc()
	h.metrics.OnlineUsers.Set(float64(online))

	h.log.Debug("client registered",
		zap.String("user_id", client.userID),
		zap.Int("connections", total),
	)

	h.deliver([]*Client{client}, Event{
		Op:   OpReady,
		Data: ReadyData{UserID: client.userID, OnlineUserIDs: h.OnlineUserIDs()},
	})

	if first {
		h.broadcastExcept(client.userID, Event{
			Op:   OpPresenceUpdate,
			Data: PresenceData{UserID: client.userID, Status: StatusOnline},
		})
		if h.onUserFirstConnect != nil {
			h.onUserFirstConnect(client.userID)
		}
	}
}

// Unregister, bağlantıyı kümeden çıkarır ve send kanalını kapatır. Kayıtlı
// olmayan bağlantı için no-op'tur; bu yüzden aynı client için birden fazla
// çağrı güvenlidir. Son bağlantı kapandığında offline tam olarak bir kez yayınlanır.
func (h *Hub) Unregister(client *Client) {
	unlock := h.lockUser(client.userID)
	defer unlock()

	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok || !conns[client] {
		h.mu.Unlock()
		return
	}
	delete(conns, client)
	close(client.send)
	last := len(conns) == 0
	if last {
		delete(h.clients, client.userID)
	}
	remaining := len(conns)
	online := len(h.clients)
	h.mu.Unlock()

	h.metrics.Connections.Dec()
	h.metrics.OnlineUsers.Set(float64(online))

	if !last {
		h.log.Debug("client unregistered",
			zap.String("user_id", client.userID),
			zap.Int("remaining", remaining),
		)
		return
	}

	h.log.Info("user fully disconnected", zap.String("user_id", client.userID))
	h.broadcastExcept(client.userID, Event{
		Op:   OpPresenceUpdate,
		Data: PresenceData{UserID: client.userID, Status: StatusOffline},
	})
	if h.onUserFullyDisconnected != nil {
		h.onUserFullyDisconnected(client.userID)
	}
}

// IsOnline, kullanıcının en az bir açık bağlantısı olup olmadığını döner.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ConnectionsFor, kullanıcının açık bağlantılarını döner.
func (h *Hub) ConnectionsFor(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

// OnlineUserIDs, bağlı olan tüm kullanıcı ID'lerini sıralı döner.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		ids = append(ids, userID)
	}
	h.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// SendToUsers, event'i verilen kullanıcıların tüm bağlantılarına gönderir.
// Ulaşılan bağlantı sayısını döner.
func (h *Hub) SendToUsers(userIDs []string, event Event) int {
	h.mu.RLock()
	var targets []*Client
	for _, userID := range userIDs {
		for c := range h.clients[userID] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	return h.deliver(targets, event)
}

// broadcastExcept, excludeUserID dışındaki herkese gönderir (presence).
func (h *Hub) broadcastExcept(excludeUserID string, event Event) int {
	h.mu.RLock()
	var targets []*Client
	for userID, conns := range h.clients {
		if userID == excludeUserID {
			continue
		}
		for c := range conns {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	return h.deliver(targets, event)
}

// deliver, event'i her hedefin buffer'ına bırakır. Data bir kez encode edilir,
// seq her bağlantıya yazılırken atanır; farklı dağıtımlar birbirini beklemez.
// Bloklamaz: buffer'ı dolu olan client yavaş kabul edilip kayıttan çıkarılır.
func (h *Hub) deliver(targets []*Client, event Event) int {
	if event.Data != nil {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
			return 0
		}
		event.Data = json.RawMessage(payload)
	}

	// Kapanmış bir send kanalına yazmamak için Unregister ile aynı kilidi tutar.
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if !h.clients[c.userID][c] {
			continue
		}
		ok, err := c.enqueue(event)
		if err != nil {
			h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
			return delivered
		}
		if ok {
			delivered++
			continue
		}
		h.metrics.EventsDropped.WithLabelValues(event.Op).Inc()
		h.log.Warn("send buffer full, dropping connection",
			zap.String("user_id", c.userID),
			zap.String("op", event.Op),
		)
		go h.Unregister(c)
	}
	h.metrics.EventsPublished.WithLabelValues(event.Op).Add(float64(delivered))
	return delivered
}

// Shutdown, tüm bağlantıları kapatır. Presence yayını yapılmaz.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.metrics.Connections.Set(0)
	h.metrics.OnlineUsers.Set(0)
	h.log.Info("hub shut down, all connections closed")
}

package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/relay/pkg/keylock"
)

// typingKey, (from, to) veya (from, group) sıralı çifti.
type typingKey struct {
	from    string
	to      string
	isGroup bool
}

func (k typingKey) lockKey() string {
	if k.isGroup {
		return "typing:" + k.from + ":g:" + k.to
	}
	return "typing:" + k.from + ":u:" + k.to
}

// TypingTracker, "X, Y'ye yazıyor" geçici durumunu tutar.
//
// Sunucu typing durumunu kendiliğinden zaman aşımına uğratmaz; client
// debounce ile false gönderir. Durum sadece açık false, mesaj gönderimi
// veya kullanıcının tamamen offline olmasıyla temizlenir.
type TypingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]time.Time

	// Aynı anahtar için durum değişikliği + yayın birlikte sıraya sokulur,
	// böylece hedef son durumu doğru sırada görür.
	keys *keylock.Locker

	pub Publisher
	now func() time.Time
	log *zap.Logger
}

// NewTypingTracker, yayınları pub üzerinden yapan bir tracker oluşturur.
func NewTypingTracker(pub Publisher, log *zap.Logger) *TypingTracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &TypingTracker{
		entries: make(map[typingKey]time.Time),
		keys:    keylock.New(),
		pub:     pub,
		now:     time.Now,
		log:     log.Named("typing"),
	}
}

// SetUserTyping, from'un toUserID'ye yazma durumunu ayarlar ve her zaman
// güncel değeri toUserID'nin bağlantılarına yayınlar.
func (t *TypingTracker) SetUserTyping(from, toUserID string, isTyping bool) {
	t.set(typingKey{from: from, to: toUserID}, isTyping, true)
}

// SetGroupTyping, from'un gruptaki yazma durumunu ayarlar ve diğer üyelere yayınlar.
func (t *TypingTracker) SetGroupTyping(from, groupID string, isTyping bool) {
	t.set(typingKey{from: from, to: groupID, isGroup: true}, isTyping, true)
}

// ClearUser, mesaj gönderiminde çağrılır: (from, to) kaydı varsa silinir ve false yayınlanır.
func (t *TypingTracker) ClearUser(from, toUserID string) {
	t.set(typingKey{from: from, to: toUserID}, false, false)
}

// ClearGroup, grup mesajı gönderiminde çağrılır.
func (t *TypingTracker) ClearGroup(from, groupID string) {
	t.set(typingKey{from: from, to: groupID, isGroup: true}, false, false)
}

// ClearAllFrom, kullanıcı tamamen offline olduğunda çağrılır: from olarak
// tuttuğu tüm kayıtlar silinir ve her hedefe false yayınlanır.
func (t *TypingTracker) ClearAllFrom(from string) {
	t.mu.Lock()
	var keys []typingKey
	for k := range t.entries {
		if k.from == from {
			keys = append(keys, k)
		}
	}
	t.mu.Unlock()

	for _, k := range keys {
		t.set(k, false, false)
	}
	if len(keys) > 0 {
		t.log.Debug("cleared typing on disconnect", zap.String("user_id", from), zap.Int("entries", len(keys)))
	}
}

// IsUserTyping, (from, to) kaydının olup olmadığını döner.
func (t *TypingTracker) IsUserTyping(from, toUserID string) bool {
	return t.has(typingKey{from: from, to: toUserID})
}

// IsGroupTyping, (from, group) kaydının olup olmadığını döner.
func (t *TypingTracker) IsGroupTyping(from, groupID string) bool {
	return t.has(typingKey{from: from, to: groupID, isGroup: true})
}

// Len, aktif typing kaydı sayısı.
func (t *TypingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *TypingTracker) has(k typingKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[k]
	return ok
}

// set, kaydı günceller. always=false ise sadece kayıt varken (silinirken) yayın yapılır.
func (t *TypingTracker) set(k typingKey, isTyping, always bool) {
	unlock, _ := t.keys.Lock(context.Background(), k.lockKey())
	defer unlock()

	t.mu.Lock()
	_, existed := t.entries[k]
	if isTyping {
		t.entries[k] = t.now()
	} else {
		delete(t.entries, k)
	}
	t.mu.Unlock()

	if !always && !existed {
		return
	}
	t.publish(k, isTyping)
}

func (t *TypingTracker) publish(k typingKey, isTyping bool) {
	data := TypingUpdateData{FromUserID: k.from, IsTyping: isTyping}
	target := Target{Exclude: k.from}
	if k.isGroup {
		data.GroupID = k.to
		target.GroupID = k.to
	} else {
		data.ToUserID = k.to
		target.UserIDs = []string{k.to}
	}
	t.pub.Publish(OpTypingUpdate, data, target)
}

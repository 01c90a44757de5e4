package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/relay/pkg/cache"
)

// Target, bir event'in hedef kullanıcı kümesi.
//
// UserIDs ve GroupID üyeleri birleştirilir, Exclude (genellikle aktör)
// çıkarılır. Aktör kendi sonucunu senkron request/response ile alır;
// yayın kanalı sadece diğer alıcılar içindir.
type Target struct {
	UserIDs []string
	GroupID string
	Exclude string
}

// Publisher, servislerin event yayınlamak için kullandığı interface.
type Publisher interface {
	// Publish, event'i hedefin açık bağlantılarına bırakır ve ulaşılan bağlantı
	// sayısını döner. Bağlantısı olmayan hedef için event düşer; hata değildir.
	Publish(op string, data any, target Target) int
	IsOnline(userID string) bool
	// InvalidateGroup, üyelik değiştiğinde cache'lenmiş üye listesini siler.
	InvalidateGroup(groupID string)
}

// MemberResolver, grup üye listesini döner (repository.GroupRepository karşılar).
type MemberResolver interface {
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// Router, Publisher implementasyonu: hedefi Hub'daki bağlantılara çözer.
type Router struct {
	hub     *Hub
	members MemberResolver
	cache   *cache.TTLCache[string, []string]
	log     *zap.Logger
}

// NewRouter, grup üye listelerini ttl süresince cache'leyen bir Router oluşturur.
func NewRouter(hub *Hub, members MemberResolver, ttl time.Duration, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Router{
		hub:     hub,
		members: members,
		cache:   cache.New[string, []string](ttl, 2*ttl),
		log:     log.Named("router"),
	}
}

// Publish, Publisher'ı karşılar.
func (r *Router) Publish(op string, data any, target Target) int {
	recipients := r.resolve(target)
	if len(recipients) == 0 {
		return 0
	}
	return r.hub.SendToUsers(recipients, Event{Op: op, Data: data})
}

// IsOnline, Publisher'ı karşılar.
func (r *Router) IsOnline(userID string) bool {
	return r.hub.IsOnline(userID)
}

// InvalidateGroup, Publisher'ı karşılar.
func (r *Router) InvalidateGroup(groupID string) {
	r.cache.Delete(groupID)
}

// Close, cache temizleme goroutine'ini durdurur.
func (r *Router) Close() {
	r.cache.Close()
}

// resolve, hedefi tekrarsız bir kullanıcı listesine çevirir.
func (r *Router) resolve(target Target) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || id == target.Exclude || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range target.UserIDs {
		add(id)
	}

	if target.GroupID != "" {
		members, err := r.cache.GetOrLoad(target.GroupID, func() ([]string, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return r.members.ListMemberIDs(ctx, target.GroupID)
		})
		if err != nil {
			// Fan-out best-effort'tur; kalıcı kayıt zaten yazıldı.
			r.log.Warn("failed to resolve group members",
				zap.String("group_id", target.GroupID),
				zap.Error(err),
			)
		}
		for _, id := range members {
			add(id)
		}
	}
	return out
}

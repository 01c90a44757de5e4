// Package keylock, anahtar bazlı (per-entity) mutual exclusion sağlar.
//
// Global bir mutex yerine her mesaj ID'si veya kullanıcı ID'si için ayrı bir kilit tutulur.
// Aynı mesaj üzerindeki iki reaction toggle'ı sıralanır, farklı mesajlar paralel çalışır.
//
// Kilit bir 1 elemanlık channel'dır; böylece beklerken context iptali dinlenebilir.
// Kimse kullanmayan anahtarlar map'ten silinir (refs sayacı), bellek büyümez.
package keylock

import (
	"context"
	"fmt"
	"sync"

	"github.com/akinalp/relay/pkg"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Locker, string anahtarlı kilit havuzu. Zero value kullanılamaz, New ile oluşturulur.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New, boş bir kilit havuzu oluşturur.
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock, anahtarın kilidini alır ve bırakma fonksiyonunu döner.
//
// Context kilit alınmadan biterse ErrConflict döner; çağıran taraf eşzamanlı
// bir mutasyonla çakıştığını bilir. Dönen unlock fonksiyonu birden fazla kez
// çağrılabilir, sadece ilki etkilidir.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	// Hızlı yol: kilit boştaysa context'e bakmadan al.
	select {
	case e.ch <- struct{}{}:
		return l.unlocker(key, e), nil
	default:
	}

	select {
	case e.ch <- struct{}{}:
		return l.unlocker(key, e), nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: concurrent mutation on %s", pkg.ErrConflict, key)
	}
}

// Len, şu anda tutulan veya beklenen anahtar sayısını döner.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

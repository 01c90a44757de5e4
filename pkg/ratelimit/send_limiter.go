// Package ratelimit, mesaj gönderimi için kullanıcı bazlı spam koruması.
//
// Davranış:
//   - window içinde maxMessages mesaja izin verilir.
//   - Limit aşıldığında cooldown başlar, bu süre boyunca tüm gönderimler reddedilir.
//   - Cooldown bitince pencere sıfırlanır.
//
// Sadece direct ve grup mesajı oluşturma (send) sınırlanır; edit/react/star gibi
// mutasyonlar bu limiter'dan geçmez.
package ratelimit

import (
	"sync"
	"time"
)

type sendBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// SendLimiter, kullanıcı bazlı mesaj gönderim limiti.
//
//	limiter := NewSendLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(userID) { return 429 }
type SendLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*sendBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewSendLimiter, limiter oluşturur ve arka plan temizleme goroutine'ini başlatır.
func NewSendLimiter(maxMessages int, window, cooldown time.Duration) *SendLimiter {
	rl := &SendLimiter{
		buckets:     make(map[string]*sendBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, kullanıcının şu an mesaj gönderip gönderemeyeceğini döner ve sayacı ilerletir.
func (rl *SendLimiter) Allow(userID string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		rl.buckets[userID] = &sendBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() && now.Before(b.cooldownUntil) {
		return false
	}

	// Cooldown bitti veya pencere doldu → yeni pencere
	if !b.cooldownUntil.IsZero() || now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}

	return true
}

// CooldownSeconds, kalan cooldown süresini saniye cinsinden döner (Retry-After için).
// Cooldown yoksa 0.
func (rl *SendLimiter) CooldownSeconds(userID string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[userID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := b.cooldownUntil.Sub(rl.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Stop, temizleme goroutine'ini durdurur.
func (rl *SendLimiter) Stop() {
	rl.closeOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *SendLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, hem penceresi hem cooldown'ı bitmiş bucket'ları siler.
func (rl *SendLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)

		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}

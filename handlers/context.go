// Package handlers, HTTP endpoint'lerini barındırır.
//
// Handler'lar "thin"dir: request parse + service call + response write.
// İş kuralları service katmanında yaşar; handler sadece domain error'larını
// pkg.Error ile HTTP status'a çevirir.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
)

// UserContextKey, context'te kullanıcı bilgisi taşımak için kullanılan key tipi.
//
// Özel bir tip tanımlayarak başka paketlerin string key'leriyle çakışmayı önleriz.
type contextKey string

const UserContextKey contextKey = "user"

// maxBodyBytes, JSON body üst sınırı. En büyük istek 2000 karakterlik mesajdır.
const maxBodyBytes = 64 << 10

// currentUser, auth middleware'ın context'e koyduğu kullanıcıyı okur.
// Bulunamazsa 401 yazar ve false döner.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// decodeJSON, body'yi dst'ye çözer. Hatalıysa 400 yazar ve false döner.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptionalJSON, boş body'yi kabul eder (clear history gibi opsiyonel body'ler).
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, dst)
}

// pageQuery, ?before=&limit= parametrelerini okur. Geçersiz limit varsayılana düşer.
func pageQuery(r *http.Request) models.PageQuery {
	q := models.PageQuery{Before: r.URL.Query().Get("before")}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	q.Normalize()
	return q
}

// rejector, domain rejection'larını response'a yazar ve reason bazında sayar.
type rejector struct {
	metrics *metrics.Metrics
}

func (rj rejector) fail(w http.ResponseWriter, err error) {
	if rj.metrics != nil {
		rj.metrics.Rejections.WithLabelValues(pkg.Reason(err)).Inc()
	}
	pkg.Error(w, err)
}

// sendLimiter, handler'ın ihtiyaç duyduğu kadar ratelimit.SendLimiter.
type sendLimiter interface {
	Allow(userID string) bool
	CooldownSeconds(userID string) int
}

// allowSend, limit aşılmışsa 429 + Retry-After yazar ve false döner.
// limiter nil ise her gönderim serbesttir.
func (rj rejector) allowSend(w http.ResponseWriter, limiter sendLimiter, userID string) bool {
	if limiter == nil || limiter.Allow(userID) {
		return true
	}
	retryAfter := limiter.CooldownSeconds(userID)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	rj.fail(w, fmt.Errorf("%w: slow down, try again in %d seconds", pkg.ErrTooManyRequests, retryAfter))
	return false
}

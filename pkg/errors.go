// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Lifecycle kuralı ihlalleri (yanlış aktör, süresi dolmuş pencere, terminal durum,
// engelli ilişki, üyelik yok) her zaman bu sentinel'lerden birini sarmalar:
//
//	if errors.Is(err, pkg.ErrWindowExpired) { ... }
//
// Hiçbir rejection otomatik retry edilmez ve realtime router'ı tetiklemez.
package pkg

import "errors"

// Domain-level error'lar.
// Handler katmanı bu error'ları HTTP status code'larına map'ler.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrWindowExpired   = errors.New("window expired")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// Reason, error zincirindeki domain sentinel'ini kısa bir koda çevirir.
// API ve metrics label'larında kullanılır; domain dışı hatalar "internal" döner.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrWindowExpired):
		return "window_expired"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrTooManyRequests):
		return "too_many_requests"
	default:
		return "internal"
	}
}

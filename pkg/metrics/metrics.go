// Package metrics, realtime katmanının Prometheus metriklerini tanımlar.
//
// Metrikler global registry yerine verilen Registerer'a kaydedilir; testler
// kendi registry'lerini oluşturabilir, main.go ise prometheus.DefaultRegisterer
// verip /metrics endpoint'ini promhttp ile açar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay"

// Metrics, hub, router ve servislerin güncellediği sayaç ve göstergeler.
type Metrics struct {
	Connections     prometheus.Gauge
	OnlineUsers     prometheus.Gauge
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
}

// New, metrikleri oluşturur ve reg'e kaydeder.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of open WebSocket connections.",
		}),
		OnlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Number of users with at least one open connection.",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events delivered to client send buffers, by op.",
		}, []string{"op"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a client send buffer was full, by op.",
		}, []string{"op"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected mutations, by reason.",
		}, []string{"reason"}),
	}
}

// NewNop, hiçbir yere kaydedilmemiş metrikler döner. Testlerde ve metrik
// istenmeyen yerlerde kullanılır.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

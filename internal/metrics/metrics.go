package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hutmovies"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	progressSaves  *prometheus.CounterVec
	spins          *prometheus.CounterVec
	walletRequests *prometheus.CounterVec
	episodeChecks  *prometheus.CounterVec
	notifications  prometheus.Counter
	sessions       prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		progressSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_saves_total",
			Help:      "Watch progress saves by result.",
		}, []string{"result"}),
		spins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roulette_spins_total",
			Help:      "Roulette spins by outcome.",
		}, []string{"outcome"}),
		walletRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_transactions_total",
			Help:      "Wallet transactions by type and status.",
		}, []string{"type", "status"}),
		episodeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episode_checks_total",
			Help:      "New-episode check runs by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications stored for users.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "player_sessions",
			Help:      "Open playback sessions.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.progressSaves,
		m.spins,
		m.walletRequests,
		m.episodeChecks,
		m.notifications,
		m.sessions,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ProgressSave(result string) {
	if m == nil {
		return
	}
	m.progressSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) Spin(outcome string) {
	if m == nil {
		return
	}
	m.spins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WalletTransaction(txType, status string) {
	if m == nil {
		return
	}
	m.walletRequests.WithLabelValues(txType, status).Inc()
}

func (m *Metrics) EpisodeCheck(result string) {
	if m == nil {
		return
	}
	m.episodeChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) NotificationsSent(n int) {
	if m == nil {
		return
	}
	m.notifications.Add(float64(n))
}

// SessionOpened and SessionClosed track the open-session gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// HTTPRequest records one served request
func (m *Metrics) HTTPRequest(method string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(seconds)
}

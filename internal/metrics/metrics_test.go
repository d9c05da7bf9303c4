package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()

	m.ProgressSave("ok")
	m.ProgressSave("ok")
	m.ProgressSave("error")
	m.Spin("ton_big")
	m.NotificationsSent(3)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.HTTPRequest(http.MethodGet, http.StatusNotFound, 0.01)

	body := scrape(t, m)
	assert.Contains(t, body, `hutmovies_progress_saves_total{result="ok"} 2`)
	assert.Contains(t, body, `hutmovies_progress_saves_total{result="error"} 1`)
	assert.Contains(t, body, `hutmovies_roulette_spins_total{outcome="ton_big"} 1`)
	assert.Contains(t, body, `hutmovies_notifications_sent_total 3`)
	assert.Contains(t, body, `hutmovies_player_sessions 1`)
	assert.Contains(t, body, `hutmovies_http_requests_total{code="404",method="GET"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ProgressSave("ok")
		m.Spin("ton_small")
		m.WalletTransaction("subscription", "failed")
		m.EpisodeCheck("ok")
		m.NotificationsSent(1)
		m.SessionOpened()
		m.SessionClosed()
		m.HTTPRequest(http.MethodGet, http.StatusOK, 0.1)
	})
}

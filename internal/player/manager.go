package player

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hutmovies/hutmovies/internal/config"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// OptionsFromConfig builds session options from the service configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SaveInterval: cfg.ProgressSaveInterval,
		Autoplay:     cfg.AutoplayNext,
		Countdown:    cfg.AutoplayCountdown,
		Tick:         time.Second,
	}
}

// Manager owns the open playback sessions
type Manager struct {
	progress Progress
	resolver NextEpisodeResolver
	opts     Options
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a new session manager
func NewManager(progress Progress, resolver NextEpisodeResolver, opts Options, m *metrics.Metrics, logger *logrus.Logger) *Manager {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &Manager{
		progress: progress,
		resolver: resolver,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for the content
func (m *Manager) Open(content Content) (*Session, error) {
	if err := content.validate(); err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), content, m.progress, m.resolver, m.opts, m.logger)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.metrics.SessionOpened()
	m.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"user_id":    content.UserID,
		"content_id": content.ContentID,
		"kind":       content.Kind,
	}).Debug("Session opened")
	return s, nil
}

// Get returns a user's session
func (m *Manager) Get(id, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes and forgets a user's session
func (m *Manager) Close(id, userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID() != userID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close()
	m.metrics.SessionClosed()
	return nil
}

// Reap closes sessions that received no event for longer than idle and
// returns how many were closed
func (m *Manager) Reap(idle time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince(now) > idle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	m.closeAll(stale)

	if len(stale) > 0 {
		m.logger.WithField("count", len(stale)).Info("Closed idle playback sessions")
	}
	return len(stale)
}

// CloseAll closes every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.closeAll(all)
}

func (m *Manager) closeAll(sessions []*Session) {
	var wg conc.WaitGroup
	for _, s := range sessions {
		s := s
		wg.Go(func() {
			s.Close()
			m.metrics.SessionClosed()
		})
	}
	wg.Wait()
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// State is where a playback session is in its lifecycle
type State string

const (
	StateLoading    State = "loading"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateEnded      State = "ended"
	StateCountdown  State = "countdown"  // Autoplay countdown towards the next episode
	StateNavigating State = "navigating" // Countdown finished; the client should open Next
	StateClosed     State = "closed"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidContent  = errors.New("invalid content")
)

// Progress persists and restores playback positions
type Progress interface {
	Save(ctx context.Context, in controllers.SaveInput)
	Restore(ctx context.Context, in controllers.RestoreInput) controllers.Resume
}

// NextEpisodeResolver finds the episode that follows another
type NextEpisodeResolver interface {
	NextEpisode(ctx context.Context, showID string, season, episode int) (controllers.EpisodeRef, bool)
}

// Options tune session behaviour
type Options struct {
	SaveInterval time.Duration // Periodic save while playing
	Autoplay     bool          // Count down into the next episode when one ends
	Countdown    int           // Countdown length in ticks
	Tick         time.Duration // Countdown tick, one second in production
}

// Content is what a session plays
type Content struct {
	UserID    string             `json:"-"`
	ContentID string             `json:"content_id"`
	Kind      models.ContentKind `json:"kind"`
	Season    *int               `json:"season,omitempty"`
	Episode   *int               `json:"episode,omitempty"`

	// NoAutoplay is set when the user turned "autoplay next" off
	NoAutoplay bool `json:"-"`
}

func (c Content) validate() error {
	if c.UserID == "" || c.ContentID == "" || !c.Kind.Valid() {
		return ErrInvalidContent
	}
	if c.Kind == models.KindSeries && (c.Season == nil || c.Episode == nil || *c.Season < 1 || *c.Episode < 1) {
		return fmt.Errorf("%w: series need season and episode numbers", ErrInvalidContent)
	}
	return nil
}

// View is a snapshot of a session for the client
type View struct {
	ID        string                  `json:"id"`
	Content   Content                 `json:"content"`
	State     State                   `json:"state"`
	Position  float64                 `json:"position"`
	Duration  float64                 `json:"duration"`
	Countdown int                     `json:"countdown"`
	Next      *controllers.EpisodeRef `json:"next,omitempty"`
	Resume    *controllers.Resume     `json:"resume,omitempty"`
}

// Session is one playback of one movie or episode. Background work (periodic
// saves, the autoplay countdown) runs under the session context and stops when
// the session closes.
type Session struct {
	id       string
	content  Content
	progress Progress
	resolver NextEpisodeResolver
	opts     Options
	logger   *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu            sync.Mutex
	state         State
	position      float64
	duration      float64
	countdown     int
	next          *controllers.EpisodeRef
	stopCountdown context.CancelFunc
	lastEvent     time.Time
}

func newSession(id string, content Content, progress Progress, resolver NextEpisodeResolver, opts Options, logger *logrus.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		content:  content,
		progress: progress,
		resolver: resolver,
		opts:     opts,
		logger: logger.WithFields(logrus.Fields{
			"session_id": id,
			"user_id":    content.UserID,
			"content_id": content.ContentID,
		}),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateLoading,
		lastEvent: time.Now(),
	}

	if opts.SaveInterval > 0 {
		s.wg.Go(s.saveLoop)
	}
	return s
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// UserID returns the owner of the session
func (s *Session) UserID() string {
	return s.content.UserID
}

// View returns a snapshot of the session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:        s.id,
		Content:   s.content,
		State:     s.state,
		Position:  s.position,
		Duration:  s.duration,
		Countdown: s.countdown,
	}
	if s.next != nil {
		next := *s.next
		v.Next = &next
	}
	return v
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastEvent)
}

func (s *Session) saveInputLocked() controllers.SaveInput {
	return controllers.SaveInput{
		UserID:    s.content.UserID,
		ContentID: s.content.ContentID,
		Kind:      s.content.Kind,
		Position:  s.position,
		Duration:  s.duration,
		Season:    s.content.Season,
		Episode:   s.content.Episode,
	}
}

// saveLoop persists the position on every interval while playing
func (s *Session) saveLoop() {
	ticker := time.NewTicker(s.opts.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		playing := s.state == StatePlaying
		in := s.saveInputLocked()
		s.mu.Unlock()

		if playing {
			s.progress.Save(s.ctx, in)
		}
	}
}

// Loaded is called once media metadata is known. It restores the saved
// position and starts playback.
func (s *Session) Loaded(ctx context.Context, duration float64) (controllers.Resume, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return controllers.Resume{}, ErrSessionClosed
	}
	if duration > 0 {
		s.duration = duration
	}
	in := controllers.RestoreInput{
		UserID:    s.content.UserID,
		ContentID: s.content.ContentID,
		Kind:      s.content.Kind,
		Season:    s.content.Season,
		Episode:   s.content.Episode,
		Duration:  s.duration,
	}
	s.lastEvent = time.Now()
	s.mu.Unlock()

	resume := s.progress.Restore(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return resume, ErrSessionClosed
	}
	if s.state == StateLoading {
		s.position = resume.Position
		s.state = StatePlaying
	}
	return resume, nil
}

// Play resumes or restarts playback
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()

	switch s.state {
	case StateLoading, StatePaused, StateEnded, StateNavigating:
		s.state = StatePlaying
	case StateCountdown:
		s.cancelCountdownLocked()
		s.state = StatePlaying
	}
	return nil
}

// Pause pauses playback and saves the position
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return nil
	}
	s.state = StatePaused
	in := s.saveInputLocked()
	s.mu.Unlock()

	s.progress.Save(ctx, in)
	return nil
}

// TimeUpdate records the current playback position
func (s *Session) TimeUpdate(position float64) error {
	if position < 0 {
		return fmt.Errorf("%w: negative position", ErrInvalidEvent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()
	s.position = position
	return nil
}

// DurationChange records a new media duration
func (s *Session) DurationChange(duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()
	if duration > 0 {
		s.duration = duration
	}
	return nil
}

// Ended saves the final position and, for series when both the service and
// the user have autoplay on, starts the countdown towards the next episode
func (s *Session) Ended(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()
	if s.state == StateEnded || s.state == StateCountdown || s.state == StateNavigating {
		s.mu.Unlock()
		return nil
	}
	s.state = StateEnded
	if s.duration > 0 {
		s.position = s.duration
	}
	in := s.saveInputLocked()
	s.mu.Unlock()

	s.progress.Save(ctx, in)

	if s.content.Kind != models.KindSeries || !s.opts.Autoplay || s.content.NoAutoplay {
		return nil
	}

	next, ok := s.resolveNext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEnded || !ok {
		return nil
	}
	s.next = &next

	if s.opts.Countdown <= 0 {
		s.state = StateNavigating
		return nil
	}

	countdownCtx, stop := context.WithCancel(s.ctx)
	s.stopCountdown = stop
	s.countdown = s.opts.Countdown
	s.state = StateCountdown
	s.wg.Go(func() { s.runCountdown(countdownCtx) })

	s.logger.WithField("next", next.String()).Debug("Autoplay countdown started")
	return nil
}

func (s *Session) resolveNext(ctx context.Context) (controllers.EpisodeRef, bool) {
	return s.resolver.NextEpisode(ctx, s.content.ContentID, *s.content.Season, *s.content.Episode)
}

func (s *Session) runCountdown(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if ctx.Err() != nil || s.state != StateCountdown {
			s.mu.Unlock()
			return
		}
		s.countdown--
		remaining := s.countdown
		s.mu.Unlock()

		if remaining > 0 {
			continue
		}

		// Catalog may have changed while counting down
		next, ok := s.resolveNext(ctx)

		s.mu.Lock()
		if ctx.Err() == nil && s.state == StateCountdown {
			if ok {
				s.next = &next
				s.state = StateNavigating
			} else {
				s.next = nil
				s.state = StateEnded
			}
		}
		s.mu.Unlock()
		return
	}
}

func (s *Session) cancelCountdownLocked() {
	if s.stopCountdown != nil {
		s.stopCountdown()
		s.stopCountdown = nil
	}
	s.countdown = 0
}

// CancelCountdown stops the autoplay countdown and stays on the ended episode
func (s *Session) CancelCountdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.lastEvent = time.Now()
	if s.state == StateCountdown {
		s.cancelCountdownLocked()
		s.state = StateEnded
	}
	return nil
}

// Close saves the position, stops background work and waits for it to finish.
// Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	save := s.state != StateLoading && s.position > 0
	in := s.saveInputLocked()
	s.state = StateClosed
	s.cancelCountdownLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	// Runs after the periodic saves have stopped so it is the last write
	if save {
		s.progress.Save(context.Background(), in)
	}
	s.logger.Debug("Session closed")
}

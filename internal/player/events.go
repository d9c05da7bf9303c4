package player

import (
	"context"
	"fmt"

	"github.com/hutmovies/hutmovies/internal/controllers"
)

// EventType names a client player event
type EventType string

const (
	EventLoaded          EventType = "loaded"
	EventPlay            EventType = "play"
	EventPause           EventType = "pause"
	EventTimeUpdate      EventType = "timeupdate"
	EventDurationChange  EventType = "durationchange"
	EventEnded           EventType = "ended"
	EventCancelCountdown EventType = "cancel_countdown"
)

// Event is one event reported by the client player
type Event struct {
	Type     EventType `json:"type"`
	Position float64   `json:"position,omitempty"`
	Duration float64   `json:"duration,omitempty"`
}

// Dispatch applies an event and returns the resulting view
func (s *Session) Dispatch(ctx context.Context, ev Event) (View, error) {
	var err error
	var resume *controllers.Resume

	switch ev.Type {
	case EventLoaded:
		var r controllers.Resume
		r, err = s.Loaded(ctx, ev.Duration)
		resume = &r
	case EventPlay:
		err = s.Play()
	case EventPause:
		if ev.Position > 0 {
			err = s.TimeUpdate(ev.Position)
		}
		if err == nil {
			err = s.Pause(ctx)
		}
	case EventTimeUpdate:
		err = s.TimeUpdate(ev.Position)
	case EventDurationChange:
		err = s.DurationChange(ev.Duration)
	case EventEnded:
		err = s.Ended(ctx)
	case EventCancelCountdown:
		err = s.CancelCountdown()
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidEvent, ev.Type)
	}
	if err != nil {
		return View{}, err
	}

	view := s.View()
	view.Resume = resume
	return view, nil
}

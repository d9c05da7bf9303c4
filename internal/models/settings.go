package models

import "time"

// RouletteSettings controls when spins are accepted. A zero StartTime or
// EndTime leaves that side of the window open.
type RouletteSettings struct {
	Key       string    `boltholdKey:"Key" json:"-"`
	Active    bool      `json:"active"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenAt reports whether spins are accepted at t
func (s *RouletteSettings) OpenAt(t time.Time) bool {
	if !s.Active {
		return false
	}
	if !s.StartTime.IsZero() && t.Before(s.StartTime) {
		return false
	}
	if !s.EndTime.IsZero() && t.After(s.EndTime) {
		return false
	}
	return true
}

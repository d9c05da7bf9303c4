package models

import "time"

// WatchRecord is the playback position of one user in one movie or episode
type WatchRecord struct {
	Key       string      `boltholdKey:"Key" json:"-"`
	UserID    string      `boltholdIndex:"UserID" json:"-"`
	ContentID string      `json:"content_id"`
	Kind      ContentKind `json:"kind"`

	// Series only; set together or not at all
	Season  *int `json:"season,omitempty"`
	Episode *int `json:"episode,omitempty"`

	PositionSeconds float64   `json:"position"`
	DurationSeconds *float64  `json:"duration,omitempty"` // nil until media metadata is known
	UpdatedAt       time.Time `json:"updated_at"`
}

// LastWatched points at the content a user interacted with most recently
type LastWatched struct {
	Key       string      `boltholdKey:"Key" json:"-"`
	UserID    string      `json:"-"`
	Kind      ContentKind `json:"kind"`
	ContentID string      `json:"content_id"`
	Season    *int        `json:"season,omitempty"`
	Episode   *int        `json:"episode,omitempty"`

	PositionSeconds float64   `json:"position"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsEpisode reports whether the pointer names a concrete series episode
func (l *LastWatched) IsEpisode() bool {
	return l.Kind == KindSeries && l.Season != nil && l.Episode != nil
}

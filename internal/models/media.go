package models

import "time"

// Show represents a TV show in the catalog
type Show struct {
	Key         string   `boltholdKey:"Key" json:"-"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Seasons     []Season `json:"seasons"` // Ordered as published

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Season is one season of a show
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"` // Ordered as published
}

// Episode is one episode of a season. Older records have no explicit ID,
// in which case the episode is addressed by its 1-based position.
type Episode struct {
	ID       *int   `json:"id,omitempty"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
	VideoSrc string `json:"video_src,omitempty"`
}

// Movie represents a movie in the catalog
type Movie struct {
	Key         string `boltholdKey:"Key" json:"-"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	VideoSrc    string `json:"video_src,omitempty"`
	Duration    string `json:"duration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EpisodeID returns an explicit episode identifier
func EpisodeID(id int) *int {
	return &id
}

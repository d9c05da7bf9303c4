package models

import "time"

// Notification is a message shown in a user's notification panel
type Notification struct {
	Key           string           `boltholdKey:"Key" json:"-"`
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	IconType      NotificationIcon `json:"icon_type"`
	RecipientType RecipientType    `json:"recipient_type"`
	Recipient     string           `boltholdIndex:"Recipient" json:"recipient,omitempty"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// EpisodeCheck is the high-water mark of the last new-episode check for a show
type EpisodeCheck struct {
	Key         string `boltholdKey:"Key"`
	ShowID      string
	LastSeason  int
	LastEpisode int
	CheckedAt   time.Time
}

// EpisodeCheckResult is the outcome of checking one show
type EpisodeCheckResult struct {
	Timestamp         time.Time `json:"timestamp"`
	NotificationsSent int       `json:"notifications_sent"`
}

// EpisodeCheckStatus describes the last run of the new-episode check
type EpisodeCheckStatus struct {
	Key        string                        `boltholdKey:"Key" json:"-"`
	IsRunning  bool                          `json:"is_running"`
	LastRun    time.Time                     `json:"last_run"`
	LastUpdate time.Time                     `json:"last_update"`
	Results    map[string]EpisodeCheckResult `json:"results"`
}

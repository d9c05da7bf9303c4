package models

import "fmt"

// Store keys mirror the logical document tree the player UI was built against.

// MovieProgressPath is the key of a movie's watch record
func MovieProgressPath(userID, contentID string) string {
	return fmt.Sprintf("users/%s/watchProgress/%s", userID, contentID)
}

// EpisodeProgressPath is the key of an episode's watch record
func EpisodeProgressPath(userID, contentID string, season, episode int) string {
	return fmt.Sprintf("users/%s/tvTimeStamps/%s/seasons/%d/episodes/%d", userID, contentID, season, episode)
}

// LastWatchedPath is the key of a user's last-watched pointer
func LastWatchedPath(userID string) string {
	return fmt.Sprintf("users/%s/lastWatched", userID)
}

// AccountPath is the key of a user's account record
func AccountPath(userID string) string {
	return "users/" + userID
}

// TransactionPath is the key of one ledger entry
func TransactionPath(userID, transactionID string) string {
	return fmt.Sprintf("users/%s/transactions/%s", userID, transactionID)
}

// ShowPath is the key of a catalog show
func ShowPath(showID string) string {
	return "tvShows/" + showID
}

// MoviePath is the key of a catalog movie
func MoviePath(movieID string) string {
	return "movies/" + movieID
}

// WinnerPath is the key of a one-time reward winner entry
func WinnerPath(id string) string {
	return "treshHutWinners/" + id
}

// NotificationPath is the key of a notification
func NotificationPath(id string) string {
	return "notifications/" + id
}

// EpisodeCheckPath is the key of a show's new-episode high-water mark
func EpisodeCheckPath(showID string) string {
	return "episodeChecks/" + showID
}

// EpisodeCheckStatusPath is the key of the new-episode check service status
const EpisodeCheckStatusPath = "episodeCheckService"

// RouletteSettingsPath is the key of the roulette schedule
const RouletteSettingsPath = "settings/roulette"

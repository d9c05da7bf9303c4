package controllers

import (
	"context"
	"fmt"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EpisodeRef addresses an episode by season number and episode number
type EpisodeRef struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

func (r EpisodeRef) String() string {
	return fmt.Sprintf("S%dE%d", r.Season, r.Episode)
}

// episodeNumber is the number an episode is addressed by: its explicit ID,
// or its 1-based position when it has none
func episodeNumber(ep models.Episode, index int) int {
	if ep.ID != nil {
		return *ep.ID
	}
	return index + 1
}

// FindSeason returns the index of the season with the given number, or -1
func FindSeason(show *models.Show, number int) int {
	if show == nil {
		return -1
	}
	for i, s := range show.Seasons {
		if s.Number == number {
			return i
		}
	}
	return -1
}

// FindEpisode returns the index of episode n in a season, or -1.
// Explicit IDs win; otherwise n is taken as a 1-based position.
func FindEpisode(season *models.Season, n int) int {
	if season == nil {
		return -1
	}
	for i, ep := range season.Episodes {
		if ep.ID != nil && *ep.ID == n {
			return i
		}
	}
	if n >= 1 && n <= len(season.Episodes) {
		return n - 1
	}
	return -1
}

// FirstEpisode returns the first episode of the first season that has one
func FirstEpisode(show *models.Show) (EpisodeRef, bool) {
	if show == nil {
		return EpisodeRef{}, false
	}
	for _, s := range show.Seasons {
		if len(s.Episodes) > 0 {
			return EpisodeRef{Season: s.Number, Episode: episodeNumber(s.Episodes[0], 0)}, true
		}
	}
	return EpisodeRef{}, false
}

// ResolveNextEpisode returns the episode that follows (season, episode) in publication order:
// the next entry of the same season, otherwise the first episode of the next non-empty season.
func ResolveNextEpisode(show *models.Show, season, episode int) (EpisodeRef, bool) {
	si := FindSeason(show, season)
	if si < 0 {
		return EpisodeRef{}, false
	}

	current := &show.Seasons[si]
	ei := FindEpisode(current, episode)
	if ei < 0 {
		return EpisodeRef{}, false
	}

	if ei+1 < len(current.Episodes) {
		return EpisodeRef{Season: current.Number, Episode: episodeNumber(current.Episodes[ei+1], ei+1)}, true
	}

	for _, next := range show.Seasons[si+1:] {
		if len(next.Episodes) > 0 {
			return EpisodeRef{Season: next.Number, Episode: episodeNumber(next.Episodes[0], 0)}, true
		}
	}

	return EpisodeRef{}, false
}

// EpisodeController resolves episode navigation against the catalog
type EpisodeController struct {
	catalog *CatalogController
	logger  *logrus.Logger
}

// NewEpisodeController creates a new episode controller
func NewEpisodeController(catalog *CatalogController, logger *logrus.Logger) *EpisodeController {
	return &EpisodeController{
		catalog: catalog,
		logger:  logger,
	}
}

// NextEpisode fetches the show and resolves the episode after (season, episode).
// Missing shows and store failures resolve to no next episode.
func (c *EpisodeController) NextEpisode(ctx context.Context, showID string, season, episode int) (EpisodeRef, bool) {
	ctx, span := tracer.Start(ctx, "episodes.NextEpisode", trace.WithAttributes(
		attribute.String("show.id", showID),
		attribute.Int("season", season),
		attribute.Int("episode", episode),
	))
	defer span.End()

	show, err := c.catalog.Show(ctx, showID)
	if err != nil {
		if !models.IsNotFound(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.WithError(err).WithField("show_id", showID).Error("Failed to load show for next episode")
		}
		return EpisodeRef{}, false
	}

	next, ok := ResolveNextEpisode(show, season, episode)
	c.logger.WithFields(logrus.Fields{
		"show_id": showID,
		"current": EpisodeRef{Season: season, Episode: episode}.String(),
		"found":   ok,
	}).Debug("Resolved next episode")
	return next, ok
}

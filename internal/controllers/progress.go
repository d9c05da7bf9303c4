package controllers

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Positions this close to the end restart from zero
	finishedThresholdSeconds = 10
	// Stored progress beyond this share of the duration offers the next episode
	nextEpisodeRatio = 0.9
)

// SaveInput is one progress write
type SaveInput struct {
	UserID    string
	ContentID string
	Kind      models.ContentKind
	Position  float64
	Duration  float64 // <= 0 when metadata is not loaded yet
	Season    *int
	Episode   *int
}

// RestoreInput identifies the content whose position should be restored
type RestoreInput struct {
	UserID    string
	ContentID string
	Kind      models.ContentKind
	Season    *int
	Episode   *int
	Duration  float64 // live duration reported by the player, <= 0 if unknown
}

// Resume is the outcome of a restore
type Resume struct {
	Found    bool    `json:"found"`
	Position float64 `json:"position"`
	Finished bool    `json:"finished"` // Saved position was at the end; playback restarts
}

// WatchAction is the main call-to-action on a show page
type WatchAction struct {
	Label    string `json:"label"`
	Season   int    `json:"season"`
	Episode  int    `json:"episode"`
	Continue bool   `json:"continue"`
}

// ProgressController persists and restores playback positions
type ProgressController struct {
	db      *models.Database
	catalog *CatalogController
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewProgressController creates a new progress controller
func NewProgressController(db *models.Database, catalog *CatalogController, m *metrics.Metrics, logger *logrus.Logger) *ProgressController {
	return &ProgressController{
		db:      db,
		catalog: catalog,
		metrics: m,
		logger:  logger,
	}
}

func (c *ProgressController) recordKey(userID, contentID string, kind models.ContentKind, season, episode *int) (string, bool) {
	switch kind {
	case models.KindMovie:
		return models.MovieProgressPath(userID, contentID), true
	case models.KindSeries:
		// Numbering starts at 1; zero is never a real season or episode
		if season == nil || episode == nil || *season < 1 || *episode < 1 {
			return "", false
		}
		return models.EpisodeProgressPath(userID, contentID, *season, *episode), true
	default:
		return "", false
	}
}

// Save writes the watch record and the last-watched pointer together.
// Invalid input is skipped and store failures are logged; nothing is returned.
func (c *ProgressController) Save(ctx context.Context, in SaveInput) {
	_, span := tracer.Start(ctx, "progress.Save", trace.WithAttributes(
		attribute.String("content.id", in.ContentID),
		attribute.String("content.kind", string(in.Kind)),
	))
	defer span.End()

	log := c.logger.WithFields(logrus.Fields{
		"user_id":    in.UserID,
		"content_id": in.ContentID,
		"kind":       in.Kind,
	})

	if in.UserID == "" {
		log.Debug("Skipping progress save for anonymous user")
		c.metrics.ProgressSave("skipped")
		return
	}
	if in.ContentID == "" || math.IsNaN(in.Position) || in.Position < 0 {
		log.WithField("position", in.Position).Warn("Skipping progress save with invalid input")
		c.metrics.ProgressSave("skipped")
		return
	}

	key, ok := c.recordKey(in.UserID, in.ContentID, in.Kind, in.Season, in.Episode)
	if !ok {
		log.Warn("Skipping progress save: series progress needs season and episode numbers")
		c.metrics.ProgressSave("skipped")
		return
	}

	now := time.Now()
	record := &models.WatchRecord{
		Key:             key,
		UserID:          in.UserID,
		ContentID:       in.ContentID,
		Kind:            in.Kind,
		PositionSeconds: in.Position,
		UpdatedAt:       now,
	}
	if in.Duration > 0 && !math.IsInf(in.Duration, 0) {
		d := math.Floor(in.Duration)
		record.DurationSeconds = &d
	}

	pointer := &models.LastWatched{
		Key:             models.LastWatchedPath(in.UserID),
		UserID:          in.UserID,
		Kind:            in.Kind,
		ContentID:       in.ContentID,
		PositionSeconds: in.Position,
		UpdatedAt:       now,
	}
	if in.Kind == models.KindSeries {
		record.Season, record.Episode = in.Season, in.Episode
		pointer.Season, pointer.Episode = in.Season, in.Episode
	}

	if err := c.db.SaveProgress(record, pointer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Failed to save progress")
		c.metrics.ProgressSave("error")
		return
	}

	log.WithField("position", in.Position).Debug("Saved progress")
	c.metrics.ProgressSave("ok")
}

// Restore returns where playback should start. A missing record or a store
// failure means starting from zero.
func (c *ProgressController) Restore(ctx context.Context, in RestoreInput) Resume {
	_, span := tracer.Start(ctx, "progress.Restore", trace.WithAttributes(
		attribute.String("content.id", in.ContentID),
	))
	defer span.End()

	if in.UserID == "" {
		return Resume{}
	}

	key, ok := c.recordKey(in.UserID, in.ContentID, in.Kind, in.Season, in.Episode)
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"user_id":    in.UserID,
			"content_id": in.ContentID,
		}).Warn("Cannot restore series progress without season and episode")
		return Resume{}
	}

	record, err := c.db.GetWatchRecord(key)
	if err != nil {
		if !models.IsNotFound(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.WithError(err).WithField("key", key).Error("Failed to load progress")
		}
		return Resume{}
	}
	if record.PositionSeconds <= 0 {
		return Resume{}
	}

	duration := in.Duration
	if duration <= 0 && record.DurationSeconds != nil {
		duration = *record.DurationSeconds
	}

	if duration > 0 && record.PositionSeconds >= duration-finishedThresholdSeconds {
		return Resume{Found: true, Position: 0, Finished: true}
	}
	return Resume{Found: true, Position: record.PositionSeconds}
}

// Records returns every watch record of a user, newest first
func (c *ProgressController) Records(ctx context.Context, userID string) ([]*models.WatchRecord, error) {
	records, err := c.db.GetWatchRecordsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watch records: %w", err)
	}
	return records, nil
}

// LastWatched returns the user's last-watched pointer, or nil if there is none
func (c *ProgressController) LastWatched(ctx context.Context, userID string) (*models.LastWatched, error) {
	pointer, err := c.db.GetLastWatched(userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load last watched: %w", err)
	}
	return pointer, nil
}

// WatchButton decides what the main button of a show page plays
func (c *ProgressController) WatchButton(ctx context.Context, userID, showID string) (*WatchAction, error) {
	show, err := c.catalog.Show(ctx, showID)
	if err != nil {
		return nil, err
	}

	first, ok := FirstEpisode(show)
	if !ok {
		return nil, fmt.Errorf("show %s has no episodes: %w", showID, models.ErrNotFound)
	}
	startOver := &WatchAction{
		Label:   fmt.Sprintf("Watch episode %d", first.Episode),
		Season:  first.Season,
		Episode: first.Episode,
	}

	pointer, err := c.LastWatched(ctx, userID)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("Falling back to first episode")
		return startOver, nil
	}
	if pointer == nil || !pointer.IsEpisode() || pointer.ContentID != showID {
		return startOver, nil
	}

	si := FindSeason(show, *pointer.Season)
	if si < 0 {
		return startOver, nil
	}
	ei := FindEpisode(&show.Seasons[si], *pointer.Episode)
	if ei < 0 {
		return startOver, nil
	}
	current := EpisodeRef{Season: *pointer.Season, Episode: *pointer.Episode}

	record, err := c.db.GetWatchRecord(models.EpisodeProgressPath(userID, showID, current.Season, current.Episode))
	if err != nil && !models.IsNotFound(err) {
		c.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load episode progress")
	}

	if record != nil && record.PositionSeconds > 0 {
		var duration float64
		if record.DurationSeconds != nil {
			duration = *record.DurationSeconds
		}
		if duration > 0 && record.PositionSeconds > nextEpisodeRatio*duration {
			if next, ok := ResolveNextEpisode(show, current.Season, current.Episode); ok {
				return &WatchAction{
					Label:   fmt.Sprintf("Watch season %d episode %d", next.Season, next.Episode),
					Season:  next.Season,
					Episode: next.Episode,
				}, nil
			}
		}
		return &WatchAction{
			Label:    fmt.Sprintf("Continue from %d min", int(record.PositionSeconds/60)),
			Season:   current.Season,
			Episode:  current.Episode,
			Continue: true,
		}, nil
	}

	return &WatchAction{
		Label:   fmt.Sprintf("Watch episode %d", episodeNumber(show.Seasons[si].Episodes[ei], ei)),
		Season:  current.Season,
		Episode: current.Episode,
	}, nil
}

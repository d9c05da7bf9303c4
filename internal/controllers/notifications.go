package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NotificationController follows shows for users and tells them about new episodes
type NotificationController struct {
	db      *models.Database
	pause   time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewNotificationController creates a new notification controller. pause is
// waited between shows during a full check.
func NewNotificationController(db *models.Database, pause time.Duration, m *metrics.Metrics, logger *logrus.Logger) *NotificationController {
	return &NotificationController{
		db:      db,
		pause:   pause,
		metrics: m,
		logger:  logger,
	}
}

// SetShowSubscription turns new-episode notifications for a show on or off
func (c *NotificationController) SetShowSubscription(ctx context.Context, userID, showID string, on bool) error {
	if _, err := c.db.GetShow(showID); err != nil {
		return err
	}

	err := c.db.Update(func(tx *models.Tx) error {
		account, err := accountOrNew(tx, userID)
		if err != nil {
			return err
		}
		if account.ShowSubscriptions == nil {
			account.ShowSubscriptions = map[string]bool{}
		}
		if on {
			account.ShowSubscriptions[showID] = true
		} else {
			delete(account.ShowSubscriptions, showID)
		}
		return tx.UpsertAccount(account)
	})
	if err != nil {
		return fmt.Errorf("failed to update show subscription: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"show_id":    showID,
		"subscribed": on,
	}).Info("Show subscription changed")
	return nil
}

// Notifications returns the notifications visible to a user, newest first
func (c *NotificationController) Notifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	notifications, err := c.db.GetNotificationsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return notifications, nil
}

// Notify stores a notification for one user
func (c *NotificationController) Notify(ctx context.Context, userID, title, message string, icon models.NotificationIcon) (*models.Notification, error) {
	n := &models.Notification{
		ID:            uuid.NewString(),
		Title:         title,
		Message:       message,
		IconType:      icon,
		RecipientType: models.RecipientUser,
		Recipient:     userID,
		Status:        "sent",
		CreatedAt:     time.Now(),
	}
	if err := c.db.InsertNotification(n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	return n, nil
}

// latestEpisode returns the highest season number and the highest episode
// number inside that season
func latestEpisode(show *models.Show) (season int, episode int, ok bool) {
	si := -1
	for i, s := range show.Seasons {
		if si < 0 || s.Number > show.Seasons[si].Number {
			si = i
		}
	}
	if si < 0 {
		return 0, 0, false
	}

	last := show.Seasons[si]
	for i, ep := range last.Episodes {
		if n := episodeNumber(ep, i); n > episode {
			episode = n
		}
	}
	return last.Number, episode, true
}

// CheckShow compares a show against its stored high-water mark and notifies
// followers about a new season or a new episode. It returns how many
// notifications were sent.
func (c *NotificationController) CheckShow(ctx context.Context, showID string) (int, error) {
	ctx, span := tracer.Start(ctx, "notifications.CheckShow", trace.WithAttributes(attribute.String("show.id", showID)))
	defer span.End()

	show, err := c.db.GetShow(showID)
	if err != nil {
		return 0, fmt.Errorf("failed to load show: %w", err)
	}

	season, episode, ok := latestEpisode(show)
	if !ok {
		return 0, nil
	}

	check, err := c.db.GetEpisodeCheck(showID)
	if err != nil {
		if !models.IsNotFound(err) {
			return 0, fmt.Errorf("failed to load episode check: %w", err)
		}
		check = &models.EpisodeCheck{ShowID: showID}
	}

	sent := 0
	switch {
	case season > check.LastSeason:
		si := FindSeason(show, season)
		first := 1
		if len(show.Seasons[si].Episodes) > 0 {
			first = episodeNumber(show.Seasons[si].Episodes[0], 0)
		}
		sent, err = c.notifyFollowers(ctx, show, season, first)
	case season == check.LastSeason && episode > check.LastEpisode:
		sent, err = c.notifyFollowers(ctx, show, season, episode)
	}
	if err != nil {
		return sent, err
	}

	check.LastSeason = season
	check.LastEpisode = episode
	check.CheckedAt = time.Now()
	if err := c.db.UpsertEpisodeCheck(check); err != nil {
		return sent, fmt.Errorf("failed to store episode check: %w", err)
	}

	return sent, nil
}

func (c *NotificationController) notifyFollowers(ctx context.Context, show *models.Show, season, episode int) (int, error) {
	followers, err := c.db.GetAccountsSubscribedToShow(show.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load followers: %w", err)
	}

	title := fmt.Sprintf("New episode of %s", show.Title)
	message := fmt.Sprintf("Season %d episode %d of %s is out", season, episode, show.Title)

	sent := 0
	for _, account := range followers {
		if _, err := c.Notify(ctx, account.UserID, title, message, models.IconPlay); err != nil {
			c.logger.WithError(err).WithField("user_id", account.UserID).Error("Failed to notify follower")
			continue
		}
		sent++
	}

	c.metrics.NotificationsSent(sent)
	c.logger.WithFields(logrus.Fields{
		"show_id": show.ID,
		"episode": EpisodeRef{Season: season, Episode: episode}.String(),
		"sent":    sent,
	}).Info("Notified followers about new episode")
	return sent, nil
}

// CheckAllShows runs CheckShow for every show, pausing between shows, and
// records the run in the service status
func (c *NotificationController) CheckAllShows(ctx context.Context) error {
	status, err := c.db.GetEpisodeCheckStatus()
	if err != nil {
		if !models.IsNotFound(err) {
			return fmt.Errorf("failed to load check status: %w", err)
		}
		status = &models.EpisodeCheckStatus{}
	}
	status.IsRunning = true
	status.LastRun = time.Now()
	status.LastUpdate = status.LastRun
	if err := c.db.UpsertEpisodeCheckStatus(status); err != nil {
		return fmt.Errorf("failed to store check status: %w", err)
	}

	results := map[string]models.EpisodeCheckResult{}
	defer func() {
		status.IsRunning = false
		status.LastUpdate = time.Now()
		status.Results = results
		if err := c.db.UpsertEpisodeCheckStatus(status); err != nil {
			c.logger.WithError(err).Error("Failed to store check status")
		}
	}()

	shows, err := c.db.GetAllShows()
	if err != nil {
		c.metrics.EpisodeCheck("error")
		return fmt.Errorf("failed to list shows: %w", err)
	}

	c.logger.WithField("shows", len(shows)).Info("Checking shows for new episodes")

	for i, show := range shows {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
				c.metrics.EpisodeCheck("cancelled")
				return ctx.Err()
			case <-time.After(c.pause):
			}
		}

		sent, err := c.CheckShow(ctx, show.ID)
		if err != nil {
			c.logger.WithError(err).WithField("show_id", show.ID).Error("Episode check failed")
			continue
		}
		results[show.ID] = models.EpisodeCheckResult{
			Timestamp:         time.Now(),
			NotificationsSent: sent,
		}
	}

	c.metrics.EpisodeCheck("ok")
	c.logger.Info("Episode check completed")
	return nil
}

// Status returns the last recorded check status, or nil if no check ever ran
func (c *NotificationController) Status(ctx context.Context) (*models.EpisodeCheckStatus, error) {
	status, err := c.db.GetEpisodeCheckStatus()
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return status, nil
}

package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// CatalogController serves shows and movies with a short-lived cache in front of the store
type CatalogController struct {
	db     *models.Database
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewCatalogController creates a new catalog controller
func NewCatalogController(db *models.Database, ttl time.Duration, logger *logrus.Logger) *CatalogController {
	return &CatalogController{
		db:     db,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Show returns a show by ID. A missing show yields models.ErrNotFound.
func (c *CatalogController) Show(ctx context.Context, showID string) (*models.Show, error) {
	key := models.ShowPath(showID)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*models.Show), nil
	}

	show, err := c.db.GetShow(showID)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, show)
	return show, nil
}

// Movie returns a movie by ID. A missing movie yields models.ErrNotFound.
func (c *CatalogController) Movie(ctx context.Context, movieID string) (*models.Movie, error) {
	key := models.MoviePath(movieID)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*models.Movie), nil
	}

	movie, err := c.db.GetMovie(movieID)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, movie)
	return movie, nil
}

// PutShow stores a show and caches the stored value
func (c *CatalogController) PutShow(ctx context.Context, show *models.Show) error {
	if show.ID == "" {
		return fmt.Errorf("show id is required")
	}
	if err := c.db.UpsertShow(show); err != nil {
		return fmt.Errorf("failed to store show: %w", err)
	}
	c.cache.SetDefault(models.ShowPath(show.ID), show)

	c.logger.WithFields(logrus.Fields{
		"show_id": show.ID,
		"title":   show.Title,
		"seasons": len(show.Seasons),
	}).Info("Stored show")
	return nil
}

// PutMovie stores a movie and caches the stored value
func (c *CatalogController) PutMovie(ctx context.Context, movie *models.Movie) error {
	if movie.ID == "" {
		return fmt.Errorf("movie id is required")
	}
	if err := c.db.UpsertMovie(movie); err != nil {
		return fmt.Errorf("failed to store movie: %w", err)
	}
	c.cache.SetDefault(models.MoviePath(movie.ID), movie)

	c.logger.WithFields(logrus.Fields{
		"movie_id": movie.ID,
		"title":    movie.Title,
	}).Info("Stored movie")
	return nil
}

// Search finds shows and movies whose title or description contains the term,
// ignoring case and accents, closest titles first
func (c *CatalogController) Search(ctx context.Context, term string) ([]utils.SearchHit, error) {
	if utils.NormalizeTitle(term) == "" {
		return nil, nil
	}

	shows, err := c.db.GetAllShows()
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	movies, err := c.db.GetAllMovies()
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	var hits []utils.SearchHit
	for _, show := range shows {
		if utils.MatchesTerm(term, show.Title, show.Description) {
			hits = append(hits, utils.SearchHit{
				ID:       show.ID,
				Title:    show.Title,
				Kind:     string(models.KindSeries),
				Distance: utils.TitleDistance(show.Title, term),
			})
		}
	}
	for _, movie := range movies {
		if utils.MatchesTerm(term, movie.Title, movie.Description) {
			hits = append(hits, utils.SearchHit{
				ID:       movie.ID,
				Title:    movie.Title,
				Kind:     string(models.KindMovie),
				Distance: utils.TitleDistance(movie.Title, term),
			})
		}
	}

	c.logger.WithFields(logrus.Fields{
		"term": term,
		"hits": len(hits),
	}).Debug("Catalog search")

	return utils.RankHits(hits), nil
}

package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNextEpisode(t *testing.T) {
	show := twoSeasonShow("show-1")

	tests := []struct {
		name    string
		season  int
		episode int
		want    EpisodeRef
		found   bool
	}{
		{"next in season", 1, 1, EpisodeRef{Season: 1, Episode: 2}, true},
		{"rolls into next season", 1, 2, EpisodeRef{Season: 2, Episode: 1}, true},
		{"last episode", 2, 1, EpisodeRef{}, false},
		{"unknown season", 3, 1, EpisodeRef{}, false},
		{"unknown episode", 1, 9, EpisodeRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveNextEpisode(show, tt.season, tt.episode)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNextEpisodePositionalFallback(t *testing.T) {
	show := &models.Show{
		ID: "legacy",
		Seasons: []models.Season{
			{Number: 1, Episodes: []models.Episode{{Title: "a"}, {Title: "b"}, {Title: "c"}}},
			{Number: 2, Episodes: nil},
			{Number: 3, Episodes: []models.Episode{{Title: "d"}}},
		},
	}

	next, ok := ResolveNextEpisode(show, 1, 2)
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 1, Episode: 3}, next)

	// Empty seasons are skipped and an ID-less first episode is episode 1
	next, ok = ResolveNextEpisode(show, 1, 3)
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 3, Episode: 1}, next)
}

func TestResolveNextEpisodeExplicitIDsWin(t *testing.T) {
	show := &models.Show{
		ID: "renumbered",
		Seasons: []models.Season{
			{Number: 1, Episodes: []models.Episode{
				{ID: intPtr(10)},
				{ID: intPtr(11)},
				{},
			}},
		},
	}

	next, ok := ResolveNextEpisode(show, 1, 10)
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 1, Episode: 11}, next)

	// Third entry has no ID; its number is its position
	next, ok = ResolveNextEpisode(show, 1, 11)
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 1, Episode: 3}, next)
}

func TestFirstEpisode(t *testing.T) {
	first, ok := FirstEpisode(twoSeasonShow("s"))
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 1, Episode: 1}, first)

	_, ok = FirstEpisode(&models.Show{ID: "empty"})
	assert.False(t, ok)
}

func TestEpisodeControllerNextEpisode(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogController(db, time.Minute, discard)
	require.NoError(t, catalog.PutShow(context.Background(), twoSeasonShow("show-1")))

	ctrl := NewEpisodeController(catalog, discard)

	next, ok := ctrl.NextEpisode(context.Background(), "show-1", 1, 2)
	require.True(t, ok)
	assert.Equal(t, EpisodeRef{Season: 2, Episode: 1}, next)

	_, ok = ctrl.NextEpisode(context.Background(), "missing", 1, 1)
	assert.False(t, ok)
}

package utils

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Amélie", "amelie"},
		{"  The HUT ", "the hut"},
		{"Ёлки", "елки"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestMatchesTerm(t *testing.T) {
	assert.True(t, MatchesTerm("amelie", "Le Fabuleux Destin d'Amélie Poulain"))
	assert.True(t, MatchesTerm("hut", "Nothing here", "The Hut"))
	assert.False(t, MatchesTerm("hut", "Nothing here"))
	assert.False(t, MatchesTerm("   ", "The Hut"))
}

func TestRankHits(t *testing.T) {
	hits := []SearchHit{
		{ID: "a", Title: "The Hut Returns", Distance: TitleDistance("The Hut Returns", "the hut")},
		{ID: "b", Title: "The Hut", Distance: TitleDistance("The Hut", "the hut")},
		{ID: "c", Title: "A Hut", Distance: TitleDistance("A Hut", "the hut")},
	}

	ranked := RankHits(hits)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, 0, ranked[0].Distance)
	// Input is left untouched
	assert.Equal(t, "a", hits[0].ID)
}

func TestLoadAdmins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.txt")

	admins, err := LoadAdmins(path)
	require.NoError(t, err)
	assert.Equal(t, 0, admins.Count())

	require.NoError(t, os.WriteFile(path, []byte("# admins\nroot\n\n  ops  \n"), 0600))
	admins, err = LoadAdmins(path)
	require.NoError(t, err)
	assert.Equal(t, 2, admins.Count())
	assert.True(t, admins.IsAdmin("root"))
	assert.True(t, admins.IsAdmin("ops"))
	assert.False(t, admins.IsAdmin("# admins"))
	assert.False(t, admins.IsAdmin(""))

	var none *Admins
	assert.False(t, none.IsAdmin("root"))
}

func TestTracerProviderLogsSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	tp := NewTracerProvider(logger)
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "progress.Save")
	span.SetAttributes(attribute.String("content.id", "m1"))
	span.End()

	assert.Contains(t, buf.String(), "Span finished")
	assert.Contains(t, buf.String(), "progress.Save")
	assert.Contains(t, buf.String(), "content.id=m1")
}

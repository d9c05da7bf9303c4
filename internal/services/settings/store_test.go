package settings

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	ps, err := store.Load("user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), ps)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewFileStore(path)

	_, err := store.Save("user-1", PlayerSettings{Volume: 0.4, Muted: true})
	require.NoError(t, err)
	_, err = store.Save("user-2", PlayerSettings{Volume: 0.9})
	require.NoError(t, err)

	reopened := NewFileStore(path)
	ps, err := reopened.Load("user-1")
	require.NoError(t, err)
	assert.Equal(t, PlayerSettings{Volume: 0.4, Muted: true}, ps)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), KeyVolume)
	assert.Contains(t, string(data), KeyMuted)
}

func TestSaveClampsVolume(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	tests := []struct {
		in   float64
		want float64
	}{
		{1.7, 1},
		{-0.2, 0},
		{math.NaN(), 0},
		{0.25, 0.25},
	}
	for _, tt := range tests {
		ps, err := store.Save("user-1", PlayerSettings{Volume: tt.in})
		require.NoError(t, err)
		assert.Equal(t, tt.want, ps.Volume)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	ps, err := NewFileStore(path).Load("user-1")
	assert.Error(t, err)
	assert.Equal(t, Defaults(), ps)
}

func TestLoadFillsMissingKeysWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user-1":{"player_volume":0.3,"player_muted":true}}`), 0600))

	ps, err := NewFileStore(path).Load("user-1")
	require.NoError(t, err)
	assert.Equal(t, PlayerSettings{Volume: 0.3, Muted: true, Autoplay: true}, ps)
}

func TestSaveAutoplayOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewFileStore(path)

	_, err := store.Save("user-1", PlayerSettings{Volume: 1, Autoplay: false})
	require.NoError(t, err)

	ps, err := NewFileStore(path).Load("user-1")
	require.NoError(t, err)
	assert.False(t, ps.Autoplay)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), KeyAutoplay)
}

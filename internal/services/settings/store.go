package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
)

// Keys the player UI reads and writes
const (
	KeyVolume   = "player_volume"
	KeyMuted    = "player_muted"
	KeyAutoplay = "player_autoplay"
)

// PlayerSettings are the persisted player preferences
type PlayerSettings struct {
	Volume   float64 `json:"player_volume"`
	Muted    bool    `json:"player_muted"`
	Autoplay bool    `json:"player_autoplay"` // Count down into the next episode
}

// Defaults are used for users that never changed anything
func Defaults() PlayerSettings {
	return PlayerSettings{Volume: 1, Autoplay: true}
}


// Store defines the interface for loading and saving player settings
type Store interface {
	Load(userID string) (PlayerSettings, error)
	Save(userID string, s PlayerSettings) (PlayerSettings, error)
}

// FileStore implements Store using a JSON file keyed by user ID
type FileStore struct {
	filepath string
	mu       sync.Mutex
}

// NewFileStore creates a new file-based settings store
func NewFileStore(filepath string) *FileStore {
	return &FileStore{filepath: filepath}
}

func (s *FileStore) read() (map[string]PlayerSettings, error) {
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]PlayerSettings{}, nil
		}
		return nil, err
	}

	all := map[string]PlayerSettings{}
	if len(data) == 0 {
		return all, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	// Keys written before a setting existed keep its default
	for userID, entry := range raw {
		ps := Defaults()
		if err := json.Unmarshal(entry, &ps); err != nil {
			return nil, fmt.Errorf("failed to parse settings of %s: %w", userID, err)
		}
		all[userID] = ps
	}
	return all, nil
}

// Load returns the user's settings, or the defaults when none are stored
func (s *FileStore) Load(userID string) (PlayerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return Defaults(), err
	}
	if ps, ok := all[userID]; ok {
		return ps, nil
	}
	return Defaults(), nil
}

// Save stores the user's settings with the volume clamped to [0, 1]
func (s *FileStore) Save(userID string, ps PlayerSettings) (PlayerSettings, error) {
	ps.Volume = clamp(ps.Volume)

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return ps, err
	}
	all[userID] = ps

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return ps, err
	}

	tmp := s.filepath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return ps, err
	}
	return ps, os.Rename(tmp, s.filepath)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package utils

import (
	"bufio"
	"os"
	"strings"
)

// Admins holds the user IDs allowed to use the admin console
type Admins struct {
	ids map[string]struct{}
}

// LoadAdmins loads admin user IDs from a file, one per line. Blank lines and
// lines starting with # are ignored.
func LoadAdmins(path string) (*Admins, error) {
	// If file doesn't exist, nobody is an admin
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Admins{ids: map[string]struct{}{}}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" && !strings.HasPrefix(id, "#") {
			ids[id] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Admins{ids: ids}, nil
}

// NewAdmins builds an admin list from IDs
func NewAdmins(ids ...string) *Admins {
	a := &Admins{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

// IsAdmin reports whether userID is an admin
func (a *Admins) IsAdmin(userID string) bool {
	if a == nil || userID == "" {
		return false
	}
	_, ok := a.ids[userID]
	return ok
}

// Count returns the number of admins
func (a *Admins) Count() int {
	return len(a.ids)
}

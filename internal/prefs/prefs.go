// Package prefs persists per-user UI preferences across page reloads.
// The contract is a plain key/value store: reads that fail look like an
// absent key, and writes are best-effort.
package prefs

import (
	"log/slog"
)

// DarkModeKey is the fixed key under which the dark-mode preference is
// stored, encoded as the string "true" or "false".
const DarkModeKey = "dark_mode"

// Store is a key/value preference store scoped to a single user.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(key string) (string, bool)
	// Set stores a value. Failures are the caller's to swallow.
	Set(key, value string) error
}

// DarkMode loads the dark-mode preference, defaulting to false when the
// key is absent or unreadable.
func DarkMode(s Store) bool {
	v, ok := s.Get(DarkModeKey)
	return ok && v == "true"
}

// SetDarkMode persists the dark-mode preference best-effort. A write
// failure is logged and swallowed; the in-memory state already changed
// and the user is not told.
func SetDarkMode(s Store, enabled bool) {
	value := "false"
	if enabled {
		value = "true"
	}
	if err := s.Set(DarkModeKey, value); err != nil {
		slog.Warn("Failed to persist dark-mode preference", "error", err)
	}
}

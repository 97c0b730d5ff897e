package config

import (
	"log"
	"os"
	"strconv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultAddr          = ":8080"
	DefaultAvatarBaseURL = "https://avatars.dicebear.com/api/adventurer-neutral"
	DefaultHistoryLimit  = 50
	DefaultPrefsDir      = "data/prefs"
)

// Config holds all configuration for the application.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string
	// SessionSecret signs the session cookies that carry the login
	// identity and user preferences.
	SessionSecret string
	// AvatarBaseURL is the base of the avatar service. A user's avatar
	// is always <AvatarBaseURL>/<name>.svg.
	AvatarBaseURL string
	// HistoryLimit bounds how many stored messages are replayed to a
	// newly registered client.
	HistoryLimit int
	// StaticWatch enables the fsnotify watcher that pushes a reload
	// command to connected browsers when static assets change.
	StaticWatch bool
	// PrefsDir is the directory the file-backed preference store
	// writes under.
	PrefsDir string

	// SurrealDB connection settings. When DBUrl is empty the message
	// history falls back to the in-memory store.
	DBUrl  string
	DBNs   string
	DBDb   string
	DBUser string
	DBPass string
}

// New loads configuration from environment variables.
func New() *Config {
	cfg := &Config{
		Addr:          getEnv("PARLEY_ADDR", DefaultAddr),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AvatarBaseURL: getEnv("AVATAR_BASE_URL", DefaultAvatarBaseURL),
		HistoryLimit:  getEnvInt("HISTORY_LIMIT", DefaultHistoryLimit),
		StaticWatch:   getEnvBool("STATIC_WATCH", false),
		PrefsDir:      getEnv("PREFS_DIR", DefaultPrefsDir),
		DBUrl:         os.Getenv("SURREAL_URL"),
		DBUser:        os.Getenv("SURREAL_USER"),
		DBPass:        os.Getenv("SURREAL_PASS"),
		DBNs:          os.Getenv("SURREAL_NS"),
		DBDb:          os.Getenv("SURREAL_DB"),
	}

	if cfg.SessionSecret == "" {
		log.Fatal("Required environment variable SESSION_SECRET is not set.")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %t", key, v, fallback)
		return fallback
	}
	return b
}

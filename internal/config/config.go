package config

import (
	"os"
	"path/filepath"
)

// Settings is the process-wide user configuration. Exactly one value is
// active at a time; changes apply to subsequent requests only. The JSON tags
// mirror the persisted settings document shape.
type Settings struct {
	APIBaseURL         string  `json:"apiBaseUrl"`
	APIToken           string  `json:"apiToken"`
	DefaultModel       string  `json:"defaultModel"`
	DefaultTemperature float64 `json:"defaultTemperature"`
	Timezone           string  `json:"timezone"`
	EnableLiveLogs     bool    `json:"enableLiveLogs"`
}

// Patch carries a partial settings update. Nil fields are left untouched by
// Update; no validation is performed at this layer.
type Patch struct {
	APIBaseURL         *string
	APIToken           *string
	DefaultModel       *string
	DefaultTemperature *float64
	Timezone           *string
	EnableLiveLogs     *bool
}

const defaultBaseURL = "http://localhost:8080"

// Defaults returns the environment-derived default settings. The base URL
// and token come from LAP_API_BASE_URL / LAP_API_TOKEN; the rest are static.
func Defaults() Settings {
	base := os.Getenv("LAP_API_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	tz := os.Getenv("TZ")
	if tz == "" {
		tz = "UTC"
	}
	return Settings{
		APIBaseURL:         base,
		APIToken:           os.Getenv("LAP_API_TOKEN"),
		DefaultModel:       "gpt-3.5-turbo",
		DefaultTemperature: 0.7,
		Timezone:           tz,
		EnableLiveLogs:     true,
	}
}

// DefaultDataDir resolves the directory holding the local database.
// LAP_DATA_DIR overrides; otherwise the XDG data dir is used.
func DefaultDataDir() string {
	if dir := os.Getenv("LAP_DATA_DIR"); dir != "" {
		return dir
	}
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "lap-data"
		}
	}
	return filepath.Join(dir, "lap")
}

// LogLevel returns the configured log level name (LAP_LOG_LEVEL), defaulting
// to "info". Not part of the persisted settings document.
func LogLevel() string {
	if lvl := os.Getenv("LAP_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

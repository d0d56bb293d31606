// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backend selectors accepted by STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// DefaultConfirmToken is the shared secret for destructive actions when
// DELETE_CONFIRM_TOKEN is not set. It matches what the journal's original
// client shipped with, so existing users keep working.
const DefaultConfirmToken = "0329"

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// StoreBackend selects the persistence substrate: memory, postgres, or
	// firestore. Defaults to memory.
	StoreBackend string

	// DataFile, when set with the memory backend, persists the whole
	// collection to one JSON file across restarts. Empty means volatile.
	DataFile string

	// DatabaseURL is the Postgres connection string.
	// Required when StoreBackend is postgres.
	DatabaseURL string

	// FirestoreProjectID is the GCP project holding the journal collections.
	// Required when StoreBackend is firestore.
	FirestoreProjectID string

	// ConfirmToken is the shared secret required by destructive operations.
	// Defaults to DefaultConfirmToken.
	ConfirmToken string

	// MaxUploadBytes caps the request body size for photo uploads.
	// Defaults to 33554432 (32 MiB), enough for a burst of phone originals.
	MaxUploadBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error for an unknown backend, a malformed size, or a missing
// variable the selected backend requires.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		DataFile:     os.Getenv("DATA_FILE"),
		ConfirmToken: getEnv("DELETE_CONFIRM_TOKEN", DefaultConfirmToken),
	}

	rawMax := getEnv("MAX_UPLOAD_BYTES", "33554432")
	maxBytes, err := strconv.ParseInt(rawMax, 10, 64)
	if err != nil || maxBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", rawMax)
	}
	cfg.MaxUploadBytes = maxBytes

	var missing []string
	switch cfg.StoreBackend {
	case BackendMemory:
		// No further requirements.
	case BackendPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendFirestore:
		cfg.FirestoreProjectID = os.Getenv("FIRESTORE_PROJECT_ID")
		if cfg.FirestoreProjectID == "" {
			missing = append(missing, "FIRESTORE_PROJECT_ID")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q (want %s, %s, or %s)",
			cfg.StoreBackend, BackendMemory, BackendPostgres, BackendFirestore)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

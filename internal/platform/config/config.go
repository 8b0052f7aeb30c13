package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultCollection      = "trail_guides"
	defaultDialTimeout     = 10 * time.Second
	defaultLocalStorePath  = "trailguide.db"
	defaultMaxRetries      = 3
	defaultBaseDelay       = time.Second
	defaultStatsTimeout    = 12 * time.Second
	defaultCatalogTimeout  = 15 * time.Second
	defaultUserTimeout     = 12 * time.Second
	defaultBrowseBatchSize = 6

	envGoogleProjectID = "GOOGLE_CLOUD_PROJECT"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Firestore  FirestoreConfig
	LocalStore LocalStoreConfig
	Session    SessionConfig
	Fetch      FetchConfig
	Browse     BrowseConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores remote document store parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
	DialTimeout  time.Duration
}

// LocalStoreConfig points at the on-disk key/value database.
type LocalStoreConfig struct {
	Path string
}

// SessionConfig identifies the signed-in user of this client session. An empty UserID
// means the session is anonymous and social actions are rejected.
type SessionConfig struct {
	UserID    string
	UserEmail string
}

// FetchConfig holds the retry budget and per-phase timeouts of the load sequence.
type FetchConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	StatsTimeout   time.Duration
	CatalogTimeout time.Duration
	UserTimeout    time.Duration
}

// BrowseConfig controls incremental reveal of the browse view.
type BrowseConfig struct {
	BatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides and environment
// variables. Precedence: explicit env map > OS env > .env file > defaults.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "TRAILGUIDE_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "TRAILGUIDE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "TRAILGUIDE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "TRAILGUIDE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "TRAILGUIDE_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "TRAILGUIDE_FIRESTORE_EMULATOR_HOST", ""),
			Collection:   stringWithDefault(lookup, "TRAILGUIDE_FIRESTORE_COLLECTION", defaultCollection),
			DialTimeout:  durationWithDefault(lookup, "TRAILGUIDE_FIRESTORE_DIAL_TIMEOUT", defaultDialTimeout),
		},
		LocalStore: LocalStoreConfig{
			Path: stringWithDefault(lookup, "TRAILGUIDE_LOCALSTORE_PATH", defaultLocalStorePath),
		},
		Session: SessionConfig{
			UserID:    strings.TrimSpace(stringWithDefault(lookup, "TRAILGUIDE_SESSION_USER_ID", "")),
			UserEmail: strings.TrimSpace(stringWithDefault(lookup, "TRAILGUIDE_SESSION_USER_EMAIL", "")),
		},
		Fetch: FetchConfig{
			MaxRetries:     intWithDefault(lookup, "TRAILGUIDE_FETCH_MAX_RETRIES", defaultMaxRetries),
			BaseDelay:      durationWithDefault(lookup, "TRAILGUIDE_FETCH_BASE_DELAY", defaultBaseDelay),
			StatsTimeout:   durationWithDefault(lookup, "TRAILGUIDE_FETCH_STATS_TIMEOUT", defaultStatsTimeout),
			CatalogTimeout: durationWithDefault(lookup, "TRAILGUIDE_FETCH_CATALOG_TIMEOUT", defaultCatalogTimeout),
			UserTimeout:    durationWithDefault(lookup, "TRAILGUIDE_FETCH_USER_TIMEOUT", defaultUserTimeout),
		},
		Browse: BrowseConfig{
			BatchSize: intWithDefault(lookup, "TRAILGUIDE_BROWSE_BATCH_SIZE", defaultBrowseBatchSize),
		},
	}

	// Firestore project falls back to the ambient Google Cloud project.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = stringWithDefault(lookup, envGoogleProjectID, "")
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if strings.TrimSpace(cfg.Firestore.Collection) == "" {
		missing = append(missing, "Firestore.Collection")
	}
	if strings.TrimSpace(cfg.LocalStore.Path) == "" {
		missing = append(missing, "LocalStore.Path")
	}
	if cfg.Fetch.MaxRetries < 0 {
		missing = append(missing, "Fetch.MaxRetries")
	}
	if cfg.Fetch.BaseDelay <= 0 {
		missing = append(missing, "Fetch.BaseDelay")
	}
	if cfg.Fetch.StatsTimeout <= 0 {
		missing = append(missing, "Fetch.StatsTimeout")
	}
	if cfg.Fetch.CatalogTimeout <= 0 {
		missing = append(missing, "Fetch.CatalogTimeout")
	}
	if cfg.Fetch.UserTimeout <= 0 {
		missing = append(missing, "Fetch.UserTimeout")
	}
	if cfg.Browse.BatchSize <= 0 {
		missing = append(missing, "Browse.BatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultOrdersCollection    = "orders"
	defaultCartsCollection     = "carts"
	defaultEventsTopic         = "order-events"
	defaultNotificationTimeout = 10 * time.Second
	defaultFallbackPath        = "data/fallback_orders.json"
	defaultFallbackStorageName = "shopspark-orders"
	defaultResumeTTL           = 30 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firebase      FirebaseConfig
	Firestore     FirestoreConfig
	PubSub        PubSubConfig
	Notifications NotificationConfig
	Fallback      FallbackStoreConfig
	Resume        ResumeConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID        string
	EmulatorHost     string
	OrdersCollection string
	CartsCollection  string
}

// PubSubConfig configures the order event publisher.
type PubSubConfig struct {
	ProjectID   string
	EventsTopic string
}

// NotificationConfig points at the confirmation-email callable.
type NotificationConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

// FallbackStoreConfig locates the local durable order cache.
type FallbackStoreConfig struct {
	Path        string
	StorageName string
}

// ResumeConfig controls the resume-after-login signal store.
type ResumeConfig struct {
	TTL time.Duration
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

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
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

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
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
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:        stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:     stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
			OrdersCollection: stringWithDefault(lookup, "API_FIRESTORE_ORDERS_COLLECTION", defaultOrdersCollection),
			CartsCollection:  stringWithDefault(lookup, "API_FIRESTORE_CARTS_COLLECTION", defaultCartsCollection),
		},
		PubSub: PubSubConfig{
			ProjectID:   stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			EventsTopic: stringWithDefault(lookup, "API_PUBSUB_EVENTS_TOPIC", defaultEventsTopic),
		},
		Notifications: NotificationConfig{
			Endpoint:  stringWithDefault(lookup, "API_NOTIFICATIONS_ENDPOINT", ""),
			AuthToken: stringWithDefault(lookup, "API_NOTIFICATIONS_AUTH_TOKEN", ""),
			Timeout:   durationWithDefault(lookup, "API_NOTIFICATIONS_TIMEOUT", defaultNotificationTimeout),
		},
		Fallback: FallbackStoreConfig{
			Path:        stringWithDefault(lookup, "API_FALLBACK_PATH", defaultFallbackPath),
			StorageName: stringWithDefault(lookup, "API_FALLBACK_STORAGE_NAME", defaultFallbackStorageName),
		},
		Resume: ResumeConfig{
			TTL: durationWithDefault(lookup, "API_RESUME_TTL", defaultResumeTTL),
		},
	}

	// Firestore and Pub/Sub projects default to the Firebase project.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
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
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Firestore.OrdersCollection == "" {
		missing = append(missing, "Firestore.OrdersCollection")
	}
	if cfg.Firestore.CartsCollection == "" {
		missing = append(missing, "Firestore.CartsCollection")
	}
	if cfg.Fallback.Path == "" {
		missing = append(missing, "Fallback.Path")
	}
	if cfg.Fallback.StorageName == "" {
		missing = append(missing, "Fallback.StorageName")
	}
	if cfg.Notifications.Timeout <= 0 {
		missing = append(missing, "Notifications.Timeout")
	}
	if cfg.Resume.TTL <= 0 {
		missing = append(missing, "Resume.TTL")
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
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
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

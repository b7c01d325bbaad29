// Package core provides the main FarmSight client, configuration, and
// shared domain types.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/agrovista/farmsight-go/pkg/logger"
)

// Config contains the complete configuration for a FarmSight client.
//
// It includes settings for:
//   - API access (base URL, retries, anti-forgery)
//   - Realtime channel (WebSocket URL, reconnect delay)
//   - Credential storage (keyring or SQLite)
//   - Farm memory (capacity, retention sweep)
//   - Snapshot archive (optional)
//   - AI assistant (optional)
//
// Example:
//
//	config := &core.Config{
//	    API: core.APIConfig{
//	        BaseURL: "https://api.farm.example",
//	    },
//	    CredStore: core.CredStoreConfig{
//	        Provider: "keyring",
//	    },
//	    Memory: core.MemoryConfig{
//	        MaxEntries: 1000,
//	    },
//	}
type Config struct {
	// API contains HTTP API configuration.
	API APIConfig `json:"api"`

	// Realtime contains WebSocket channel configuration.
	Realtime RealtimeConfig `json:"realtime"`

	// CredStore contains credential storage configuration.
	CredStore CredStoreConfig `json:"cred_store"`

	// Memory contains farm memory store configuration.
	Memory MemoryConfig `json:"memory"`

	// Archive contains snapshot archive configuration (optional).
	Archive *ArchiveConfig `json:"archive,omitempty"`

	// Assistant contains AI assistant configuration (optional).
	Assistant *AssistantConfig `json:"assistant,omitempty"`

	// Log contains logging configuration.
	Log logger.Config `json:"log"`
}

// APIConfig contains configuration for the HTTP API.
type APIConfig struct {
	// BaseURL is the backend base URL (e.g. "https://api.farm.example").
	BaseURL string `json:"base_url"`

	// TimeoutSeconds bounds each request attempt. Defaults to 30.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// MaxRetries is the attempt budget for transient failures. Defaults to 3.
	MaxRetries int `json:"max_retries,omitempty"`

	// CSRFToken is attached to state-changing requests when set.
	CSRFToken string `json:"csrf_token,omitempty"`
}

// RealtimeConfig contains configuration for the WebSocket channel.
type RealtimeConfig struct {
	// URL is the WebSocket endpoint. When empty it is derived from the
	// API base URL by protocol substitution (http→ws, https→wss) plus
	// the "/ws" path.
	URL string `json:"url,omitempty"`

	// ReconnectDelaySeconds is the fixed reconnect delay. Defaults to 5.
	ReconnectDelaySeconds int `json:"reconnect_delay_seconds,omitempty"`
}

// CredStoreConfig contains configuration for credential storage.
//
// Supported providers: keyring, sqlite, memory
type CredStoreConfig struct {
	// Provider is the credential store provider name.
	// Defaults to "memory" (tokens do not survive process exit).
	Provider string `json:"provider,omitempty"`

	// Config contains provider-specific configuration.
	// For keyring: service
	// For sqlite: db_path
	Config map[string]interface{} `json:"config,omitempty"`
}

// MemoryConfig contains configuration for the farm memory store.
type MemoryConfig struct {
	// MaxEntries is the store capacity. Defaults to 1000.
	MaxEntries int `json:"max_entries,omitempty"`

	// SweepSchedule is a cron expression for retention sweeps
	// (empty disables sweeping).
	SweepSchedule string `json:"sweep_schedule,omitempty"`

	// RetentionHours is the retention window used by sweeps. Defaults to 720.
	RetentionHours int `json:"retention_hours,omitempty"`
}

// ArchiveConfig contains configuration for the snapshot archive.
//
// Supported providers: sqlite, postgres, mysql
type ArchiveConfig struct {
	// Provider is the archive provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For sqlite: db_path, table_name
	// For postgres: host, port, user, password, db_name, ssl_mode, table_name
	// For mysql: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config"`
}

// AssistantConfig contains configuration for the AI assistant.
type AssistantConfig struct {
	// APIKey is the API key for the model provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g. "gpt-4o-mini").
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API base URL for OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - FARMSIGHT_API_BASE_URL, FARMSIGHT_WS_URL, FARMSIGHT_CSRF_TOKEN
//   - CREDSTORE_PROVIDER (keyring, sqlite, memory), CREDSTORE_SQLITE_PATH
//   - MEMORY_MAX_ENTRIES, MEMORY_SWEEP_SCHEDULE, MEMORY_RETENTION_HOURS
//   - ARCHIVE_PROVIDER (sqlite, postgres, mysql) plus
//     ARCHIVE_SQLITE_PATH / POSTGRES_* / MYSQL_* settings
//   - ASSISTANT_API_KEY, ASSISTANT_MODEL, ASSISTANT_BASE_URL
//   - LOG_LEVEL, LOG_FORMAT, LOG_FILE
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	maxEntries, _ := strconv.Atoi(getEnvOrDefault("MEMORY_MAX_ENTRIES", "1000"))
	retentionHours, _ := strconv.Atoi(getEnvOrDefault("MEMORY_RETENTION_HOURS", "720"))
	timeoutSeconds, _ := strconv.Atoi(getEnvOrDefault("FARMSIGHT_API_TIMEOUT_SECONDS", "30"))
	maxRetries, _ := strconv.Atoi(getEnvOrDefault("FARMSIGHT_API_MAX_RETRIES", "3"))

	config := &Config{
		API: APIConfig{
			BaseURL:        getEnvOrDefault("FARMSIGHT_API_BASE_URL", "http://localhost:8080"),
			TimeoutSeconds: timeoutSeconds,
			MaxRetries:     maxRetries,
			CSRFToken:      os.Getenv("FARMSIGHT_CSRF_TOKEN"),
		},
		Realtime: RealtimeConfig{
			URL: os.Getenv("FARMSIGHT_WS_URL"),
		},
		CredStore: CredStoreConfig{
			Provider: getEnvOrDefault("CREDSTORE_PROVIDER", "memory"),
		},
		Memory: MemoryConfig{
			MaxEntries:     maxEntries,
			SweepSchedule:  os.Getenv("MEMORY_SWEEP_SCHEDULE"),
			RetentionHours: retentionHours,
		},
		Log: logger.Config{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if config.CredStore.Provider == "sqlite" {
		config.CredStore.Config = map[string]interface{}{
			"db_path": getEnvOrDefault("CREDSTORE_SQLITE_PATH", "./farmsight_credentials.db"),
		}
	}

	// Archive configuration (optional)
	switch os.Getenv("ARCHIVE_PROVIDER") {
	case "sqlite":
		config.Archive = &ArchiveConfig{
			Provider: "sqlite",
			Config: map[string]interface{}{
				"db_path": getEnvOrDefault("ARCHIVE_SQLITE_PATH", "./farmsight_archive.db"),
			},
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		config.Archive = &ArchiveConfig{
			Provider: "postgres",
			Config: map[string]interface{}{
				"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				"port":     port,
				"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
				"password": os.Getenv("POSTGRES_PASSWORD"),
				"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "farmsight"),
				"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
			},
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		config.Archive = &ArchiveConfig{
			Provider: "mysql",
			Config: map[string]interface{}{
				"host":     getEnvOrDefault("MYSQL_HOST", "localhost"),
				"port":     port,
				"user":     getEnvOrDefault("MYSQL_USER", "root"),
				"password": os.Getenv("MYSQL_PASSWORD"),
				"db_name":  getEnvOrDefault("MYSQL_DATABASE", "farmsight"),
			},
		}
	}

	// Assistant configuration (optional)
	if apiKey := os.Getenv("ASSISTANT_API_KEY"); apiKey != "" {
		config.Assistant = &AssistantConfig{
			APIKey:  apiKey,
			Model:   getEnvOrDefault("ASSISTANT_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("ASSISTANT_BASE_URL"),
		}
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewClientError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewClientError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - API base URL must be specified
//   - Archive provider, when configured, must be recognized
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return NewClientError("Validate", ErrInvalidConfig)
	}
	if c.Archive != nil {
		switch c.Archive.Provider {
		case "sqlite", "postgres", "mysql":
		default:
			return NewClientError("Validate", ErrInvalidConfig)
		}
	}
	if c.CredStore.Provider != "" {
		switch c.CredStore.Provider {
		case "keyring", "sqlite", "memory":
		default:
			return NewClientError("Validate", ErrInvalidConfig)
		}
	}
	return nil
}

// WebSocketURL returns the realtime endpoint, deriving it from the API
// base URL by protocol substitution when not set explicitly.
func (c *Config) WebSocketURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	base := c.API.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimRight(base, "/") + "/ws"
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	// First check the current directory
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	// Check project root directory (search upward)
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

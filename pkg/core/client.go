package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovista/farmsight-go/pkg/assistant"
	"github.com/agrovista/farmsight-go/pkg/auth"
	"github.com/agrovista/farmsight-go/pkg/auth/credstore"
	keyringStore "github.com/agrovista/farmsight-go/pkg/auth/credstore/keyring"
	sqliteStore "github.com/agrovista/farmsight-go/pkg/auth/credstore/sqlite"
	"github.com/agrovista/farmsight-go/pkg/compress"
	"github.com/agrovista/farmsight-go/pkg/evaluation"
	"github.com/agrovista/farmsight-go/pkg/logger"
	"github.com/agrovista/farmsight-go/pkg/memory"
	"github.com/agrovista/farmsight-go/pkg/memory/archive"
	mysqlArchive "github.com/agrovista/farmsight-go/pkg/memory/archive/mysql"
	postgresArchive "github.com/agrovista/farmsight-go/pkg/memory/archive/postgres"
	sqliteArchive "github.com/agrovista/farmsight-go/pkg/memory/archive/sqlite"
	"github.com/agrovista/farmsight-go/pkg/realtime"
	"github.com/agrovista/farmsight-go/pkg/request"
)

// Client is the main FarmSight client.
//
// It wires together the token manager, the resilient request executor,
// the realtime channel, the farm memory store, the evaluation tracker,
// the context compressor, and (optionally) the snapshot archive and AI
// assistant, all driven by one Config.
//
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	result, _ := client.Login(ctx, "grower@farm.example", "secret")
//	fields, _ := client.ListFields(ctx)
type Client struct {
	// config contains the client configuration.
	config *Config

	// creds is the persistent credential store.
	creds credstore.Store

	// authManager owns the access token lifecycle.
	authManager *auth.Manager

	// executor performs resilient HTTP requests.
	executor *request.Executor

	// realtimeClient maintains the live WebSocket channel.
	realtimeClient *realtime.Client

	// memoryStore is the bounded farm memory store.
	memoryStore *memory.Store

	// evaluations tracks recommendation evaluations.
	evaluations *evaluation.Tracker

	// compressor is the AI-context compressor.
	compressor *compress.Compressor

	// assistantClient is the AI assistant (nil if not configured).
	assistantClient *assistant.Assistant

	// archiveStore persists memory snapshots (nil if not configured).
	archiveStore archive.Store

	// sweeper runs scheduled retention sweeps (nil if not configured).
	sweeper *memory.Sweeper

	log zerolog.Logger
}

// ClientOption configures optional client behavior.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient       *http.Client
	onSessionExpired func()
}

// WithHTTPClient overrides the HTTP client used for API and refresh calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(opts *clientOptions) {
		opts.httpClient = httpClient
	}
}

// WithSessionExpiredHandler installs the callback fired when
// authentication is irrecoverable (the dashboard redirects to login here).
func WithSessionExpiredHandler(fn func()) ClientOption {
	return func(opts *clientOptions) {
		opts.onSessionExpired = fn
	}
}

// NewClient creates a new FarmSight client.
//
// The client is initialized with:
//   - Credential store (keyring, SQLite, or in-process)
//   - Token manager and resilient request executor
//   - Realtime WebSocket client (connected on demand)
//   - Farm memory store, evaluation tracker, context compressor
//   - Snapshot archive and AI assistant (if configured)
//
// Parameters:
//   - cfg: Configuration for every subsystem
//   - opts: Optional overrides (HTTP client, session-expired handler)
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log != (logger.Config{}) {
		if err := logger.Init(cfg.Log); err != nil {
			return nil, NewClientError("NewClient", err)
		}
	}

	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	creds, err := initCredStore(cfg.CredStore)
	if err != nil {
		return nil, err
	}

	authManager := auth.NewManager(&auth.Config{
		RefreshURL: cfg.API.BaseURL + "/api/auth/refresh",
		Creds:      creds,
		HTTPClient: options.httpClient,
	})

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.API.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	executor := request.NewExecutor(&request.Config{
		BaseURL:          cfg.API.BaseURL,
		Auth:             authManager,
		HTTPClient:       options.httpClient,
		Policy:           request.Policy{MaxAttempts: maxRetries, BaseDelay: time.Second},
		CSRFToken:        cfg.API.CSRFToken,
		OnSessionExpired: options.onSessionExpired,
	})

	memoryStore, err := memory.NewStore(&memory.Config{MaxEntries: cfg.Memory.MaxEntries})
	if err != nil {
		return nil, NewClientError("NewClient", err)
	}

	evaluations, err := evaluation.NewTracker()
	if err != nil {
		return nil, NewClientError("NewClient", err)
	}

	compressor := compress.NewCompressor()

	client := &Client{
		config:      cfg,
		creds:       creds,
		authManager: authManager,
		executor:    executor,
		memoryStore: memoryStore,
		evaluations: evaluations,
		compressor:  compressor,
		log:         logger.With("client"),
	}

	reconnectDelay := time.Duration(cfg.Realtime.ReconnectDelaySeconds) * time.Second
	client.realtimeClient = realtime.NewClient(&realtime.Config{
		URL:            cfg.WebSocketURL(),
		ReconnectDelay: reconnectDelay,
	})

	// Snapshot archive (if configured)
	if cfg.Archive != nil {
		archiveStore, err := initArchive(cfg.Archive)
		if err != nil {
			return nil, err
		}
		client.archiveStore = archiveStore
	}

	// AI assistant (if configured)
	if cfg.Assistant != nil {
		assistantClient, err := assistant.NewAssistant(&assistant.Config{
			APIKey:  cfg.Assistant.APIKey,
			Model:   cfg.Assistant.Model,
			BaseURL: cfg.Assistant.BaseURL,
		}, memoryStore, compressor, evaluations)
		if err != nil {
			return nil, NewClientError("NewClient", err)
		}
		client.assistantClient = assistantClient
	}

	// Retention sweeper (if configured)
	if cfg.Memory.SweepSchedule != "" {
		retention := time.Duration(cfg.Memory.RetentionHours) * time.Hour
		if retention <= 0 {
			retention = 720 * time.Hour
		}
		client.sweeper = memory.NewSweeper(memoryStore, &memory.SweeperConfig{
			Schedule: cfg.Memory.SweepSchedule,
			MaxAge:   retention,
		})
		if err := client.sweeper.Start(); err != nil {
			return nil, NewClientError("NewClient", err)
		}
	}

	return client, nil
}

// initCredStore creates the configured credential store backend.
func initCredStore(cfg CredStoreConfig) (credstore.Store, error) {
	switch cfg.Provider {
	case "", "memory":
		return credstore.NewMemory(), nil
	case "keyring":
		service, _ := cfg.Config["service"].(string)
		return keyringStore.NewStore(&keyringStore.Config{Service: service})
	case "sqlite":
		dbPath, _ := cfg.Config["db_path"].(string)
		if dbPath == "" {
			dbPath = "./farmsight_credentials.db"
		}
		store, err := sqliteStore.NewStore(&sqliteStore.Config{DBPath: dbPath})
		if err != nil {
			return nil, NewClientError("initCredStore", err)
		}
		return store, nil
	default:
		return nil, NewClientError("initCredStore", ErrInvalidConfig)
	}
}

// initArchive creates the configured snapshot archive backend.
func initArchive(cfg *ArchiveConfig) (archive.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		dbPath, _ := cfg.Config["db_path"].(string)
		tableName, _ := cfg.Config["table_name"].(string)
		store, err := sqliteArchive.NewClient(&sqliteArchive.Config{
			DBPath:    dbPath,
			TableName: tableName,
		})
		if err != nil {
			return nil, NewClientError("initArchive", err)
		}
		return store, nil
	case "postgres":
		store, err := postgresArchive.NewClient(&postgresArchive.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port"),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			SSLMode:   stringValue(cfg.Config, "ssl_mode"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
		if err != nil {
			return nil, NewClientError("initArchive", err)
		}
		return store, nil
	case "mysql":
		store, err := mysqlArchive.NewClient(&mysqlArchive.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port"),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
		if err != nil {
			return nil, NewClientError("initArchive", err)
		}
		return store, nil
	default:
		return nil, NewClientError("initArchive", ErrInvalidConfig)
	}
}

// Login authenticates against the backend and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result := c.executor.Post(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if !result.Success {
		return nil, resultError("Login", result)
	}

	var login LoginResult
	if err := result.Decode(&login); err != nil {
		return nil, NewClientError("Login", err)
	}
	if login.AccessToken == "" {
		return nil, NewClientError("Login", ErrInvalidInput)
	}

	c.authManager.SetToken(login.AccessToken)
	if err := c.creds.SetTokens(login.AccessToken, login.RefreshToken); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist login tokens")
	}
	return &login, nil
}

// Logout drops the session. The backend call is best-effort; local state
// is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	c.executor.Post(ctx, "/api/auth/logout", nil)
	c.authManager.ClearToken()
	return c.creds.Clear()
}

// ListFields returns all fields visible to the current user.
func (c *Client) ListFields(ctx context.Context) ([]*Field, error) {
	result := c.executor.Get(ctx, "/api/fields", nil)
	if !result.Success {
		return nil, resultError("ListFields", result)
	}
	var fields []*Field
	if err := result.Decode(&fields); err != nil {
		return nil, NewClientError("ListFields", err)
	}
	return fields, nil
}

// GetField returns one field by ID.
func (c *Client) GetField(ctx context.Context, id string) (*Field, error) {
	result := c.executor.Get(ctx, "/api/fields/"+url.PathEscape(id), nil)
	if result.Status == http.StatusNotFound {
		return nil, NewClientError("GetField", ErrNotFound)
	}
	if !result.Success {
		return nil, resultError("GetField", result)
	}
	var field Field
	if err := result.Decode(&field); err != nil {
		return nil, NewClientError("GetField", err)
	}
	return &field, nil
}

// ListTasks returns tasks, optionally filtered by status ("" matches all).
func (c *Client) ListTasks(ctx context.Context, status TaskStatus) ([]*Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}
	result := c.executor.Get(ctx, "/api/tasks", query)
	if !result.Success {
		return nil, resultError("ListTasks", result)
	}
	var tasks []*Task
	if err := result.Decode(&tasks); err != nil {
		return nil, NewClientError("ListTasks", err)
	}
	return tasks, nil
}

// CreateTask creates a new task on the board.
func (c *Client) CreateTask(ctx context.Context, task *Task) (*Task, error) {
	result := c.executor.Post(ctx, "/api/tasks", task)
	if !result.Success {
		return nil, resultError("CreateTask", result)
	}
	var created Task
	if err := result.Decode(&created); err != nil {
		return nil, NewClientError("CreateTask", err)
	}
	return &created, nil
}

// UpdateTaskStatus moves a task to a new workflow state.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	result := c.executor.Patch(ctx, "/api/tasks/"+url.PathEscape(id), map[string]string{
		"status": string(status),
	})
	if result.Status == http.StatusNotFound {
		return nil, NewClientError("UpdateTaskStatus", ErrNotFound)
	}
	if !result.Success {
		return nil, resultError("UpdateTaskStatus", result)
	}
	var updated Task
	if err := result.Decode(&updated); err != nil {
		return nil, NewClientError("UpdateTaskStatus", err)
	}
	return &updated, nil
}

// ListEquipment returns all tracked equipment.
func (c *Client) ListEquipment(ctx context.Context) ([]*Equipment, error) {
	result := c.executor.Get(ctx, "/api/equipment", nil)
	if !result.Success {
		return nil, resultError("ListEquipment", result)
	}
	var equipment []*Equipment
	if err := result.Decode(&equipment); err != nil {
		return nil, NewClientError("ListEquipment", err)
	}
	return equipment, nil
}

// SensorReadings returns readings for a field, optionally filtered by
// metric and bounded by a start time.
func (c *Client) SensorReadings(ctx context.Context, fieldID, metric string, since time.Time) ([]*SensorReading, error) {
	query := url.Values{}
	query.Set("field_id", fieldID)
	if metric != "" {
		query.Set("metric", metric)
	}
	if !since.IsZero() {
		query.Set("since", since.Format(time.RFC3339))
	}
	result := c.executor.Get(ctx, "/api/sensors/readings", query)
	if !result.Success {
		return nil, resultError("SensorReadings", result)
	}
	var readings []*SensorReading
	if err := result.Decode(&readings); err != nil {
		return nil, NewClientError("SensorReadings", err)
	}
	return readings, nil
}

// ActiveAlerts returns unacknowledged alerts.
func (c *Client) ActiveAlerts(ctx context.Context) ([]*Alert, error) {
	result := c.executor.Get(ctx, "/api/alerts/active", nil)
	if !result.Success {
		return nil, resultError("ActiveAlerts", result)
	}
	var alerts []*Alert
	if err := result.Decode(&alerts); err != nil {
		return nil, NewClientError("ActiveAlerts", err)
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) error {
	result := c.executor.Post(ctx, "/api/alerts/"+url.PathEscape(id)+"/ack", nil)
	if result.Status == http.StatusNotFound {
		return NewClientError("AcknowledgeAlert", ErrNotFound)
	}
	if !result.Success {
		return resultError("AcknowledgeAlert", result)
	}
	return nil
}

// WeatherForecast returns the daily forecast for the farm location.
func (c *Client) WeatherForecast(ctx context.Context, days int) ([]*Forecast, error) {
	query := url.Values{}
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	result := c.executor.Get(ctx, "/api/weather/forecast", query)
	if !result.Success {
		return nil, resultError("WeatherForecast", result)
	}
	var forecast []*Forecast
	if err := result.Decode(&forecast); err != nil {
		return nil, NewClientError("WeatherForecast", err)
	}
	return forecast, nil
}

// NDVISnapshots returns vegetation-index snapshots for a field.
func (c *Client) NDVISnapshots(ctx context.Context, fieldID string) ([]*NDVISnapshot, error) {
	query := url.Values{}
	query.Set("field_id", fieldID)
	result := c.executor.Get(ctx, "/api/ndvi/snapshots", query)
	if !result.Success {
		return nil, resultError("NDVISnapshots", result)
	}
	var snapshots []*NDVISnapshot
	if err := result.Decode(&snapshots); err != nil {
		return nil, NewClientError("NDVISnapshots", err)
	}
	return snapshots, nil
}

// ArchiveMemory snapshots the current memory store into the configured
// archive and returns the snapshot ID.
func (c *Client) ArchiveMemory(ctx context.Context, tenantID string) (int64, error) {
	if c.archiveStore == nil {
		return 0, NewClientError("ArchiveMemory", ErrInvalidConfig)
	}
	snapshot, err := c.memoryStore.Snapshot(tenantID)
	if err != nil {
		return 0, NewClientError("ArchiveMemory", err)
	}
	if err := c.archiveStore.Save(ctx, snapshot); err != nil {
		return 0, NewClientError("ArchiveMemory", err)
	}
	c.log.Debug().Int64("snapshot_id", snapshot.ID).Int("entries", snapshot.EntryCount).Msg("memory archived")
	return snapshot.ID, nil
}

// RestoreMemory replaces the memory store contents from an archived
// snapshot.
func (c *Client) RestoreMemory(ctx context.Context, snapshotID int64) error {
	if c.archiveStore == nil {
		return NewClientError("RestoreMemory", ErrInvalidConfig)
	}
	snapshot, err := c.archiveStore.Load(ctx, snapshotID)
	if err != nil {
		return NewClientError("RestoreMemory", err)
	}
	if !c.memoryStore.RestoreSnapshot(snapshot) {
		return NewClientError("RestoreMemory", ErrInvalidInput)
	}
	return nil
}

// Auth returns the token manager.
func (c *Client) Auth() *auth.Manager {
	return c.authManager
}

// Executor returns the resilient request executor, for endpoints the
// typed surface does not cover.
func (c *Client) Executor() *request.Executor {
	return c.executor
}

// Realtime returns the WebSocket client. Call Connect on it to open the
// live channel.
func (c *Client) Realtime() *realtime.Client {
	return c.realtimeClient
}

// Memory returns the bounded farm memory store.
func (c *Client) Memory() *memory.Store {
	return c.memoryStore
}

// Evaluations returns the recommendation evaluation tracker.
func (c *Client) Evaluations() *evaluation.Tracker {
	return c.evaluations
}

// Compressor returns the AI-context compressor.
func (c *Client) Compressor() *compress.Compressor {
	return c.compressor
}

// Assistant returns the AI assistant, or nil when not configured.
func (c *Client) Assistant() *assistant.Assistant {
	return c.assistantClient
}

// Close releases every resource the client owns: the realtime channel,
// the retention sweeper, the archive connection, and the credential store.
func (c *Client) Close() error {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	c.realtimeClient.Close()

	var firstErr error
	if c.archiveStore != nil {
		if err := c.archiveStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.creds.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// resultError converts a failed envelope into a ClientError.
func resultError(op string, result *request.Result) error {
	msg := result.Error
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", result.Status)
	}
	return NewClientError(op, errors.New(msg))
}

// stringValue reads a string out of a provider config map.
func stringValue(config map[string]interface{}, key string) string {
	value, _ := config[key].(string)
	return value
}

// intValue reads an int out of a provider config map, tolerating the
// float64 JSON numbers decode to.
func intValue(config map[string]interface{}, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

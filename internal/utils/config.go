package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	ProviderLangChain = "langchain"
	ProviderHTTP      = "http"
)

type Config struct {
	Host          string
	Port          int
	PortScanLimit int
	StoreBackend  string
	Mongo         MongoConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	SQLite        SQLiteConfig
	Completion    CompletionConfig
	Chat          ChatConfig
	JWTSecret     string
	CORSOrigins   []string
	Logging       LoggingConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

type PostgresConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type SQLiteConfig struct {
	Path string
}

type CompletionConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ChatConfig struct {
	HistoryWindow        int
	DeliverUnsavedAnswer bool
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

// LoadConfig reads the environment and checks everything the server needs.
func LoadConfig() (*Config, error) {
	cfg := ReadConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStoreConfig is LoadConfig for tools that only touch the message store;
// completion settings are not checked.
func LoadStoreConfig() (*Config, error) {
	cfg := ReadConfig()
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig reads the environment without validating it.
func ReadConfig() *Config {
	return &Config{
		Host:          envOrDefault("HOST", "127.0.0.1"),
		Port:          parseInt(envOrDefault("PORT", "8000"), 8000),
		PortScanLimit: parseInt(envOrDefault("PORT_SCAN_LIMIT", "100"), 100),
		StoreBackend:  strings.ToLower(envOrDefault("STORE_BACKEND", StoreMongo)),
		Mongo: MongoConfig{
			URI:            strings.TrimSpace(os.Getenv("MONGO_URL")),
			Database:       envOrDefault("MONGO_DATABASE", "study_bot"),
			Collection:     envOrDefault("MONGO_COLLECTION", "conversations"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "10s"), 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:               strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
			MaxConns:          parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8),
			MinConns:          parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1),
			MaxConnLifetime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
			MaxConnIdleTime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
			HealthCheckPeriod: parseDuration(envOrDefault("POSTGRES_HEALTH_CHECK_PERIOD", "1m"), time.Minute),
			ConnectTimeout:    parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        parseInt(envOrDefault("REDIS_DB", "0"), 0),
			KeyPrefix: envOrDefault("REDIS_KEY_PREFIX", "study_bot:"),
		},
		SQLite: SQLiteConfig{
			Path: envOrDefault("SQLITE_PATH", "data/study_bot.db"),
		},
		Completion: CompletionConfig{
			Provider:    strings.ToLower(envOrDefault("COMPLETION_PROVIDER", ProviderLangChain)),
			APIKey:      strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			BaseURL:     strings.TrimRight(envOrDefault("COMPLETION_BASE_URL", "https://api.groq.com/openai/v1"), "/"),
			Model:       envOrDefault("COMPLETION_MODEL", "llama-3.3-70b-versatile"),
			Temperature: parseFloat(envOrDefault("COMPLETION_TEMPERATURE", "0.3"), 0.3),
			Timeout:     parseDuration(envOrDefault("COMPLETION_TIMEOUT", "60s"), 60*time.Second),
		},
		Chat: ChatConfig{
			HistoryWindow:        parseInt(envOrDefault("HISTORY_WINDOW", "6"), 6),
			DeliverUnsavedAnswer: parseBool(envOrDefault("DELIVER_UNSAVED_ANSWER", "false"), false),
		},
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigins: parseList(envOrDefault("CORS_ALLOW_ORIGINS", "*")),
		Logging: LoggingConfig{
			Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
			Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
			ServiceName:  envOrDefault("SERVICE_NAME", "study-bot"),
		},
	}
}

func (c *Config) validate() error {
	missing, err := c.missingStoreVars()
	if err != nil {
		return err
	}
	if c.Completion.APIKey == "" {
		missing = append([]string{"GROQ_API_KEY"}, missing...)
	}
	if len(missing) > 0 {
		return missingVarsError(missing)
	}

	switch c.Completion.Provider {
	case ProviderLangChain, ProviderHTTP:
	default:
		return fmt.Errorf("unsupported COMPLETION_PROVIDER %q", c.Completion.Provider)
	}

	return nil
}

func (c *Config) validateStore() error {
	missing, err := c.missingStoreVars()
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return missingVarsError(missing)
	}
	return nil
}

func (c *Config) missingStoreVars() ([]string, error) {
	var missing []string

	switch c.StoreBackend {
	case StoreMongo:
		if c.Mongo.URI == "" {
			missing = append(missing, "MONGO_URL")
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}

	return missing, nil
}

func missingVarsError(missing []string) error {
	return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(value string, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return i
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

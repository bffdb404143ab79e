// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a .env
// file) and validates them before the application starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Encoder kinds.
const (
	EncoderLocal  = "local"
	EncoderGemini = "gemini"
	EncoderOpenAI = "openai"
)

// Query-log sink kinds.
const (
	SinkSQLite = "sqlite"
	SinkFile   = "file"
	SinkR2     = "r2"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	InstanceID      string

	// Knowledge base
	DataDir     string
	QAPath      string
	CoursesPath string

	Encoder   EncoderConfig
	Retrieval RetrievalConfig

	// Query log
	QueryLogSinks         []string
	QueryLogFile          string
	QueryLogFlushInterval time.Duration

	R2 R2Config

	// LINE webhook (optional; enabled when both are set)
	LineChannelToken  string
	LineChannelSecret string

	// Per-client rate limit
	ClientRateBurst  float64
	ClientRateRefill float64 // tokens per second

	// Observability
	SentryDSN           string
	SentryEnvironment   string
	SentrySampleRate    float64
	BetterStackToken    string
	BetterStackEndpoint string
	MetricsUsername     string
	MetricsPassword     string
}

// EncoderConfig selects and tunes the sentence encoder.
type EncoderConfig struct {
	Kind      string // local, gemini or openai
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string // OpenAI-compatible endpoint
	Timeout   time.Duration
	BatchSize int
	RPM       float64 // requests per minute sent to a remote encoder
}

// RetrievalConfig holds thresholds and dialogue settings.
type RetrievalConfig struct {
	BestMatchThreshold float64
	TopKThreshold      float64
	RelatedLimit       int
	SessionTTL         time.Duration
	RandomSeed         int64 // 0 seeds from the clock
	MaxMessageLength   int
}

// R2Config holds Cloudflare R2 credentials for the remote query-log sink.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	LogPrefix       string
}

// Load reads configuration from environment variables.
// It attempts to load .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	dataDir := getEnv(EnvDataDir, getDefaultDataDir())

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		InstanceID:      getEnv(EnvInstanceID, defaultInstanceID()),

		DataDir:     dataDir,
		QAPath:      getEnv(EnvQAPath, filepath.Join(dataDir, "qa_dataset.json")),
		CoursesPath: getEnv(EnvCoursesPath, filepath.Join(dataDir, "course_data.json")),

		Encoder: EncoderConfig{
			Kind:      strings.ToLower(getEnv(EnvEncoder, EncoderLocal)),
			Model:     getEnv(EnvEncoderModel, ""),
			Dimension: getIntEnv(EnvEncoderDimension, 384),
			APIKey:    getEnv(EnvEncoderAPIKey, ""),
			BaseURL:   getEnv(EnvEncoderBaseURL, ""),
			Timeout:   getDurationEnv(EnvEncoderTimeout, EncoderRequest),
			BatchSize: getIntEnv(EnvEncoderBatchSize, 64),
			RPM:       getFloatEnv(EnvEncoderRPM, 1500),
		},

		Retrieval: RetrievalConfig{
			BestMatchThreshold: getFloatEnv(EnvBestMatchThreshold, 0.60),
			TopKThreshold:      getFloatEnv(EnvTopKThreshold, 0.45),
			RelatedLimit:       getIntEnv(EnvRelatedLimit, 3),
			SessionTTL:         getDurationEnv(EnvSessionTTL, 30*time.Minute),
			RandomSeed:         int64(getIntEnv(EnvRandomSeed, 0)),
			MaxMessageLength:   getIntEnv(EnvMaxMessageLength, 2000),
		},

		QueryLogSinks:         getListEnv(EnvQueryLogSinks, []string{SinkSQLite}),
		QueryLogFile:          getEnv(EnvQueryLogFile, filepath.Join(dataDir, "query_log.jsonl")),
		QueryLogFlushInterval: getDurationEnv(EnvQueryLogFlushInterval, QueryLogFlush),

		R2: R2Config{
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			LogPrefix:       getEnv(EnvR2LogPrefix, "querylog"),
		},

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		ClientRateBurst:  getFloatEnv(EnvClientRateBurst, 20),
		ClientRateRefill: getFloatEnv(EnvClientRateRefill, 0.5),

		SentryDSN:           getEnv(EnvSentryDSN, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:    getFloatEnv(EnvSentrySampleRate, 1.0),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
		MetricsUsername:     getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:     getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.QAPath == "" || c.CoursesPath == "" {
		errs = append(errs, fmt.Errorf("%s and %s are required", EnvQAPath, EnvCoursesPath))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}

	switch c.Encoder.Kind {
	case EncoderLocal:
	case EncoderGemini:
		if c.Encoder.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s is required for the gemini encoder", EnvEncoderAPIKey))
		}
	case EncoderOpenAI:
		// Self-hosted OpenAI-compatible servers often run without a key.
		if c.Encoder.APIKey == "" && c.Encoder.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s or %s is required for the openai encoder", EnvEncoderAPIKey, EnvEncoderBaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be one of local, gemini, openai, got %q", EnvEncoder, c.Encoder.Kind))
	}
	if c.Encoder.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvEncoderDimension, c.Encoder.Dimension))
	}
	if c.Encoder.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvEncoderTimeout, c.Encoder.Timeout))
	}
	if c.Encoder.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvEncoderBatchSize, c.Encoder.BatchSize))
	}

	if !inUnitInterval(c.Retrieval.BestMatchThreshold) {
		errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", EnvBestMatchThreshold, c.Retrieval.BestMatchThreshold))
	}
	if !inUnitInterval(c.Retrieval.TopKThreshold) {
		errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", EnvTopKThreshold, c.Retrieval.TopKThreshold))
	}
	if c.Retrieval.RelatedLimit < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvRelatedLimit, c.Retrieval.RelatedLimit))
	}
	if c.Retrieval.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, c.Retrieval.SessionTTL))
	}
	if c.Retrieval.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxMessageLength, c.Retrieval.MaxMessageLength))
	}

	for _, sink := range c.QueryLogSinks {
		switch sink {
		case SinkSQLite, SinkFile:
		case SinkR2:
			if !c.R2.Configured() {
				errs = append(errs, errors.New("r2 query-log sink requires R2 account, keys and bucket"))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown sink %q", EnvQueryLogSinks, sink))
		}
	}

	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if c.ClientRateBurst <= 0 || c.ClientRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", EnvClientRateBurst, EnvClientRateRefill))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the full path to the SQLite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "unibot.db")
}

// LineEnabled reports whether the LINE webhook should be mounted.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// HasSink reports whether the named query-log sink is enabled.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.QueryLogSinks, name)
}

// Configured reports whether every R2 credential is present.
func (r R2Config) Configured() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.BucketName != ""
}

// Endpoint returns the S3-compatible R2 endpoint for the account.
func (r R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, trimming and lowercasing items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

func defaultInstanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

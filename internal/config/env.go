// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "UNIBOT_PORT"
	EnvLogLevel        = "UNIBOT_LOG_LEVEL"
	EnvShutdownTimeout = "UNIBOT_SHUTDOWN_TIMEOUT"
	EnvInstanceID      = "UNIBOT_INSTANCE_ID"

	// Knowledge base
	EnvDataDir     = "UNIBOT_DATA_DIR"
	EnvQAPath      = "UNIBOT_QA_PATH"
	EnvCoursesPath = "UNIBOT_COURSES_PATH"

	// Encoder
	EnvEncoder          = "UNIBOT_ENCODER"
	EnvEncoderModel     = "UNIBOT_ENCODER_MODEL"
	EnvEncoderDimension = "UNIBOT_ENCODER_DIMENSION"
	EnvEncoderAPIKey    = "UNIBOT_ENCODER_API_KEY"
	EnvEncoderBaseURL   = "UNIBOT_ENCODER_BASE_URL"
	EnvEncoderTimeout   = "UNIBOT_ENCODER_TIMEOUT"
	EnvEncoderBatchSize = "UNIBOT_ENCODER_BATCH_SIZE"
	EnvEncoderRPM       = "UNIBOT_ENCODER_RPM"

	// Retrieval and dialogue
	EnvBestMatchThreshold = "UNIBOT_BEST_MATCH_THRESHOLD"
	EnvTopKThreshold      = "UNIBOT_TOPK_THRESHOLD"
	EnvRelatedLimit       = "UNIBOT_RELATED_LIMIT"
	EnvSessionTTL         = "UNIBOT_SESSION_TTL"
	EnvRandomSeed         = "UNIBOT_RANDOM_SEED"
	EnvMaxMessageLength   = "UNIBOT_MAX_MESSAGE_LENGTH"

	// Query log
	EnvQueryLogSinks         = "UNIBOT_QUERYLOG_SINKS"
	EnvQueryLogFile          = "UNIBOT_QUERYLOG_FILE"
	EnvQueryLogFlushInterval = "UNIBOT_QUERYLOG_FLUSH_INTERVAL"

	// R2
	EnvR2AccountID       = "UNIBOT_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "UNIBOT_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "UNIBOT_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "UNIBOT_R2_BUCKET_NAME"
	EnvR2LogPrefix       = "UNIBOT_R2_LOG_PREFIX"

	// LINE
	EnvLineChannelAccessToken = "UNIBOT_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "UNIBOT_LINE_CHANNEL_SECRET"

	// Rate limits
	EnvClientRateBurst  = "UNIBOT_CLIENT_RATE_BURST"
	EnvClientRateRefill = "UNIBOT_CLIENT_RATE_REFILL"

	// Sentry
	EnvSentryDSN         = "UNIBOT_SENTRY_DSN"
	EnvSentryEnvironment = "UNIBOT_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "UNIBOT_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "UNIBOT_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "UNIBOT_BETTERSTACK_ENDPOINT"

	// Metrics auth
	EnvMetricsUsername = "UNIBOT_METRICS_USERNAME"
	EnvMetricsPassword = "UNIBOT_METRICS_PASSWORD"
)

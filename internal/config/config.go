package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// Event source backends.
const (
	BackendSQS     = "sqs"
	BackendRedis   = "redis"
	BackendPolling = "polling"
)

// Image extraction strategies.
const (
	StrategyVision = "vision"
	StrategyOCR    = "ocr"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	// Object storage
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Event source
	EventBackend string // sqs, redis, or polling
	SQSQueueURL  string
	RedisURL     string
	PollInterval time.Duration

	// Search index
	ElasticURL      string
	ElasticIndex    string
	ElasticUser     string
	ElasticPassword string

	// Embedding service
	EmbeddingURL   string
	EmbeddingModel string
	EmbeddingDims  int

	// Extraction
	VisionEndpoint   string
	VisionModel      string
	VisionAPIKey     string
	OCRURL           string
	ConvertCommand   string
	ImageStrategy    string // vision or ocr
	PDFFallbackToOCR bool
	MinContentLen    int

	// Chunking
	ChunkSize    int
	ChunkOverlap int
	MinChunkLen  int

	// Pipeline
	PresignTTL        time.Duration
	DedupEnabled      bool
	DedupFailOpen     bool
	BatchSize         int
	Prefixes          []string
	FirstRunFullScan  bool
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() *Config {
	return &Config{
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", true),

		EventBackend: getEnv("EVENT_BACKEND", BackendSQS),
		SQSQueueURL:  getEnv("SQS_QUEUE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		PollInterval: getEnvDuration("POLL_INTERVAL", 30*time.Second),

		ElasticURL:      getEnv("ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex:    getEnv("ELASTIC_INDEX", "documents"),
		ElasticUser:     getEnv("ELASTIC_USER", ""),
		ElasticPassword: getEnv("ELASTIC_PASSWORD", ""),

		EmbeddingURL:   getEnv("EMBEDDING_URL", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingDims:  getEnvInt("EMBEDDING_DIMS", 384),

		VisionEndpoint:   getEnv("VISION_ENDPOINT", ""),
		VisionModel:      getEnv("VISION_MODEL", ""),
		VisionAPIKey:     getEnv("VISION_API_KEY", ""),
		OCRURL:           getEnv("OCR_URL", ""),
		ConvertCommand:   getEnv("CONVERT_COMMAND", ""),
		ImageStrategy:    getEnv("IMAGE_STRATEGY", StrategyVision),
		PDFFallbackToOCR: getEnvBool("PDF_FALLBACK_TO_OCR", false),
		MinContentLen:    getEnvInt("MIN_CONTENT_LEN", 10),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkLen:  getEnvInt("MIN_CHUNK_LEN", 50),

		PresignTTL:        getEnvDuration("PRESIGN_TTL", time.Hour),
		DedupEnabled:      getEnvBool("DEDUP_ENABLED", true),
		DedupFailOpen:     getEnvBool("DEDUP_FAIL_OPEN", true),
		BatchSize:         getEnvInt("BATCH_SIZE", 10),
		Prefixes:          getEnvList("INGEST_PREFIXES", nil),
		FirstRunFullScan:  getEnvBool("FIRST_RUN_FULL_SCAN", false),
		ReconcileEnabled:  getEnvBool("RECONCILE_ENABLED", true),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", time.Hour),
	}
}

// Validate checks required fields and cross-field constraints.
// Any violation is fatal at startup.
func (c *Config) Validate() error {
	if c.S3Bucket == "" {
		return &domain.ConfigurationError{Field: "S3_BUCKET", Reason: "required"}
	}

	switch c.EventBackend {
	case BackendSQS:
		if c.SQSQueueURL == "" {
			return &domain.ConfigurationError{Field: "SQS_QUEUE_URL", Reason: "required when EVENT_BACKEND=sqs"}
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return &domain.ConfigurationError{Field: "REDIS_URL", Reason: "required when EVENT_BACKEND=redis"}
		}
	case BackendPolling:
		if c.PollInterval <= 0 {
			return &domain.ConfigurationError{Field: "POLL_INTERVAL", Reason: "must be positive"}
		}
	default:
		return &domain.ConfigurationError{
			Field:  "EVENT_BACKEND",
			Reason: fmt.Sprintf("unknown backend %q (use sqs, redis, or polling)", c.EventBackend),
		}
	}

	switch c.ImageStrategy {
	case StrategyVision:
		if c.VisionEndpoint == "" {
			return &domain.ConfigurationError{Field: "VISION_ENDPOINT", Reason: "required when IMAGE_STRATEGY=vision"}
		}
	case StrategyOCR:
		if c.OCRURL == "" {
			return &domain.ConfigurationError{Field: "OCR_URL", Reason: "required when IMAGE_STRATEGY=ocr"}
		}
	default:
		return &domain.ConfigurationError{
			Field:  "IMAGE_STRATEGY",
			Reason: fmt.Sprintf("unknown strategy %q (use vision or ocr)", c.ImageStrategy),
		}
	}

	if c.PDFFallbackToOCR && c.OCRURL == "" {
		return &domain.ConfigurationError{Field: "OCR_URL", Reason: "required when PDF_FALLBACK_TO_OCR=true"}
	}

	if c.EmbeddingURL == "" {
		return &domain.ConfigurationError{Field: "EMBEDDING_URL", Reason: "required"}
	}
	if c.EmbeddingDims <= 0 {
		return &domain.ConfigurationError{Field: "EMBEDDING_DIMS", Reason: "must be positive"}
	}

	if c.ChunkSize <= 0 {
		return &domain.ConfigurationError{Field: "CHUNK_SIZE", Reason: "must be positive"}
	}
	if c.ChunkOverlap < 0 {
		return &domain.ConfigurationError{Field: "CHUNK_OVERLAP", Reason: "must not be negative"}
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return &domain.ConfigurationError{Field: "CHUNK_OVERLAP", Reason: "must be smaller than CHUNK_SIZE"}
	}
	if c.MinChunkLen < 0 {
		return &domain.ConfigurationError{Field: "MIN_CHUNK_LEN", Reason: "must not be negative"}
	}
	if c.MinContentLen < 0 {
		return &domain.ConfigurationError{Field: "MIN_CONTENT_LEN", Reason: "must not be negative"}
	}

	if c.BatchSize <= 0 {
		return &domain.ConfigurationError{Field: "BATCH_SIZE", Reason: "must be positive"}
	}

	if c.ReconcileEnabled && c.ReconcileInterval <= 0 {
		return &domain.ConfigurationError{Field: "RECONCILE_INTERVAL", Reason: "must be positive"}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList parses a comma-separated value, trimming whitespace and
// dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

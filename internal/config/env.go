package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/local/pdftools/internal/compress"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP surface and session housekeeping.
type ServerConfig struct {
	Port            string
	MaxUploadMB     int
	RequestTimeout  time.Duration
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

// StorageConfig defines where finished results are kept.
type StorageConfig struct {
	ResultDir    string
	ResultMaxAge time.Duration
	S3Bucket     string
	S3Prefix     string
}

// RedisConfig defines the job record store. An empty URL keeps job
// records in memory.
type RedisConfig struct {
	URL    string
	JobTTL time.Duration
}

// ToolsConfig holds defaults of the document tools.
type ToolsConfig struct {
	OverlayMargin     float64         `yaml:"overlay_margin"`
	RasterScale       float64         `yaml:"raster_scale"`
	SizeCorrection    float64         `yaml:"size_correction"`
	DefaultFontSize   int             `yaml:"default_font_size"`
	NumberFormat      string          `yaml:"number_format"`
	NumberPosition    string          `yaml:"number_position"`
	NumberColor       string          `yaml:"number_color"`
	CompressionLevels compress.Levels `yaml:"-"`
	DefaultLevel      string          `yaml:"default_level"`
	MaxConcurrentJobs int             `yaml:"max_concurrent_jobs"`
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Storage StorageConfig
	Redis   RedisConfig
	Tools   ToolsConfig
}

// FromEnv loads configuration from environment with sensible defaults. A
// .env file in the working directory is read first; variables already set
// in the environment win. When CONFIG_FILE names a YAML file its tools
// section is applied last.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdftools.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdftools",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		MaxUploadMB:     parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64),
		RequestTimeout:  parseDuration(getEnv("REQUEST_TIMEOUT", "120s"), 120*time.Second),
		SessionTTL:      parseDuration(getEnv("SESSION_TTL", "1h"), time.Hour),
		CleanupInterval: parseDuration(getEnv("CLEANUP_INTERVAL", "5m"), 5*time.Minute),
	}

	cfg.Storage = StorageConfig{
		ResultDir:    getEnv("RESULT_DIR", "uploads/results"),
		ResultMaxAge: parseDuration(getEnv("RESULT_MAX_AGE", "24h"), 24*time.Hour),
		S3Bucket:     getEnv("AWS_S3_BUCKET", ""),
		S3Prefix:     getEnv("AWS_S3_PREFIX", "pdftools/results"),
	}

	cfg.Redis = RedisConfig{
		URL:    getEnv("REDIS_URL", ""),
		JobTTL: parseDuration(getEnv("JOB_TTL", "24h"), 24*time.Hour),
	}

	cfg.Tools = ToolsConfig{
		OverlayMargin:     parseFloat(getEnv("OVERLAY_MARGIN", "30"), 30),
		RasterScale:       parseFloat(getEnv("RASTER_SCALE", "1.5"), 1.5),
		SizeCorrection:    parseFloat(getEnv("SIZE_CORRECTION", "0.75"), 0.75),
		DefaultFontSize:   parseInt(getEnv("DEFAULT_FONT_SIZE", "12"), 12),
		NumberFormat:      getEnv("NUMBER_FORMAT", "{page}"),
		NumberPosition:    getEnv("NUMBER_POSITION", "bottom-center"),
		NumberColor:       getEnv("NUMBER_COLOR", "#000000"),
		DefaultLevel:      getEnv("DEFAULT_COMPRESSION_LEVEL", "medium"),
		MaxConcurrentJobs: parseInt(getEnv("MAX_CONCURRENT_JOBS", "4"), 4),
	}
	levels, err := compress.ParseLevels(getEnv("COMPRESSION_LEVELS", "low=0.4,medium=0.65,high=0.9"))
	if err != nil {
		return cfg, err
	}
	cfg.Tools.CompressionLevels = levels

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}

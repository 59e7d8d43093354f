// Package config loads bot configuration from an optional YAML file, a .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("bot token is not set (TOKEN)")

// Environment keys
const (
	KeyToken             = "TOKEN"
	KeyTelegramAPIURL    = "TELEGRAM_API_URL"
	KeyDeezerAPIURL      = "DEEZER_API_URL"
	KeyRipPath           = "RIP_PATH"
	KeyScratchRoot       = "SCRATCH_ROOT"
	KeyMaxFileBytes      = "MAX_FILE_BYTES"
	KeyMaxConcurrentJobs = "MAX_CONCURRENT_JOBS"
	KeyJobTimeout        = "JOB_TIMEOUT"
	KeyHTTPTimeout       = "HTTP_TIMEOUT"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyMetricsAddr       = "METRICS_ADDR"
	KeyTelegramRate      = "TELEGRAM_RATE_PER_SEC"
)

// Default values
const (
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultDeezerAPIURL   = "https://api.deezer.com"
	DefaultRipPath        = "rip"
	DefaultScratchRoot    = "."
	DefaultMaxFileBytes   = 49_000_000
	DefaultHTTPTimeout    = 60 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultTelegramRate   = 25.0
)

// Config holds all bot settings in correct types
type Config struct {
	Token          string `yaml:"token"`
	TelegramAPIURL string `yaml:"telegram_api_url"`
	DeezerAPIURL   string `yaml:"deezer_api_url"`

	// External downloader
	RipPath     string `yaml:"rip_path"`
	ScratchRoot string `yaml:"scratch_root"`

	// Delivery limit, inclusive
	MaxFileBytes int64 `yaml:"max_file_bytes"`

	// 0 means unbounded
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	JobTimeout        time.Duration `yaml:"job_timeout"`

	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	TelegramRate float64       `yaml:"telegram_rate_per_sec"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads configuration. path may be empty, in which case only the
// environment (and a .env file in the working directory, if any) is used.
func Load(path string) (*Config, error) {
	// A missing .env is not an error
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	validate(cfg)

	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Token = getEnv(KeyToken, cfg.Token)
	cfg.TelegramAPIURL = getEnv(KeyTelegramAPIURL, cfg.TelegramAPIURL)
	cfg.DeezerAPIURL = getEnv(KeyDeezerAPIURL, cfg.DeezerAPIURL)
	cfg.RipPath = getEnv(KeyRipPath, cfg.RipPath)
	cfg.ScratchRoot = getEnv(KeyScratchRoot, cfg.ScratchRoot)
	cfg.MaxFileBytes = getEnvAsInt64(KeyMaxFileBytes, cfg.MaxFileBytes)
	cfg.MaxConcurrentJobs = getEnvAsInt(KeyMaxConcurrentJobs, cfg.MaxConcurrentJobs)
	cfg.JobTimeout = getEnvAsDuration(KeyJobTimeout, cfg.JobTimeout)
	cfg.HTTPTimeout = getEnvAsDuration(KeyHTTPTimeout, cfg.HTTPTimeout)
	cfg.TelegramRate = getEnvAsFloat(KeyTelegramRate, cfg.TelegramRate)
	cfg.LogLevel = getEnv(KeyLogLevel, cfg.LogLevel)
	cfg.LogFormat = getEnv(KeyLogFormat, cfg.LogFormat)
	cfg.MetricsAddr = getEnv(KeyMetricsAddr, cfg.MetricsAddr)
}

func applyDefaults(cfg *Config) {
	if cfg.TelegramAPIURL == "" {
		cfg.TelegramAPIURL = DefaultTelegramAPIURL
	}
	if cfg.DeezerAPIURL == "" {
		cfg.DeezerAPIURL = DefaultDeezerAPIURL
	}
	if cfg.RipPath == "" {
		cfg.RipPath = DefaultRipPath
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = DefaultScratchRoot
	}
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.TelegramRate == 0 {
		cfg.TelegramRate = DefaultTelegramRate
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// validate clamps values that would break the bot at runtime
func validate(cfg *Config) {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.TelegramAPIURL = strings.TrimRight(strings.TrimSpace(cfg.TelegramAPIURL), "/")
	cfg.DeezerAPIURL = strings.TrimRight(strings.TrimSpace(cfg.DeezerAPIURL), "/")
	if cfg.MaxFileBytes < 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.MaxConcurrentJobs < 0 {
		cfg.MaxConcurrentJobs = 0
	}
	if cfg.JobTimeout < 0 {
		cfg.JobTimeout = 0
	}
	if cfg.HTTPTimeout < 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.TelegramRate < 0 {
		cfg.TelegramRate = DefaultTelegramRate
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if val, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if val, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return val
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if val, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return val
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or plain seconds
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	if d, err := time.ParseDuration(str); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(str); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

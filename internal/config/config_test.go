package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv makes sure values from the developer's shell don't leak into tests
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		KeyToken, KeyTelegramAPIURL, KeyDeezerAPIURL, KeyRipPath, KeyScratchRoot,
		KeyMaxFileBytes, KeyMaxConcurrentJobs, KeyJobTimeout, KeyHTTPTimeout,
		KeyLogLevel, KeyLogFormat, KeyMetricsAddr, KeyTelegramRate,
	} {
		t.Setenv(key, "")
	}
	// Keep godotenv away from any .env in the package directory
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_MissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyToken, "123:abc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Token != "123:abc" {
		t.Errorf("expected token 123:abc, got %s", cfg.Token)
	}
	if cfg.TelegramAPIURL != DefaultTelegramAPIURL {
		t.Errorf("expected telegram URL %s, got %s", DefaultTelegramAPIURL, cfg.TelegramAPIURL)
	}
	if cfg.DeezerAPIURL != DefaultDeezerAPIURL {
		t.Errorf("expected deezer URL %s, got %s", DefaultDeezerAPIURL, cfg.DeezerAPIURL)
	}
	if cfg.RipPath != DefaultRipPath {
		t.Errorf("expected rip path %s, got %s", DefaultRipPath, cfg.RipPath)
	}
	if cfg.MaxFileBytes != DefaultMaxFileBytes {
		t.Errorf("expected max file bytes %d, got %d", DefaultMaxFileBytes, cfg.MaxFileBytes)
	}
	if cfg.MaxConcurrentJobs != 0 {
		t.Errorf("expected unbounded jobs (0), got %d", cfg.MaxConcurrentJobs)
	}
	if cfg.JobTimeout != 0 {
		t.Errorf("expected no job timeout, got %v", cfg.JobTimeout)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("expected http timeout %v, got %v", DefaultHTTPTimeout, cfg.HTTPTimeout)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled, got %s", cfg.MetricsAddr)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `token: from-file
rip_path: /opt/streamrip/rip
max_concurrent_jobs: 4
job_timeout: 30m
telegram_api_url: http://localhost:8081/
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(KeyToken, "from-env")
	t.Setenv(KeyJobTimeout, "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Token != "from-env" {
		t.Errorf("expected env token, got %s", cfg.Token)
	}
	if cfg.RipPath != "/opt/streamrip/rip" {
		t.Errorf("expected rip path from file, got %s", cfg.RipPath)
	}
	if cfg.MaxConcurrentJobs != 4 {
		t.Errorf("expected 4 concurrent jobs, got %d", cfg.MaxConcurrentJobs)
	}
	if cfg.JobTimeout != 90*time.Second {
		t.Errorf("expected job timeout 90s from env, got %v", cfg.JobTimeout)
	}
	if cfg.TelegramAPIURL != "http://localhost:8081" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.TelegramAPIURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyToken, "x")

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(t *testing.T, cfg Config)
	}{
		{
			name:  "negative concurrency becomes unbounded",
			input: Config{MaxConcurrentJobs: -3},
			check: func(t *testing.T, cfg Config) {
				if cfg.MaxConcurrentJobs != 0 {
					t.Errorf("expected 0, got %d", cfg.MaxConcurrentJobs)
				}
			},
		},
		{
			name:  "negative file limit resets to default",
			input: Config{MaxFileBytes: -1},
			check: func(t *testing.T, cfg Config) {
				if cfg.MaxFileBytes != DefaultMaxFileBytes {
					t.Errorf("expected %d, got %d", DefaultMaxFileBytes, cfg.MaxFileBytes)
				}
			},
		},
		{
			name:  "negative timeout disables timeout",
			input: Config{JobTimeout: -time.Second},
			check: func(t *testing.T, cfg Config) {
				if cfg.JobTimeout != 0 {
					t.Errorf("expected 0, got %v", cfg.JobTimeout)
				}
			},
		},
		{
			name:  "token is trimmed",
			input: Config{Token: "  abc \n"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Token != "abc" {
					t.Errorf("expected abc, got %q", cfg.Token)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			validate(&cfg)
			tt.check(t, cfg)
		})
	}
}

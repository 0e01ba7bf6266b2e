package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Database contains the Postgres connection settings.
type Database struct {
	DSN                   string `toml:"dsn"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	MaxConns              int    `toml:"max_conns"`
}

// Paths contains file system locations used by a run.
type Paths struct {
	CredentialsFile string `toml:"credentials_file"`
	LockDir         string `toml:"lock_dir"`
	LogDir          string `toml:"log_dir"`
	StateDir        string `toml:"state_dir"`
}

// Sync contains the sync engine and shared provider transport knobs.
type Sync struct {
	InitialLimit           int `toml:"initial_limit"`
	OverlapMinutes         int `toml:"overlap_minutes"`
	HTTPTimeoutSeconds     int `toml:"http_timeout_seconds"`
	ResourceTimeoutSeconds int `toml:"resource_timeout_seconds"`
	MaxRetries             int `toml:"max_retries"`
	BaseBackoffSeconds     int `toml:"base_backoff_seconds"`
	MaxBackoffSeconds      int `toml:"max_backoff_seconds"`
	BackfillLimit          int `toml:"backfill_limit"`
}

// Zadarma contains Zadarma API settings.
type Zadarma struct {
	BaseURL             string `toml:"base_url"`
	MaxWindowDays       int    `toml:"max_window_days"`
	PageLimit           int    `toml:"page_limit"`
	InitialLookbackDays int    `toml:"initial_lookback_days"`
	Timezone            string `toml:"timezone"`
}

// Telnyx contains Telnyx API settings.
type Telnyx struct {
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
}

// Retell contains Retell API settings.
type Retell struct {
	BaseURL   string `toml:"base_url"`
	PageLimit int    `toml:"page_limit"`
	// ToNumbers restricts call listing to these E.164 destination numbers.
	ToNumbers []string `toml:"to_numbers"`
}

// Classifier contains transcript classification settings.
type Classifier struct {
	BatchSize int `toml:"batch_size"`
}

// MonitorPage is one documentation page watched by the API-change monitor.
type MonitorPage struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Selector string `toml:"selector"`
}

// Monitor contains the API-change monitor settings.
type Monitor struct {
	Pages                 []MonitorPage `toml:"pages"`
	ContextFile           string        `toml:"context_file"`
	GitHubRepo            string        `toml:"github_repo"`
	GitHubAPIURL          string        `toml:"github_api_url"`
	WebhookURL            string        `toml:"webhook_url"`
	NotifyTo              string        `toml:"notify_to"`
	MaxDiffLines          int           `toml:"max_diff_lines"`
	RequestTimeoutSeconds int           `toml:"request_timeout_seconds"`
}

// LLM contains connection settings for the model used by the API-change monitor.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for telcosync.
//
// Configuration sections by subsystem:
//   - Database: Postgres DSN and pool sizing
//   - Paths: credentials file, lock, log and state directories
//   - Sync: windows, overlap, retry and timeout policy
//   - Zadarma, Telnyx, Retell: per-provider endpoints and paging
//   - Classifier: transcript batch size
//   - Monitor, LLM: the daily API documentation monitor
//   - Logging: log format, level, and retention
type Config struct {
	Database   Database   `toml:"database"`
	Paths      Paths      `toml:"paths"`
	Sync       Sync       `toml:"sync"`
	Zadarma    Zadarma    `toml:"zadarma"`
	Telnyx     Telnyx     `toml:"telnyx"`
	Retell     Retell     `toml:"retell"`
	Classifier Classifier `toml:"classifier"`
	Monitor    Monitor    `toml:"monitor"`
	LLM        LLM        `toml:"llm"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("telcosync.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the private lock, log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LockDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HTTPTimeout returns the per-request provider timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Sync.HTTPTimeoutSeconds) * time.Second
}

// ResourceTimeout returns the budget for one (provider, resource) unit.
func (c *Config) ResourceTimeout() time.Duration {
	return time.Duration(c.Sync.ResourceTimeoutSeconds) * time.Second
}

// Overlap returns the high-watermark overlap applied to incremental windows.
func (c *Config) Overlap() time.Duration {
	return time.Duration(c.Sync.OverlapMinutes) * time.Minute
}

// SnapshotDBPath returns the SQLite file holding API documentation snapshots.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.Paths.StateDir, "api_monitor.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSync() error {
	return ensurePositive(map[string]int{
		"database.connect_timeout_seconds": c.Database.ConnectTimeoutSeconds,
		"database.max_conns":               c.Database.MaxConns,
		"sync.initial_limit":               c.Sync.InitialLimit,
		"sync.http_timeout_seconds":        c.Sync.HTTPTimeoutSeconds,
		"sync.resource_timeout_seconds":    c.Sync.ResourceTimeoutSeconds,
		"sync.max_backoff_seconds":         c.Sync.MaxBackoffSeconds,
		"sync.backfill_limit":              c.Sync.BackfillLimit,
		"classifier.batch_size":            c.Classifier.BatchSize,
	}, func() error {
		if c.Sync.OverlapMinutes < 0 {
			return errors.New("sync.overlap_minutes must be zero or positive")
		}
		if c.Sync.MaxRetries < 0 {
			return errors.New("sync.max_retries must be zero or positive")
		}
		if c.Sync.BaseBackoffSeconds < 0 {
			return errors.New("sync.base_backoff_seconds must be zero or positive")
		}
		return nil
	})
}

func (c *Config) validateProviders() error {
	for name, raw := range map[string]string{
		"zadarma.base_url": c.Zadarma.BaseURL,
		"telnyx.base_url":  c.Telnyx.BaseURL,
		"retell.base_url":  c.Retell.BaseURL,
	} {
		if err := validateHTTPURL(name, raw); err != nil {
			return err
		}
	}
	return ensurePositive(map[string]int{
		"zadarma.max_window_days":       c.Zadarma.MaxWindowDays,
		"zadarma.page_limit":            c.Zadarma.PageLimit,
		"zadarma.initial_lookback_days": c.Zadarma.InitialLookbackDays,
		"telnyx.page_size":              c.Telnyx.PageSize,
		"retell.page_limit":             c.Retell.PageLimit,
	}, func() error {
		if _, err := time.LoadLocation(c.Zadarma.Timezone); err != nil {
			return fmt.Errorf("zadarma.timezone: %w", err)
		}
		for i, n := range c.Retell.ToNumbers {
			if !e164.MatchString(n) {
				return fmt.Errorf("retell.to_numbers[%d] must be E.164 (+ and 8 to 15 digits), got %q", i, n)
			}
		}
		return nil
	})
}

func (c *Config) validateMonitor() error {
	seen := make(map[string]struct{}, len(c.Monitor.Pages))
	for i, page := range c.Monitor.Pages {
		if err := validateHTTPURL(fmt.Sprintf("monitor.pages[%d].url", i), page.URL); err != nil {
			return err
		}
		if _, dup := seen[page.Name]; dup {
			return fmt.Errorf("monitor.pages[%d].name %q is duplicated", i, page.Name)
		}
		seen[page.Name] = struct{}{}
	}
	if repo := c.Monitor.GitHubRepo; repo != "" {
		parts := strings.Split(repo, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("monitor.github_repo must be owner/name, got %q", repo)
		}
	}
	if c.Monitor.WebhookURL != "" {
		if err := validateHTTPURL("monitor.webhook_url", c.Monitor.WebhookURL); err != nil {
			return err
		}
	}
	return ensurePositive(map[string]int{
		"monitor.max_diff_lines":          c.Monitor.MaxDiffLines,
		"monitor.request_timeout_seconds": c.Monitor.RequestTimeoutSeconds,
		"llm.timeout_seconds":             c.LLM.TimeoutSeconds,
		"llm.max_tokens":                  c.LLM.MaxTokens,
	}, nil)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func ensurePositive(values map[string]int, extra func() error) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if extra != nil {
		return extra()
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

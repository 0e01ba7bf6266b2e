package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeProviders()
	if err := c.normalizeMonitor(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.credentials_file", &c.Paths.CredentialsFile, defaultCredentialsFile},
		{"paths.lock_dir", &c.Paths.LockDir, defaultLockDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	if value, ok := os.LookupEnv("TELCO_CREDENTIALS_FILE"); ok && strings.TrimSpace(value) != "" {
		expanded, err := expandPath(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("TELCO_CREDENTIALS_FILE: %w", err)
		}
		c.Paths.CredentialsFile = expanded
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		for _, key := range []string{"TELCO_DATABASE_URL", "DATABASE_URL"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Database.DSN = strings.TrimSpace(value)
				break
			}
		}
	}
}

func (c *Config) normalizeProviders() {
	c.Zadarma.BaseURL = strings.TrimRight(strings.TrimSpace(c.Zadarma.BaseURL), "/")
	if c.Zadarma.BaseURL == "" {
		c.Zadarma.BaseURL = defaultZadarmaBaseURL
	}
	c.Zadarma.Timezone = strings.TrimSpace(c.Zadarma.Timezone)
	if c.Zadarma.Timezone == "" {
		c.Zadarma.Timezone = defaultZadarmaTimezone
	}
	c.Telnyx.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telnyx.BaseURL), "/")
	if c.Telnyx.BaseURL == "" {
		c.Telnyx.BaseURL = defaultTelnyxBaseURL
	}
	c.Retell.BaseURL = strings.TrimRight(strings.TrimSpace(c.Retell.BaseURL), "/")
	if c.Retell.BaseURL == "" {
		c.Retell.BaseURL = defaultRetellBaseURL
	}
	if c.Retell.PageLimit > maxRetellPageLimit {
		c.Retell.PageLimit = maxRetellPageLimit
	}
	numbers := c.Retell.ToNumbers[:0]
	for _, n := range c.Retell.ToNumbers {
		n = strings.ReplaceAll(strings.TrimSpace(n), " ", "")
		if n != "" && !slices.Contains(numbers, n) {
			numbers = append(numbers, n)
		}
	}
	c.Retell.ToNumbers = numbers
}

func (c *Config) normalizeMonitor() error {
	if len(c.Monitor.Pages) == 0 {
		c.Monitor.Pages = DefaultMonitorPages()
	}
	for i := range c.Monitor.Pages {
		page := &c.Monitor.Pages[i]
		page.Name = strings.TrimSpace(page.Name)
		page.URL = strings.TrimSpace(page.URL)
		page.Selector = strings.TrimSpace(page.Selector)
		if page.Selector == "" {
			page.Selector = "body"
		}
		if page.Name == "" {
			page.Name = page.URL
		}
	}
	var err error
	if c.Monitor.ContextFile, err = expandPath(strings.TrimSpace(c.Monitor.ContextFile)); err != nil {
		return fmt.Errorf("monitor.context_file: %w", err)
	}
	c.Monitor.GitHubRepo = strings.Trim(strings.TrimSpace(c.Monitor.GitHubRepo), "/")
	if c.Monitor.GitHubRepo == "" {
		if value, ok := os.LookupEnv("TELCO_GITHUB_REPO"); ok {
			c.Monitor.GitHubRepo = strings.Trim(strings.TrimSpace(value), "/")
		}
	}
	c.Monitor.GitHubAPIURL = strings.TrimRight(strings.TrimSpace(c.Monitor.GitHubAPIURL), "/")
	if c.Monitor.GitHubAPIURL == "" {
		c.Monitor.GitHubAPIURL = defaultGitHubAPIURL
	}
	c.Monitor.WebhookURL = strings.TrimSpace(c.Monitor.WebhookURL)
	if c.Monitor.WebhookURL == "" {
		if value, ok := os.LookupEnv("TELCO_NOTIFY_WEBHOOK"); ok {
			c.Monitor.WebhookURL = strings.TrimSpace(value)
		}
	}
	c.Monitor.NotifyTo = strings.TrimSpace(c.Monitor.NotifyTo)
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

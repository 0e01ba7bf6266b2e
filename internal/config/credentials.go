package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"telcosync/internal/services"
)

// Recognised credential keys.
const (
	KeyZadarmaAPIKey     = "ZADARMA_API_KEY"
	KeyZadarmaAPISecret  = "ZADARMA_API_SECRET"
	KeyTelnyxAPIKey      = "TELNYX_API_KEY"
	KeyTelnyxSIPUsername = "TELNYX_SIP_USERNAME"
	KeyTelnyxSIPPassword = "TELNYX_SIP_PASSWORD"
	KeyRetellAPIKey      = "RETELL_API_KEY"
	KeyAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	KeyGitHubToken       = "GITHUB_TOKEN"
	KeyDatabaseURL       = "DATABASE_URL"
)

// CredentialKeys lists every key read from the credentials file and environment.
var CredentialKeys = []string{
	KeyZadarmaAPIKey,
	KeyZadarmaAPISecret,
	KeyTelnyxAPIKey,
	KeyTelnyxSIPUsername,
	KeyTelnyxSIPPassword,
	KeyRetellAPIKey,
	KeyAnthropicAPIKey,
	KeyGitHubToken,
	KeyDatabaseURL,
}

// Credentials is the flat secret bag read once per run.
type Credentials struct {
	Path     string
	Warnings []string
	values   map[string]string
}

// LookupFunc resolves an environment variable.
type LookupFunc func(string) (string, bool)

// LoadCredentials reads the KEY=VALUE credentials file at path and overlays the
// process environment, which wins over file values. A missing file is not an
// error. A file readable by group or other is refused.
func LoadCredentials(path string, lookup LookupFunc) (*Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	creds := &Credentials{Path: path, values: make(map[string]string)}

	if strings.TrimSpace(path) != "" {
		if err := creds.readFile(path); err != nil {
			return nil, err
		}
	}
	for _, key := range CredentialKeys {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			creds.values[key] = strings.TrimSpace(value)
		}
	}
	return creds, nil
}

// NewCredentials builds an in-memory credential bag.
func NewCredentials(values map[string]string) *Credentials {
	creds := &Credentials{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			creds.values[k] = v
		}
	}
	return creds
}

func (c *Credentials) readFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrConfiguration, "config", "credentials", "stat "+path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "config", "credentials", path+" is a directory", nil)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return services.Wrap(services.ErrConfiguration, "config", "credentials",
			fmt.Sprintf("%s has mode %#o; run chmod 600 %s", path, perm, path), nil)
	}
	if dirInfo, err := os.Stat(filepath.Dir(path)); err == nil {
		if perm := dirInfo.Mode().Perm(); perm&0o077 != 0 {
			c.Warnings = append(c.Warnings, fmt.Sprintf("credentials directory %s has mode %#o; expected 0700", filepath.Dir(path), perm))
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "credentials", "open "+path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseCredentialLine(scanner.Text())
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "credentials", fmt.Sprintf("%s:%d", path, lineNo), err)
		}
		if ok && value != "" {
			c.values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "credentials", "read "+path, err)
	}
	return nil
}

func parseCredentialLine(line string) (string, string, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, nil
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "export "))
	key, value, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false, errors.New("expected KEY=VALUE")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false, errors.New("empty key")
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true, nil
}

// Get returns the value for key or an empty string.
func (c *Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c.values[key]
}

// Has reports whether every key carries a value.
func (c *Credentials) Has(keys ...string) bool {
	for _, key := range keys {
		if c.Get(key) == "" {
			return false
		}
	}
	return true
}

// Require returns a configuration error naming the missing keys for owner.
func (c *Credentials) Require(owner string, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if c.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return services.Wrap(services.ErrConfiguration, owner, "credentials",
		"missing "+strings.Join(missing, ", "), nil)
}

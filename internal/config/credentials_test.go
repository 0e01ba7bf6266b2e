package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telcosync/internal/config"
	"telcosync/internal/services"
)

func writeCredentials(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "secrets")
	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ".credentials")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoadCredentialsParsesFile(t *testing.T) {
	path := writeCredentials(t, `
# provider secrets
ZADARMA_API_KEY=abc
export ZADARMA_API_SECRET="s3cr3t"
TELNYX_API_KEY='KEY123'
RETELL_API_KEY=
`, 0o600)

	creds, err := config.LoadCredentials(path, noEnv)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Get(config.KeyZadarmaAPIKey) != "abc" || creds.Get(config.KeyZadarmaAPISecret) != "s3cr3t" {
		t.Fatalf("unexpected zadarma creds")
	}
	if creds.Get(config.KeyTelnyxAPIKey) != "KEY123" {
		t.Fatalf("expected quotes stripped, got %q", creds.Get(config.KeyTelnyxAPIKey))
	}
	if creds.Has(config.KeyRetellAPIKey) {
		t.Fatal("empty values must count as missing")
	}
	if len(creds.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", creds.Warnings)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeCredentials(t, "TELNYX_API_KEY=file\n", 0o600)
	env := map[string]string{"TELNYX_API_KEY": "env", "RETELL_API_KEY": "retell"}
	creds, err := config.LoadCredentials(path, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if got := creds.Get(config.KeyTelnyxAPIKey); got != "env" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if got := creds.Get(config.KeyRetellAPIKey); got != "retell" {
		t.Fatalf("expected env-only key, got %q", got)
	}
}

func TestLoadCredentialsRejectsLoosePermissions(t *testing.T) {
	path := writeCredentials(t, "TELNYX_API_KEY=x\n", 0o644)
	_, err := config.LoadCredentials(path, noEnv)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "chmod 600") {
		t.Fatalf("expected remediation hint, got %v", err)
	}
}

func TestLoadCredentialsWarnsOnOpenDirectory(t *testing.T) {
	path := writeCredentials(t, "TELNYX_API_KEY=x\n", 0o600)
	if err := os.Chmod(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	creds, err := config.LoadCredentials(path, noEnv)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if len(creds.Warnings) != 1 {
		t.Fatalf("expected one directory warning, got %v", creds.Warnings)
	}
}

func TestLoadCredentialsMissingFileIsEmpty(t *testing.T) {
	creds, err := config.LoadCredentials(filepath.Join(t.TempDir(), "absent"), noEnv)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Has(config.KeyTelnyxAPIKey) {
		t.Fatal("expected no credentials")
	}
}

func TestLoadCredentialsRejectsMalformedLine(t *testing.T) {
	path := writeCredentials(t, "JUSTAKEY\n", 0o600)
	if _, err := config.LoadCredentials(path, noEnv); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRequireNamesMissingKeys(t *testing.T) {
	creds := config.NewCredentials(map[string]string{config.KeyZadarmaAPIKey: "k"})
	err := creds.Require("zadarma", config.KeyZadarmaAPIKey, config.KeyZadarmaAPISecret)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), config.KeyZadarmaAPISecret) {
		t.Fatalf("expected missing key named, got %v", err)
	}
	if err := creds.Require("zadarma", config.KeyZadarmaAPIKey); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

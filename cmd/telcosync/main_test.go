package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"telcosync/internal/config"
	"telcosync/internal/notifications"
	"telcosync/internal/services"
	"telcosync/internal/testsupport"
)

// isolateEnv blanks every environment fallback the config and credential
// loaders read so the developer's shell cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	keys := append([]string{"TELCO_DATABASE_URL", "TELCO_CREDENTIALS_FILE", "TELCO_GITHUB_REPO", "TELCO_NOTIFY_WEBHOOK"}, config.CredentialKeys...)
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	testsupport.WriteFile(t, path, string(data))
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if got := services.ExitCode(err); got != want {
		t.Fatalf("exit code = %d, want %d (err=%v)", got, want, err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	testsupport.WriteCredentials(t, cfg.Paths.CredentialsFile, map[string]string{
		config.KeyZadarmaAPIKey:    "key",
		config.KeyZadarmaAPISecret: "secret",
	})

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "zadarma\tyes")
	requireContains(t, out, "telnyx\tno\tTELNYX_API_KEY")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	requireExitCode(t, err, services.ExitConfiguration)
}

func TestInvalidConfigIsConfigurationError(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	testsupport.WriteFile(t, path, "[logging]\nformat = \"xml\"\n")

	_, _, err := runCLI(t, []string{"status"}, path)
	requireExitCode(t, err, services.ExitConfiguration)
}

func TestSyncRejectsUnknownProvider(t *testing.T) {
	isolateEnv(t)
	configPath := writeTestConfig(t, testsupport.NewConfig(t))

	_, _, err := runCLI(t, []string{"sync", "--provider", "twilio"}, configPath)
	requireExitCode(t, err, services.ExitConfiguration)
}

func TestUnknownFlagIsConfigurationError(t *testing.T) {
	isolateEnv(t)
	configPath := writeTestConfig(t, testsupport.NewConfig(t))

	_, _, err := runCLI(t, []string{"classify", "--bogus"}, configPath)
	requireExitCode(t, err, services.ExitConfiguration)
}

func TestMissingDatabaseURLIsConfigurationError(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	cfg.Database.DSN = ""
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"sync"}, configPath)
	requireExitCode(t, err, services.ExitConfiguration)
}

func TestUnreachableDatabaseExitsThree(t *testing.T) {
	isolateEnv(t)
	configPath := writeTestConfig(t, testsupport.NewConfig(t))

	for _, args := range [][]string{{"sync"}, {"classify"}, {"aggregate"}, {"status"}} {
		_, _, err := runCLI(t, args, configPath)
		if !errors.Is(err, services.ErrDatabaseUnavailable) {
			t.Fatalf("%v: expected database unavailable, got %v", args, err)
		}
		requireExitCode(t, err, services.ExitDatabase)
	}
}

func TestCredentialsFileWithOpenPermissionsIsRefused(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	testsupport.WriteCredentials(t, cfg.Paths.CredentialsFile, map[string]string{config.KeyTelnyxAPIKey: "k"})
	if err := os.Chmod(cfg.Paths.CredentialsFile, 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, _, err := runCLI(t, []string{"sync"}, configPath)
	requireExitCode(t, err, services.ExitConfiguration)
}

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []notifications.Payload
}

func (w *webhookRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var payload notifications.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	w.mu.Lock()
	w.payloads = append(w.payloads, payload)
	w.mu.Unlock()
	rw.WriteHeader(http.StatusAccepted)
}

func TestAPIMonitorTestModeLeavesSnapshotsAlone(t *testing.T) {
	isolateEnv(t)
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{\"ok\":true}"}],"stop_reason":"end_turn"}`)
	}))
	defer llmServer.Close()
	hook := &webhookRecorder{}
	hookServer := httptest.NewServer(hook)
	defer hookServer.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithLLM(llmServer.URL),
		testsupport.WithWebhook(hookServer.URL, "ops@example.com"),
	)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"api-monitor", "--test"}, configPath)
	if err != nil {
		t.Fatalf("api-monitor --test: %v", err)
	}
	requireContains(t, out, "test notification sent")
	if len(hook.payloads) != 1 || hook.payloads[0].To != "ops@example.com" {
		t.Fatalf("unexpected webhook payloads %+v", hook.payloads)
	}
	if _, err := os.Stat(cfg.SnapshotDBPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no snapshot database, stat err=%v", err)
	}
}

func TestAPIMonitorFirstRunStoresBaselines(t *testing.T) {
	isolateEnv(t)
	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><nav>menu</nav><main><h1>List calls</h1><p>POST /v2/list-calls</p></main></body></html>")
	}))
	defer docs.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithLLM("http://127.0.0.1:1"),
		testsupport.WithMonitorPages(
			config.MonitorPage{Name: "retell-list-calls", URL: docs.URL + "/list-calls", Selector: "main"},
			config.MonitorPage{Name: "retell-get-call", URL: docs.URL + "/get-call", Selector: "main"},
		),
	)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"api-monitor"}, configPath)
	if err != nil {
		t.Fatalf("api-monitor: %v", err)
	}
	requireContains(t, out, "checked 2 pages: 2 new baselines, 0 changed, 0 failed")

	out, _, err = runCLI(t, []string{"api-monitor"}, configPath)
	if err != nil {
		t.Fatalf("second api-monitor: %v", err)
	}
	requireContains(t, out, "0 new baselines, 0 changed")
}

func TestAPIMonitorChangeOpensIssueAndNotifies(t *testing.T) {
	isolateEnv(t)
	var version atomic.Int32
	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		param := "limit"
		if version.Load() > 0 {
			param = "page_size"
		}
		fmt.Fprintf(w, "<html><body><main><h1>List calls</h1><p>POST /v2/list-calls accepts %s</p></main></body></html>", param)
	}))
	defer docs.Close()

	analysis := `{"summary":"limit renamed to page_size","impact_level":"high","affected_systems":["retell adapter"],` +
		`"recommendations":["rename the request field"],"action_required":true,` +
		`"github_issue_title":"Retell list-calls renamed limit","github_issue_body":"see diff"}`
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []any{map[string]any{"type": "text", "text": analysis}},
			"stop_reason": "end_turn",
		})
	}))
	defer llmServer.Close()

	var issueTitle string
	githubServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/telco/issues" || r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		issueTitle = body.Title
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number":7,"html_url":"https://github.test/acme/telco/issues/7"}`)
	}))
	defer githubServer.Close()

	hook := &webhookRecorder{}
	hookServer := httptest.NewServer(hook)
	defer hookServer.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithLLM(llmServer.URL),
		testsupport.WithGitHub(githubServer.URL, "acme/telco"),
		testsupport.WithWebhook(hookServer.URL, "ops@example.com"),
		testsupport.WithMonitorPages(config.MonitorPage{Name: "retell-list-calls", URL: docs.URL, Selector: "main"}),
	)
	configPath := writeTestConfig(t, cfg)
	testsupport.WriteCredentials(t, cfg.Paths.CredentialsFile, map[string]string{config.KeyGitHubToken: "gh-token"})

	if _, _, err := runCLI(t, []string{"api-monitor"}, configPath); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	version.Store(1)

	out, _, err := runCLI(t, []string{"api-monitor"}, configPath)
	if err != nil {
		t.Fatalf("change run: %v", err)
	}
	requireContains(t, out, "1 changed, 0 failed")
	requireContains(t, out, "impact high")
	requireContains(t, out, "issue: https://github.test/acme/telco/issues/7")
	requireContains(t, out, "notification sent")
	if issueTitle != "Retell list-calls renamed limit" {
		t.Fatalf("unexpected issue title %q", issueTitle)
	}
	if len(hook.payloads) != 1 {
		t.Fatalf("expected one webhook payload, got %d", len(hook.payloads))
	}
}

package apimonitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"telcosync/internal/config"
	"telcosync/internal/logging"
	"telcosync/internal/notifications"
	"telcosync/internal/services"
	"telcosync/internal/services/github"
)

const userAgent = "Mozilla/5.0 (compatible; telcosync-api-monitor/1.0)"

// IssueLabels are attached to every issue the monitor opens.
var IssueLabels = []string{"api-change", "automated"}

const defaultSystemContext = `telcosync is a telephony data warehouse. It pulls call detail records,
messages, recordings, phone numbers, SIP resources, balances and AI voice agent data from
Zadarma (GET /v1/statistics/pbx/, /v1/direct_numbers/, /v1/sip/, /v1/info/balance/, HMAC-SHA1 signed),
Telnyx (GET /v2/detail_records with filter[record_type], /v2/phone_numbers, /v2/recordings and other
list endpoints, bearer token, cursor pagination) and Retell AI (POST /v2/list-calls with
pagination_key and filter_criteria, GET /v2/get-call/{id}, list-agents and related endpoints, bearer
token) into Postgres. Field renames, removed fields, pagination or authentication changes break sync.`

// IssueCreator opens tracking issues.
type IssueCreator interface {
	Configured() bool
	CreateIssue(ctx context.Context, issue github.Issue) (github.Created, error)
}

// HealthChecker is implemented by completers that can be probed.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the collaborators of a Monitor.
type Dependencies struct {
	Snapshots  *SnapshotStore
	Completer  Completer
	Issues     IssueCreator
	Notifier   notifications.Service
	HTTPClient *http.Client
}

// Report summarises one monitor run.
type Report struct {
	RunID    string
	Checked  int
	Baseline int
	Failed   int
	Changes  []PageChange
	Analysis *Analysis
	IssueURL string
	Notified bool
}

// Monitor runs the documentation check.
type Monitor struct {
	pages        []config.MonitorPage
	contextFile  string
	maxDiffLines int
	deps         Dependencies
	logger       *slog.Logger
	now          func() time.Time
	newRunID     func() string
}

// New builds a Monitor from configuration and collaborators.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Monitor {
	if deps.HTTPClient == nil {
		timeout := time.Duration(cfg.Monitor.RequestTimeoutSeconds) * time.Second
		deps.HTTPClient = &http.Client{Timeout: timeout}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	return &Monitor{
		pages:        cfg.Monitor.Pages,
		contextFile:  cfg.Monitor.ContextFile,
		maxDiffLines: cfg.Monitor.MaxDiffLines,
		deps:         deps,
		logger:       logging.NewComponentLogger(logger, "apimonitor"),
		now:          time.Now,
		newRunID:     uuid.NewString,
	}
}

type pageResult struct {
	snapshot Snapshot
	change   *PageChange
	baseline bool
}

// Run checks every page once. Fetch failures are counted and reported as a
// partial failure; an analysis failure leaves changed pages unsaved so the
// next run reconsiders them.
func (m *Monitor) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: m.newRunID()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, m.logger)
	started := m.now()

	var results []pageResult
	for _, page := range m.pages {
		report.Checked++
		res, err := m.check(ctx, page)
		if err != nil {
			report.Failed++
			logging.WarnWithContext(logger, "documentation page check failed", "monitor_page_failed",
				logging.String("page", page.Name),
				logging.String("url", page.URL),
				logging.Error(err),
				logging.Impact("changes on this page go unnoticed until it can be fetched"),
			)
			continue
		}
		if res.baseline {
			report.Baseline++
		}
		if res.change != nil {
			report.Changes = append(report.Changes, *res.change)
		}
		results = append(results, res)
	}

	var errs []error
	analysed := true
	if len(report.Changes) > 0 {
		analysis, err := Analyze(ctx, m.deps.Completer, m.systemContext(logger), report.Changes)
		if err != nil {
			analysed = false
			errs = append(errs, err)
			logging.ErrorWithContext(logger, "change analysis failed", "monitor_analysis_failed",
				logging.Int("changed_pages", len(report.Changes)),
				logging.Error(err),
			)
		} else {
			report.Analysis = &analysis
			if err := m.act(ctx, logger, &report); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, res := range results {
		if res.change != nil && !analysed {
			continue
		}
		if err := m.deps.Snapshots.Save(ctx, res.snapshot); err != nil {
			errs = append(errs, err)
		}
	}

	record := RunRecord{
		RunID:        report.RunID,
		StartedAt:    started,
		FinishedAt:   m.now(),
		PagesChecked: report.Checked,
		PagesChanged: len(report.Changes),
		PagesFailed:  report.Failed,
		IssueURL:     report.IssueURL,
	}
	if report.Analysis != nil {
		record.ImpactLevel = report.Analysis.ImpactLevel
		record.ActionRequired = report.Analysis.ActionRequired
		record.Summary = report.Analysis.Summary
	}
	if err := m.deps.Snapshots.RecordRun(ctx, record); err != nil {
		errs = append(errs, err)
	}

	if report.Failed > 0 {
		errs = append(errs, services.Wrap(services.ErrTransport, "apimonitor", "run",
			fmt.Sprintf("%d of %d pages could not be fetched", report.Failed, report.Checked), nil))
	}

	logger.Info("api monitor run finished",
		logging.Int("checked", report.Checked),
		logging.Int("baseline", report.Baseline),
		logging.Int("changed", len(report.Changes)),
		logging.Int("failed", report.Failed),
		logging.Bool("action_required", report.Analysis != nil && report.Analysis.ActionRequired),
		logging.String("issue_url", report.IssueURL),
	)
	return report, errors.Join(errs...)
}

func (m *Monitor) check(ctx context.Context, page config.MonitorPage) (pageResult, error) {
	content, err := m.fetch(ctx, page)
	if err != nil {
		return pageResult{}, err
	}
	now := m.now()
	res := pageResult{snapshot: Snapshot{
		Name:      page.Name,
		URL:       page.URL,
		Hash:      Hash(content),
		Content:   content,
		FetchedAt: now,
		CheckedAt: now,
	}}
	previous, ok, err := m.deps.Snapshots.Latest(ctx, page.Name)
	if err != nil {
		return pageResult{}, err
	}
	if !ok {
		res.baseline = true
		return res, nil
	}
	if previous.Hash == res.snapshot.Hash {
		return res, nil
	}
	change, err := Diff(page.Name, page.URL, previous.Content, content, m.maxDiffLines)
	if err != nil {
		return pageResult{}, err
	}
	res.change = &change
	return res, nil
}

func (m *Monitor) fetch(ctx context.Context, page config.MonitorPage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.URL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "apimonitor", "fetch", page.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := m.deps.HTTPClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "apimonitor", "fetch", page.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", services.Wrap(services.ErrTransport, "apimonitor", "fetch",
			fmt.Sprintf("%s returned %d", page.Name, resp.StatusCode), nil)
	}
	content, err := Extract(io.LimitReader(resp.Body, 16<<20), page.Selector)
	if err != nil {
		return "", services.Wrap(services.ErrData, "apimonitor", "extract", page.Name, err)
	}
	if content == "" {
		return "", services.Wrap(services.ErrData, "apimonitor", "extract", page.Name+" has no text content", nil)
	}
	return content, nil
}

func (m *Monitor) systemContext(logger *slog.Logger) string {
	if strings.TrimSpace(m.contextFile) == "" {
		return defaultSystemContext
	}
	data, err := os.ReadFile(m.contextFile)
	if err != nil {
		logging.WarnWithContext(logger, "system context file unavailable, using built-in description", "monitor_context_missing",
			logging.String("path", m.contextFile),
			logging.Error(err),
		)
		return defaultSystemContext
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return defaultSystemContext
}

// act files the issue and sends the notification for an actionable analysis.
func (m *Monitor) act(ctx context.Context, logger *slog.Logger, report *Report) error {
	analysis := report.Analysis
	if !analysis.ActionRequired {
		logger.Info("documentation changed, no action required",
			logging.String("impact_level", analysis.ImpactLevel),
			logging.String("summary", analysis.Summary),
		)
		return nil
	}

	var errs []error
	if m.deps.Issues != nil && m.deps.Issues.Configured() {
		created, err := m.deps.Issues.CreateIssue(ctx, github.Issue{
			Title:  strings.TrimSpace(analysis.GitHubIssueTitle),
			Body:   issueBody(*analysis, report.Changes, report.RunID),
			Labels: IssueLabels,
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			report.IssueURL = created.HTMLURL
			logger.Info("github issue opened", logging.Int("number", created.Number), logging.String("url", created.HTMLURL))
		}
	} else {
		logging.WarnWithContext(logger, "action required but github is not configured", "monitor_issue_skipped",
			logging.Hint("set monitor.github_repo and GITHUB_TOKEN"),
		)
	}

	body, err := renderReport(reportData{
		RunID:    report.RunID,
		Analysis: *analysis,
		Changes:  report.Changes,
		IssueURL: report.IssueURL,
	})
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	err = m.deps.Notifier.Notify(ctx, notifications.Message{
		Subject:        subjectFor(*analysis, len(report.Changes)),
		BodyHTML:       body,
		ChangeCount:    len(report.Changes),
		ActionRequired: true,
	})
	if err != nil {
		errs = append(errs, err)
	} else {
		report.Notified = true
	}
	return errors.Join(errs...)
}

// Test checks LLM reachability and sends a test notification. Snapshots are
// not touched.
func (m *Monitor) Test(ctx context.Context) error {
	var errs []error
	if hc, ok := m.deps.Completer.(HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("llm: %w", err))
		} else {
			m.logger.Info("llm reachable")
		}
	}
	if err := m.deps.Notifier.TestNotification(ctx); err != nil {
		errs = append(errs, fmt.Errorf("notification: %w", err))
	} else {
		m.logger.Info("test notification sent")
	}
	return errors.Join(errs...)
}

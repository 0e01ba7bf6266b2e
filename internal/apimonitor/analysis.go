package apimonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"telcosync/internal/services"
	"telcosync/internal/services/llm"
)

// Impact levels the model may report.
const (
	ImpactCritical = "critical"
	ImpactHigh     = "high"
	ImpactMedium   = "medium"
	ImpactLow      = "low"
)

var impactLevels = []string{ImpactCritical, ImpactHigh, ImpactMedium, ImpactLow}

// Analysis is the strict JSON envelope the model must return.
type Analysis struct {
	Summary          string   `json:"summary"`
	ImpactLevel      string   `json:"impact_level"`
	AffectedSystems  []string `json:"affected_systems"`
	Recommendations  []string `json:"recommendations"`
	ActionRequired   bool     `json:"action_required"`
	GitHubIssueTitle string   `json:"github_issue_title"`
	GitHubIssueBody  string   `json:"github_issue_body"`
}

// Validate checks the envelope. Impact is lower-cased in place.
func (a *Analysis) Validate() error {
	a.ImpactLevel = strings.ToLower(strings.TrimSpace(a.ImpactLevel))
	a.Summary = strings.TrimSpace(a.Summary)
	switch {
	case a.Summary == "":
		return fmt.Errorf("summary is empty")
	case !slices.Contains(impactLevels, a.ImpactLevel):
		return fmt.Errorf("impact_level %q is not one of %s", a.ImpactLevel, strings.Join(impactLevels, ", "))
	case a.ActionRequired && strings.TrimSpace(a.GitHubIssueTitle) == "":
		return fmt.Errorf("github_issue_title is required when action_required is true")
	}
	if a.AffectedSystems == nil {
		a.AffectedSystems = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return nil
}

// Completer is the LLM surface the monitor needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const systemPrompt = `You review changes to third-party API documentation for a telephony data warehouse.
You are given a description of the system and unified diffs of documentation pages.
Decide whether the changes require engineering action (breaking changes, removed or renamed fields,
new required parameters, changed authentication, rate limits or pagination).
Reply with one JSON object with exactly these keys:
summary (string), impact_level (one of critical, high, medium, low), affected_systems (array of strings),
recommendations (array of strings), action_required (boolean), github_issue_title (string),
github_issue_body (string, markdown).`

type analysisRequest struct {
	Context string       `json:"context"`
	Diffs   []diffRecord `json:"diffs"`
}

type diffRecord struct {
	Page       string  `json:"page"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
	Truncated  bool    `json:"truncated,omitempty"`
	Diff       string  `json:"diff"`
}

// Analyze asks the model to interpret changes against the system context.
func Analyze(ctx context.Context, completer Completer, systemContext string, changes []PageChange) (Analysis, error) {
	if completer == nil {
		return Analysis{}, services.Wrap(services.ErrConfiguration, "apimonitor", "analyze", "no LLM configured", nil)
	}
	req := analysisRequest{Context: systemContext, Diffs: make([]diffRecord, 0, len(changes))}
	for _, c := range changes {
		req.Diffs = append(req.Diffs, diffRecord{
			Page:       c.Name,
			URL:        c.URL,
			Similarity: roundTo(c.Similarity, 3),
			Truncated:  c.Truncated,
			Diff:       c.Diff,
		})
	}
	prompt, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return Analysis{}, fmt.Errorf("encode analysis request: %w", err)
	}
	content, err := completer.CompleteJSON(ctx, systemPrompt, string(prompt))
	if err != nil {
		return Analysis{}, err
	}
	var out Analysis
	if err := llm.DecodeJSON(content, &out); err != nil {
		return Analysis{}, services.Wrap(services.ErrData, "apimonitor", "analyze", "decode model reply", err)
	}
	if err := out.Validate(); err != nil {
		return Analysis{}, services.Wrap(services.ErrData, "apimonitor", "analyze", "invalid model reply", err)
	}
	return out, nil
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for range places {
		scale *= 10
	}
	return float64(int64(v*scale+0.5)) / scale
}

package apimonitor

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": func(v float64) float64 { return v * 100 },
}).Parse(`<h2>API documentation changes: {{.Analysis.ImpactLevel}} impact</h2>
<p>{{.Analysis.Summary}}</p>
{{- if .IssueURL}}
<p>Tracking issue: <a href="{{.IssueURL}}">{{.IssueURL}}</a></p>
{{- end}}
{{- if .Analysis.AffectedSystems}}
<h3>Affected systems</h3>
<ul>{{range .Analysis.AffectedSystems}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
{{- if .Analysis.Recommendations}}
<h3>Recommendations</h3>
<ol>{{range .Analysis.Recommendations}}<li>{{.}}</li>{{end}}</ol>
{{- end}}
<h3>Changed pages</h3>
<table>
<tr><th>Page</th><th>Added</th><th>Removed</th><th>Similarity</th></tr>
{{- range .Changes}}
<tr><td><a href="{{.URL}}">{{.Name}}</a></td><td>{{.Added}}</td><td>{{.Removed}}</td><td>{{printf "%.0f%%" (percent .Similarity)}}</td></tr>
{{- end}}
</table>
<p><small>run {{.RunID}}</small></p>
`))

type reportData struct {
	RunID    string
	Analysis Analysis
	Changes  []PageChange
	IssueURL string
}

func renderReport(data reportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func subjectFor(a Analysis, changes int) string {
	return fmt.Sprintf("[%s] API documentation changed on %d page(s)", strings.ToUpper(a.ImpactLevel), changes)
}

func issueBody(a Analysis, changes []PageChange, runID string) string {
	var b strings.Builder
	body := strings.TrimSpace(a.GitHubIssueBody)
	if body == "" {
		body = a.Summary
	}
	b.WriteString(body)
	b.WriteString("\n\n### Changed pages\n")
	for _, c := range changes {
		fmt.Fprintf(&b, "- [%s](%s): +%d / -%d lines\n", c.Name, c.URL, c.Added, c.Removed)
	}
	fmt.Fprintf(&b, "\nImpact: **%s**. Monitor run `%s`.\n", a.ImpactLevel, runID)
	return b.String()
}

package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const defaultAPIURL = "https://api.github.com"

// Issue is a new issue to open.
type Issue struct {
	Title  string
	Body   string
	Labels []string
}

// Created describes an opened issue.
type Created struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Client opens issues in one repository.
type Client struct {
	apiURL    string
	repo      string
	token     string
	transport *providers.Transport
}

// NewClient builds a client for repo (owner/name). apiURL defaults to the
// public GitHub API.
func NewClient(apiURL, repo, token string, opts ...providers.TransportOption) *Client {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		apiURL:    apiURL,
		repo:      strings.Trim(strings.TrimSpace(repo), "/"),
		token:     strings.TrimSpace(token),
		transport: providers.NewTransport("github", opts...),
	}
}

// Configured reports whether issues can be filed.
func (c *Client) Configured() bool {
	return c != nil && c.repo != "" && c.token != ""
}

// CreateIssue opens an issue and returns its number and URL.
func (c *Client) CreateIssue(ctx context.Context, issue Issue) (Created, error) {
	var created Created
	if !c.Configured() {
		return created, services.Wrap(services.ErrConfiguration, "github", "create issue", "repository and GITHUB_TOKEN are required", nil)
	}
	if strings.TrimSpace(issue.Title) == "" {
		return created, services.Wrap(services.ErrRejected, "github", "create issue", "title is required", nil)
	}
	labels := issue.Labels
	if labels == nil {
		labels = []string{}
	}
	req := providers.Request{
		Method:    http.MethodPost,
		URL:       fmt.Sprintf("%s/repos/%s/issues", c.apiURL, c.repo),
		Operation: "create issue",
		Body: map[string]any{
			"title":  issue.Title,
			"body":   issue.Body,
			"labels": labels,
		},
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", "Bearer "+c.token)
			r.Header.Set("Accept", "application/vnd.github+json")
			r.Header.Set("X-GitHub-Api-Version", "2022-11-28")
			return nil
		},
	}
	if err := c.transport.DoJSON(ctx, req, &created); err != nil {
		return created, err
	}
	return created, nil
}

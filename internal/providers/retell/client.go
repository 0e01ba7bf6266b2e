package retell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const maxPageLimit = 1000

var resourcePaths = map[providers.Kind]string{
	providers.KindAgents:         "/list-agents",
	providers.KindKnowledgeBases: "/list-knowledge-bases",
	providers.KindLLMConfigs:     "/list-retell-llms",
	providers.KindVoiceConfigs:   "/list-voices",
	providers.KindNumbers:        "/list-phone-numbers",
	providers.KindConcurrency:    "/get-concurrency",
}

// Config holds the adapter settings.
type Config struct {
	APIKey    string
	BaseURL   string
	PageLimit int
	// ToNumbers optionally restricts list-calls to these destination numbers.
	ToNumbers []string
}

// Client implements providers.Adapter for Retell.
type Client struct {
	cfg       Config
	transport *providers.Transport
	source    WorkspaceSource
}

// New constructs a Retell adapter. source may be nil when only the default
// workspace is used.
func New(cfg Config, transport *providers.Transport, source WorkspaceSource) *Client {
	if cfg.PageLimit <= 0 || cfg.PageLimit > maxPageLimit {
		cfg.PageLimit = maxPageLimit
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if transport == nil {
		transport = providers.NewTransport(providers.Retell)
	}
	return &Client{cfg: cfg, transport: transport, source: source}
}

func (c *Client) Name() string { return providers.Retell }

func (c *Client) Kinds() []providers.Kind {
	return []providers.Kind{
		providers.KindCalls,
		providers.KindNumbers,
		providers.KindAgents,
		providers.KindKnowledgeBases,
		providers.KindLLMConfigs,
		providers.KindVoiceConfigs,
		providers.KindConcurrency,
	}
}

// Authenticate resolves the workspace registry.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.Workspaces(ctx)
	return err
}

type listCallsRequest struct {
	Limit          int             `json:"limit"`
	SortOrder      string          `json:"sort_order"`
	PaginationKey  string          `json:"pagination_key,omitempty"`
	FilterCriteria *filterCriteria `json:"filter_criteria,omitempty"`
}

type filterCriteria struct {
	StartTimestamp *threshold `json:"start_timestamp,omitempty"`
	ToNumber       []string   `json:"to_number,omitempty"`
}

type threshold struct {
	LowerThreshold *int64 `json:"lower_threshold,omitempty"`
	UpperThreshold *int64 `json:"upper_threshold,omitempty"`
}

// ListCalls walks every workspace in registry order. The cursor is
// "workspaceIndex|paginationKey"; each page names its workspace as the
// partition so row caps apply per workspace.
func (c *Client) ListCalls(ctx context.Context, q providers.CallQuery) (providers.CallPage, error) {
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return providers.CallPage{}, err
	}
	index, key, err := parseCursor(q.Cursor)
	if err != nil {
		return providers.CallPage{}, services.Wrap(services.ErrRejected, providers.Retell, "list calls", "bad cursor", err)
	}
	if index >= len(workspaces) {
		return providers.CallPage{Exhausted: true}, nil
	}
	ws := workspaces[index]

	limit := c.cfg.PageLimit
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	body := listCallsRequest{Limit: limit, SortOrder: string(providers.Ascending), PaginationKey: key}
	if q.Order == providers.Descending {
		body.SortOrder = string(providers.Descending)
	}
	var filter filterCriteria
	if !q.Since.IsZero() || !q.Until.IsZero() {
		filter.StartTimestamp = &threshold{}
		if !q.Since.IsZero() {
			ms := q.Since.UnixMilli()
			filter.StartTimestamp.LowerThreshold = &ms
		}
		if !q.Until.IsZero() {
			ms := q.Until.UnixMilli()
			filter.StartTimestamp.UpperThreshold = &ms
		}
	}
	if len(c.cfg.ToNumbers) > 0 {
		filter.ToNumber = c.cfg.ToNumbers
	}
	if filter.StartTimestamp != nil || filter.ToNumber != nil {
		body.FilterCriteria = &filter
	}

	var raw []json.RawMessage
	if err := c.do(ctx, ws, http.MethodPost, "/v2/list-calls", body, "list calls", &raw); err != nil {
		return providers.CallPage{}, err
	}

	page := providers.CallPage{Calls: make([]providers.CallRecord, 0, len(raw)), Partition: ws.ID}
	if index+1 < len(workspaces) {
		page.SkipCursor = strconv.Itoa(index+1) + "|"
	}
	for _, item := range raw {
		rec, err := decodeCall(item, ws.ID)
		if err != nil {
			page.Skipped++
			continue
		}
		page.Calls = append(page.Calls, rec)
	}

	nextIndex, nextKey := index, ""
	if len(raw) >= limit && len(page.Calls) > 0 {
		nextKey = page.Calls[len(page.Calls)-1].ExternalID
	} else {
		nextIndex++
	}
	if nextIndex >= len(workspaces) {
		page.Exhausted = true
		return page, nil
	}
	page.NextCursor = strconv.Itoa(nextIndex) + "|" + nextKey
	return page, nil
}

// GetCall fetches call detail, trying the workspace carried by the context
// first. ErrNotFound is returned only when every workspace answers 404.
func (c *Client) GetCall(ctx context.Context, externalID string) (providers.CallRecord, error) {
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return providers.CallRecord{}, err
	}
	path := "/v2/get-call/" + url.PathEscape(externalID)
	hint, _ := services.WorkspaceFromContext(ctx)
	for _, ws := range orderedFor(workspaces, hint) {
		var raw json.RawMessage
		err := c.do(ctx, ws, http.MethodGet, path, nil, "get call", &raw)
		if errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return providers.CallRecord{}, err
		}
		return decodeCall(raw, ws.ID)
	}
	return providers.CallRecord{}, services.Wrap(services.ErrNotFound, providers.Retell, "get call",
		fmt.Sprintf("%s not found in %d workspaces", externalID, len(workspaces)), nil)
}

// ListResources lists kind in every workspace.
func (c *Client) ListResources(ctx context.Context, kind providers.Kind) ([]providers.Resource, error) {
	path, ok := resourcePaths[kind]
	if !ok {
		return nil, services.Wrap(services.ErrUnsupported, providers.Retell, "list resources", string(kind), nil)
	}
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return nil, err
	}
	var out []providers.Resource
	for _, ws := range workspaces {
		op := "list " + string(kind)
		if kind == providers.KindConcurrency {
			var raw json.RawMessage
			if err := c.do(ctx, ws, http.MethodGet, path, nil, op, &raw); err != nil {
				return nil, err
			}
			out = append(out, providers.Resource{
				Kind:        kind,
				ExternalID:  ws.ID,
				Name:        ws.Name,
				WorkspaceID: ws.ID,
				Raw:         tagWorkspace(raw, ws.ID),
			})
			continue
		}
		var items []json.RawMessage
		if err := c.do(ctx, ws, http.MethodGet, path, nil, op, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			res, err := decodeResource(kind, item, ws.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
	}
	return out, nil
}

// GetBalance is not offered by Retell.
func (c *Client) GetBalance(context.Context) (providers.Balance, error) {
	return providers.Balance{}, services.Wrap(services.ErrUnsupported, providers.Retell, "balance", "no balance endpoint", nil)
}

func (c *Client) do(ctx context.Context, ws Workspace, method, path string, body any, op string, out any) error {
	ctx = services.WithWorkspace(ctx, ws.ID)
	return c.transport.DoJSON(ctx, providers.Request{
		Method:    method,
		URL:       c.cfg.BaseURL + path,
		Body:      body,
		Operation: op,
		Header:    http.Header{"Authorization": {"Bearer " + ws.APIKey}},
	}, out)
}

func parseCursor(value string) (int, string, error) {
	if strings.TrimSpace(value) == "" {
		return 0, "", nil
	}
	idx, key, ok := strings.Cut(value, "|")
	if !ok {
		return 0, "", errors.New("expected index|key")
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("bad workspace index %q", idx)
	}
	return n, key, nil
}

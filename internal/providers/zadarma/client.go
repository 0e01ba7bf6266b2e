package zadarma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const (
	pathPBXStats      = "/v1/statistics/pbx/"
	pathBalance       = "/v1/info/balance/"
	pathDirectNumbers = "/v1/direct_numbers/"
	pathSIP           = "/v1/sip/"
	zadarmaTimeLayout = "2006-01-02 15:04:05"
)

var callTypes = []string{"in", "out"}

// Config holds the adapter settings.
type Config struct {
	APIKey          string
	APISecret       string
	BaseURL         string
	MaxWindow       time.Duration
	PageLimit       int
	InitialLookback time.Duration
	Location        *time.Location
}

// Client implements providers.Adapter for Zadarma.
type Client struct {
	cfg       Config
	transport *providers.Transport
	now       func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithClock overrides the time source used for open-ended windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Zadarma adapter.
func New(cfg Config, transport *providers.Transport, opts ...Option) *Client {
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = 30 * 24 * time.Hour
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 1000
	}
	if cfg.InitialLookback <= 0 {
		cfg.InitialLookback = 365 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if transport == nil {
		transport = providers.NewTransport(providers.Zadarma)
	}
	c := &Client{cfg: cfg, transport: transport, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return providers.Zadarma }

func (c *Client) Kinds() []providers.Kind {
	return []providers.Kind{providers.KindCalls, providers.KindNumbers, providers.KindSIPAccounts, providers.KindBalance}
}

// Authenticate verifies that the signing credentials are present.
func (c *Client) Authenticate(context.Context) error {
	var missing []string
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		missing = append(missing, "ZADARMA_API_KEY")
	}
	if strings.TrimSpace(c.cfg.APISecret) == "" {
		missing = append(missing, "ZADARMA_API_SECRET")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, providers.Zadarma, "authenticate", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// ListCalls walks [Since, Until) in sub-windows no wider than MaxWindow,
// fetching inbound then outbound PBX statistics for each with skip paging.
// The cursor is "windowStartUnix|callTypeIndex|skip".
func (c *Client) ListCalls(ctx context.Context, q providers.CallQuery) (providers.CallPage, error) {
	if err := c.Authenticate(ctx); err != nil {
		return providers.CallPage{}, err
	}
	until := q.Until
	if until.IsZero() {
		until = c.now().UTC()
	}
	since := q.Since
	if since.IsZero() {
		since = until.Add(-c.cfg.InitialLookback)
	}
	limit := c.cfg.PageLimit
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}

	pos, err := parseCursor(q.Cursor, since)
	if err != nil {
		return providers.CallPage{}, services.Wrap(services.ErrRejected, providers.Zadarma, "list calls", "bad cursor", err)
	}
	if !pos.windowStart.Before(until) {
		return providers.CallPage{Exhausted: true}, nil
	}
	windowEnd := pos.windowStart.Add(c.cfg.MaxWindow)
	if windowEnd.After(until) {
		windowEnd = until
	}

	params := url.Values{}
	params.Set("start", pos.windowStart.In(c.cfg.Location).Format(zadarmaTimeLayout))
	// Zadarma treats end as inclusive to the second.
	params.Set("end", windowEnd.Add(-time.Second).In(c.cfg.Location).Format(zadarmaTimeLayout))
	params.Set("call_type", callTypes[pos.typeIndex])
	params.Set("skip", strconv.Itoa(pos.skip))
	params.Set("limit", strconv.Itoa(limit))

	var resp pbxStatsResponse
	if err := c.get(ctx, pathPBXStats, params, "list calls", &resp); err != nil {
		return providers.CallPage{}, err
	}

	page := providers.CallPage{Calls: make([]providers.CallRecord, 0, len(resp.Stats))}
	for _, raw := range resp.Stats {
		rec, err := c.decodeCall(raw, callTypes[pos.typeIndex])
		if err != nil {
			page.Skipped++
			continue
		}
		page.Calls = append(page.Calls, rec)
	}

	next := pos
	switch {
	case len(resp.Stats) >= limit:
		next.skip += len(resp.Stats)
	case pos.typeIndex+1 < len(callTypes):
		next.typeIndex++
		next.skip = 0
	default:
		next = cursor{windowStart: windowEnd}
	}
	if !next.windowStart.Before(until) {
		page.Exhausted = true
		return page, nil
	}
	page.NextCursor = next.String()
	return page, nil
}

func (c *Client) decodeCall(raw json.RawMessage, callType string) (providers.CallRecord, error) {
	var stat pbxStat
	if err := json.Unmarshal(raw, &stat); err != nil {
		return providers.CallRecord{}, services.Wrap(services.ErrData, providers.Zadarma, "decode call", "", err)
	}
	rec := providers.CallRecord{
		ExternalID: firstNonEmpty(stat.CallID, stat.PBXCallID),
		FromNumber: scalarString(stat.CLID),
		ToNumber:   scalarString(stat.Destination),
		Status:     strings.ToLower(strings.TrimSpace(stat.Disposition)),
		Raw:        raw,
		Recorded:   truthy(stat.IsRecorded),
	}
	if callType == "in" {
		rec.Direction = providers.DirectionInbound
	} else {
		rec.Direction = providers.DirectionOutbound
	}
	if rec.ExternalID == "" {
		return rec, services.Wrap(services.ErrData, providers.Zadarma, "decode call", "record without call_id", nil)
	}

	started, err := providers.ParseTime(stat.CallStart, c.cfg.Location)
	if err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("callstart", err))
	}
	rec.StartedAt = started

	seconds, err := providers.ParseSeconds(stat.Seconds)
	if err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("seconds", err))
	}
	rec.DurationSeconds = seconds
	if seconds != nil {
		billable := 0
		if rec.Status == "answered" {
			billable = *seconds
		}
		rec.BillableSeconds = &billable
		if started != nil {
			ended := started.Add(time.Duration(*seconds) * time.Second)
			rec.EndedAt = &ended
		}
	}
	providers.FillPhones(&rec)
	return rec, nil
}

// GetCall is not offered by Zadarma; statistics rows are final once listed.
func (c *Client) GetCall(context.Context, string) (providers.CallRecord, error) {
	return providers.CallRecord{}, services.Wrap(services.ErrUnsupported, providers.Zadarma, "get call", "no detail endpoint", nil)
}

// ListResources returns direct numbers or SIP accounts.
func (c *Client) ListResources(ctx context.Context, kind providers.Kind) ([]providers.Resource, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	switch kind {
	case providers.KindNumbers:
		var resp directNumbersResponse
		if err := c.get(ctx, pathDirectNumbers, url.Values{}, "list numbers", &resp); err != nil {
			return nil, err
		}
		out := make([]providers.Resource, 0, len(resp.Info))
		for _, raw := range resp.Info {
			var n directNumber
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, services.Wrap(services.ErrData, providers.Zadarma, "decode number", "", err)
			}
			number := scalarString(n.Number)
			out = append(out, providers.Resource{
				Kind:        kind,
				ExternalID:  number,
				Name:        firstNonEmpty(n.NumberName, n.Description),
				PhoneNumber: number,
				Status:      n.Status,
				Raw:         raw,
			})
		}
		return out, nil
	case providers.KindSIPAccounts:
		var resp sipResponse
		if err := c.get(ctx, pathSIP, url.Values{}, "list sip", &resp); err != nil {
			return nil, err
		}
		out := make([]providers.Resource, 0, len(resp.SIPs))
		for _, raw := range resp.SIPs {
			var s sipAccount
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, services.Wrap(services.ErrData, providers.Zadarma, "decode sip", "", err)
			}
			out = append(out, providers.Resource{
				Kind:       kind,
				ExternalID: scalarString(s.ID),
				Name:       s.DisplayName,
				Status:     "active",
				Raw:        raw,
			})
		}
		return out, nil
	default:
		return nil, services.Wrap(services.ErrUnsupported, providers.Zadarma, "list resources", string(kind), nil)
	}
}

// GetBalance returns the account balance.
func (c *Client) GetBalance(ctx context.Context) (providers.Balance, error) {
	if err := c.Authenticate(ctx); err != nil {
		return providers.Balance{}, err
	}
	var resp balanceResponse
	body, err := c.getRaw(ctx, pathBalance, url.Values{}, "balance", &resp)
	if err != nil {
		return providers.Balance{}, err
	}
	amount, err := providers.ParseAmount(normalizeNumber(resp.Balance))
	if err != nil || amount == nil {
		return providers.Balance{}, services.Wrap(services.ErrData, providers.Zadarma, "balance", "missing amount", err)
	}
	return providers.Balance{Amount: *amount, Currency: strings.ToUpper(resp.Currency), Raw: body}, nil
}

func (c *Client) get(ctx context.Context, method string, params url.Values, op string, out any) error {
	_, err := c.getRaw(ctx, method, params, op, out)
	return err
}

func (c *Client) getRaw(ctx context.Context, method string, params url.Values, op string, out any) (json.RawMessage, error) {
	req := providers.Request{
		Method:    http.MethodGet,
		URL:       c.cfg.BaseURL + method,
		Query:     params,
		Operation: op,
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", AuthorizationHeader(c.cfg.APIKey, c.cfg.APISecret, method, params))
			return nil
		},
	}
	body, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, services.Wrap(services.ErrData, providers.Zadarma, op, "decode envelope", err)
	}
	if err := envelopeError(env, op); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, services.Wrap(services.ErrData, providers.Zadarma, op, "decode response", err)
	}
	return body, nil
}

func envelopeError(env envelope, op string) error {
	if !strings.EqualFold(env.Status, "error") {
		return nil
	}
	msg := strings.TrimSpace(env.Message)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "authoriz"), strings.Contains(lower, "signature"), strings.Contains(lower, "auth"):
		return services.Wrap(services.ErrAuth, providers.Zadarma, op, msg, nil)
	case strings.Contains(lower, "limit"):
		return services.Wrap(services.ErrRateLimited, providers.Zadarma, op, msg, nil)
	default:
		return services.Wrap(services.ErrRejected, providers.Zadarma, op, msg, nil)
	}
}

type cursor struct {
	windowStart time.Time
	typeIndex   int
	skip        int
}

func (c cursor) String() string {
	return fmt.Sprintf("%d|%d|%d", c.windowStart.Unix(), c.typeIndex, c.skip)
}

func parseCursor(value string, since time.Time) (cursor, error) {
	if strings.TrimSpace(value) == "" {
		return cursor{windowStart: since.UTC().Truncate(time.Second)}, nil
	}
	parts := strings.Split(value, "|")
	if len(parts) != 3 {
		return cursor{}, errors.New("expected three fields")
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return cursor{}, err
	}
	typeIndex, err := strconv.Atoi(parts[1])
	if err != nil || typeIndex < 0 || typeIndex >= len(callTypes) {
		return cursor{}, fmt.Errorf("bad call type index %q", parts[1])
	}
	skip, err := strconv.Atoi(parts[2])
	if err != nil || skip < 0 {
		return cursor{}, fmt.Errorf("bad skip %q", parts[2])
	}
	return cursor{windowStart: time.Unix(start, 0).UTC(), typeIndex: typeIndex, skip: skip}, nil
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func normalizeNumber(v any) any {
	if s, ok := v.(string); ok {
		return strings.ReplaceAll(s, ",", "")
	}
	return v
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		return s == "true" || s == "1" || s == "yes"
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

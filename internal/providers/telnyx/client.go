package telnyx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const (
	recordTypeCalls    = "sip-trunking"
	recordTypeMessages = "messaging"
	maxResourcePages   = 200
)

var resourcePaths = map[providers.Kind]string{
	providers.KindNumbers:           "/phone_numbers",
	providers.KindFQDNConnections:   "/fqdn_connections",
	providers.KindOutboundProfiles:  "/outbound_voice_profiles",
	providers.KindMessagingProfiles: "/messaging_profiles",
	providers.KindSIPCredentials:    "/telephony_credentials",
	providers.KindNumberOrders:      "/number_orders",
	providers.KindPortingOrders:     "/porting_orders",
	providers.KindCallerIDs:         "/verified_numbers",
}

// Config holds the adapter settings.
type Config struct {
	APIKey   string
	BaseURL  string
	PageSize int
}

// Client implements providers.Adapter, providers.MessageLister and
// providers.RecordingLister for Telnyx.
type Client struct {
	cfg       Config
	transport *providers.Transport
}

// New constructs a Telnyx adapter.
func New(cfg Config, transport *providers.Transport) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if transport == nil {
		transport = providers.NewTransport(providers.Telnyx)
	}
	return &Client{cfg: cfg, transport: transport}
}

func (c *Client) Name() string { return providers.Telnyx }

func (c *Client) Kinds() []providers.Kind {
	kinds := []providers.Kind{providers.KindCalls, providers.KindMessages, providers.KindRecordings}
	for _, kind := range providers.AllKinds() {
		if _, ok := resourcePaths[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return append(kinds, providers.KindBalance)
}

// Authenticate verifies that the API key is present.
func (c *Client) Authenticate(context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return services.Wrap(services.ErrConfiguration, providers.Telnyx, "authenticate", "missing TELNYX_API_KEY", nil)
	}
	return nil
}

// ListCalls pages sip-trunking detail records.
func (c *Client) ListCalls(ctx context.Context, q providers.CallQuery) (providers.CallPage, error) {
	raw, next, exhausted, err := c.listDetailRecords(ctx, recordTypeCalls, "started_at", q, "list calls")
	if err != nil {
		return providers.CallPage{}, err
	}
	page := providers.CallPage{Calls: make([]providers.CallRecord, 0, len(raw)), NextCursor: next, Exhausted: exhausted}
	for _, item := range raw {
		rec, err := decodeCall(item)
		if err != nil {
			return providers.CallPage{}, err
		}
		page.Calls = append(page.Calls, rec)
	}
	return page, nil
}

// ListMessages pages messaging detail records.
func (c *Client) ListMessages(ctx context.Context, q providers.CallQuery) (providers.MessagePage, error) {
	raw, next, exhausted, err := c.listDetailRecords(ctx, recordTypeMessages, "created_at", q, "list messages")
	if err != nil {
		return providers.MessagePage{}, err
	}
	page := providers.MessagePage{Messages: make([]providers.MessageRecord, 0, len(raw)), NextCursor: next, Exhausted: exhausted}
	for _, item := range raw {
		rec, err := decodeMessage(item)
		if err != nil {
			return providers.MessagePage{}, err
		}
		page.Messages = append(page.Messages, rec)
	}
	return page, nil
}

func (c *Client) listDetailRecords(ctx context.Context, recordType, timeField string, q providers.CallQuery, op string) ([]json.RawMessage, string, bool, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, "", false, err
	}
	params := url.Values{}
	params.Set("filter[record_type]", recordType)
	if !q.Since.IsZero() {
		params.Set("filter["+timeField+"][gte]", q.Since.UTC().Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		params.Set("filter["+timeField+"][lt]", q.Until.UTC().Format(time.RFC3339))
	}
	sort := timeField
	if q.Order == providers.Descending {
		sort = "-" + timeField
	}
	params.Set("sort", sort)
	size := c.cfg.PageSize
	if q.Limit > 0 && q.Limit < size {
		size = q.Limit
	}
	params.Set("page[size]", strconv.Itoa(size))
	if err := applyCursor(params, q.Cursor); err != nil {
		return nil, "", false, services.Wrap(services.ErrRejected, providers.Telnyx, op, "bad cursor", err)
	}

	var resp listResponse
	if err := c.get(ctx, "/detail_records", params, op, &resp); err != nil {
		return nil, "", false, err
	}
	next := resp.nextCursor(q.Cursor)
	return resp.Data, next, next == "", nil
}

// ListRecordings returns every recording created in [since, until).
func (c *Client) ListRecordings(ctx context.Context, since, until time.Time) ([]providers.RecordingRecord, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	base := url.Values{}
	if !since.IsZero() {
		base.Set("filter[created_at][gte]", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		base.Set("filter[created_at][lt]", until.UTC().Format(time.RFC3339))
	}
	var out []providers.RecordingRecord
	err := c.walk(ctx, "/recordings", base, "list recordings", func(item json.RawMessage) error {
		rec, err := decodeRecording(item)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// GetCall is not offered for detail records.
func (c *Client) GetCall(context.Context, string) (providers.CallRecord, error) {
	return providers.CallRecord{}, services.Wrap(services.ErrUnsupported, providers.Telnyx, "get call", "detail records are immutable", nil)
}

// ListResources returns every object of a routing or account resource kind.
func (c *Client) ListResources(ctx context.Context, kind providers.Kind) ([]providers.Resource, error) {
	path, ok := resourcePaths[kind]
	if !ok {
		return nil, services.Wrap(services.ErrUnsupported, providers.Telnyx, "list resources", string(kind), nil)
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	var out []providers.Resource
	err := c.walk(ctx, path, url.Values{}, "list "+string(kind), func(item json.RawMessage) error {
		res, err := decodeResource(kind, item)
		if err != nil {
			return err
		}
		out = append(out, res)
		return nil
	})
	return out, err
}

// GetBalance returns the account balance.
func (c *Client) GetBalance(ctx context.Context) (providers.Balance, error) {
	if err := c.Authenticate(ctx); err != nil {
		return providers.Balance{}, err
	}
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/balance", nil, "balance", &resp); err != nil {
		return providers.Balance{}, err
	}
	var data struct {
		Balance  any    `json:"balance"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return providers.Balance{}, services.Wrap(services.ErrData, providers.Telnyx, "balance", "decode balance", err)
	}
	amount, err := providers.ParseAmount(data.Balance)
	if err != nil || amount == nil {
		return providers.Balance{}, services.Wrap(services.ErrData, providers.Telnyx, "balance", "missing amount", err)
	}
	return providers.Balance{Amount: *amount, Currency: strings.ToUpper(data.Currency), Raw: resp.Data}, nil
}

// walk pages a list endpoint until its cursor is empty or repeats.
func (c *Client) walk(ctx context.Context, path string, base url.Values, op string, visit func(json.RawMessage) error) error {
	cursor := ""
	for page := 0; page < maxResourcePages; page++ {
		params := url.Values{}
		for k, v := range base {
			params[k] = append([]string(nil), v...)
		}
		params.Set("page[size]", strconv.Itoa(c.cfg.PageSize))
		if err := applyCursor(params, cursor); err != nil {
			return services.Wrap(services.ErrRejected, providers.Telnyx, op, "bad cursor", err)
		}
		var resp listResponse
		if err := c.get(ctx, path, params, op, &resp); err != nil {
			return err
		}
		for _, item := range resp.Data {
			if err := visit(item); err != nil {
				return err
			}
		}
		next := resp.nextCursor(cursor)
		if next == "" || len(resp.Data) == 0 {
			return nil
		}
		cursor = next
	}
	return services.Wrap(services.ErrData, providers.Telnyx, op, "pagination did not terminate", nil)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, op string, out any) error {
	return c.transport.DoJSON(ctx, providers.Request{
		Method:    http.MethodGet,
		URL:       c.cfg.BaseURL + path,
		Query:     params,
		Operation: op,
		Header:    http.Header{"Authorization": {"Bearer " + c.cfg.APIKey}},
	}, out)
}

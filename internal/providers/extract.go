package providers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Alternate raw_data keys searched when a provider leaves the top-level phone
// fields empty. Nested containers are searched after the top level.
var (
	fromKeys         = []string{"from_number", "from", "cli", "caller_number", "caller_id", "clid"}
	toKeys           = []string{"to_number", "to", "cld", "called_number", "destination", "destination_number"}
	nestedContainers = []string{"metadata", "retell_llm_dynamic_variables", "customer", "telephony_identifier"}
)

// PhonesFromRaw extracts from/to numbers from a raw provider payload using the
// alternate key list. Empty strings mean the value is genuinely absent.
func PhonesFromRaw(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", ""
	}
	from := lookupPhone(doc, fromKeys)
	to := lookupPhone(doc, toKeys)
	return from, to
}

func lookupPhone(doc map[string]any, keys []string) string {
	if v := firstString(doc, keys...); v != "" {
		return v
	}
	for _, container := range nestedContainers {
		nested, ok := doc[container].(map[string]any)
		if !ok {
			continue
		}
		if v := firstString(nested, keys...); v != "" {
			return v
		}
	}
	return ""
}

func firstString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// FillPhones applies PhonesFromRaw to a call whose top-level numbers are empty.
func FillPhones(rec *CallRecord) {
	if rec.FromNumber != "" && rec.ToNumber != "" {
		return
	}
	from, to := PhonesFromRaw(rec.Raw)
	if rec.FromNumber == "" {
		rec.FromNumber = from
	}
	if rec.ToNumber == "" {
		rec.ToNumber = to
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07",
}

// ParseTime parses provider timestamps: RFC 3339 strings, naive timestamps in
// loc, or epoch numbers in seconds or milliseconds. Empty input yields nil.
func ParseTime(value any, loc *time.Location) (*time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "0000-00-00 00:00:00" {
			return nil, nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epoch(n)
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				utc := t.UTC()
				return &utc, nil
			}
		}
		return nil, fmt.Errorf("unparseable timestamp %q", s)
	case float64:
		return epoch(v)
	case int64:
		return epoch(float64(v))
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable timestamp %q", v)
		}
		return epoch(n)
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func epoch(n float64) (*time.Time, error) {
	if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("impossible epoch %v", n)
	}
	var t time.Time
	if n > 1e11 {
		t = time.UnixMilli(int64(n)).UTC()
	} else {
		t = time.Unix(int64(n), 0).UTC()
	}
	return &t, nil
}

// ParseSeconds parses a non-negative duration in seconds. Empty input yields nil.
func ParseSeconds(value any) (*int, error) {
	var n float64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable duration %q", s)
		}
		n = parsed
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return nil, fmt.Errorf("unsupported duration type %T", value)
	}
	if n < 0 || math.IsNaN(n) || n > 7*24*3600 {
		return nil, fmt.Errorf("impossible duration %v", n)
	}
	seconds := int(math.Round(n))
	return &seconds, nil
}

// ParseAmount parses a money amount. Empty input yields nil.
func ParseAmount(value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable amount %q", s)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unsupported amount type %T", value)
	}
}

// NormalizeDirection maps provider direction vocabularies to inbound/outbound.
func NormalizeDirection(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "inbound", "incoming", "in", "received":
		return DirectionInbound
	case "outbound", "outgoing", "out", "sent":
		return DirectionOutbound
	default:
		return DirectionUnknown
	}
}

// DataErrorf formats a field-level data error message.
func DataErrorf(field string, err error) string {
	return field + ": " + err.Error()
}

package telnyx

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const (
	cursorAfter = "after:"
	cursorPage  = "page:"
)

type listResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta struct {
		PageNumber int `json:"page_number"`
		TotalPages int `json:"total_pages"`
		Cursors    struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"meta"`
}

// nextCursor prefers an opaque after-cursor over page numbers and returns ""
// when the listing is exhausted or the provider repeats the current cursor.
func (r listResponse) nextCursor(current string) string {
	var next string
	switch {
	case r.Meta.Cursors.After != "":
		next = cursorAfter + r.Meta.Cursors.After
	case r.Meta.TotalPages > 0 && r.Meta.PageNumber < r.Meta.TotalPages:
		next = cursorPage + strconv.Itoa(r.Meta.PageNumber+1)
	}
	if next == current || len(r.Data) == 0 {
		return ""
	}
	return next
}

func applyCursor(params map[string][]string, cursor string) error {
	switch {
	case cursor == "":
		return nil
	case strings.HasPrefix(cursor, cursorAfter):
		params["page[after]"] = []string{strings.TrimPrefix(cursor, cursorAfter)}
		return nil
	case strings.HasPrefix(cursor, cursorPage):
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, cursorPage))
		if err != nil || n < 1 {
			return errors.New("invalid page number")
		}
		params["page[number]"] = []string{strconv.Itoa(n)}
		return nil
	default:
		return errors.New("unknown cursor form")
	}
}

type detailRecord struct {
	ID          string `json:"id"`
	UUID        string `json:"uuid"`
	CallLegID   string `json:"call_leg_id"`
	Direction   string `json:"direction"`
	CLI         string `json:"cli"`
	CLD         string `json:"cld"`
	From        string `json:"from"`
	To          string `json:"to"`
	Status      string `json:"status"`
	HangupCause string `json:"hangup_cause"`
	StartedAt   any    `json:"started_at"`
	AnsweredAt  any    `json:"answered_at"`
	EndedAt     any    `json:"ended_at"`
	CreatedAt   any    `json:"created_at"`
	SentAt      any    `json:"sent_at"`
	CallSec     any    `json:"call_sec"`
	BilledSec   any    `json:"billed_sec"`
	Cost        any    `json:"cost"`
	Currency    string `json:"currency"`
	Parts       any    `json:"parts"`
	Text        string `json:"text"`
}

func (d detailRecord) externalID() string {
	for _, v := range []string{d.ID, d.UUID, d.CallLegID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func decodeCall(raw json.RawMessage) (providers.CallRecord, error) {
	var d detailRecord
	if err := json.Unmarshal(raw, &d); err != nil {
		return providers.CallRecord{}, services.Wrap(services.ErrData, providers.Telnyx, "decode call", "", err)
	}
	rec := providers.CallRecord{
		ExternalID: d.externalID(),
		Direction:  providers.NormalizeDirection(d.Direction),
		FromNumber: firstNonEmpty(d.CLI, d.From),
		ToNumber:   firstNonEmpty(d.CLD, d.To),
		Status:     strings.ToLower(firstNonEmpty(d.Status, d.HangupCause)),
		Currency:   strings.ToUpper(d.Currency),
		Raw:        raw,
	}
	if rec.ExternalID == "" {
		return rec, services.Wrap(services.ErrData, providers.Telnyx, "decode call", "record without id", nil)
	}
	var err error
	if rec.StartedAt, err = providers.ParseTime(d.StartedAt, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("started_at", err))
	}
	if rec.AnsweredAt, err = providers.ParseTime(d.AnsweredAt, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("answered_at", err))
	}
	if rec.EndedAt, err = providers.ParseTime(d.EndedAt, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("ended_at", err))
	}
	if rec.DurationSeconds, err = providers.ParseSeconds(d.CallSec); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("call_sec", err))
	}
	if rec.BillableSeconds, err = providers.ParseSeconds(d.BilledSec); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("billed_sec", err))
	}
	if rec.Cost, err = providers.ParseAmount(d.Cost); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("cost", err))
	}
	providers.FillPhones(&rec)
	return rec, nil
}

func decodeMessage(raw json.RawMessage) (providers.MessageRecord, error) {
	var d detailRecord
	if err := json.Unmarshal(raw, &d); err != nil {
		return providers.MessageRecord{}, services.Wrap(services.ErrData, providers.Telnyx, "decode message", "", err)
	}
	rec := providers.MessageRecord{
		ExternalID: d.externalID(),
		Direction:  providers.NormalizeDirection(d.Direction),
		FromNumber: firstNonEmpty(d.CLI, d.From),
		ToNumber:   firstNonEmpty(d.CLD, d.To),
		Body:       d.Text,
		Status:     strings.ToLower(d.Status),
		Currency:   strings.ToUpper(d.Currency),
		Raw:        raw,
	}
	if rec.ExternalID == "" {
		return rec, services.Wrap(services.ErrData, providers.Telnyx, "decode message", "record without id", nil)
	}
	sent := d.SentAt
	if sent == nil {
		sent = d.CreatedAt
	}
	var err error
	if rec.SentAt, err = providers.ParseTime(sent, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("sent_at", err))
	}
	if rec.Segments, err = providers.ParseSeconds(d.Parts); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("parts", err))
	}
	if rec.Cost, err = providers.ParseAmount(d.Cost); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("cost", err))
	}
	return rec, nil
}

type recording struct {
	ID             string            `json:"id"`
	CallLegID      string            `json:"call_leg_id"`
	CallSessionID  string            `json:"call_session_id"`
	DurationMillis any               `json:"duration_millis"`
	CreatedAt      any               `json:"created_at"`
	RecordingURLs  map[string]string `json:"recording_urls"`
	DownloadURLs   map[string]string `json:"download_urls"`
}

func decodeRecording(raw json.RawMessage) (providers.RecordingRecord, error) {
	var r recording
	if err := json.Unmarshal(raw, &r); err != nil {
		return providers.RecordingRecord{}, services.Wrap(services.ErrData, providers.Telnyx, "decode recording", "", err)
	}
	if strings.TrimSpace(r.ID) == "" {
		return providers.RecordingRecord{}, services.Wrap(services.ErrData, providers.Telnyx, "decode recording", "recording without id", nil)
	}
	rec := providers.RecordingRecord{
		ExternalID:     r.ID,
		CallExternalID: firstNonEmpty(r.CallLegID, r.CallSessionID),
		URL:            firstNonEmpty(r.RecordingURLs["mp3"], r.RecordingURLs["wav"], r.DownloadURLs["mp3"], r.DownloadURLs["wav"]),
		Raw:            raw,
	}
	rec.CreatedAt, _ = providers.ParseTime(r.CreatedAt, nil)
	if millis, err := providers.ParseAmount(r.DurationMillis); err == nil && millis != nil {
		seconds := int(*millis+500) / 1000
		rec.DurationSeconds = &seconds
	}
	return rec, nil
}

func decodeResource(kind providers.Kind, raw json.RawMessage) (providers.Resource, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return providers.Resource{}, services.Wrap(services.ErrData, providers.Telnyx, "decode "+string(kind), "", err)
	}
	res := providers.Resource{
		Kind:        kind,
		ExternalID:  stringField(doc, "id", "phone_number"),
		Name:        stringField(doc, "name", "connection_name", "sip_username", "customer_reference"),
		PhoneNumber: stringField(doc, "phone_number"),
		Status:      statusField(doc),
		Raw:         raw,
	}
	if res.ExternalID == "" {
		return res, services.Wrap(services.ErrData, providers.Telnyx, "decode "+string(kind), "resource without id", nil)
	}
	res.UpdatedAt, _ = providers.ParseTime(doc["updated_at"], nil)
	return res, nil
}

func stringField(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := doc[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// statusField reads "status" as a string or {"value": ...} object, falling back
// to the active/enabled booleans some resources expose instead.
func statusField(doc map[string]any) string {
	switch v := doc["status"].(type) {
	case string:
		return strings.ToLower(v)
	case map[string]any:
		if s, ok := v["value"].(string); ok {
			return strings.ToLower(s)
		}
	}
	for _, key := range []string{"active", "enabled"} {
		if b, ok := doc[key].(bool); ok {
			if b {
				return "active"
			}
			return "inactive"
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

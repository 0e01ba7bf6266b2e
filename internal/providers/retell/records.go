package retell

import (
	"encoding/json"
	"math"
	"strings"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

type call struct {
	CallID              string          `json:"call_id"`
	CallType            string          `json:"call_type"`
	AgentID             string          `json:"agent_id"`
	AgentName           string          `json:"agent_name"`
	CallStatus          string          `json:"call_status"`
	Direction           string          `json:"direction"`
	FromNumber          string          `json:"from_number"`
	ToNumber            string          `json:"to_number"`
	StartTimestamp      any             `json:"start_timestamp"`
	EndTimestamp        any             `json:"end_timestamp"`
	DurationMS          any             `json:"duration_ms"`
	Transcript          string          `json:"transcript"`
	RecordingURL        string          `json:"recording_url"`
	DisconnectionReason string          `json:"disconnection_reason"`
	CallAnalysis        *callAnalysis   `json:"call_analysis"`
	CallCost            *callCost       `json:"call_cost"`
	Metadata            json.RawMessage `json:"metadata"`
}

type callAnalysis struct {
	CallSummary        string          `json:"call_summary"`
	UserSentiment      string          `json:"user_sentiment"`
	CallSuccessful     *bool           `json:"call_successful"`
	InVoicemail        *bool           `json:"in_voicemail"`
	CustomAnalysisData json.RawMessage `json:"custom_analysis_data"`
}

type callCost struct {
	CombinedCost any `json:"combined_cost"`
}

func decodeCall(raw json.RawMessage, workspaceID string) (providers.CallRecord, error) {
	var c call
	if err := json.Unmarshal(raw, &c); err != nil {
		return providers.CallRecord{}, services.Wrap(services.ErrData, providers.Retell, "decode call", "", err)
	}
	if strings.TrimSpace(c.CallID) == "" {
		return providers.CallRecord{}, services.Wrap(services.ErrData, providers.Retell, "decode call", "call without call_id", nil)
	}
	rec := providers.CallRecord{
		ExternalID:   c.CallID,
		Direction:    providers.NormalizeDirection(c.Direction),
		FromNumber:   strings.TrimSpace(c.FromNumber),
		ToNumber:     strings.TrimSpace(c.ToNumber),
		Status:       strings.ToLower(c.CallStatus),
		Transcript:   c.Transcript,
		AgentID:      c.AgentID,
		AgentName:    c.AgentName,
		RecordingURL: c.RecordingURL,
		WorkspaceID:  workspaceID,
		Raw:          tagWorkspace(raw, workspaceID),
	}
	var err error
	if rec.StartedAt, err = providers.ParseTime(c.StartTimestamp, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("start_timestamp", err))
	}
	if rec.EndedAt, err = providers.ParseTime(c.EndTimestamp, nil); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("end_timestamp", err))
	}
	if ms, err := providers.ParseAmount(c.DurationMS); err != nil {
		rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("duration_ms", err))
	} else if ms != nil {
		if rec.DurationSeconds, err = providers.ParseSeconds(math.Round(*ms / 1000)); err != nil {
			rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("duration_ms", err))
		}
		rec.BillableSeconds = rec.DurationSeconds
	}
	if rec.DurationSeconds == nil && rec.StartedAt != nil && rec.EndedAt != nil && !rec.EndedAt.Before(*rec.StartedAt) {
		seconds := int(rec.EndedAt.Sub(*rec.StartedAt).Seconds())
		rec.DurationSeconds = &seconds
	}
	if c.CallCost != nil {
		cents, err := providers.ParseAmount(c.CallCost.CombinedCost)
		if err != nil {
			rec.DataErrors = append(rec.DataErrors, providers.DataErrorf("call_cost", err))
		} else if cents != nil {
			dollars := *cents / 100
			rec.Cost = &dollars
			rec.Currency = "USD"
		}
	}
	if a := c.CallAnalysis; a != nil {
		rec.Analysis = &providers.CallAnalysis{
			Summary:     a.CallSummary,
			Sentiment:   a.UserSentiment,
			Successful:  a.CallSuccessful,
			InVoicemail: a.InVoicemail,
			Custom:      a.CustomAnalysisData,
		}
	}
	providers.FillPhones(&rec)
	return rec, nil
}

var resourceKeys = map[providers.Kind]struct {
	id   []string
	name []string
}{
	providers.KindAgents:         {id: []string{"agent_id"}, name: []string{"agent_name"}},
	providers.KindKnowledgeBases: {id: []string{"knowledge_base_id"}, name: []string{"knowledge_base_name"}},
	providers.KindLLMConfigs:     {id: []string{"llm_id"}, name: []string{"model", "general_prompt"}},
	providers.KindVoiceConfigs:   {id: []string{"voice_id"}, name: []string{"voice_name"}},
	providers.KindNumbers:        {id: []string{"phone_number"}, name: []string{"nickname", "phone_number_pretty"}},
}

func decodeResource(kind providers.Kind, raw json.RawMessage, workspaceID string) (providers.Resource, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return providers.Resource{}, services.Wrap(services.ErrData, providers.Retell, "decode "+string(kind), "", err)
	}
	keys := resourceKeys[kind]
	res := providers.Resource{
		Kind:        kind,
		ExternalID:  stringField(doc, keys.id...),
		Name:        stringField(doc, keys.name...),
		Status:      stringField(doc, "status"),
		WorkspaceID: workspaceID,
		Raw:         tagWorkspace(raw, workspaceID),
	}
	if res.ExternalID == "" {
		return res, services.Wrap(services.ErrData, providers.Retell, "decode "+string(kind), "resource without id", nil)
	}
	if kind == providers.KindNumbers {
		res.PhoneNumber = res.ExternalID
	}
	if runes := []rune(res.Name); len(runes) > 120 {
		res.Name = string(runes[:120])
	}
	res.UpdatedAt, _ = providers.ParseTime(doc["last_modification_timestamp"], nil)
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

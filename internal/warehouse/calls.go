package warehouse

import (
	"context"
	"fmt"

	"telcosync/internal/providers"
)

var callUpsert = upsertSpec{
	table:    "telco.calls",
	conflict: []string{"provider_id", "external_call_id"},
	columns: []column{
		{"direction", mergeDirection},
		{"from_number", mergeNonEmpty},
		{"to_number", mergeNonEmpty},
		{"status", mergeNonEmpty},
		{"started_at", mergeCoalesce},
		{"answered_at", mergeCoalesce},
		{"ended_at", mergeCoalesce},
		{"duration_seconds", mergeCoalesce},
		{"billable_seconds", mergeCoalesce},
		{"cost", mergeCoalesce},
		{"currency", mergeNonEmpty},
		{"transcript", mergeNonEmpty},
		{"agent_id", mergeNonEmpty},
		{"agent_name", mergeNonEmpty},
		{"recording_url", mergeNonEmpty},
		{"has_recording", mergeSticky},
		{"workspace_id", mergeNonEmpty},
		{"data_errors", mergeReplace},
		{"raw_data", mergeCoalesce},
	},
	resets: []string{"tombstoned = false", "tombstoned_at = NULL"},
	dirty:  []string{"t.tombstoned"},
}

var callUpsertSQL = callUpsert.sql()

// UpsertCall merges one call record into telco.calls. A tombstoned row that
// is seen again is revived with its merged data.
func (s *Store) UpsertCall(ctx context.Context, providerID int32, rec providers.CallRecord) (Outcome, error) {
	direction := rec.Direction
	if direction == "" {
		direction = providers.DirectionUnknown
	}
	outcome, err := s.runUpsert(ctx, callUpsertSQL,
		providerID,
		rec.ExternalID,
		direction,
		nullableString(rec.FromNumber),
		nullableString(rec.ToNumber),
		nullableString(rec.Status),
		nullableTime(rec.StartedAt),
		nullableTime(rec.AnsweredAt),
		nullableTime(rec.EndedAt),
		nullableInt(rec.DurationSeconds),
		nullableInt(rec.BillableSeconds),
		nullableFloat(rec.Cost),
		nullableString(rec.Currency),
		nullableString(rec.Transcript),
		nullableString(rec.AgentID),
		nullableString(rec.AgentName),
		nullableString(rec.RecordingURL),
		rec.HasRecording(),
		nullableString(rec.WorkspaceID),
		nullableStrings(rec.DataErrors),
		nullableJSON(rec.Raw),
	)
	if err != nil {
		return outcome, fmt.Errorf("upsert call %s: %w", rec.ExternalID, err)
	}
	return outcome, nil
}

const callAnalysisUpsertSQL = `INSERT INTO telco.call_analysis AS t (call_id, call_summary, sentiment, successful, in_voicemail, custom_data)
SELECT c.id, $3, $4, $5, $6, $7
FROM telco.calls c
WHERE c.provider_id = $1 AND c.external_call_id = $2
ON CONFLICT (call_id) DO UPDATE SET
    call_summary = COALESCE(NULLIF(EXCLUDED.call_summary, ''), t.call_summary),
    sentiment = COALESCE(NULLIF(EXCLUDED.sentiment, ''), t.sentiment),
    successful = COALESCE(EXCLUDED.successful, t.successful),
    in_voicemail = COALESCE(EXCLUDED.in_voicemail, t.in_voicemail),
    custom_data = COALESCE(EXCLUDED.custom_data, t.custom_data),
    updated_at = now()
WHERE (t.call_summary, t.sentiment, t.successful, t.in_voicemail, t.custom_data) IS DISTINCT FROM
    (COALESCE(NULLIF(EXCLUDED.call_summary, ''), t.call_summary), COALESCE(NULLIF(EXCLUDED.sentiment, ''), t.sentiment),
     COALESCE(EXCLUDED.successful, t.successful), COALESCE(EXCLUDED.in_voicemail, t.in_voicemail),
     COALESCE(EXCLUDED.custom_data, t.custom_data))`

// UpsertCallAnalysis stores provider-native post-call analysis for a call
// already present in telco.calls.
func (s *Store) UpsertCallAnalysis(ctx context.Context, providerID int32, externalID string, analysis providers.CallAnalysis) error {
	var successful, voicemail any
	if analysis.Successful != nil {
		successful = *analysis.Successful
	}
	if analysis.InVoicemail != nil {
		voicemail = *analysis.InVoicemail
	}
	_, err := s.db.Exec(ctx, callAnalysisUpsertSQL,
		providerID,
		externalID,
		nullableString(analysis.Summary),
		nullableString(analysis.Sentiment),
		successful,
		voicemail,
		nullableJSON(analysis.Custom),
	)
	if err != nil {
		return fmt.Errorf("upsert call analysis %s: %w", externalID, err)
	}
	return nil
}

// BackfillCandidate is a call row whose phone columns are both empty.
type BackfillCandidate struct {
	ID          int64
	ExternalID  string
	WorkspaceID string
}

// CallsMissingPhones lists live calls of a provider with neither phone set.
func (s *Store) CallsMissingPhones(ctx context.Context, providerID int32, limit int) ([]BackfillCandidate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, external_call_id, COALESCE(workspace_id, raw_data->>'workspace_id', '')
        FROM telco.calls
        WHERE provider_id = $1 AND from_number IS NULL AND to_number IS NULL AND NOT tombstoned
        ORDER BY id
        LIMIT $2`, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query backfill candidates: %w", err)
	}
	defer rows.Close()

	var out []BackfillCandidate
	for rows.Next() {
		var c BackfillCandidate
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.WorkspaceID); err != nil {
			return nil, fmt.Errorf("scan backfill candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkTombstoned flags a call whose detail the provider no longer retains.
// The row and its data are kept.
func (s *Store) MarkTombstoned(ctx context.Context, callID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE telco.calls
        SET tombstoned = true, tombstoned_at = now(), updated_at = now()
        WHERE id = $1 AND NOT tombstoned`, callID)
	if err != nil {
		return false, fmt.Errorf("tombstone call %d: %w", callID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CalledTails returns the last nine digits of every number we have dialled.
func (s *Store) CalledTails(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
        SELECT DISTINCT right(regexp_replace(to_number, '[^0-9]', '', 'g'), 9)
        FROM telco.calls
        WHERE direction <> 'inbound' AND to_number IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query called numbers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tail string
		if err := rows.Scan(&tail); err != nil {
			return nil, fmt.Errorf("scan called number: %w", err)
		}
		if tail != "" {
			out = append(out, tail)
		}
	}
	return out, rows.Err()
}

package warehouse

import (
	"context"
	"fmt"

	"telcosync/internal/providers"
)

var messageUpsertSQL = upsertSpec{
	table:    "telco.messages",
	conflict: []string{"provider_id", "external_message_id"},
	columns: []column{
		{"direction", mergeDirection},
		{"from_number", mergeNonEmpty},
		{"to_number", mergeNonEmpty},
		{"body", mergeNonEmpty},
		{"status", mergeNonEmpty},
		{"segments", mergeCoalesce},
		{"sent_at", mergeCoalesce},
		{"cost", mergeCoalesce},
		{"currency", mergeNonEmpty},
		{"data_errors", mergeReplace},
		{"raw_data", mergeCoalesce},
	},
}.sql()

var recordingUpsertSQL = upsertSpec{
	table:    "telco.recordings",
	conflict: []string{"provider_id", "external_recording_id"},
	columns: []column{
		{"external_call_id", mergeNonEmpty},
		{"url", mergeNonEmpty},
		{"duration_seconds", mergeCoalesce},
		{"recorded_at", mergeCoalesce},
		{"raw_data", mergeCoalesce},
	},
}.sql()

// UpsertMessage merges one SMS/MMS record into telco.messages.
func (s *Store) UpsertMessage(ctx context.Context, providerID int32, rec providers.MessageRecord) (Outcome, error) {
	direction := rec.Direction
	if direction == "" {
		direction = providers.DirectionUnknown
	}
	outcome, err := s.runUpsert(ctx, messageUpsertSQL,
		providerID,
		rec.ExternalID,
		direction,
		nullableString(rec.FromNumber),
		nullableString(rec.ToNumber),
		nullableString(rec.Body),
		nullableString(rec.Status),
		nullableInt(rec.Segments),
		nullableTime(rec.SentAt),
		nullableFloat(rec.Cost),
		nullableString(rec.Currency),
		nullableStrings(rec.DataErrors),
		nullableJSON(rec.Raw),
	)
	if err != nil {
		return outcome, fmt.Errorf("upsert message %s: %w", rec.ExternalID, err)
	}
	return outcome, nil
}

// UpsertRecording merges one detached recording into telco.recordings.
func (s *Store) UpsertRecording(ctx context.Context, providerID int32, rec providers.RecordingRecord) (Outcome, error) {
	outcome, err := s.runUpsert(ctx, recordingUpsertSQL,
		providerID,
		rec.ExternalID,
		nullableString(rec.CallExternalID),
		nullableString(rec.URL),
		nullableInt(rec.DurationSeconds),
		nullableTime(rec.CreatedAt),
		nullableJSON(rec.Raw),
	)
	if err != nil {
		return outcome, fmt.Errorf("upsert recording %s: %w", rec.ExternalID, err)
	}
	return outcome, nil
}

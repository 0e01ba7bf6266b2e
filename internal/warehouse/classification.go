package warehouse

import (
	"context"
	"fmt"
	"time"
)

// ClassificationCandidate is a call with text worth classifying.
type ClassificationCandidate struct {
	CallID     int64
	Transcript string
	Summary    string
	Sentiment  string
}

// Classification is one telco.call_classification row.
type Classification struct {
	CallID             int64
	IsDNC              bool
	DNCReason          string
	CallbackRequested  bool
	Hostile            bool
	VoicemailFull      bool
	RequiresEscalation bool
	ContactStatus      string
	LeadStatus         string
	LeadScore          int
	Sentiment          string
	Summary            string
	Flags              []string
	Method             string
	TaxonomyVersion    string
}

// CallsToClassify returns up to limit calls with id greater than afterID that
// carry a transcript or a provider summary. Tombstoned calls are excluded.
// Without reanalyze only unclassified calls, or calls changed since their
// last classification, are returned.
func (s *Store) CallsToClassify(ctx context.Context, afterID int64, limit int, reanalyze bool) ([]ClassificationCandidate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT c.id, COALESCE(c.transcript, ''), COALESCE(a.call_summary, ''), COALESCE(a.sentiment, '')
        FROM telco.calls c
        LEFT JOIN telco.call_analysis a ON a.call_id = c.id
        LEFT JOIN telco.call_classification cc ON cc.call_id = c.id
        WHERE c.id > $1
          AND NOT c.tombstoned
          AND (NULLIF(c.transcript, '') IS NOT NULL OR NULLIF(a.call_summary, '') IS NOT NULL)
          AND ($3 OR cc.call_id IS NULL OR cc.analyzed_at < c.updated_at OR cc.analyzed_at < a.updated_at)
        ORDER BY c.id
        LIMIT $2`, afterID, limit, reanalyze)
	if err != nil {
		return nil, fmt.Errorf("query calls to classify: %w", err)
	}
	defer rows.Close()

	var out []ClassificationCandidate
	for rows.Next() {
		var c ClassificationCandidate
		if err := rows.Scan(&c.CallID, &c.Transcript, &c.Summary, &c.Sentiment); err != nil {
			return nil, fmt.Errorf("scan call to classify: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertClassification replaces the classification of a call in full and
// refreshes analyzed_at.
func (s *Store) UpsertClassification(ctx context.Context, c Classification, analyzedAt time.Time) error {
	flags := c.Flags
	if flags == nil {
		flags = []string{}
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO telco.call_classification (
            call_id, is_dnc, dnc_reason, callback_requested, hostile, voicemail_full, requires_escalation,
            contact_status, lead_status, lead_score, sentiment, call_summary, flags_detected, method,
            taxonomy_version, analyzed_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (call_id) DO UPDATE SET
            is_dnc = EXCLUDED.is_dnc,
            dnc_reason = EXCLUDED.dnc_reason,
            callback_requested = EXCLUDED.callback_requested,
            hostile = EXCLUDED.hostile,
            voicemail_full = EXCLUDED.voicemail_full,
            requires_escalation = EXCLUDED.requires_escalation,
            contact_status = EXCLUDED.contact_status,
            lead_status = EXCLUDED.lead_status,
            lead_score = EXCLUDED.lead_score,
            sentiment = EXCLUDED.sentiment,
            call_summary = EXCLUDED.call_summary,
            flags_detected = EXCLUDED.flags_detected,
            method = EXCLUDED.method,
            taxonomy_version = EXCLUDED.taxonomy_version,
            analyzed_at = EXCLUDED.analyzed_at`,
		c.CallID, c.IsDNC, nullableString(c.DNCReason), c.CallbackRequested, c.Hostile, c.VoicemailFull,
		c.RequiresEscalation, c.ContactStatus, c.LeadStatus, c.LeadScore, nullableString(c.Sentiment),
		nullableString(c.Summary), flags, c.Method, nullableString(c.TaxonomyVersion), analyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert classification for call %d: %w", c.CallID, err)
	}
	return nil
}

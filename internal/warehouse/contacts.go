package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"telcosync/internal/services"
)

// AggregateResult counts the contacts rows touched by an aggregation pass.
type AggregateResult struct {
	Inserted int64
	Updated  int64
}

const aggregateSQL = `
WITH grouped AS (
    SELECT
        telco.contact_phone(c.from_number, c.to_number) AS phone,
        count(*) FILTER (WHERE p.name = 'zadarma') AS zadarma_calls,
        count(*) FILTER (WHERE p.name = 'telnyx') AS telnyx_calls,
        count(*) FILTER (WHERE p.name = 'retell') AS retell_calls,
        count(*) AS total_calls,
        min(c.started_at) AS first_call_at,
        max(c.started_at) AS last_call_at,
        bool_or(c.direction = 'inbound') AS any_inbound,
        bool_or(c.direction = 'outbound') AS any_outbound
    FROM telco.calls c
    JOIN telco.providers p ON p.id = c.provider_id
    GROUP BY 1
),
upserted AS (
    INSERT INTO telco.contacts AS t (
        phone_normalized, phone_display, contact_type, zadarma_calls, telnyx_calls, retell_calls,
        total_calls, first_call_at, last_call_at
    )
    SELECT
        phone,
        telco.format_phone_display(phone),
        CASE WHEN any_inbound THEN 'customer' WHEN any_outbound THEN 'prospect' ELSE 'unknown' END,
        zadarma_calls, telnyx_calls, retell_calls, total_calls, first_call_at, last_call_at
    FROM grouped
    WHERE phone IS NOT NULL
    ON CONFLICT (phone_normalized) DO UPDATE SET
        phone_display = EXCLUDED.phone_display,
        contact_type = EXCLUDED.contact_type,
        zadarma_calls = EXCLUDED.zadarma_calls,
        telnyx_calls = EXCLUDED.telnyx_calls,
        retell_calls = EXCLUDED.retell_calls,
        total_calls = EXCLUDED.total_calls,
        first_call_at = EXCLUDED.first_call_at,
        last_call_at = EXCLUDED.last_call_at,
        updated_at = now()
    WHERE (t.phone_display, t.contact_type, t.zadarma_calls, t.telnyx_calls, t.retell_calls, t.total_calls,
           t.first_call_at, t.last_call_at)
        IS DISTINCT FROM
          (EXCLUDED.phone_display, EXCLUDED.contact_type, EXCLUDED.zadarma_calls, EXCLUDED.telnyx_calls,
           EXCLUDED.retell_calls, EXCLUDED.total_calls, EXCLUDED.first_call_at, EXCLUDED.last_call_at)
    RETURNING (xmax = 0) AS inserted
)
SELECT count(*) FILTER (WHERE inserted), count(*) FILTER (WHERE NOT inserted) FROM upserted`

// AggregateContacts rebuilds the per-number call counts in telco.contacts.
// Classification fields are left to the roll-up.
func (s *Store) AggregateContacts(ctx context.Context) (AggregateResult, error) {
	var res AggregateResult
	if err := s.db.QueryRow(ctx, aggregateSQL).Scan(&res.Inserted, &res.Updated); err != nil {
		return res, fmt.Errorf("aggregate contacts: %w", err)
	}
	return res, nil
}

// RollupRow is one classification joined to its contact, with the contact's
// current DNC state.
type RollupRow struct {
	Phone             string
	CallID            int64
	IsDNC             bool
	DNCReason         string
	ContactStatus     string
	LeadStatus        string
	LeadScore         int
	Hostile           bool
	CallbackRequested bool
	AnalyzedAt        time.Time
	// CallAt is when the call started, or when it was first stored.
	CallAt time.Time

	ContactIsDNC     bool
	ContactDNCReason string
	DNCClearedAt     *time.Time
}

// ContactRollup is the folded classification state written to a contact.
type ContactRollup struct {
	Phone               string
	IsDNC               bool
	DNCReason           string
	ContactStatus       string
	LeadStatus          string
	LeadScore           int
	HostileInteractions int
	CallbackRequested   bool
	LastClassifiedAt    time.Time
}

// RollupRows returns every classification grouped by contact phone, in call
// order within a contact.
func (s *Store) RollupRows(ctx context.Context) ([]RollupRow, error) {
	rows, err := s.db.Query(ctx, `
        SELECT k.phone, cc.call_id, cc.is_dnc, COALESCE(cc.dnc_reason, ''), cc.contact_status, cc.lead_status,
               cc.lead_score, cc.hostile, cc.callback_requested, cc.analyzed_at, k.call_at,
               ct.is_dnc, COALESCE(ct.dnc_reason, ''), ct.dnc_cleared_at
        FROM telco.call_classification cc
        JOIN (
            SELECT id, telco.contact_phone(from_number, to_number) AS phone,
                   COALESCE(started_at, created_at) AS call_at
            FROM telco.calls
        ) k ON k.id = cc.call_id
        JOIN telco.contacts ct ON ct.phone_normalized = k.phone
        ORDER BY k.phone, k.call_at, cc.call_id`)
	if err != nil {
		return nil, fmt.Errorf("query rollup rows: %w", err)
	}
	defer rows.Close()

	var out []RollupRow
	for rows.Next() {
		var r RollupRow
		if err := rows.Scan(&r.Phone, &r.CallID, &r.IsDNC, &r.DNCReason, &r.ContactStatus, &r.LeadStatus,
			&r.LeadScore, &r.Hostile, &r.CallbackRequested, &r.AnalyzedAt, &r.CallAt,
			&r.ContactIsDNC, &r.ContactDNCReason, &r.DNCClearedAt); err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyRollups writes folded classification state in one statement. Rows
// whose values already match are left untouched.
func (s *Store) ApplyRollups(ctx context.Context, rollups []ContactRollup) (int64, error) {
	if len(rollups) == 0 {
		return 0, nil
	}
	n := len(rollups)
	phones := make([]string, n)
	dnc := make([]bool, n)
	reasons := make([]*string, n)
	statuses := make([]string, n)
	leads := make([]string, n)
	scores := make([]int32, n)
	hostile := make([]int32, n)
	callback := make([]bool, n)
	classified := make([]time.Time, n)
	for i, r := range rollups {
		phones[i] = r.Phone
		dnc[i] = r.IsDNC
		if r.DNCReason != "" {
			reason := r.DNCReason
			reasons[i] = &reason
		}
		statuses[i] = r.ContactStatus
		leads[i] = r.LeadStatus
		scores[i] = int32(r.LeadScore)
		hostile[i] = int32(r.HostileInteractions)
		callback[i] = r.CallbackRequested
		classified[i] = r.LastClassifiedAt.UTC()
	}

	tag, err := s.db.Exec(ctx, `
        UPDATE telco.contacts AS c SET
            is_dnc = r.is_dnc,
            dnc_reason = r.dnc_reason,
            dnc_at = CASE WHEN r.is_dnc AND NOT c.is_dnc THEN now() WHEN NOT r.is_dnc THEN NULL ELSE c.dnc_at END,
            contact_status = r.contact_status,
            lead_status = r.lead_status,
            lead_score = r.lead_score,
            hostile_interactions = r.hostile_interactions,
            callback_requested = r.callback_requested,
            last_classified_at = r.last_classified_at,
            updated_at = now()
        FROM unnest($1::text[], $2::bool[], $3::text[], $4::text[], $5::text[], $6::int[], $7::int[], $8::bool[], $9::timestamptz[])
            AS r(phone, is_dnc, dnc_reason, contact_status, lead_status, lead_score, hostile_interactions, callback_requested, last_classified_at)
        WHERE c.phone_normalized = r.phone
          AND (c.is_dnc, c.dnc_reason, c.contact_status, c.lead_status, c.lead_score, c.hostile_interactions,
               c.callback_requested, c.last_classified_at)
            IS DISTINCT FROM
              (r.is_dnc, r.dnc_reason, r.contact_status, r.lead_status, r.lead_score, r.hostile_interactions,
               r.callback_requested, r.last_classified_at)`,
		phones, dnc, reasons, statuses, leads, scores, hostile, callback, classified)
	if err != nil {
		return 0, fmt.Errorf("apply contact rollups: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClearDNC is the administrative DNC clear. It records the action in
// telco.contact_admin_log and stamps dnc_cleared_at so older DNC
// classifications no longer re-flag the contact. It reports false when the
// contact does not exist or was not DNC.
func (s *Store) ClearDNC(ctx context.Context, phone, reason, actor string) (cleared bool, err error) {
	if strings.TrimSpace(reason) == "" {
		return false, services.Wrap(services.ErrRejected, "warehouse", "clear dnc", "a reason is required", nil)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error("failed to rollback dnc clear", "error", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	tag, err := tx.Exec(ctx, `
        UPDATE telco.contacts
        SET is_dnc = false, dnc_reason = NULL, dnc_at = NULL, dnc_cleared_at = now(), updated_at = now()
        WHERE phone_normalized = $1 AND is_dnc`, phone)
	if err != nil {
		return false, fmt.Errorf("clear dnc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err = tx.Exec(ctx, `
        INSERT INTO telco.contact_admin_log (phone_normalized, action, reason, actor)
        VALUES ($1, 'clear_dnc', $2, $3)`, phone, reason, nullableString(actor)); err != nil {
		return false, fmt.Errorf("log dnc clear: %w", err)
	}
	return true, nil
}

package warehouse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

func newRegexMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	return mock
}

func TestUpsertSpecSQL(t *testing.T) {
	sql := callUpsert.sql()
	for _, want := range []string{
		"INSERT INTO telco.calls AS t (provider_id, external_call_id, direction,",
		"ON CONFLICT (provider_id, external_call_id) DO UPDATE SET",
		"transcript = COALESCE(NULLIF(EXCLUDED.transcript, ''), t.transcript)",
		"duration_seconds = COALESCE(EXCLUDED.duration_seconds, t.duration_seconds)",
		"has_recording = (t.has_recording OR EXCLUDED.has_recording)",
		"tombstoned = false",
		"IS DISTINCT FROM",
		"OR t.tombstoned",
		"RETURNING (xmax = 0) AS inserted",
		"$21)",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("call upsert missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "$22") {
		t.Fatalf("unexpected extra placeholder:\n%s", sql)
	}
}

func TestUpsertCallOutcomes(t *testing.T) {
	started := time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)
	seconds := 65
	rec := providers.CallRecord{
		ExternalID:      "c1",
		Direction:       providers.DirectionInbound,
		FromNumber:      "0412345678",
		StartedAt:       &started,
		DurationSeconds: &seconds,
		Raw:             []byte(`{"call_id":"c1"}`),
	}

	tests := []struct {
		name string
		rows *pgxmock.Rows
		want Outcome
	}{
		{"inserted", pgxmock.NewRows([]string{"inserted"}).AddRow(true), OutcomeInserted},
		{"updated", pgxmock.NewRows([]string{"inserted"}).AddRow(false), OutcomeUpdated},
		{"unchanged", pgxmock.NewRows([]string{"inserted"}), OutcomeUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newRegexMock(t)
			defer mock.Close()
			mock.ExpectQuery(`INSERT INTO telco\.calls`).
				WithArgs(
					int32(1), "c1", "inbound", "0412345678", nil, nil,
					started, nil, nil, int32(65), nil, nil, nil, nil, nil, nil, nil,
					false, nil, nil, `{"call_id":"c1"}`,
				).
				WillReturnRows(tt.rows)

			got, err := New(mock, nil).UpsertCall(context.Background(), 1, rec)
			if err != nil {
				t.Fatalf("UpsertCall: %v", err)
			}
			if got != tt.want {
				t.Fatalf("outcome = %v, want %v", got, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUpsertResourceNumbersKeyedByNumber(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectQuery(`INSERT INTO telco\.phone_numbers`).
		WithArgs(int32(2), "+61291234567", "Sydney", "n-1", "active", nil, nil, nil).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	got, err := New(mock, nil).UpsertResource(context.Background(), 2, providers.Resource{
		Kind:        providers.KindNumbers,
		ExternalID:  "n-1",
		Name:        "Sydney",
		PhoneNumber: "+61291234567",
		Status:      "active",
	})
	if err != nil || got != OutcomeInserted {
		t.Fatalf("UpsertResource = %v, %v", got, err)
	}
}

func TestUpsertResourceUnknownKind(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	_, err := New(mock, nil).UpsertResource(context.Background(), 1, providers.Resource{Kind: providers.KindBalance})
	if !errors.Is(err, services.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestProviderIDIsCached(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectQuery(`SELECT id FROM telco\.providers WHERE name = \$1`).
		WithArgs("retell").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int32(3)))

	store := New(mock, nil)
	for i := 0; i < 2; i++ {
		id, err := store.ProviderID(context.Background(), "retell")
		if err != nil || id != 3 {
			t.Fatalf("ProviderID = %d, %v", id, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProviderIDNotSeeded(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectQuery(`SELECT id FROM telco\.providers`).
		WithArgs("zadarma").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := New(mock, nil).ProviderID(context.Background(), "zadarma"); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

var syncLogCols = []string{
	"id", "run_id", "provider", "resource", "mode", "window_start", "window_end", "started_at", "completed_at",
	"status", "records_fetched", "records_inserted", "records_updated", "records_unchanged", "data_errors",
	"tombstoned", "error_message",
}

func TestLastSuccessfulSync(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()

	completed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	started := completed.Add(-time.Minute)
	mock.ExpectQuery(`FROM telco\.sync_log`).
		WithArgs("telnyx", "calls", "success").
		WillReturnRows(pgxmock.NewRows(syncLogCols).AddRow(
			int64(7), "run-1", "telnyx", "calls", "incremental", nil, nil, started, &completed,
			"success", 10, 4, 1, 5, 0, 0, "",
		))
	mock.ExpectQuery(`FROM telco\.sync_log`).
		WithArgs("telnyx", "messages", "success").
		WillReturnRows(pgxmock.NewRows(syncLogCols))

	store := New(mock, nil)
	entry, err := store.LastSuccessfulSync(context.Background(), "telnyx", "calls")
	if err != nil {
		t.Fatalf("LastSuccessfulSync: %v", err)
	}
	if entry == nil || entry.CompletedAt == nil || !entry.CompletedAt.Equal(completed) || entry.Inserted != 4 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	none, err := store.LastSuccessfulSync(context.Background(), "telnyx", "messages")
	if err != nil || none != nil {
		t.Fatalf("expected no entry, got %+v, %v", none, err)
	}
}

func TestRecordSync(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)
	mock.ExpectQuery(`INSERT INTO telco\.sync_log`).
		WithArgs("run-1", "zadarma", "calls", ModeInitial, nil, nil, started, completed, "error",
			3, 3, 0, 0, 1, 0, "zadarma: list calls: http 500").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := New(mock, nil).RecordSync(context.Background(), SyncLogEntry{
		RunID: "run-1", Provider: "zadarma", Resource: "calls", Mode: ModeInitial,
		StartedAt: started, CompletedAt: &completed, Status: "error",
		Fetched: 3, Inserted: 3, DataErrors: 1, ErrorMessage: "zadarma: list calls: http 500",
	})
	if err != nil || id != 42 {
		t.Fatalf("RecordSync = %d, %v", id, err)
	}
}

func TestMarkTombstoned(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectExec(`UPDATE telco\.calls\s+SET tombstoned = true`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := New(mock, nil).MarkTombstoned(context.Background(), 9)
	if err != nil || !ok {
		t.Fatalf("MarkTombstoned = %v, %v", ok, err)
	}
}

func TestClearDNC(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE telco\.contacts`).
		WithArgs("61412345678").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO telco\.contact_admin_log`).
		WithArgs("61412345678", "customer re-consented", "ops").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := New(mock, nil)
	cleared, err := store.ClearDNC(context.Background(), "61412345678", "customer re-consented", "ops")
	if err != nil || !cleared {
		t.Fatalf("ClearDNC = %v, %v", cleared, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}

	if _, err := store.ClearDNC(context.Background(), "61412345678", " ", "ops"); !errors.Is(err, services.ErrRejected) {
		t.Fatalf("expected a reason to be required, got %v", err)
	}
}

func TestApplyRollupsSkipsEmpty(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	n, err := New(mock, nil).ApplyRollups(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("ApplyRollups(nil) = %d, %v", n, err)
	}
}

func TestApplyRollups(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE telco\.contacts AS c SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := New(mock, nil).ApplyRollups(context.Background(), []ContactRollup{{
		Phone: "61412345678", IsDNC: true, DNCReason: "deceased", ContactStatus: "deceased",
		LeadStatus: "dnc", LastClassifiedAt: at,
	}})
	if err != nil || n != 1 {
		t.Fatalf("ApplyRollups = %d, %v", n, err)
	}
}

func TestAggregateContacts(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	mock.ExpectQuery(`WITH grouped AS \(\s+SELECT\s+telco\.contact_phone\(c\.from_number, c\.to_number\) AS phone`).
		WillReturnRows(pgxmock.NewRows([]string{"inserted", "updated"}).AddRow(int64(3), int64(2)))

	res, err := New(mock, nil).AggregateContacts(context.Background())
	if err != nil || res.Inserted != 3 || res.Updated != 2 {
		t.Fatalf("AggregateContacts = %+v, %v", res, err)
	}
}

func TestContactGroupingIgnoresDirection(t *testing.T) {
	fn, err := schemaFS.ReadFile("schema/functions/04_contact_phone.sql")
	if err != nil {
		t.Fatalf("read contact_phone: %v", err)
	}
	body := string(fn)
	if !strings.Contains(body, "coalesce(telco.normalize_phone(from_number), telco.normalize_phone(to_number))") {
		t.Fatalf("contact phone must prefer the calling number:\n%s", body)
	}
	if strings.Contains(body, "direction") {
		t.Fatalf("outbound calls must group on from_number too:\n%s", body)
	}
	if strings.Contains(aggregateSQL, "direction, ") || !strings.Contains(aggregateSQL, "contact_phone(c.from_number, c.to_number)") {
		t.Fatalf("aggregate groups on the wrong number:\n%s", aggregateSQL)
	}
}

func TestRollupRowsOutboundCall(t *testing.T) {
	mock := newRegexMock(t)
	defer mock.Close()
	analyzed := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	callAt := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	// An outbound call still groups on its from number.
	mock.ExpectQuery(`SELECT id, telco\.contact_phone\(from_number, to_number\) AS phone`).
		WillReturnRows(pgxmock.NewRows([]string{
			"phone", "call_id", "is_dnc", "dnc_reason", "contact_status", "lead_status", "lead_score",
			"hostile", "callback_requested", "analyzed_at", "call_at", "contact_is_dnc", "contact_dnc_reason", "dnc_cleared_at",
		}).AddRow("61290001111", int64(7), false, "", "active", "warm", 80,
			false, true, analyzed, callAt, false, "", (*time.Time)(nil)))

	rows, err := New(mock, nil).RollupRows(context.Background())
	if err != nil {
		t.Fatalf("RollupRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Phone != "61290001111" || rows[0].LeadScore != 80 || !rows[0].CallAt.Equal(callAt) {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

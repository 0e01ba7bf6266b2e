package providers_test

import (
	"encoding/json"
	"testing"
	"time"

	"telcosync/internal/providers"
)

func TestPhonesFromRawAlternateKeys(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		from, to string
	}{
		{"top level", `{"from_number":"+61412345678","to_number":"0298765432"}`, "+61412345678", "0298765432"},
		{"zadarma keys", `{"clid":"0412345678","destination":"61298765432"}`, "0412345678", "61298765432"},
		{"nested metadata", `{"metadata":{"cli":"0412 345 678","cld":"02 9876 5432"}}`, "0412 345 678", "02 9876 5432"},
		{"dynamic variables", `{"retell_llm_dynamic_variables":{"to_number":"+61400000001"}}`, "", "+61400000001"},
		{"numeric values", `{"from":61412345678}`, "61412345678", ""},
		{"absent", `{"call_id":"abc"}`, "", ""},
		{"not json", `nope`, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			from, to := providers.PhonesFromRaw(json.RawMessage(tc.raw))
			if from != tc.from || to != tc.to {
				t.Fatalf("got (%q,%q), want (%q,%q)", from, to, tc.from, tc.to)
			}
		})
	}
}

func TestFillPhonesPrefersTopLevel(t *testing.T) {
	rec := providers.CallRecord{
		FromNumber: "+61412345678",
		Raw:        json.RawMessage(`{"from":"0400000000","to":"0298765432"}`),
	}
	providers.FillPhones(&rec)
	if rec.FromNumber != "+61412345678" {
		t.Fatalf("top-level value overwritten: %q", rec.FromNumber)
	}
	if rec.ToNumber != "0298765432" {
		t.Fatalf("expected to number from raw, got %q", rec.ToNumber)
	}
}

func TestParseTime(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	tests := []struct {
		name  string
		value any
		loc   *time.Location
		want  time.Time
	}{
		{"rfc3339", "2025-03-01T10:00:00Z", nil, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"naive in location", "2025-03-01 21:00:00", sydney, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"epoch millis", float64(1740823200000), nil, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"epoch seconds string", "1740823200", nil, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := providers.ParseTime(tc.value, tc.loc)
			if err != nil {
				t.Fatalf("ParseTime: %v", err)
			}
			if got == nil || !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
	if got, err := providers.ParseTime("", nil); err != nil || got != nil {
		t.Fatalf("expected nil for empty, got %v %v", got, err)
	}
	if _, err := providers.ParseTime("yesterday", nil); err == nil {
		t.Fatal("expected error for garbage timestamp")
	}
}

func TestParseSecondsRejectsImpossible(t *testing.T) {
	if _, err := providers.ParseSeconds(float64(-5)); err == nil {
		t.Fatal("expected error for negative duration")
	}
	got, err := providers.ParseSeconds("61.6")
	if err != nil || got == nil || *got != 62 {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if got, err := providers.ParseSeconds(""); got != nil || err != nil {
		t.Fatalf("expected nil for empty")
	}
}

func TestNormalizeDirection(t *testing.T) {
	cases := map[string]string{
		"incoming": providers.DirectionInbound,
		"Outbound": providers.DirectionOutbound,
		"":         providers.DirectionUnknown,
	}
	for in, want := range cases {
		if got := providers.NormalizeDirection(in); got != want {
			t.Fatalf("NormalizeDirection(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseKindAndName(t *testing.T) {
	if k, err := providers.ParseKind(" Calls "); err != nil || k != providers.KindCalls {
		t.Fatalf("ParseKind: %v %v", k, err)
	}
	if _, err := providers.ParseKind("faxes"); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if _, err := providers.ParseName("twilio"); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

package phone_test

import (
	"testing"

	"telcosync/internal/phone"
)

func TestNormalizeAustralianMobileForms(t *testing.T) {
	inputs := []string{
		"0412 345 678",
		"+61412345678",
		"61412345678",
		"4.12345678e10",
		"412345678",
		"(04) 1234-5678",
		"+61 4 1234 5678",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got, ok := phone.Normalize(input)
			if !ok {
				t.Fatalf("Normalize(%q) reported invalid", input)
			}
			if got.Canonical != "61412345678" {
				t.Fatalf("canonical = %q, want 61412345678", got.Canonical)
			}
			if got.Display != "+61 4 1234 5678" {
				t.Fatalf("display = %q, want +61 4 1234 5678", got.Display)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "12345", "anonymous", "+1 415 555 0100", "6.14102E+11", "0412"} {
		if got, ok := phone.Normalize(input); ok {
			t.Fatalf("Normalize(%q) = %+v, want invalid", input, got)
		}
		if got := phone.Canonical(input); got != "" {
			t.Fatalf("Canonical(%q) = %q, want empty", input, got)
		}
	}
}

func TestNormalizeScientificIntegerCast(t *testing.T) {
	got, ok := phone.Normalize("6.1412345678E+10")
	if !ok || got.Canonical != "61412345678" {
		t.Fatalf("unexpected result %+v ok=%v", got, ok)
	}
}

func TestNormalizeLandline(t *testing.T) {
	got, ok := phone.Normalize("02 9876 5432")
	if !ok {
		t.Fatal("expected landline to normalize")
	}
	if got.Canonical != "61298765432" || got.Display != "+61 2 9876 5432" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, input := range []string{"0412 345 678", "4.12345678e10", "02 9876 5432", "61298765432"} {
		first := phone.Canonical(input)
		if first == "" {
			t.Fatalf("expected %q valid", input)
		}
		if second := phone.Canonical(first); second != first {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", input, first, second)
		}
	}
}

func TestDisplayLeavesOtherValues(t *testing.T) {
	if got := phone.Display("14155550100"); got != "14155550100" {
		t.Fatalf("expected untouched value, got %q", got)
	}
}

func TestTail9(t *testing.T) {
	tests := map[string]string{
		"0412 345 678":    "412345678",
		"+61412345678":    "412345678",
		"12345":           "12345",
		"":                "",
		"+1-415-555-0100": "155550100",
	}
	for input, want := range tests {
		if got := phone.Tail9(input); got != want {
			t.Fatalf("Tail9(%q) = %q, want %q", input, got, want)
		}
	}
}

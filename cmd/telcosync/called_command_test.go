package main

import (
	"strings"
	"testing"
)

func TestParseNumberList(t *testing.T) {
	input := "phone,name\n0412 345 678,Alice\n\n\"+61 2 9876 5432\",Bob\n412345679\n"

	got, err := parseNumberList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseNumberList: %v", err)
	}
	want := []string{"0412 345 678", "+61 2 9876 5432", "412345679"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCheckCalledMatchesOnTail(t *testing.T) {
	tails := []string{"412345678", "298765432"}
	results := checkCalled([]string{"+61 412 345 678", "(02) 9876 5432", "0412 000 111", "12"}, tails)

	tests := []struct {
		input  string
		valid  bool
		called bool
	}{
		{"+61 412 345 678", true, true},
		{"(02) 9876 5432", true, true},
		{"0412 000 111", true, false},
		{"12", false, false},
	}
	for i, tc := range tests {
		r := results[i]
		if r.Input != tc.input || r.Valid != tc.valid || r.Called != tc.called {
			t.Fatalf("result %d = %+v, want %+v", i, r, tc)
		}
	}
	if results[0].Normalized != "61412345678" {
		t.Fatalf("expected canonical number, got %q", results[0].Normalized)
	}
}

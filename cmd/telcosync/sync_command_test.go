package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"telcosync/internal/providers"
	"telcosync/internal/services"
	"telcosync/internal/syncer"
)

func TestSyncFlagsRequest(t *testing.T) {
	flags := syncFlags{initial: true, providers: []string{"Retell"}, resources: []string{"calls", "agents"}}

	req, err := flags.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !req.Initial || len(req.Providers) != 1 || req.Providers[0] != providers.Retell {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(req.Resources) != 2 || req.Resources[0] != providers.KindCalls || req.Resources[1] != providers.KindAgents {
		t.Fatalf("unexpected resources %v", req.Resources)
	}

	_, err = syncFlags{resources: []string{"faxes"}}.request()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown resource, got %v", err)
	}
}

func TestPrintSyncSummary(t *testing.T) {
	summary := syncer.Summary{
		RunID: "run-1",
		Units: []syncer.UnitResult{
			{Provider: providers.Telnyx, Resource: providers.KindCalls, Mode: "incremental", Status: services.StatusSuccess,
				Counts: syncer.Counts{Fetched: 12, Inserted: 10, Updated: 2}},
			{Provider: providers.Telnyx, Resource: providers.KindNumbers, Skipped: true},
			{Provider: providers.Retell, Resource: providers.KindCalls, Mode: "initial", Status: services.StatusError,
				Err: errors.New("boom")},
		},
	}

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	printSyncSummary(cmd, summary)

	text := out.String()
	requireContains(t, text, "telnyx\tcalls\tincremental\tsuccess\t12\t10\t2\t0\t0")
	requireContains(t, text, "telnyx\tnumbers\t\tskipped (locked)")
	requireContains(t, text, "run run-1: 3 units, 1 failed, 12 fetched, 10 inserted, 2 updated")
	if strings.Count(text, "\n") != 5 {
		t.Fatalf("expected header, three rows and a footer, got %q", text)
	}
}

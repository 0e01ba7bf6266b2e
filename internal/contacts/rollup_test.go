package contacts

import (
	"testing"
	"time"

	"telcosync/internal/taxonomy"
	"telcosync/internal/warehouse"
)

var base = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func row(phone string, day int, mutate func(*warehouse.RollupRow)) warehouse.RollupRow {
	r := warehouse.RollupRow{
		Phone:         phone,
		CallID:        int64(day),
		ContactStatus: taxonomy.StatusActive,
		LeadStatus:    taxonomy.LeadCold,
		LeadScore:     50,
		CallAt:        base.AddDate(0, 0, day),
		AnalyzedAt:    base.AddDate(0, 0, 30),
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestFoldDeceasedOverridesRetired(t *testing.T) {
	rows := []warehouse.RollupRow{
		row("61412345678", 1, func(r *warehouse.RollupRow) {
			r.ContactStatus = taxonomy.StatusRetired
			r.LeadScore = 10
		}),
		row("61412345678", 2, func(r *warehouse.RollupRow) {
			r.ContactStatus = taxonomy.StatusDeceased
			r.IsDNC = true
			r.DNCReason = taxonomy.ReasonDeceased
			r.LeadStatus = taxonomy.LeadDNC
			r.LeadScore = 0
		}),
		row("61412345678", 3, func(r *warehouse.RollupRow) {
			r.ContactStatus = taxonomy.StatusRetired
		}),
	}
	got := Fold(rows)
	if len(got) != 1 {
		t.Fatalf("expected one contact, got %d", len(got))
	}
	c := got[0]
	if c.ContactStatus != taxonomy.StatusDeceased {
		t.Fatalf("status = %q, want deceased", c.ContactStatus)
	}
	if !c.IsDNC || c.DNCReason != taxonomy.ReasonDeceased {
		t.Fatalf("unexpected dnc state %+v", c)
	}
	if c.LeadScore != 50 || c.LeadStatus != taxonomy.LeadCold {
		t.Fatalf("lead fields should come from the latest call: %+v", c)
	}
}

func TestFoldDNCIsSticky(t *testing.T) {
	rows := []warehouse.RollupRow{
		row("61298765432", 1, func(r *warehouse.RollupRow) {
			r.ContactIsDNC = true
			r.ContactDNCReason = taxonomy.ReasonExplicitRequest
		}),
		row("61298765432", 5, func(r *warehouse.RollupRow) {
			r.ContactIsDNC = true
			r.ContactDNCReason = taxonomy.ReasonExplicitRequest
			r.LeadStatus = taxonomy.LeadHot
			r.LeadScore = 100
			r.CallbackRequested = true
		}),
	}
	c := Fold(rows)[0]
	if !c.IsDNC || c.DNCReason != taxonomy.ReasonExplicitRequest {
		t.Fatalf("a later positive call must not clear dnc: %+v", c)
	}
	if c.LeadScore != 100 || c.LeadStatus != taxonomy.LeadHot || !c.CallbackRequested {
		t.Fatalf("lead fields should come from the latest call: %+v", c)
	}
}

func TestFoldDNCKeepsLatestBenignScore(t *testing.T) {
	rows := []warehouse.RollupRow{
		row("61400000009", 1, func(r *warehouse.RollupRow) {
			r.IsDNC = true
			r.DNCReason = taxonomy.ReasonExplicitRequest
			r.LeadStatus = taxonomy.LeadDNC
			r.LeadScore = 0
		}),
		row("61400000009", 2, func(r *warehouse.RollupRow) {
			r.ContactIsDNC = true
			r.ContactDNCReason = taxonomy.ReasonExplicitRequest
			r.LeadStatus = taxonomy.LeadWarm
			r.LeadScore = 80
		}),
	}
	c := Fold(rows)[0]
	if !c.IsDNC || c.DNCReason != taxonomy.ReasonExplicitRequest {
		t.Fatalf("dnc must stay set: %+v", c)
	}
	if c.LeadScore != 80 || c.LeadStatus != taxonomy.LeadWarm {
		t.Fatalf("score = %d status = %q, want the latest call's 80 warm", c.LeadScore, c.LeadStatus)
	}
}

func TestFoldLatestDNCReasonWins(t *testing.T) {
	rows := []warehouse.RollupRow{
		row("61400000001", 1, func(r *warehouse.RollupRow) {
			r.IsDNC = true
			r.DNCReason = taxonomy.ReasonHostile
			r.Hostile = true
		}),
		row("61400000001", 2, func(r *warehouse.RollupRow) {
			r.IsDNC = true
			r.DNCReason = taxonomy.ReasonLegalThreat
			r.Hostile = true
		}),
	}
	c := Fold(rows)[0]
	if c.DNCReason != taxonomy.ReasonLegalThreat {
		t.Fatalf("reason = %q", c.DNCReason)
	}
	if c.HostileInteractions != 2 {
		t.Fatalf("hostile = %d", c.HostileInteractions)
	}
}

func TestFoldRespectsAdministrativeClear(t *testing.T) {
	cleared := base.AddDate(0, 0, 3)
	withClear := func(r *warehouse.RollupRow) { r.DNCClearedAt = &cleared }

	rows := []warehouse.RollupRow{
		row("61400000002", 1, func(r *warehouse.RollupRow) {
			withClear(r)
			r.IsDNC = true
			r.DNCReason = taxonomy.ReasonExplicitRequest
		}),
		row("61400000002", 4, func(r *warehouse.RollupRow) {
			withClear(r)
			r.LeadStatus = taxonomy.LeadWarm
			r.LeadScore = 80
		}),
	}
	c := Fold(rows)[0]
	if c.IsDNC || c.LeadScore != 80 || c.LeadStatus != taxonomy.LeadWarm {
		t.Fatalf("a dnc verdict before the clear must be ignored: %+v", c)
	}

	rows = append(rows, row("61400000002", 6, func(r *warehouse.RollupRow) {
		withClear(r)
		r.IsDNC = true
		r.DNCReason = taxonomy.ReasonHostile
	}))
	c = Fold(rows)[0]
	if !c.IsDNC || c.DNCReason != taxonomy.ReasonHostile {
		t.Fatalf("a dnc verdict after the clear must re-flag: %+v", c)
	}
}

func TestFoldGroupsByPhone(t *testing.T) {
	later := base.AddDate(0, 0, 40)
	rows := []warehouse.RollupRow{
		row("61400000003", 1, nil),
		row("61400000003", 2, func(r *warehouse.RollupRow) {
			r.LeadStatus = taxonomy.LeadWarm
			r.LeadScore = 60
			r.AnalyzedAt = later
		}),
		row("61400000004", 1, func(r *warehouse.RollupRow) { r.ContactStatus = taxonomy.StatusLeftCompany }),
	}
	got := Fold(rows)
	if len(got) != 2 {
		t.Fatalf("expected two contacts, got %d", len(got))
	}
	if got[0].LeadScore != 60 || got[0].LeadStatus != taxonomy.LeadWarm || !got[0].LastClassifiedAt.Equal(later) {
		t.Fatalf("unexpected first contact %+v", got[0])
	}
	if got[1].ContactStatus != taxonomy.StatusLeftCompany || got[1].IsDNC {
		t.Fatalf("unexpected second contact %+v", got[1])
	}
	if Fold(nil) != nil {
		t.Fatalf("no rows should fold to nothing")
	}
}

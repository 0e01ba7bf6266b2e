package contacts

import (
	"telcosync/internal/taxonomy"
	"telcosync/internal/warehouse"
)

// Fold reduces classification rows, grouped by phone and in call order, to
// one roll-up per contact.
//
// A contact that is DNC stays DNC; only an administrative clear lifts it, and
// DNC verdicts on calls placed before the clear are then ignored. Status is
// the worst seen. Lead status, score and callback come from the latest call,
// even when the contact is DNC.
func Fold(rows []warehouse.RollupRow) []warehouse.ContactRollup {
	var out []warehouse.ContactRollup
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && rows[end].Phone == rows[start].Phone {
			end++
		}
		out = append(out, foldContact(rows[start:end]))
		start = end
	}
	return out
}

func foldContact(rows []warehouse.RollupRow) warehouse.ContactRollup {
	first := rows[0]
	latest := rows[len(rows)-1]
	r := warehouse.ContactRollup{
		Phone:             first.Phone,
		IsDNC:             first.ContactIsDNC,
		DNCReason:         first.ContactDNCReason,
		ContactStatus:     taxonomy.StatusActive,
		LeadStatus:        latest.LeadStatus,
		LeadScore:         latest.LeadScore,
		CallbackRequested: latest.CallbackRequested,
	}
	for _, row := range rows {
		if row.IsDNC && !clearedBefore(row) {
			r.IsDNC = true
			r.DNCReason = row.DNCReason
		}
		r.ContactStatus = taxonomy.WorseStatus(r.ContactStatus, row.ContactStatus)
		if row.Hostile {
			r.HostileInteractions++
		}
		if row.AnalyzedAt.After(r.LastClassifiedAt) {
			r.LastClassifiedAt = row.AnalyzedAt
		}
	}
	if r.IsDNC && r.DNCReason == "" {
		r.DNCReason = first.ContactDNCReason
	}
	return r
}

func clearedBefore(row warehouse.RollupRow) bool {
	return row.DNCClearedAt != nil && !row.CallAt.After(*row.DNCClearedAt)
}

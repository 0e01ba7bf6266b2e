package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Outcome reports what an upsert did to the target row.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

type mergeRule int

const (
	// mergeCoalesce keeps the stored value when the incoming one is NULL.
	mergeCoalesce mergeRule = iota
	// mergeNonEmpty also keeps the stored value when the incoming one is ''.
	mergeNonEmpty
	// mergeDirection keeps the stored value when the incoming one is 'unknown'.
	mergeDirection
	// mergeSticky ORs booleans so true never reverts.
	mergeSticky
	// mergeReplace always takes the incoming value.
	mergeReplace
)

type column struct {
	name string
	rule mergeRule
}

func (c column) expr() string {
	switch c.rule {
	case mergeNonEmpty:
		return fmt.Sprintf("COALESCE(NULLIF(EXCLUDED.%s, ''), t.%s)", c.name, c.name)
	case mergeDirection:
		return fmt.Sprintf("COALESCE(NULLIF(EXCLUDED.%s, 'unknown'), t.%s)", c.name, c.name)
	case mergeSticky:
		return fmt.Sprintf("(t.%s OR EXCLUDED.%s)", c.name, c.name)
	case mergeReplace:
		return "EXCLUDED." + c.name
	default:
		return fmt.Sprintf("COALESCE(EXCLUDED.%s, t.%s)", c.name, c.name)
	}
}

// upsertSpec renders an INSERT ... ON CONFLICT DO UPDATE whose WHERE clause
// skips the update when no merged value would change.
type upsertSpec struct {
	table    string
	conflict []string
	columns  []column
	// resets are assignments applied on every real update, such as clearing a tombstone.
	resets []string
	// dirty are extra conditions that force an update, typically the negation of resets.
	dirty []string
}

func (u upsertSpec) sql() string {
	names := append([]string(nil), u.conflict...)
	for _, c := range u.columns {
		names = append(names, c.name)
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sets := make([]string, 0, len(u.columns)+len(u.resets)+1)
	current := make([]string, 0, len(u.columns))
	merged := make([]string, 0, len(u.columns))
	for _, c := range u.columns {
		sets = append(sets, c.name+" = "+c.expr())
		current = append(current, "t."+c.name)
		merged = append(merged, c.expr())
	}
	sets = append(sets, u.resets...)
	sets = append(sets, "updated_at = now()")

	guard := fmt.Sprintf("(%s) IS DISTINCT FROM (%s)", strings.Join(current, ", "), strings.Join(merged, ", "))
	if len(u.dirty) > 0 {
		guard += " OR " + strings.Join(u.dirty, " OR ")
	}

	return fmt.Sprintf(`INSERT INTO %s AS t (%s)
VALUES (%s)
ON CONFLICT (%s) DO UPDATE SET
    %s
WHERE %s
RETURNING (xmax = 0) AS inserted`,
		u.table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(u.conflict, ", "),
		strings.Join(sets, ",\n    "),
		guard,
	)
}

// runUpsert executes an upsertSpec statement. No returned row means the
// guard suppressed the update.
func (s *Store) runUpsert(ctx context.Context, sql string, args ...any) (Outcome, error) {
	var inserted bool
	err := s.db.QueryRow(ctx, sql, args...).Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return OutcomeUnchanged, nil
	case err != nil:
		return OutcomeUnchanged, err
	case inserted:
		return OutcomeInserted, nil
	default:
		return OutcomeUpdated, nil
	}
}

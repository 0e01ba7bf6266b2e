package warehouse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"telcosync/internal/services"
)

func newEqualMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	return mock
}

func TestLoadIndexesOnePerLine(t *testing.T) {
	indexes, err := loadIndexes()
	if err != nil {
		t.Fatalf("loadIndexes: %v", err)
	}
	if len(indexes) == 0 {
		t.Fatal("expected index statements")
	}
	for _, idx := range indexes {
		if !strings.HasPrefix(idx.sql, "CREATE INDEX IF NOT EXISTS") || !strings.HasPrefix(idx.name, "index idx_") {
			t.Fatalf("unexpected index statement %+v", idx)
		}
	}
}

func TestLoadFunctionsInOrder(t *testing.T) {
	functions, err := loadFunctions()
	if err != nil {
		t.Fatalf("loadFunctions: %v", err)
	}
	want := []string{"canonical_digits", "normalize_phone", "format_phone_display", "contact_phone"}
	if len(functions) != len(want) {
		t.Fatalf("expected %d functions, got %d", len(want), len(functions))
	}
	for i, fn := range functions {
		if !strings.Contains(fn.sql, "FUNCTION telco."+want[i]+"(") {
			t.Fatalf("function %d is %s, want %s", i, fn.name, want[i])
		}
	}
}

func expectStatements(mock pgxmock.PgxPoolIface, stmts []statement, failAt int, failErr error) {
	for i, stmt := range stmts {
		mock.ExpectExec("SAVEPOINT " + savepoint).WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
		if i == failAt {
			mock.ExpectExec(stmt.sql).WillReturnError(failErr)
			if isInsufficientPrivilege(failErr) {
				mock.ExpectExec("ROLLBACK TO SAVEPOINT " + savepoint).WillReturnResult(pgxmock.NewResult("ROLLBACK", 0))
				continue
			}
			return
		}
		mock.ExpectExec(stmt.sql).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("RELEASE SAVEPOINT " + savepoint).WillReturnResult(pgxmock.NewResult("RELEASE", 0))
	}
}

func migrationStatements(t *testing.T) (string, []statement) {
	t.Helper()
	tables, err := loadTables()
	if err != nil {
		t.Fatal(err)
	}
	functions, err := loadFunctions()
	if err != nil {
		t.Fatal(err)
	}
	indexes, err := loadIndexes()
	if err != nil {
		t.Fatal(err)
	}
	return tables, append(functions, indexes...)
}

func TestMigrateToleratesPrivilegeErrorOnIndex(t *testing.T) {
	mock := newEqualMock(t)
	defer mock.Close()

	tables, stmts := migrationStatements(t)
	failAt := len(stmts) - 1
	mock.ExpectBegin()
	mock.ExpectExec(tables).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	expectStatements(mock, stmts, failAt, &pgconn.PgError{Code: "42501", Message: "must be owner of table calls"})
	mock.ExpectCommit()

	report, err := New(mock, nil).Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != stmts[failAt].name {
		t.Fatalf("unexpected skipped %v", report.Skipped)
	}
	if len(report.Applied) != len(stmts) {
		t.Fatalf("expected tables plus %d applied statements, got %d", len(stmts)-1, len(report.Applied))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateFailsOnOtherErrors(t *testing.T) {
	mock := newEqualMock(t)
	defer mock.Close()

	tables, stmts := migrationStatements(t)
	mock.ExpectBegin()
	mock.ExpectExec(tables).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	expectStatements(mock, stmts, 1, &pgconn.PgError{Code: "42883", Message: "function does not exist"})
	mock.ExpectRollback()

	_, err := New(mock, nil).Migrate(context.Background())
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateTablesPrivilegeIsFatal(t *testing.T) {
	mock := newEqualMock(t)
	defer mock.Close()

	tables, _ := migrationStatements(t)
	mock.ExpectBegin()
	mock.ExpectExec(tables).WillReturnError(&pgconn.PgError{Code: "42501"})
	mock.ExpectRollback()

	if _, err := New(mock, nil).Migrate(context.Background()); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

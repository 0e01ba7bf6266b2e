package warehouse

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"telcosync/internal/logging"
	"telcosync/internal/services"
)

//go:embed schema/tables.sql schema/indexes.sql schema/functions/*.sql
var schemaFS embed.FS

// insufficientPrivilege is SQLSTATE 42501.
const insufficientPrivilege = "42501"

const savepoint = "telco_migrate_stmt"

// statement is one migrator step run under its own savepoint.
type statement struct {
	name string
	sql  string
}

// MigrationReport lists what the migrator applied and what it skipped for
// lack of privilege.
type MigrationReport struct {
	Applied []string
	Skipped []string
}

func loadTables() (string, error) {
	data, err := schemaFS.ReadFile("schema/tables.sql")
	if err != nil {
		return "", fmt.Errorf("read tables.sql: %w", err)
	}
	return string(data), nil
}

func loadFunctions() ([]statement, error) {
	entries, err := schemaFS.ReadDir("schema/functions")
	if err != nil {
		return nil, fmt.Errorf("read functions dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]statement, 0, len(names))
	for _, name := range names {
		data, err := schemaFS.ReadFile("schema/functions/" + name)
		if err != nil {
			return nil, fmt.Errorf("read function %s: %w", name, err)
		}
		out = append(out, statement{name: "function " + strings.TrimSuffix(name, ".sql"), sql: strings.TrimSpace(string(data))})
	}
	return out, nil
}

// loadIndexes reads one CREATE INDEX statement per line.
func loadIndexes() ([]statement, error) {
	data, err := schemaFS.ReadFile("schema/indexes.sql")
	if err != nil {
		return nil, fmt.Errorf("read indexes.sql: %w", err)
	}
	var out []statement
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		fields := strings.Fields(line)
		name := "index"
		for i, f := range fields {
			if f == "EXISTS" && i+1 < len(fields) {
				name = "index " + fields[i+1]
				break
			}
		}
		out = append(out, statement{name: name, sql: line})
	}
	return out, nil
}

// Migrate creates the schema idempotently. Functions and indexes run under
// individual savepoints: a permission failure (the sync role does not own
// the schema) rolls back only that statement and is reported as skipped.
// Any other failure is a schema error.
func (s *Store) Migrate(ctx context.Context) (report MigrationReport, err error) {
	tables, err := loadTables()
	if err != nil {
		return report, services.Wrap(services.ErrSchema, "warehouse", "migrate", "", err)
	}
	functions, err := loadFunctions()
	if err != nil {
		return report, services.Wrap(services.ErrSchema, "warehouse", "migrate", "", err)
	}
	indexes, err := loadIndexes()
	if err != nil {
		return report, services.Wrap(services.ErrSchema, "warehouse", "migrate", "", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return report, services.Wrap(services.ErrDatabaseUnavailable, "warehouse", "migrate", "begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error("failed to rollback migration", logging.Error(rbErr))
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = services.Wrap(services.ErrSchema, "warehouse", "migrate", "commit", commitErr)
		}
	}()

	if _, err = tx.Exec(ctx, tables); err != nil {
		if isInsufficientPrivilege(err) {
			return report, services.Wrap(services.ErrSchema, "warehouse", "migrate", "insufficient privilege to create tables", err)
		}
		return report, services.Wrap(services.ErrSchema, "warehouse", "migrate", "create tables", err)
	}
	report.Applied = append(report.Applied, "tables")

	for _, stmt := range append(functions, indexes...) {
		applied, stmtErr := s.execTolerant(ctx, tx, stmt)
		if stmtErr != nil {
			err = services.Wrap(services.ErrSchema, "warehouse", "migrate", stmt.name, stmtErr)
			return report, err
		}
		if applied {
			report.Applied = append(report.Applied, stmt.name)
		} else {
			report.Skipped = append(report.Skipped, stmt.name)
		}
	}

	if len(report.Skipped) > 0 {
		logging.WarnWithContext(s.logger, "migration statements skipped for lack of privilege", "migration_privilege_skip",
			logging.Hint("have the schema owner create them or grant ownership to the sync role"),
			logging.Impact("queries that rely on them run slower"),
			logging.String("skipped", strings.Join(report.Skipped, ", ")),
		)
	}
	s.logger.Info("schema migrated", logging.Int("applied", len(report.Applied)), logging.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (s *Store) execTolerant(ctx context.Context, tx pgx.Tx, stmt statement) (bool, error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, stmt.sql); err != nil {
		if !isInsufficientPrivilege(err) {
			return false, err
		}
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return false, rbErr
		}
		s.logger.Debug("statement skipped", logging.String("statement", stmt.name), logging.Error(err))
		return false, nil
	}
	if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return false, err
	}
	return true, nil
}

func isInsufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == insufficientPrivilege
}

package testsupport

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"telcosync/internal/warehouse"
)

// MockStore wraps a pgxmock pool in a warehouse.Store and fails the test when
// expectations are left unmet.
func MockStore(t testing.TB) (*warehouse.Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet database expectations: %v", err)
		}
		mock.Close()
	})
	return warehouse.New(mock, nil), mock
}

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/internal/storage/postgres"
)

// postgresTestDSN returns the DSN for the test database. Postgres has no
// sqlite-style in-memory mode, so these tests need a real instance; when
// POSTGRES_TEST_DSN isn't set they skip rather than fail CI.
func postgresTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	s, err := postgres.Open(postgresTestDSN(t))
	require.NoError(t, err)

	require.NoError(t, s.TruncateForTest(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

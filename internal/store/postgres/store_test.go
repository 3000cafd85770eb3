package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/store"
	"github.com/listenupapp/plantcare/internal/store/storetest"
)

// testDSNEnv names a disposable database; every subtest truncates the state table.
const testDSNEnv = "PLANTCARE_TEST_POSTGRES_DSN"

func TestStore_Contract(t *testing.T) {
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, dsn, nil)
		require.NoError(t, err)
		_, err = s.DB().ExecContext(ctx, `TRUNCATE state`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpen_PropagatesOpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }

	_, err := Open(context.Background(), "postgres://invalid", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open postgres")
}

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/sqlite"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/storetest"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openStore(t *testing.T) port.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "expenseflow.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openStore)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	s, err := sqlite.Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

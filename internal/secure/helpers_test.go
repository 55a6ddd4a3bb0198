package secure

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/edgemetrics/internal/sqlite"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// fixedKey is a valid 64-hex-character key used where tests need
// deterministic ciphertext.
var fixedKey = strings.Repeat("0f", 32)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestItems attaches a SQLite item store in a temp dir.
func newTestItems(t *testing.T, quota int64) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:    types.BackendSQLite,
		DataDir:    t.TempDir(),
		QuotaBytes: quota,
	}))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

// newTestStore returns a Store over a fresh item store seeded with fixedKey.
func newTestStore(t *testing.T) (*Store, *sqlite.Backend) {
	t.Helper()
	items := newTestItems(t, 0)
	require.NoError(t, items.SetItem(types.KeyEncryptionKey, fixedKey))
	s, err := New(items, discardLogger())
	require.NoError(t, err)
	return s, items
}

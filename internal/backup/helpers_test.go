package backup

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/edgemetrics/internal/secure"
	"github.com/mesh-intelligence/edgemetrics/internal/sqlite"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stepClock returns a clock that starts at t0 and advances one hour per call.
func stepClock() func() time.Time {
	next := t0
	return func() time.Time {
		now := next
		next = next.Add(time.Hour)
		return now
	}
}

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

type fixture struct {
	items  types.ItemStore
	secure *secure.Store
	mgr    *Manager
}

func newFixture(t *testing.T, items types.ItemStore, cfg Config, opts ...Option) *fixture {
	t.Helper()
	require.NoError(t, items.SetItem(types.KeyEncryptionKey, strings.Repeat("0f", 32)))
	sec, err := secure.New(items, discardLogger())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(discardLogger()), WithClock(stepClock())}, opts...)
	mgr, err := NewManager(sec, items, cfg, opts...)
	require.NoError(t, err)
	return &fixture{items: items, secure: sec, mgr: mgr}
}

func (f *fixture) backupKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.mgr.backupKeys()
	require.NoError(t, err)
	return keys
}

func (f *fixture) readRecord(t *testing.T, key string) types.BackupRecord {
	t.Helper()
	value, ok, err := f.items.GetItem(key)
	require.NoError(t, err)
	require.True(t, ok, "backup %s missing", key)
	var rec types.BackupRecord
	require.NoError(t, json.Unmarshal([]byte(value), &rec))
	return rec
}

// snapshot returns every key/value pair in items.
func snapshot(t *testing.T, items types.ItemStore) map[string]string {
	t.Helper()
	keys, err := items.Keys()
	require.NoError(t, err)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, _, err := items.GetItem(k)
		require.NoError(t, err)
		out[k] = v
	}
	return out
}

var errInjected = errors.New("injected failure")

// faultyItems wraps an ItemStore and fails writes or removals of chosen keys.
type faultyItems struct {
	types.ItemStore
	failSet    map[string]bool
	failRemove map[string]bool
}

func (f *faultyItems) SetItem(key, value string) error {
	if f.failSet[key] {
		return errInjected
	}
	return f.ItemStore.SetItem(key, value)
}

func (f *faultyItems) RemoveItem(key string) error {
	if f.failRemove[key] {
		return errInjected
	}
	return f.ItemStore.RemoveItem(key)
}

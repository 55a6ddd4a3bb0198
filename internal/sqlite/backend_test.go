// Tests for the SQLite item store.
package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// attachTestBackend attaches a backend in a temp dir and detaches on cleanup.
func attachTestBackend(t *testing.T, cfg types.Config) *Backend {
	t.Helper()
	if cfg.Backend == "" {
		cfg.Backend = types.BackendSQLite
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	err := b.Attach(config)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, dbFileName)); os.IsNotExist(err) {
		t.Errorf("%s not created", dbFileName)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, itemsJSONL)); os.IsNotExist(err) {
		t.Errorf("%s not created", itemsJSONL)
	}

	err = b.Attach(config)
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, _, err := b.GetItem("k")
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.SetItem("k", "v"), types.ErrDetached)
	assert.ErrorIs(t, b.RemoveItem("k"), types.ErrDetached)
	_, err = b.Keys()
	assert.ErrorIs(t, err, types.ErrDetached)
}

func TestBackend_ItemCRUD(t *testing.T) {
	b := attachTestBackend(t, types.Config{})

	_, ok, err := b.GetItem("edgemetrics_theme")
	require.NoError(t, err)
	assert.False(t, ok, "absent key")

	require.NoError(t, b.SetItem("edgemetrics_theme", "light"))
	v, ok, err := b.GetItem("edgemetrics_theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)

	require.NoError(t, b.SetItem("edgemetrics_theme", "dark"))
	v, _, _ = b.GetItem("edgemetrics_theme")
	assert.Equal(t, "dark", v, "set replaces")

	require.NoError(t, b.SetItem("edgemetrics_empty", ""))
	v, ok, err = b.GetItem("edgemetrics_empty")
	require.NoError(t, err)
	assert.True(t, ok, "empty string is a stored value")
	assert.Equal(t, "", v)

	require.NoError(t, b.RemoveItem("edgemetrics_theme"))
	_, ok, _ = b.GetItem("edgemetrics_theme")
	assert.False(t, ok)

	assert.NoError(t, b.RemoveItem("edgemetrics_theme"), "removing absent key is a no-op")
}

func TestBackend_EmptyKeyRejected(t *testing.T) {
	b := attachTestBackend(t, types.Config{})

	_, _, err := b.GetItem("")
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	assert.ErrorIs(t, b.SetItem("", "v"), types.ErrInvalidKey)
	assert.ErrorIs(t, b.RemoveItem(""), types.ErrInvalidKey)
}

func TestBackend_KeysSorted(t *testing.T) {
	b := attachTestBackend(t, types.Config{})

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, b.SetItem(k, k))
	}
	keys, err = b.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestBackend_ItemsSurviveReattach(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.SetItem("edgemetrics_accent", "#ff9900"))
	require.NoError(t, b.SetItem("edgemetrics_theme", "light"))
	require.NoError(t, b.RemoveItem("edgemetrics_theme"))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()

	v, ok, err := b2.GetItem("edgemetrics_accent")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "#ff9900", v)

	_, ok, _ = b2.GetItem("edgemetrics_theme")
	assert.False(t, ok, "removed key stays removed")
}

func TestBackend_ItemPersistedToJSONL(t *testing.T) {
	dir := t.TempDir()
	b := attachTestBackend(t, types.Config{DataDir: dir})

	require.NoError(t, b.SetItem("edgemetrics_theme", "light"))

	data, err := os.ReadFile(filepath.Join(dir, itemsJSONL))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"key":"edgemetrics_theme"`)
	assert.Contains(t, lines[0], `"value":"light"`)
}

func TestBackend_MalformedJSONLLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		`{"key":"a","value":"1","updated_at":"2026-01-01T00:00:00Z"}`,
		`not json at all`,
		`{"value":"no key"}`,
		``,
		`{"key":"a","value":"2","updated_at":"2026-01-02T00:00:00Z","extra":true}`,
		`{"key":"b","value":"3","updated_at":"2026-01-02T00:00:00Z"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, itemsJSONL), []byte(content), 0o644))

	b := attachTestBackend(t, types.Config{DataDir: dir})

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	v, _, _ := b.GetItem("a")
	assert.Equal(t, "2", v, "later line wins")
}

func TestBackend_QuotaExceeded(t *testing.T) {
	b := attachTestBackend(t, types.Config{QuotaBytes: 32})

	require.NoError(t, b.SetItem("k1", strings.Repeat("x", 10)))

	err := b.SetItem("k2", strings.Repeat("y", 30))
	assert.ErrorIs(t, err, types.ErrStorageWrite)
	assert.ErrorIs(t, err, types.ErrQuotaExceeded)

	_, ok, _ := b.GetItem("k2")
	assert.False(t, ok, "rejected write is not stored")

	// Replacing an existing key only counts the new value.
	assert.NoError(t, b.SetItem("k1", strings.Repeat("z", 28)))
}

func TestBackend_OnCloseSyncDefersJSONL(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      dir,
		SQLiteConfig: types.SQLiteConfig{SyncStrategy: types.SyncOnClose},
	}))

	require.NoError(t, b.SetItem("k", "v"))
	assert.Equal(t, 1, b.pendingCount())

	data, err := os.ReadFile(filepath.Join(dir, itemsJSONL))
	require.NoError(t, err)
	assert.Empty(t, data, "nothing written before Detach")

	require.NoError(t, b.Detach())

	data, err = os.ReadFile(filepath.Join(dir, itemsJSONL))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"k"`)
}

func TestBackend_BatchSyncFlushesAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	b := attachTestBackend(t, types.Config{
		DataDir: dir,
		SQLiteConfig: types.SQLiteConfig{
			SyncStrategy:  types.SyncBatch,
			BatchSize:     2,
			BatchInterval: 3600,
		},
	})

	require.NoError(t, b.SetItem("a", "1"))
	assert.Equal(t, 1, b.pendingCount())

	require.NoError(t, b.SetItem("b", "2"))
	assert.Equal(t, 0, b.pendingCount(), "batch size reached flushes the queue")

	data, err := os.ReadFile(filepath.Join(dir, itemsJSONL))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestBackend_BatchSyncFlushesOnInterval(t *testing.T) {
	dir := t.TempDir()
	b := attachTestBackend(t, types.Config{
		DataDir: dir,
		SQLiteConfig: types.SQLiteConfig{
			SyncStrategy:  types.SyncBatch,
			BatchSize:     1000,
			BatchInterval: 1,
		},
	})

	require.NoError(t, b.SetItem("a", "1"))

	assert.Eventually(t, func() bool {
		return b.pendingCount() == 0
	}, 5*time.Second, 50*time.Millisecond)

	data, err := os.ReadFile(filepath.Join(dir, itemsJSONL))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"a"`)
}

// blockItemsJSONL replaces items.jsonl with a non-empty directory so the
// atomic rename in writeJSONL fails.
func blockItemsJSONL(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, itemsJSONL)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))
}

func TestBackend_FailedPersistKeepsPreviousValue(t *testing.T) {
	dir := t.TempDir()
	b := attachTestBackend(t, types.Config{DataDir: dir})

	require.NoError(t, b.SetItem("edgemetrics_sessions", "old"))
	blockItemsJSONL(t, dir)

	err := b.SetItem("edgemetrics_sessions", "new")
	require.ErrorIs(t, err, types.ErrStorageWrite)

	v, ok, err := b.GetItem("edgemetrics_sessions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "old", v, "a failed write must not be readable")

	err = b.SetItem("edgemetrics_theme", "light")
	require.ErrorIs(t, err, types.ErrStorageWrite)
	_, ok, err = b.GetItem("edgemetrics_theme")
	require.NoError(t, err)
	assert.False(t, ok, "a failed insert must not be readable")
}

func TestBackend_FailedPersistKeepsRemovedItem(t *testing.T) {
	dir := t.TempDir()
	b := attachTestBackend(t, types.Config{DataDir: dir})

	require.NoError(t, b.SetItem("edgemetrics_theme", "light"))
	blockItemsJSONL(t, dir)

	require.ErrorIs(t, b.RemoveItem("edgemetrics_theme"), types.ErrStorageWrite)

	v, ok, err := b.GetItem("edgemetrics_theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}

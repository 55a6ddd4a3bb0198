// Package sqlite implements the SQLite item store for edgemetrics.
// SQLite is the query engine; items.jsonl in the data directory is the
// source of truth and is reloaded on every Attach.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// dbFileName is the SQLite file created inside DataDir.
const dbFileName = "edgemetrics.db"

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store using SQLite as the query engine and a
// JSONL file as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dataDir  string
	quota    int64
	now      func() time.Time

	// Sync strategy state.
	syncStrategy  string         // effective sync strategy: immediate, on_close, batch
	batchSize     int            // number of writes before batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // queue of writes pending JSONL persist
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite represents a deferred JSONL write operation.
// Used by on_close and batch sync strategies.
type pendingWrite struct {
	operation string       // "set" or "remove"
	key       string       // item key, for error reporting
	persist   func() error // function to execute the JSONL write
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, initializes the SQLite schema and
// loads items.jsonl. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of items.jsonl; start from a fresh file.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps every operation on the same SQLite handle.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := initJSONLFile(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadItemsJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.quota = config.QuotaBytes

	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pendingWrites = nil

	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	return nil
}

// Detach releases all resources held by the backend.
// For on_close and batch sync strategies, flushes all pending writes before
// closing. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	return nil
}

// DataDir returns the directory holding items.jsonl. Empty when detached.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dataDir
}

// shouldPersistImmediately returns true if JSONL writes should happen
// immediately. True for "immediate" (default), false for "on_close" and "batch".
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// commitAndPersist commits tx and brings items.jsonl in line with it. Under
// the immediate strategy the file is written from inside tx first, so a
// failed file write rolls the row change back. Other strategies commit and
// queue the write. The caller must hold b.mu.
func (b *Backend) commitAndPersist(tx *sql.Tx, operation, key string) error {
	if !b.shouldPersistImmediately() {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing %s: %w", operation, err)
		}
		b.queueWrite(operation, key, b.persistItemsJSONL)
		return nil
	}

	if err := b.writeItemsJSONL(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		// The file already holds the uncommitted row; rewrite it from
		// the committed state.
		_ = b.persistItemsJSONL()
		return fmt.Errorf("committing %s: %w", operation, err)
	}
	return nil
}

// queueWrite adds a write operation to the pending queue.
// For "on_close" strategy, writes are queued until Detach.
// For "batch" strategy, writes are queued until batch size or interval is reached.
// The caller must hold b.mu.
func (b *Backend) queueWrite(operation, key string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		operation: operation,
		key:       key,
		persist:   persist,
	})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWritesLocked flushes all pending writes to JSONL.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes pending writes. Every queued write
// rewrites the whole file from SQLite, so only the last one needs to run.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}

	last := b.pendingWrites[len(b.pendingWrites)-1]
	if err := last.persist(); err != nil {
		// Keep the queue so the next flush retries.
		return fmt.Errorf("flush %s %s: %w", last.operation, last.key, err)
	}

	b.pendingWrites = nil
	return nil
}

// pendingCount returns the number of queued JSONL writes.
func (b *Backend) pendingCount() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// startBatchTimer starts the batch interval timer for periodic flushes.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// GetItem returns the value stored under key.
func (b *Backend) GetItem(key string) (string, bool, error) {
	if key == "" {
		return "", false, types.ErrInvalidKey
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return "", false, types.ErrDetached
	}

	var value string
	err := b.db.QueryRow("SELECT value FROM items WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading item %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key. When a quota is configured, the write is
// rejected with ErrQuotaExceeded if the store would grow beyond it.
func (b *Backend) SetItem(key, value string) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	if b.quota > 0 {
		used, err := b.usedBytesExcluding(key)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", types.ErrStorageWrite, key, err)
		}
		if used+int64(len(key)+len(value)) > b.quota {
			return fmt.Errorf("%w: %s: %w", types.ErrStorageWrite, key, types.ErrQuotaExceeded)
		}
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrStorageWrite, key, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO items (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, b.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrStorageWrite, key, err)
	}

	if err := b.commitAndPersist(tx, "set", key); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrStorageWrite, key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is a no-op.
func (b *Backend) RemoveItem(key string) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: removing %s: %v", types.ErrStorageWrite, key, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM items WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("%w: removing %s: %v", types.ErrStorageWrite, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	if err := b.commitAndPersist(tx, "remove", key); err != nil {
		return fmt.Errorf("%w: removing %s: %v", types.ErrStorageWrite, key, err)
	}
	return nil
}

// Keys returns every stored key in ascending order.
func (b *Backend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.Query("SELECT key FROM items ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// usedBytesExcluding sums key and value byte lengths of every item other
// than key. The caller must hold b.mu.
func (b *Backend) usedBytesExcluding(key string) (int64, error) {
	var used int64
	err := b.db.QueryRow(
		"SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0) FROM items WHERE key <> ?",
		key).Scan(&used)
	return used, err
}

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// loadItemsJSONL reads items.jsonl from dataDir and inserts every record
// into the items table. Loading is transactional: all succeed or the table
// stays empty. Malformed lines and records without a key are skipped; when a
// key repeats, the later line wins. Unknown fields are ignored.
func loadItemsJSONL(db *sql.DB, dataDir string) error {
	records, err := readJSONL(filepath.Join(dataDir, itemsJSONL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO items (key, value, updated_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var it itemJSON
		if err := json.Unmarshal(rec, &it); err != nil {
			continue
		}
		if it.Key == "" {
			continue
		}
		if _, err := stmt.Exec(it.Key, it.Value, it.UpdatedAt); err != nil {
			return fmt.Errorf("loading item %s: %w", it.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

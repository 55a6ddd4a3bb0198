package sqlite

// Schema DDL for the item store.
const (
	createItems = `CREATE TABLE IF NOT EXISTS items (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxItemsUpdated = `CREATE INDEX IF NOT EXISTS idx_items_updated ON items(updated_at);`
)

// schemaDDL lists the statements run on Attach, in order.
var schemaDDL = []string{
	createItems,
	idxItemsUpdated,
}

package sqlite

// itemJSON is one line of items.jsonl.
type itemJSON struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

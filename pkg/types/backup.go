package types

import (
	"encoding/json"
	"strings"
)

// TimestampLayout is the ISO-8601 form used for backup keys and records:
// UTC with millisecond precision. Strings in this layout sort
// lexicographically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// BackupRecord is a point-in-time snapshot of user data. Sessions and
// Achievements hold JSON values verbatim. A nil Theme or Accent is written as
// JSON null.
type BackupRecord struct {
	Sessions     []json.RawMessage `json:"sessions"`
	Achievements []json.RawMessage `json:"achievements"`
	Theme        *string           `json:"theme"`
	Accent       *string           `json:"accent"`
	Timestamp    string            `json:"timestamp"`
}

// BackupSummary describes a stored backup without its payload.
type BackupSummary struct {
	Key          string `json:"key"`
	Timestamp    string `json:"timestamp"`
	SessionCount int    `json:"session_count"`
}

// BackupKey returns the store key for a backup taken at timestamp.
func BackupKey(timestamp string) string {
	return BackupKeyPrefix + timestamp
}

// IsBackupKey reports whether key lives in the backup namespace.
func IsBackupKey(key string) bool {
	return strings.HasPrefix(key, BackupKeyPrefix)
}

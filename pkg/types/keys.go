package types

// Persistent store key layout. All keys share the edgemetrics_ namespace.
const (
	KeyEncryptionKey = "edgemetrics_encryption_key"
	KeySessions      = "edgemetrics_sessions"
	KeyAchievements  = "edgemetrics_achievements"
	KeyTheme         = "edgemetrics_theme"
	KeyAccent        = "edgemetrics_accent"

	// BackupKeyPrefix is followed by the backup's ISO-8601 timestamp.
	BackupKeyPrefix = "edgemetrics_backup_"
)

// DefaultTheme is written on restore when a backup carries no theme.
const DefaultTheme = "dark"

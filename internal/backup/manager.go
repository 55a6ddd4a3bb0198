// Package backup keeps a bounded, time-ordered history of snapshots of the
// journal's user data and restores from them.
//
// Each backup is a JSON record stored in the item store under
// edgemetrics_backup_<timestamp>. Pruning sorts those keys
// lexicographically; listing sorts by the parsed timestamp inside each
// record. Both orders agree for well-formed ISO-8601 timestamps.
//
// Two backups taken in the same millisecond share a key and the later one
// overwrites the earlier. Whether that should instead be a collision to
// avoid is an open question; it is left as is.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/edgemetrics/internal/metrics"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// metricsDomain labels every operation recorded by a Manager.
const metricsDomain = "backup"

// SecureStore is the obfuscated store the Manager reads sessions through.
type SecureStore interface {
	Load(key string) (json.RawMessage, error)
	Save(key string, v any) error
}

// Manager creates, prunes, lists and restores backups. Each public method
// runs as one unit: calls from the scheduler and from the app never
// interleave.
type Manager struct {
	mu      sync.Mutex
	secure  SecureStore
	items   types.ItemStore
	config  Config
	now     func() time.Time
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(bm metrics.BusinessMetrics) Option {
	return func(m *Manager) { m.metrics = bm }
}

// NewManager returns a Manager over the given stores.
func NewManager(sec SecureStore, items types.ItemStore, cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		secure:  sec,
		items:   items,
		config:  cfg,
		now:     time.Now,
		logger:  slog.Default(),
		metrics: metrics.NewNoOpBusinessMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Create snapshots sessions, achievements, theme and accent into a new
// backup record, then prunes old backups. A prune failure is logged and
// does not fail the backup.
func (m *Manager) Create(ctx context.Context) (types.BackupSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	summary, err := m.create()
	m.record(ctx, "create", start, err)
	return summary, err
}

// Prune deletes every backup beyond the retention count, newest kept.
// Individual deletion failures do not stop the rest; they are joined into
// the returned error.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	deleted, err := m.prune()
	m.record(ctx, "prune", start, err)
	return deleted, err
}

// List returns summaries of all readable backups, newest first by the
// timestamp stored in each record. Corrupt records are skipped.
func (m *Manager) List(ctx context.Context) ([]types.BackupSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	summaries, err := m.list()
	m.record(ctx, "list", start, err)
	return summaries, err
}

// Restore writes a backup's sessions through the secure store, and its
// achievements and theme to plain storage. The three writes are applied in
// order without rollback: if a later write fails, earlier ones stay applied
// and the error is returned. The backup record itself is never deleted.
func (m *Manager) Restore(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	err := m.restore(key)
	m.record(ctx, "restore", start, err)
	return err
}

// CreateBackup is Create for callers that only need success or failure.
func (m *Manager) CreateBackup() bool {
	if _, err := m.Create(context.Background()); err != nil {
		m.logger.Error("backup failed", "error", err)
		return false
	}
	return true
}

// PruneOldBackups is Prune with failures logged instead of returned.
func (m *Manager) PruneOldBackups() {
	if _, err := m.Prune(context.Background()); err != nil {
		m.logger.Error("failed to prune backups", "error", err)
	}
}

// ListBackups is List with failures logged; it returns an empty slice on error.
func (m *Manager) ListBackups() []types.BackupSummary {
	summaries, err := m.List(context.Background())
	if err != nil {
		m.logger.Error("failed to list backups", "error", err)
		return []types.BackupSummary{}
	}
	return summaries
}

// RestoreBackup is Restore for callers that only need success or failure.
func (m *Manager) RestoreBackup(key string) bool {
	if err := m.Restore(context.Background(), key); err != nil {
		m.logger.Error("restore failed", "key", key, "error", err)
		return false
	}
	return true
}

func (m *Manager) create() (types.BackupSummary, error) {
	timestamp := m.now().UTC().Format(types.TimestampLayout)
	key := types.BackupKey(timestamp)

	sessions, err := m.readSessions()
	if err != nil {
		return types.BackupSummary{}, err
	}
	achievements, err := m.readAchievements()
	if err != nil {
		return types.BackupSummary{}, err
	}
	theme, err := m.readOptional(types.KeyTheme)
	if err != nil {
		return types.BackupSummary{}, err
	}
	accent, err := m.readOptional(types.KeyAccent)
	if err != nil {
		return types.BackupSummary{}, err
	}

	rec := types.BackupRecord{
		Sessions:     sessions,
		Achievements: achievements,
		Theme:        theme,
		Accent:       accent,
		Timestamp:    timestamp,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return types.BackupSummary{}, fmt.Errorf("%w: backup record: %v", types.ErrSerialization, err)
	}
	if err := m.items.SetItem(key, string(data)); err != nil {
		return types.BackupSummary{}, fmt.Errorf("writing backup %s: %w", key, err)
	}

	if _, err := m.prune(); err != nil {
		m.logger.Error("failed to prune backups", "error", err)
	}

	m.logger.Info("backup created", "key", key, "sessions", len(sessions))
	return types.BackupSummary{Key: key, Timestamp: timestamp, SessionCount: len(sessions)}, nil
}

// readSessions returns the live sessions list. Absent or undecodable
// sessions back up as an empty list; a decodable value that is not a list
// fails the backup. That includes falsy scalars such as 0, false and "":
// they are not read as an empty list.
func (m *Manager) readSessions() ([]json.RawMessage, error) {
	raw, err := m.secure.Load(types.KeySessions)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return []json.RawMessage{}, nil
	case errors.Is(err, types.ErrStorageCorrupt):
		m.logger.Warn("sessions unreadable, backing up an empty list", "error", err)
		return []json.RawMessage{}, nil
	case err != nil:
		return nil, err
	}

	var sessions []json.RawMessage
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %s is not a list: %v", types.ErrStorageCorrupt, types.KeySessions, err)
	}
	if sessions == nil {
		sessions = []json.RawMessage{}
	}
	return sessions, nil
}

// readAchievements parses the plain achievements list, defaulting to empty.
func (m *Manager) readAchievements() ([]json.RawMessage, error) {
	value, ok, err := m.items.GetItem(types.KeyAchievements)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", types.KeyAchievements, err)
	}
	if !ok || value == "" {
		value = "[]"
	}
	var achievements []json.RawMessage
	if err := json.Unmarshal([]byte(value), &achievements); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrStorageCorrupt, types.KeyAchievements, err)
	}
	if achievements == nil {
		achievements = []json.RawMessage{}
	}
	return achievements, nil
}

// readOptional returns a plain string value, or nil when absent.
func (m *Manager) readOptional(key string) (*string, error) {
	value, ok, err := m.items.GetItem(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &value, nil
}

// backupKeys returns every backup key, in the store's ascending order.
func (m *Manager) backupKeys() ([]string, error) {
	keys, err := m.items.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	var backups []string
	for _, k := range keys {
		if types.IsBackupKey(k) {
			backups = append(backups, k)
		}
	}
	return backups, nil
}

func (m *Manager) prune() ([]string, error) {
	keys, err := m.backupKeys()
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	if len(keys) <= m.config.Retention {
		return nil, nil
	}

	var deleted []string
	var errs []error
	for _, key := range keys[m.config.Retention:] {
		if err := m.items.RemoveItem(key); err != nil {
			m.logger.Error("failed to delete old backup", "key", key, "error", err)
			errs = append(errs, fmt.Errorf("deleting %s: %w", key, err))
			continue
		}
		m.logger.Info("deleted old backup", "key", key)
		deleted = append(deleted, key)
	}
	return deleted, errors.Join(errs...)
}

func (m *Manager) list() ([]types.BackupSummary, error) {
	keys, err := m.backupKeys()
	if err != nil {
		return nil, err
	}

	summaries := []types.BackupSummary{}
	times := map[string]time.Time{}
	for _, key := range keys {
		rec, err := m.readRecord(key)
		if err != nil {
			m.logger.Warn("skipping unreadable backup", "key", key, "error", err)
			continue
		}
		summaries = append(summaries, types.BackupSummary{
			Key:          key,
			Timestamp:    rec.Timestamp,
			SessionCount: len(rec.Sessions),
		})
		// Unparsable timestamps sort as the oldest.
		t, _ := time.Parse(time.RFC3339Nano, rec.Timestamp)
		times[key] = t
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		ti, tj := times[summaries[i].Key], times[summaries[j].Key]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return summaries[i].Key > summaries[j].Key
	})
	return summaries, nil
}

// readRecord loads and parses the backup stored at key.
func (m *Manager) readRecord(key string) (*types.BackupRecord, error) {
	value, ok, err := m.items.GetItem(key)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", key, types.ErrNotFound)
	}
	var rec *types.BackupRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, fmt.Errorf("%w: backup %s: %v", types.ErrStorageCorrupt, key, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: backup %s is null", types.ErrStorageCorrupt, key)
	}
	return rec, nil
}

func (m *Manager) restore(key string) error {
	rec, err := m.readRecord(key)
	if err != nil {
		return err
	}

	sessions := rec.Sessions
	if sessions == nil {
		sessions = []json.RawMessage{}
	}
	if err := m.secure.Save(types.KeySessions, sessions); err != nil {
		return fmt.Errorf("restoring sessions: %w", err)
	}

	achievements := rec.Achievements
	if achievements == nil {
		achievements = []json.RawMessage{}
	}
	data, err := json.Marshal(achievements)
	if err != nil {
		return fmt.Errorf("%w: achievements: %v", types.ErrSerialization, err)
	}
	if err := m.items.SetItem(types.KeyAchievements, string(data)); err != nil {
		return fmt.Errorf("restoring achievements: %w", err)
	}

	theme := types.DefaultTheme
	if rec.Theme != nil && *rec.Theme != "" {
		theme = *rec.Theme
	}
	if err := m.items.SetItem(types.KeyTheme, theme); err != nil {
		return fmt.Errorf("restoring theme: %w", err)
	}

	m.logger.Info("restored from backup", "key", key, "timestamp", rec.Timestamp)
	return nil
}

func (m *Manager) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	m.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	m.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

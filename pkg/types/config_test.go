package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "indexeddb", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "negative quota rejected",
			config:  Config{Backend: "sqlite", QuotaBytes: -1},
			wantErr: ErrQuotaInvalid,
		},
		{
			name:    "unknown sync strategy rejected",
			config:  Config{Backend: "sqlite", SQLiteConfig: SQLiteConfig{SyncStrategy: "eventually"}},
			wantErr: ErrSyncStrategyUnknown,
		},
		{
			name:    "negative batch size rejected",
			config:  Config{Backend: "sqlite", SQLiteConfig: SQLiteConfig{SyncStrategy: SyncBatch, BatchSize: -1}},
			wantErr: ErrBatchSizeInvalid,
		},
		{
			name:    "negative batch interval rejected",
			config:  Config{Backend: "sqlite", SQLiteConfig: SQLiteConfig{SyncStrategy: SyncBatch, BatchInterval: -5}},
			wantErr: ErrBatchIntervalInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteConfigDefaults(t *testing.T) {
	var s SQLiteConfig
	if got := s.GetSyncStrategy(); got != SyncImmediate {
		t.Errorf("GetSyncStrategy() = %q, want %q", got, SyncImmediate)
	}
	if got := s.GetBatchSize(); got != DefaultBatchSize {
		t.Errorf("GetBatchSize() = %d, want %d", got, DefaultBatchSize)
	}
	if got := s.GetBatchInterval(); got != DefaultBatchInterval {
		t.Errorf("GetBatchInterval() = %d, want %d", got, DefaultBatchInterval)
	}
}

package secure

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// Store reads and writes obfuscated values through an ItemStore.
// Construct one per item store at startup and share it.
type Store struct {
	items  types.ItemStore
	codec  *Codec
	logger *slog.Logger
}

// New provisions the obfuscation key in items and returns a Store bound to it.
func New(items types.ItemStore, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	key, err := LoadOrCreateKey(items, logger)
	if err != nil {
		return nil, err
	}
	codec, err := NewCodec(key)
	if err != nil {
		return nil, err
	}
	return &Store{items: items, codec: codec, logger: logger}, nil
}

// Save obfuscates v and stores it under key. Errors wrap ErrSerialization
// or ErrStorageWrite.
func (s *Store) Save(key string, v any) error {
	encoded, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.items.SetItem(key, encoded); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Load returns the JSON text stored under key. An absent or empty value
// returns ErrNotFound; undecodable data returns ErrStorageCorrupt.
func (s *Store) Load(key string) (json.RawMessage, error) {
	encoded, ok, err := s.items.GetItem(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok || encoded == "" {
		return nil, fmt.Errorf("%s: %w", key, types.ErrNotFound)
	}
	raw, err := s.codec.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return raw, nil
}

// SetSecure stores v under key and reports success. Failures are logged,
// never returned.
func (s *Store) SetSecure(key string, v any) bool {
	if err := s.Save(key, v); err != nil {
		s.logger.Error("secure save failed", "key", key, "error", err)
		return false
	}
	return true
}

// GetSecure returns the value stored under key decoded into generic JSON
// types (map[string]any, []any, float64, string, bool), or nil when the key
// is absent or its data cannot be decoded.
func (s *Store) GetSecure(key string) any {
	var v any
	if !s.GetSecureInto(key, &v) {
		return nil
	}
	return v
}

// GetSecureInto decodes the value stored under key into dst and reports
// whether it succeeded. Absence is not logged; decode failures are.
func (s *Store) GetSecureInto(key string, dst any) bool {
	raw, err := s.Load(key)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Error("secure load failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Error("secure load failed", "key", key,
			"error", fmt.Errorf("%w: %v", types.ErrStorageCorrupt, err))
		return false
	}
	return true
}

// Items returns the underlying item store.
func (s *Store) Items() types.ItemStore {
	return s.items
}

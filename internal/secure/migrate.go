package secure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// legacyMarker is the leading character of values the legacy check leaves
// alone.
const legacyMarker = "{"

// MigrateLegacy rewrites a plain-JSON value stored at legacyKey through the
// obfuscated path under targetKey. It reports whether a migration happened.
//
// A value is treated as legacy when it does not start with legacyMarker,
// parses as JSON, and does not already decode through the codec. The legacy
// key is removed only after the obfuscated write succeeds, and only when it
// differs from targetKey: rewriting in place already replaces the plain text.
// Running it again after a successful migration is a no-op.
func (s *Store) MigrateLegacy(legacyKey, targetKey string) (bool, error) {
	value, ok, err := s.items.GetItem(legacyKey)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", legacyKey, err)
	}
	if !ok || value == "" {
		return false, nil
	}
	if strings.HasPrefix(value, legacyMarker) {
		return false, nil
	}
	if !json.Valid([]byte(value)) {
		return false, nil
	}
	if _, err := s.codec.Decode(value); err == nil {
		return false, nil
	}

	if err := s.Save(targetKey, json.RawMessage(value)); err != nil {
		return false, fmt.Errorf("migrating %s: %w", legacyKey, err)
	}
	if legacyKey != targetKey {
		if err := s.items.RemoveItem(legacyKey); err != nil {
			return true, fmt.Errorf("removing migrated %s: %w", legacyKey, err)
		}
	}
	s.logger.Info("migrated plain value to obfuscated storage",
		"from", legacyKey, "to", targetKey)
	return true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}

package secure

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// keySize is the number of random bytes behind the hex-encoded key.
const keySize = 32

// randReader is the entropy source for new keys. Tests may replace it.
var randReader io.Reader = rand.Reader

// LoadOrCreateKey returns the obfuscation key persisted in items, creating
// and persisting a new one when none exists. The key is written before it
// is returned, so no value is ever obfuscated with an unsaved key.
func LoadOrCreateKey(items types.ItemStore, logger *slog.Logger) (string, error) {
	key, ok, err := items.GetItem(types.KeyEncryptionKey)
	if err != nil {
		return "", fmt.Errorf("reading obfuscation key: %w", err)
	}
	if ok && key != "" {
		if !isHexKey(key) {
			logger.Warn("obfuscation key is not 64 hex characters; using it as stored",
				"length", len(key))
		}
		return key, nil
	}

	key, err = generateKey()
	if err != nil {
		return "", err
	}
	if err := items.SetItem(types.KeyEncryptionKey, key); err != nil {
		return "", fmt.Errorf("persisting obfuscation key: %w", err)
	}
	logger.Info("generated new obfuscation key")
	return key, nil
}

// generateKey returns keySize random bytes, hex-encoded.
func generateKey() (string, error) {
	buf := make([]byte, keySize)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", fmt.Errorf("generating obfuscation key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func isHexKey(key string) bool {
	if len(key) != 2*keySize {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

package secure

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

var errEmptyKey = errors.New("obfuscation key is empty")

// Codec obfuscates JSON text with a repeating key.
//
// Encoding works on UTF-16 code units: unit i of the JSON text is XORed with
// unit i mod len(key) of the key text (the hex characters themselves, not
// the bytes they encode). Every result must fit in one byte before base64
// encoding, so text containing code points above U+00FF cannot be encoded.
type Codec struct {
	key []uint16
}

// NewCodec returns a Codec for the given key text.
func NewCodec(key string) (*Codec, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	return &Codec{key: utf16.Encode([]rune(key))}, nil
}

// Encode serializes v to JSON and obfuscates it.
func (c *Codec) Encode(v any) (string, error) {
	text, err := marshalJSON(v)
	if err != nil {
		return "", err
	}
	return c.Obfuscate(text)
}

// Decode reverses Encode and returns the JSON text.
func (c *Codec) Decode(encoded string) (json.RawMessage, error) {
	text, err := c.Deobfuscate(encoded)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: decoded value is not JSON", types.ErrStorageCorrupt)
	}
	return json.RawMessage(text), nil
}

// Obfuscate XORs text against the key and base64-encodes the result.
func (c *Codec) Obfuscate(text string) (string, error) {
	units := utf16.Encode([]rune(text))
	out := make([]byte, len(units))
	for i, u := range units {
		x := u ^ c.key[i%len(c.key)]
		if x > 0xFF {
			return "", fmt.Errorf("%w: character at offset %d is outside Latin-1", types.ErrSerialization, i)
		}
		out[i] = byte(x)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Deobfuscate base64-decodes encoded and XORs it against the key.
func (c *Codec) Deobfuscate(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrStorageCorrupt, err)
	}
	units := make([]uint16, len(raw))
	for i, b := range raw {
		units[i] = uint16(b) ^ c.key[i%len(c.key)]
	}
	return string(utf16.Decode(units)), nil
}

// marshalJSON encodes v the way a browser JSON serializer does: compact and
// without HTML escaping.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Package sessions manages the trading-session journal kept in the
// obfuscated edgemetrics_sessions list.
package sessions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// ErrInvalidSession reports a session that is not a JSON object or whose
// fields fail Sanitize.
var ErrInvalidSession = errors.New("invalid session")

// SecureStore is the obfuscated store sessions are kept in.
type SecureStore interface {
	Load(key string) (json.RawMessage, error)
	Save(key string, v any) error
}

// Journal reads and appends sessions.
type Journal struct {
	mu     sync.Mutex
	secure SecureStore
	newID  func() (uuid.UUID, error)
}

// New returns a Journal over sec.
func New(sec SecureStore) *Journal {
	return &Journal{secure: sec, newID: uuid.NewV7}
}

// List returns every stored session in insertion order. No sessions yields
// an empty slice.
func (j *Journal) List() ([]json.RawMessage, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

// Add sanitizes session, appends it to the journal and returns it as
// stored. A session without an id is given a UUIDv7.
func (j *Journal) Add(session json.RawMessage) (json.RawMessage, error) {
	obj, err := decodeObject(session)
	if err != nil {
		return nil, err
	}
	if err := Sanitize(obj); err != nil {
		return nil, err
	}
	if id, ok := obj["id"]; !ok || id == nil || id == "" {
		u, err := j.newID()
		if err != nil {
			return nil, fmt.Errorf("generating session id: %w", err)
		}
		obj["id"] = u.String()
	}
	entry, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: session: %v", types.ErrSerialization, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	list, err := j.load()
	if err != nil {
		return nil, err
	}
	list = append(list, entry)
	if err := j.secure.Save(types.KeySessions, list); err != nil {
		return nil, fmt.Errorf("saving sessions: %w", err)
	}
	return entry, nil
}

func (j *Journal) load() ([]json.RawMessage, error) {
	raw, err := j.secure.Load(types.KeySessions)
	if errors.Is(err, types.ErrNotFound) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %s is not a list: %v", types.ErrStorageCorrupt, types.KeySessions, err)
	}
	if list == nil {
		list = []json.RawMessage{}
	}
	return list, nil
}

// decodeObject parses raw as a JSON object, keeping numbers exact.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidSession, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidSession)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidSession)
	}
	return obj, nil
}

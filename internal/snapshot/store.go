// Package snapshot implements the versioned snapshot contract shared by
// every play mode: a typed payload stored as the sole JSON value under a
// fixed key, with a top-level integer version. Anything that cannot be
// fully trusted at read time (parse failure, version mismatch, failed
// validation) is treated exactly like an absent snapshot.
package snapshot

import "encoding/json"

// KV abstracts the durable key-value storage a store writes through
// (in-memory, filesystem, Redis). Get reports absence rather than erroring;
// backends map their own failures to absence.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string)
}

// Migrate normalizes a legacy payload of the given version into the current
// shape. It runs before validation, on raw bytes.
type Migrate func(version int, raw []byte) []byte

// Store reads and writes one snapshot type under one key. P must marshal to
// a JSON object; the store injects and checks the version field itself so
// payload types stay version-free.
type Store[P any] struct {
	kv       KV
	key      string
	version  int
	accepted map[int]bool
	migrate  Migrate
	validate func(*P) error
}

// New builds a store for the current version only. validate is the
// consumer's required-field checklist; returning an error rejects the
// stored value as absent.
func New[P any](kv KV, key string, version int, validate func(*P) error) *Store[P] {
	return &Store[P]{
		kv:       kv,
		key:      key,
		version:  version,
		accepted: map[int]bool{version: true},
		validate: validate,
	}
}

// WithLegacy additionally accepts older versions, normalized through
// migrate before decoding. Returns the store for chaining.
func (s *Store[P]) WithLegacy(versions []int, migrate Migrate) *Store[P] {
	for _, v := range versions {
		s.accepted[v] = true
	}
	s.migrate = migrate
	return s
}

// Read returns the stored payload, or absent. It never errors: corruption
// and incompatibility are recovery cases, not failures.
func (s *Store[P]) Read() (P, bool) {
	var zero P
	raw, ok := s.kv.Get(s.key)
	if !ok || len(raw) == 0 {
		return zero, false
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Version == nil {
		return zero, false
	}
	if !s.accepted[*probe.Version] {
		return zero, false
	}
	if *probe.Version != s.version {
		if s.migrate == nil {
			return zero, false
		}
		raw = s.migrate(*probe.Version, raw)
	}

	var payload P
	if err := json.Unmarshal(raw, &payload); err != nil {
		return zero, false
	}
	if s.validate != nil {
		if err := s.validate(&payload); err != nil {
			return zero, false
		}
	}
	return payload, true
}

// Write persists the payload under the store's key, stamping the current
// version. Persistence is best-effort: a failed write leaves the in-memory
// state authoritative for this process and is otherwise swallowed.
func (s *Store[P]) Write(payload P) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return
	}
	version, _ := json.Marshal(s.version)
	fields["version"] = version
	out, err := json.Marshal(fields)
	if err != nil {
		return
	}
	_ = s.kv.Set(s.key, out)
}

// Clear deletes the snapshot.
func (s *Store[P]) Clear() {
	s.kv.Delete(s.key)
}

// Exists reports whether a readable, valid snapshot is present.
func (s *Store[P]) Exists() bool {
	_, ok := s.Read()
	return ok
}

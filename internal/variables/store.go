// Package variables provides per-virtual-user variable storage and ${name}
// placeholder expansion.
package variables

import (
	"strings"
)

// Store defines the interface for variable storage.
type Store interface {
	// Set stores a variable with the given key and value.
	Set(key, value string)

	// Get retrieves a variable by key. Returns (value, true) if found,
	// or ("", false) if the key is not present.
	Get(key string) (string, bool)

	// GetAll returns a copy of all stored variables.
	GetAll() map[string]string

	// Apply stores every field of a dataset record, overwriting existing values.
	Apply(record map[string]string)

	// Expand replaces ${name} placeholders with stored values.
	Expand(template string) string
}

// MemoryStore is a simple map-based implementation of the Store interface.
// It is meant for use by a single virtual user and is not safe for
// concurrent use.
type MemoryStore struct {
	variables map[string]string
}

// NewStore creates a store seeded with a copy of initial.
func NewStore(initial map[string]string) *MemoryStore {
	vars := make(map[string]string, len(initial))
	for key, value := range initial {
		vars[key] = value
	}
	return &MemoryStore{variables: vars}
}

// Set stores a variable with the given key and value.
func (m *MemoryStore) Set(key, value string) {
	m.variables[key] = value
}

// Get retrieves a variable by key. Returns (value, true) if found,
// or ("", false) if the key is not present.
func (m *MemoryStore) Get(key string) (string, bool) {
	value, ok := m.variables[key]
	return value, ok
}

// GetAll returns a copy of all stored variables.
func (m *MemoryStore) GetAll() map[string]string {
	result := make(map[string]string, len(m.variables))
	for key, value := range m.variables {
		result[key] = value
	}
	return result
}

// Apply stores every field of record, overwriting existing values.
func (m *MemoryStore) Apply(record map[string]string) {
	for key, value := range record {
		m.variables[key] = value
	}
}

// Expand replaces ${name} placeholders with stored values. Unknown names and
// unterminated placeholders are left untouched.
func (m *MemoryStore) Expand(template string) string {
	return Expand(template, m.variables)
}

// Expand replaces ${name} placeholders in template with values from vars.
func Expand(template string, vars map[string]string) string {
	if !strings.Contains(template, "${") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		name := rest[start+2 : start+2+end]
		b.WriteString(rest[:start])
		if value, ok := vars[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(rest[start : start+3+end])
		}
		rest = rest[start+3+end:]
	}
	return b.String()
}

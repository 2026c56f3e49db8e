// Package counter defines the Counter value type and the error kinds shared
// by the storage backends, the registry, and the HTTP layer.
package counter

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrConflict is returned when creating a counter whose name is taken.
	ErrConflict = errors.New("counter already exists")

	// ErrNotFound is returned when operating on a name with no live counter.
	ErrNotFound = errors.New("counter not found")

	// ErrInvalidName is returned for empty or whitespace-only names.
	ErrInvalidName = errors.New("invalid counter name")
)

// Counter is a named, non-negative count.
type Counter struct {
	Name  string
	Value int64
}

// New returns a freshly created counter with value zero.
func New(name string) Counter {
	return Counter{Name: name}
}

// Body returns the self-keyed wire representation {name: value}.
func (c Counter) Body() map[string]int64 {
	return map[string]int64{c.Name: c.Value}
}

// MarshalJSON encodes c as a single-key object keyed by its own name.
func (c Counter) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Body())
}

// ValidateName rejects names that cannot identify a counter. Names are
// otherwise opaque and case-sensitive.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}

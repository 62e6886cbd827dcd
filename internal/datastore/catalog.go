// internal/datastore/catalog.go
package datastore

import (
	"fmt"
	"strings"
)

// Entry is one catalog line: the datapoint's name, default value and flags.
type Entry struct {
	Name    string
	Default Value
	Flags   Flags
}

// Catalog is the static datapoint list, per type, indexed 0..N_type.
// It is build-time data: the engine only uses counts, defaults and flags.
type Catalog struct {
	entries [TypeCount][]Entry
	byName  [TypeCount]map[string]uint32
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	for i := range c.byName {
		c.byName[i] = make(map[string]uint32)
	}
	return c
}

// Add appends a datapoint to the table of type t and returns its index.
// Names are case-insensitive and stored upper-case.
func (c *Catalog) Add(t Type, e Entry) (uint32, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: catalog type %d", ErrInvalidArgument, t)
	}
	e.Name = strings.ToUpper(strings.TrimSpace(e.Name))
	if e.Name == "" {
		return 0, fmt.Errorf("%w: %s datapoint name required", ErrInvalidArgument, t)
	}
	if _, dup := c.byName[t][e.Name]; dup {
		return 0, fmt.Errorf("%w: duplicate %s datapoint %q", ErrInvalidArgument, t, e.Name)
	}
	idx := uint32(len(c.entries[t]))
	c.entries[t] = append(c.entries[t], e)
	c.byName[t][e.Name] = idx
	return idx, nil
}

// MustAdd is Add for static catalogs built in code.
func (c *Catalog) MustAdd(t Type, name string, def Value, flags Flags) uint32 {
	idx, err := c.Add(t, Entry{Name: name, Default: def, Flags: flags})
	if err != nil {
		panic(err)
	}
	return idx
}

// Count returns N_type.
func (c *Catalog) Count(t Type) int {
	if !t.Valid() {
		return 0
	}
	return len(c.entries[t])
}

// Entry returns the catalog line at index i of type t.
func (c *Catalog) Entry(t Type, i uint32) (Entry, bool) {
	if !t.Valid() || int(i) >= len(c.entries[t]) {
		return Entry{}, false
	}
	return c.entries[t][i], true
}

// Entries returns the catalog lines of type t. The slice must not be modified.
func (c *Catalog) Entries(t Type) []Entry {
	if !t.Valid() {
		return nil
	}
	return c.entries[t]
}

// Lookup resolves a datapoint name to its index.
func (c *Catalog) Lookup(t Type, name string) (uint32, bool) {
	if !t.Valid() {
		return 0, false
	}
	idx, ok := c.byName[t][strings.ToUpper(strings.TrimSpace(name))]
	return idx, ok
}

// MaxCount returns max over all types of N_type.
func (c *Catalog) MaxCount() int {
	n := 0
	for t := range c.entries {
		if len(c.entries[t]) > n {
			n = len(c.entries[t])
		}
	}
	return n
}

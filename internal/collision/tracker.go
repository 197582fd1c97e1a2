// Package collision tracks 32-bit part ids within a single header so
// duplicate-id insertion attempts are rejected before they corrupt the
// directory.
package collision

import "github.com/bpak-io/bpak/errs"

// Tracker tracks ids already present in a header's part directory (the
// metadata table does not use it). Unlike a 64-bit metric-name hash (which can recover from
// an accidental collision by falling back to storing the name), a bpak id
// collision is always fatal: ids are required unique per spec §3, so any
// repeat is reported as a duplicate.
type Tracker struct {
	ids map[uint32]struct{}
}

// NewTracker creates an empty id tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[uint32]struct{})}
}

// Track records id, returning errs.ErrDuplicateID if it was already tracked.
func (t *Tracker) Track(id uint32) error {
	if _, exists := t.ids[id]; exists {
		return errs.ErrDuplicateID
	}

	t.ids[id] = struct{}{}

	return nil
}

// Count returns the number of distinct ids tracked.
func (t *Tracker) Count() int {
	return len(t.ids)
}

// Reset clears all tracked ids, preserving allocated capacity.
func (t *Tracker) Reset() {
	for k := range t.ids {
		delete(t.ids, k)
	}
}

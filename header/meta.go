package header

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
)

// MetaEntry is one row of the metadata table: a typed value addressed by
// (ID, PartIDRef), pointing at a reserved region of the meta blob (spec
// §3: "Metadata entry").
type MetaEntry struct {
	ID        uint32
	PartIDRef uint32 // 0 means "archive-wide"
	Offset    uint32 // offset into the meta blob
	Size      uint32
}

// MetaTable is the header's fixed-capacity metadata table plus its backing
// byte pool. Reservations are bump-allocated; spec §4.1 notes there is no
// in-place resize.
type MetaTable struct {
	Entries [MaxMetaEntries]MetaEntry
	Blob    [MetaBlobSize]byte

	count int // number of occupied entries
	used  uint32
}

// AddMeta reserves a region of size bytes within the meta blob for
// (id, partIDRef) and returns that region so the caller can fill it.
//
// Returns errs.ErrOutOfSpace if the entry table or the blob has no room.
func (t *MetaTable) AddMeta(id, partIDRef, size uint32) ([]byte, error) {
	if t.count >= MaxMetaEntries {
		return nil, fmt.Errorf("%w: metadata table full (max %d entries)", errs.ErrOutOfSpace, MaxMetaEntries)
	}

	if uint64(t.used)+uint64(size) > uint64(len(t.Blob)) {
		return nil, fmt.Errorf("%w: metadata blob full (%d of %d bytes used)", errs.ErrOutOfSpace, t.used, len(t.Blob))
	}

	entry := MetaEntry{
		ID:        id,
		PartIDRef: partIDRef,
		Offset:    t.used,
		Size:      size,
	}

	t.Entries[t.count] = entry
	t.count++
	t.used += size

	return t.Blob[entry.Offset : entry.Offset+entry.Size], nil
}

// Iterate calls fn for every occupied metadata entry, stopping early if fn
// returns false.
func (t *MetaTable) Iterate(fn func(MetaEntry) bool) {
	for i := 0; i < t.count; i++ {
		if !fn(t.Entries[i]) {
			return
		}
	}
}

// Find returns the first entry matching id and, if matchPartIDRef is true,
// also matching partIDRef.
func (t *MetaTable) Find(id uint32, partIDRef uint32, matchPartIDRef bool) (MetaEntry, bool) {
	var (
		found MetaEntry
		ok    bool
	)

	t.Iterate(func(e MetaEntry) bool {
		if e.ID != id {
			return true
		}

		if matchPartIDRef && e.PartIDRef != partIDRef {
			return true
		}

		found, ok = e, true

		return false
	})

	return found, ok
}

// Bytes returns the blob region backing entry.
func (t *MetaTable) Bytes(entry MetaEntry) []byte {
	return t.Blob[entry.Offset : entry.Offset+entry.Size]
}

// Count returns the number of occupied metadata entries.
func (t *MetaTable) Count() int {
	return t.count
}

// recount recomputes count and used from the Entries array, used after
// parsing a header from raw bytes (count/used are not stored on disk —
// count is derived by scanning for the first entry whose ID, PartIDRef and
// Size are all zero, a variant of the part directory's id==0 sentinel).
func (t *MetaTable) recount() {
	t.count = 0
	t.used = 0

	for i := range t.Entries {
		e := t.Entries[i]
		if e.ID == 0 && e.PartIDRef == 0 && e.Size == 0 {
			break
		}

		t.count = i + 1

		if end := e.Offset + e.Size; end > t.used {
			t.used = end
		}
	}
}

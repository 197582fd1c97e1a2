package header

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/internal/collision"
)

// Location distinguishes where in the archive file the header lives.
type Location uint8

const (
	// LocationFirst places the header at offset 0; part data follows it.
	LocationFirst Location = iota

	// LocationLast places the header in the final Size bytes of the file;
	// part data precedes it starting at offset 0.
	LocationLast
)

// PartEntry is one row of the part directory (spec §3: "Part entry").
type PartEntry struct {
	ID            uint32
	Size          uint64
	TransportSize uint64
	Offset        uint64
	PadBytes      uint16
	Flags         PartFlags
	reserved      uint8
}

// PartTable is the header's fixed-capacity, append-only part directory.
// Entries are addressed in directory order; offsets are monotonically
// increasing and alignment-padded (spec §3, §4.1).
type PartTable struct {
	Entries [MaxParts]PartEntry

	count   int
	tracker *collision.Tracker
}

func (t *PartTable) ensureTracker() *collision.Tracker {
	if t.tracker == nil {
		t.tracker = collision.NewTracker()

		for i := 0; i < t.count; i++ {
			t.tracker.Track(t.Entries[i].ID) //nolint:errcheck // rebuilding from already-valid state
		}
	}

	return t.tracker
}

// AddPart appends a new, empty part entry with the given id and returns it
// for the caller to fill in via SetGeometry. The entry's offset is fixed
// here from the previous entry's Offset, Size and PadBytes, so SetGeometry
// must be called on each entry before the next AddPart; callers must add
// parts in the order they intend to write them.
func (t *PartTable) AddPart(id uint32, location Location) (*PartEntry, error) {
	if t.count >= MaxParts {
		return nil, fmt.Errorf("%w: part directory full (max %d parts)", errs.ErrOutOfSpace, MaxParts)
	}

	if err := t.ensureTracker().Track(id); err != nil {
		return nil, fmt.Errorf("%w: part id %d already present", errs.ErrDuplicateID, id)
	}

	offset := uint64(0)
	if location == LocationFirst {
		offset = uint64(Size)
	}

	if t.count > 0 {
		prev := t.Entries[t.count-1]
		offset = prev.Offset + prev.Size + uint64(prev.PadBytes)
	}

	entry := PartEntry{ID: id, Offset: offset}
	t.Entries[t.count] = entry
	t.count++

	return &t.Entries[t.count-1], nil
}

// SetGeometry fixes size and flags on an entry previously returned by
// AddPart and computes its alignment padding (spec §3: "pad_bytes... makes
// (size + pad_bytes) a multiple of ALIGN").
func SetGeometry(entry *PartEntry, size uint64, flags PartFlags) {
	entry.Size = size
	entry.Flags = flags
	entry.PadBytes = PadFor(size)
}

// PadFor returns the number of zero-padding bytes a region of size bytes
// needs so that size+PadFor(size) is a multiple of Align. It is a pure
// function of size and the fixed Align constant, so callers that must
// recompute an entry's padding without access to the original geometry
// (the transport decoder reconstructing an installed-form directory) can
// derive it exactly the same way AddPart/SetGeometry did.
func PadFor(size uint64) uint16 {
	rem := size % Align
	if rem == 0 {
		return 0
	}

	return uint16(Align - rem)
}

// Iterate calls fn for every occupied part entry, stopping early if fn
// returns false.
func (t *PartTable) Iterate(fn func(*PartEntry) bool) {
	for i := 0; i < t.count; i++ {
		if !fn(&t.Entries[i]) {
			return
		}
	}
}

// Find returns the entry with the given id, if present.
func (t *PartTable) Find(id uint32) (*PartEntry, bool) {
	var (
		found *PartEntry
		ok    bool
	)

	t.Iterate(func(e *PartEntry) bool {
		if e.ID != id {
			return true
		}

		found, ok = e, true

		return false
	})

	return found, ok
}

// Count returns the number of occupied part entries.
func (t *PartTable) Count() int {
	return t.count
}

// TotalInstalledSize returns the sum of every part's installed Size,
// excluding alignment padding.
func (t *PartTable) TotalInstalledSize() uint64 {
	var total uint64

	t.Iterate(func(e *PartEntry) bool {
		total += e.Size
		return true
	})

	return total
}

// TotalTransportSize returns the sum of every part's TransportSize where
// set, falling back to Size for parts without a distinct transport
// encoding (spec §4.5: TransportSize).
func (t *PartTable) TotalTransportSize() uint64 {
	var total uint64

	t.Iterate(func(e *PartEntry) bool {
		if e.Flags.HasTransport() && e.TransportSize > 0 {
			total += e.TransportSize
		} else {
			total += e.Size
		}

		return true
	})

	return total
}

func (t *PartTable) recount() {
	t.count = 0
	t.tracker = nil

	for i := range t.Entries {
		if t.Entries[i].ID == 0 {
			break
		}

		t.count = i + 1
	}
}

package header

import (
	"fmt"

	"github.com/bpak-io/bpak/endian"
	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/hash"
	"github.com/bpak-io/bpak/store"
)

// Header is the fully decoded fixed 4096-byte bpak header: fixed fields,
// metadata table, and part directory (spec §3: "Header").
type Header struct {
	Version       uint32
	Alignment     uint32
	HashKind      hash.Kind
	SignatureKind uint8
	PayloadHash   [MaxPayloadHashSize]byte
	SignatureSize uint16
	Signature     [MaxSignatureSize]byte

	Meta  MetaTable
	Parts PartTable
}

// New returns a Header populated with the current format version and
// default alignment, ready for AddPart/AddMeta calls.
func New(hashKind hash.Kind) *Header {
	return &Header{
		Version:   Version,
		Alignment: Align,
		HashKind:  hashKind,
	}
}

// Bytes serializes h into a new Size-byte buffer using little-endian
// packing (spec §6: "On-disk header layout").
func (h *Header) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, Size)

	copy(buf[magicFieldOffset:], Magic[:])
	engine.PutUint32(buf[versionFieldOffset:], h.Version)
	engine.PutUint32(buf[alignmentFieldOffset:], h.Alignment)
	buf[hashKindFieldOffset] = uint8(h.HashKind)
	buf[signatureKindFieldOffset] = h.SignatureKind
	copy(buf[payloadHashFieldOffset:], h.PayloadHash[:])
	engine.PutUint16(buf[signatureSizeFieldOffset:], h.SignatureSize)
	copy(buf[signatureFieldOffset:], h.Signature[:])

	metaBuf := buf[metaTableFieldOffset:]
	for i := 0; i < MaxMetaEntries; i++ {
		e := h.Meta.Entries[i]
		off := i * metaEntrySize
		engine.PutUint32(metaBuf[off:], e.ID)
		engine.PutUint32(metaBuf[off+4:], e.PartIDRef)
		engine.PutUint32(metaBuf[off+8:], e.Offset)
		engine.PutUint32(metaBuf[off+12:], e.Size)
	}

	copy(buf[metaBlobFieldOffset:], h.Meta.Blob[:])

	partBuf := buf[partTableFieldOffset:]
	for i := 0; i < MaxParts; i++ {
		e := h.Parts.Entries[i]
		off := i * partEntrySize
		engine.PutUint32(partBuf[off:], e.ID)
		engine.PutUint64(partBuf[off+4:], e.Size)
		engine.PutUint64(partBuf[off+12:], e.TransportSize)
		engine.PutUint64(partBuf[off+20:], e.Offset)
		engine.PutUint16(partBuf[off+28:], e.PadBytes)
		partBuf[off+30] = uint8(e.Flags)
		partBuf[off+31] = e.reserved
	}

	return buf
}

// Parse decodes a Size-byte buffer into a Header. It does not validate
// semantic invariants beyond the magic tag; call Validate for that.
func Parse(data []byte) (*Header, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("%w: header must be exactly %d bytes, got %d", errs.ErrCorruptTable, Size, len(data))
	}

	if string(data[magicFieldOffset:magicFieldOffset+4]) != string(Magic[:]) {
		return nil, fmt.Errorf("%w: expected %q", errs.ErrBadMagic, Magic)
	}

	engine := endian.GetLittleEndianEngine()
	h := &Header{}

	h.Version = engine.Uint32(data[versionFieldOffset:])
	h.Alignment = engine.Uint32(data[alignmentFieldOffset:])
	h.HashKind = hash.Kind(data[hashKindFieldOffset])
	h.SignatureKind = data[signatureKindFieldOffset]
	copy(h.PayloadHash[:], data[payloadHashFieldOffset:payloadHashFieldOffset+MaxPayloadHashSize])
	h.SignatureSize = engine.Uint16(data[signatureSizeFieldOffset:])
	copy(h.Signature[:], data[signatureFieldOffset:signatureFieldOffset+MaxSignatureSize])

	metaBuf := data[metaTableFieldOffset:]
	for i := 0; i < MaxMetaEntries; i++ {
		off := i * metaEntrySize
		h.Meta.Entries[i] = MetaEntry{
			ID:        engine.Uint32(metaBuf[off:]),
			PartIDRef: engine.Uint32(metaBuf[off+4:]),
			Offset:    engine.Uint32(metaBuf[off+8:]),
			Size:      engine.Uint32(metaBuf[off+12:]),
		}
	}

	copy(h.Meta.Blob[:], data[metaBlobFieldOffset:metaBlobFieldOffset+MetaBlobSize])
	h.Meta.recount()

	partBuf := data[partTableFieldOffset:]
	for i := 0; i < MaxParts; i++ {
		off := i * partEntrySize
		h.Parts.Entries[i] = PartEntry{
			ID:            engine.Uint32(partBuf[off:]),
			Size:          engine.Uint64(partBuf[off+4:]),
			TransportSize: engine.Uint64(partBuf[off+12:]),
			Offset:        engine.Uint64(partBuf[off+20:]),
			PadBytes:      engine.Uint16(partBuf[off+28:]),
			Flags:         PartFlags(partBuf[off+30]),
			reserved:      partBuf[off+31],
		}
	}

	h.Parts.recount()

	return h, nil
}

// Validate checks the structural invariants Parse doesn't: version match,
// hash kind validity, and a signature size that fits within the signature
// field (spec §7: malformed headers must be rejected, not guessed at).
func (h *Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("%w: header version %d, want %d", errs.ErrBadVersion, h.Version, Version)
	}

	if !h.HashKind.IsValid() {
		return fmt.Errorf("%w: unknown hash kind %d", errs.ErrBadHashKind, h.HashKind)
	}

	if int(h.SignatureSize) > MaxSignatureSize {
		return fmt.Errorf("%w: signature size %d exceeds capacity %d", errs.ErrCorruptTable, h.SignatureSize, MaxSignatureSize)
	}

	return nil
}

// ProbeLocation reads b and determines whether its header sits at the
// start of the file (LocationFirst) or in the final Size bytes
// (LocationLast), trying FIRST before LAST (spec §4.1: "locate
// header-at-head vs header-at-tail").
func ProbeLocation(b store.Backend) (*Header, Location, error) {
	buf := make([]byte, Size)

	if _, err := b.ReadAt(buf, 0); err == nil {
		if h, perr := Parse(buf); perr == nil {
			return h, LocationFirst, nil
		}
	}

	size, err := b.Size()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrFailed, err)
	}

	if size < int64(TailHeaderOffset) {
		return nil, 0, fmt.Errorf("%w: file too small for a tail header", errs.ErrCorruptTable)
	}

	if _, err := b.ReadAt(buf, size-int64(TailHeaderOffset)); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrReadError, err)
	}

	h, err := Parse(buf)
	if err != nil {
		return nil, 0, err
	}

	return h, LocationLast, nil
}

// WriteTo writes h's serialized bytes to b at the offset appropriate for
// location: 0 for LocationFirst, or for LocationLast TailHeaderOffset bytes
// from the current end of the backing store, moved forward to the padded
// end of the last part when the parts reach past that point, so a tail
// header never overwrites part data.
func (h *Header) WriteTo(b store.Backend, location Location) error {
	buf := h.Bytes()

	if location == LocationFirst {
		_, err := b.WriteAt(buf, 0)
		return err
	}

	size, err := b.Size()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrFailed, err)
	}

	off := size - int64(TailHeaderOffset)

	h.Parts.Iterate(func(e *PartEntry) bool {
		if end := int64(e.Offset + e.Size + uint64(e.PadBytes)); end > off {
			off = end
		}

		return true
	})

	if off < 0 {
		off = 0
	}

	_, err = b.WriteAt(buf, off)

	return err
}

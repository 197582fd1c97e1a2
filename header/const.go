// Package header implements bit-exact read/write/validation of bpak's
// fixed 4096-byte header, and the in-memory manipulation of its metadata
// table and part directory (spec §3, §4.1, §6).
package header

// Fixed sizes shared by every bpak producer and consumer (spec §9's open
// question: "implementers should treat [capacities] as fixed constants
// declared in a shared header definition, documented as part of the
// format" — declared once, here).
const (
	// Size is the total on-disk size of a bpak header, in both the FIRST
	// and LAST header locations.
	Size = 4096

	// Align is the part-region alignment boundary (spec §3: "ALIGN is a
	// fixed power-of-two, typically 16 or higher").
	Align = 16

	// MaxSignatureSize is the fixed capacity of the header's signature field.
	MaxSignatureSize = 512

	// MaxPayloadHashSize is the fixed capacity of the header's payload_hash
	// field, sized for the widest supported digest (SHA512, 64 bytes).
	// Shorter digests (SHA256, SHA384) occupy a prefix; the remainder is
	// zero.
	MaxPayloadHashSize = 64

	// MaxMetaEntries is the fixed capacity of the metadata table.
	MaxMetaEntries = 64

	// MaxParts is the fixed capacity of the part directory.
	MaxParts = 16

	// metaEntrySize is the on-disk size of one metadata table entry:
	// id(4) + part_id_ref(4) + offset(4) + size(4).
	metaEntrySize = 16

	// partEntrySize is the on-disk size of one part directory entry:
	// id(4) + size(8) + transport_size(8) + offset(8) + pad_bytes(2) +
	// flags(1) + reserved(1).
	partEntrySize = 32

	// fixedFieldsSize is magic(4) + version(4) + alignment(4) + hash_kind(1)
	// + signature_kind(1) + payload_hash(MaxPayloadHashSize) +
	// signature_sz(2) + signature(MaxSignatureSize).
	fixedFieldsSize = 4 + 4 + 4 + 1 + 1 + MaxPayloadHashSize + 2 + MaxSignatureSize

	metaTableSize = MaxMetaEntries * metaEntrySize
	partTableSize = MaxParts * partEntrySize

	// MetaBlobSize is whatever remains of the 4096-byte header after the
	// fixed fields, metadata table, and part directory.
	MetaBlobSize = Size - fixedFieldsSize - metaTableSize - partTableSize

	magicFieldOffset          = 0
	versionFieldOffset        = 4
	alignmentFieldOffset      = 8
	hashKindFieldOffset       = 12
	signatureKindFieldOffset  = 13
	payloadHashFieldOffset    = 14
	signatureSizeFieldOffset  = payloadHashFieldOffset + MaxPayloadHashSize
	signatureFieldOffset      = signatureSizeFieldOffset + 2
	metaTableFieldOffset      = signatureFieldOffset + MaxSignatureSize
	metaBlobFieldOffset       = metaTableFieldOffset + metaTableSize
	partTableFieldOffset      = metaBlobFieldOffset + MetaBlobSize
)

// Magic is the 4-byte tag every valid bpak header starts with ("BPAK").
var Magic = [4]byte{'B', 'P', 'A', 'K'}

// Version is the format version this implementation reads and writes.
// Per spec §9 ("Backward compatibility... new fields require a version
// bump"), a header whose version doesn't match is rejected rather than
// guessed at.
const Version uint32 = 1

// TailHeaderOffset is the fixed distance from end-of-file at which a
// LAST-location header begins, used identically for both the read-probe
// and the write-seek. Spec §9 flags the original source as inconsistent
// here (one path sought sizeof(header) from end on write, 4096 from end
// on read); this implementation collapses both to one named constant.
const TailHeaderOffset = Size

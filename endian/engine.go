// Package endian provides the byte-order engine used to pack and unpack
// bpak's fixed-layout binary structures (header, metadata table, part
// directory, Merkle tree levels).
//
// bpak's on-disk format is little-endian only (see spec §6, "On-disk
// header layout"), but the header codec still goes through an
// EndianEngine rather than calling binary.LittleEndian directly, so the
// field-packing code in header/ reads the same way regardless of which
// concrete encoding/binary.ByteOrder backs it.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used by every
// on-disk bpak structure.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// Package hash provides bpak's two distinct hash concerns: the stable
// 32-bit id used to address parts and metadata entries, and the
// polymorphic payload/header digest engine used for integrity and
// signing (spec §3, §4.2).
package hash

import "hash/crc32"

// ID computes the stable 32-bit identifier for a human-readable name
// (a part name or a metadata key). Per spec §3/§9, this is a fixed,
// non-cryptographic hash so producers and consumers agree on ids without
// ever storing the name itself — CRC32 (IEEE polynomial), matching
// existing BPAK producers.
//
// id == 0 is reserved as the "empty slot" sentinel in the part directory
// and metadata table; callers adding a part or meta entry named such that
// ID returns 0 will collide with that sentinel. This is a structural
// possibility of any 32-bit hash and is not specially guarded against,
// the same way the teacher's 64-bit metric hash treats collisions as rare
// but trackable rather than impossible.
func ID(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(name))
}

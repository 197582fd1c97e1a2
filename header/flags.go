package header

// PartFlags is the packed per-part bit field (spec §3: "Part flags
// (bit-wise)"). Only bits 0 and 1 are interpreted by this package; every
// other bit is preserved verbatim on read/write so a future flag defined
// by another producer round-trips unchanged (spec §9: "Unknown metadata
// ids must round-trip unchanged" applies equally to unknown flag bits).
type PartFlags uint8

const (
	// FlagTransport marks a part as having a transport-encoded
	// representation distinct from its installed form.
	FlagTransport PartFlags = 1 << 0

	// FlagExcludeFromHash excludes a part's bytes from the payload hash.
	FlagExcludeFromHash PartFlags = 1 << 1
)

// HasTransport reports whether the TRANSPORT bit is set.
func (f PartFlags) HasTransport() bool {
	return f&FlagTransport != 0
}

// HasExcludeFromHash reports whether the EXCLUDE_FROM_HASH bit is set.
func (f PartFlags) HasExcludeFromHash() bool {
	return f&FlagExcludeFromHash != 0
}

// WithTransport returns f with the TRANSPORT bit set or cleared.
func (f PartFlags) WithTransport(enabled bool) PartFlags {
	if enabled {
		return f | FlagTransport
	}

	return f &^ FlagTransport
}

// WithExcludeFromHash returns f with the EXCLUDE_FROM_HASH bit set or cleared.
func (f PartFlags) WithExcludeFromHash(enabled bool) PartFlags {
	if enabled {
		return f | FlagExcludeFromHash
	}

	return f &^ FlagExcludeFromHash
}

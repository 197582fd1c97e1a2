package transport

// ZstdCodec is the Zstandard transport backend. Its Encode/Decode methods
// live in zstd_pure.go (pure-Go, used when cgo is disabled) and
// zstd_cgo.go (cgo, faster, used when cgo is enabled), selected by the
// `cgo` build tag.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// Package transport implements bpak's streaming transport codec: per-part
// algorithm dispatch for wire-form encode/decode, plus the archive-level
// encode/decode operations that drive it across every part (spec §4.4).
package transport

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
)

// Algorithm identifies a transport encoding by a 4-byte (uint32) id that
// encoder and decoder have to agree on. The built-in ids are the small
// integers below; the per-part choice comes from a PartAlgorithm function,
// not from the header's metadata table.
type Algorithm uint32

const (
	// AlgorithmNone passes part bytes through unchanged.
	AlgorithmNone Algorithm = 0

	// AlgorithmLZ4 is LZ4 block compression.
	AlgorithmLZ4 Algorithm = 1

	// AlgorithmZstd is Zstandard compression.
	AlgorithmZstd Algorithm = 2

	// AlgorithmS2 is S2 (a Snappy-compatible, faster-decompressing format).
	AlgorithmS2 Algorithm = 3

	// AlgorithmDelta is the origin-bound block-copy delta codec
	// (BlockCopyDeltaCodec). Unlike AlgorithmNone/LZ4/Zstd/S2, a part
	// declaring this algorithm is dispatched through GetDeltaCodec, not
	// GetCodec, and requires an origin archive containing the same part
	// id (spec §4.4: "algorithms requiring a reference stream").
	AlgorithmDelta Algorithm = 4
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmS2:
		return "s2"
	case AlgorithmDelta:
		return "delta"
	default:
		return fmt.Sprintf("algorithm(%d)", uint32(a))
	}
}

// Encoder compresses a part's installed bytes into its wire form.
type Encoder interface {
	Encode(data []byte) ([]byte, error)
}

// Decoder reconstructs a part's installed bytes from its wire form.
type Decoder interface {
	Decode(data []byte) ([]byte, error)
}

// Codec combines Encoder and Decoder for one Algorithm.
type Codec interface {
	Encoder
	Decoder
}

var builtinCodecs = map[Algorithm]Codec{
	AlgorithmNone: NoopCodec{},
	AlgorithmLZ4:  LZ4Codec{},
	AlgorithmZstd: ZstdCodec{},
	AlgorithmS2:   S2Codec{},
}

// GetCodec retrieves the built-in Codec for algo.
//
// Returns errs.ErrUnsupportedAlgorithm if algo is not registered.
func GetCodec(algo Algorithm) (Codec, error) {
	if c, ok := builtinCodecs[algo]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedAlgorithm, algo)
}

var builtinDeltaCodecs = map[Algorithm]DeltaCodec{
	AlgorithmDelta: BlockCopyDeltaCodec{},
}

// IsDeltaAlgorithm reports whether algo is dispatched through
// GetDeltaCodec (and therefore needs an origin part) rather than GetCodec.
func IsDeltaAlgorithm(algo Algorithm) bool {
	_, ok := builtinDeltaCodecs[algo]

	return ok
}

// GetDeltaCodec retrieves the built-in DeltaCodec for algo.
//
// Returns errs.ErrUnsupportedAlgorithm if algo is not registered.
func GetDeltaCodec(algo Algorithm) (DeltaCodec, error) {
	if c, ok := builtinDeltaCodecs[algo]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedAlgorithm, algo)
}

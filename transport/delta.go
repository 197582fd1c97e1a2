package transport

import (
	"bytes"
	"fmt"

	"github.com/bpak-io/bpak/endian"
	"github.com/bpak-io/bpak/errs"
)

// DeltaCodec reconstructs a part against a previously installed version of
// that same part (the "origin"), rather than compressing it in isolation.
//
// spec.md §1 treats the concrete delta algorithm (a real bsdiff-style
// codec) as a pluggable, externally supplied collaborator behind this
// contract; production users are expected to register their own
// DeltaCodec for AlgorithmDelta's id. BlockCopyDeltaCodec below is the
// minimal built-in implementation needed to make the origin-bound path
// (spec §4.4's Encode/Decode contract, §8 scenario 5) exercisable and
// testable without an external dependency.
type DeltaCodec interface {
	// EncodeDelta produces a patch that reconstructs data when applied to
	// origin.
	EncodeDelta(origin, data []byte) ([]byte, error)

	// DecodeDelta applies a patch produced by EncodeDelta to origin,
	// reproducing the original data.
	DecodeDelta(origin, patch []byte) ([]byte, error)
}

// DeltaBlockSize is the granularity BlockCopyDeltaCodec compares origin
// and data at.
const DeltaBlockSize = 4096

const (
	deltaOpLiteral byte = 0
	deltaOpCopy    byte = 1
)

// BlockCopyDeltaCodec is a trivial block-aligned DeltaCodec: data is
// chunked into DeltaBlockSize blocks, and each block that matches origin
// at the same offset is encoded as a five-byte "copy" op (opcode plus
// 4-byte length) instead of being carried literally. It is not bsdiff -- it finds no byte-shifted
// matches -- but it satisfies the declared DeltaCodec contract and
// shrinks a patch against a near-identical, same-offset origin the way
// spec §8 scenario 5 requires.
type BlockCopyDeltaCodec struct{}

// EncodeDelta produces a patch that reconstructs data when applied to
// origin via DecodeDelta.
func (BlockCopyDeltaCodec) EncodeDelta(origin, data []byte) ([]byte, error) {
	engine := endian.GetLittleEndianEngine()

	out := make([]byte, 8, 8+len(data)/4)
	engine.PutUint64(out, uint64(len(data)))

	lenBuf := make([]byte, 4)

	for off := 0; off < len(data); off += DeltaBlockSize {
		end := off + DeltaBlockSize
		if end > len(data) {
			end = len(data)
		}

		block := data[off:end]

		engine.PutUint32(lenBuf, uint32(len(block)))

		if end <= len(origin) && bytes.Equal(origin[off:end], block) {
			out = append(out, deltaOpCopy)
			out = append(out, lenBuf...)
		} else {
			out = append(out, deltaOpLiteral)
			out = append(out, lenBuf...)
			out = append(out, block...)
		}
	}

	return out, nil
}

// DecodeDelta applies a patch produced by EncodeDelta to origin,
// reproducing the original data.
func (BlockCopyDeltaCodec) DecodeDelta(origin, patch []byte) ([]byte, error) {
	if len(patch) < 8 {
		return nil, fmt.Errorf("%w: delta patch shorter than its length prefix", errs.ErrTruncated)
	}

	engine := endian.GetLittleEndianEngine()
	total := engine.Uint64(patch)

	out := make([]byte, 0, total)
	pos := 8

	for uint64(len(out)) < total {
		if pos+5 > len(patch) {
			return nil, fmt.Errorf("%w: delta patch truncated before op header", errs.ErrTruncated)
		}

		op := patch[pos]
		length := int(engine.Uint32(patch[pos+1:]))
		pos += 5

		switch op {
		case deltaOpLiteral:
			if pos+length > len(patch) {
				return nil, fmt.Errorf("%w: delta patch truncated literal block", errs.ErrTruncated)
			}

			out = append(out, patch[pos:pos+length]...)
			pos += length
		case deltaOpCopy:
			start := len(out)
			if start+length > len(origin) {
				return nil, fmt.Errorf("%w: delta copy block exceeds origin length", errs.ErrMissingOrigin)
			}

			out = append(out, origin[start:start+length]...)
		default:
			return nil, fmt.Errorf("%w: unknown delta opcode %d", errs.ErrFailed, op)
		}
	}

	if uint64(len(out)) != total {
		return nil, fmt.Errorf("%w: delta decode produced %d bytes, want %d", errs.ErrSizeError, len(out), total)
	}

	return out, nil
}

package transport

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/header"
	"github.com/bpak-io/bpak/internal/pool"
	"github.com/bpak-io/bpak/store"
)

// Decode reconstructs installed-form parts from patch (the transport-form
// archive Encode produced) into out, resolving delta-flagged parts against
// origin's same-id part. Each part is driven through the IDLE -> STARTED ->
// WRITING -> FINISHED lifecycle decodeState enforces (spec §4.4: "State
// machine (per part)"), and every byte crosses ChunkSize-sized buffers
// rather than one whole-part read (spec §4.4: "Buffer discipline").
//
// hdr's part directory is rewritten in place to describe the installed-form
// layout this call just produced in out (Offset and PadBytes recomputed the
// same way PartTable.AddPart/SetGeometry establish them originally,
// TransportSize zeroed, the TRANSPORT flag cleared), and hdr.PayloadHash is
// recomputed over those installed-form bytes before returning -- the
// "finalized header" spec §4.4's Header rewrite contract requires, so the
// caller only has to write hdr out afterward.
func Decode(hdr *header.Header, patch store.Backend, origin store.Backend, out store.Backend, outBase int64, algoFor PartAlgorithm) error {
	originHdr, err := probeOrigin(origin)
	if err != nil {
		return err
	}

	chunkBuf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(chunkBuf)
	chunk := chunkBuf.Slice(0, ChunkSize)

	partBuf := pool.GetPartBuffer()
	defer pool.PutPartBuffer(partBuf)

	writeOffset := outBase
	state := decodeIdle
	var iterErr error

	hdr.Parts.Iterate(func(p *header.PartEntry) bool {
		if state, iterErr = state.transition(decodeStarted); iterErr != nil {
			return false
		}

		size := p.TransportSize
		if size == 0 {
			size = p.Size
		}

		partBuf.Reset()

		if state, iterErr = state.transition(decodeWriting); iterErr != nil {
			return false
		}

		if err := readPartChunked(patch, int64(p.Offset), int64(size), chunk, partBuf); err != nil {
			iterErr = fmt.Errorf("%w: part %d: %v", errs.ErrReadError, p.ID, err)
			return false
		}

		transportBytes := append([]byte(nil), partBuf.Bytes()...)

		installed := transportBytes

		if p.Flags.HasTransport() {
			decoded, err := decodePart(p.ID, algoFor(p.ID), originHdr, origin, transportBytes)
			if err != nil {
				iterErr = err
				return false
			}

			installed = decoded
		}

		if uint64(len(installed)) != p.Size {
			iterErr = fmt.Errorf("%w: part %d: decoded %d bytes, want %d", errs.ErrSizeError, p.ID, len(installed), p.Size)
			return false
		}

		if err := writeChunked(out, writeOffset, installed, chunk); err != nil {
			iterErr = fmt.Errorf("%w: part %d: %v", errs.ErrWriteError, p.ID, err)
			return false
		}

		if state, iterErr = state.transition(decodeFinished); iterErr != nil {
			return false
		}

		pad := header.PadFor(p.Size)

		p.Offset = uint64(writeOffset)
		p.PadBytes = pad
		p.TransportSize = 0
		p.Flags = p.Flags.WithTransport(false)

		writeOffset += int64(len(installed)) + int64(pad)

		return true
	})

	if iterErr != nil {
		return iterErr
	}

	return header.ComputePayloadHash(hdr, out)
}

// decodePart reverses encodePart: it runs transportBytes back through the
// algorithm algo resolves to, binding to origin's same-id part first if
// algo is a DeltaCodec.
func decodePart(partID uint32, algo Algorithm, originHdr *header.Header, origin store.Backend, transportBytes []byte) ([]byte, error) {
	if IsDeltaAlgorithm(algo) {
		originData, err := originPartBytes(originHdr, origin, partID)
		if err != nil {
			return nil, err
		}

		codec, err := GetDeltaCodec(algo)
		if err != nil {
			return nil, err
		}

		decoded, err := codec.DecodeDelta(originData, transportBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", errs.ErrFailed, partID, err)
		}

		return decoded, nil
	}

	codec, err := GetCodec(algo)
	if err != nil {
		return nil, err
	}

	decoded, err := codec.Decode(transportBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: part %d: %v", errs.ErrFailed, partID, err)
	}

	return decoded, nil
}

package transport

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/header"
	"github.com/bpak-io/bpak/internal/pool"
	"github.com/bpak-io/bpak/store"
)

// PartAlgorithm resolves the transport algorithm to use for a given part
// id. Encode and Decode take the algorithm only from this caller-supplied
// function; they neither read nor write any "bpak-transport-*" metadata
// entry.
type PartAlgorithm func(partID uint32) Algorithm

// Encode rewrites in's parts into out: parts flagged TRANSPORT are run
// through the algorithm algoFor resolves for them -- against the
// matching part in origin when that algorithm is a DeltaCodec (spec
// §4.4: "Locate the same-id part in the origin, if origin provided and
// algorithm requires it") -- ; every other part is copied through
// unchanged. hdr's part directory is rewritten in place to describe the
// transport-form layout this call just produced (Offset is the byte
// position in out, TransportSize its length, PadBytes 0 -- wire regions
// are not alignment-padded), and hdr.PayloadHash is recomputed over
// those transport-form bytes before returning, so the caller only has to
// write hdr out afterward, the same separation Package.AddFile and
// Package.UpdateHash keep (spec §4.4's Encode contract, grounded on
// original_source's bpak_pkg_transport_encode).
func Encode(hdr *header.Header, in store.Backend, origin store.Backend, out store.Backend, outBase int64, algoFor PartAlgorithm) error {
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
	var iterErr error

	hdr.Parts.Iterate(func(p *header.PartEntry) bool {
		partBuf.Reset()

		if err := readPartChunked(in, int64(p.Offset), int64(p.Size), chunk, partBuf); err != nil {
			iterErr = fmt.Errorf("%w: part %d: %v", errs.ErrReadError, p.ID, err)
			return false
		}

		installed := append([]byte(nil), partBuf.Bytes()...)

		payload := installed

		if p.Flags.HasTransport() {
			encoded, err := encodePart(p.ID, algoFor(p.ID), originHdr, origin, installed)
			if err != nil {
				iterErr = err
				return false
			}

			payload = encoded
		}

		if err := writeChunked(out, writeOffset, payload, chunk); err != nil {
			iterErr = fmt.Errorf("%w: part %d: %v", errs.ErrWriteError, p.ID, err)
			return false
		}

		p.Offset = uint64(writeOffset)
		p.TransportSize = uint64(len(payload))
		p.PadBytes = 0

		writeOffset += int64(len(payload))

		return true
	})

	if iterErr != nil {
		return iterErr
	}

	return header.ComputeTransportPayloadHash(hdr, out)
}

// encodePart runs installed through the algorithm algo resolves to,
// binding to origin's same-id part first if algo is a DeltaCodec.
func encodePart(partID uint32, algo Algorithm, originHdr *header.Header, origin store.Backend, installed []byte) ([]byte, error) {
	if IsDeltaAlgorithm(algo) {
		originData, err := originPartBytes(originHdr, origin, partID)
		if err != nil {
			return nil, err
		}

		codec, err := GetDeltaCodec(algo)
		if err != nil {
			return nil, err
		}

		encoded, err := codec.EncodeDelta(originData, installed)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", errs.ErrFailed, partID, err)
		}

		return encoded, nil
	}

	codec, err := GetCodec(algo)
	if err != nil {
		return nil, err
	}

	encoded, err := codec.Encode(installed)
	if err != nil {
		return nil, fmt.Errorf("%w: part %d: %v", errs.ErrFailed, partID, err)
	}

	return encoded, nil
}

// probeOrigin parses origin's header if origin is non-nil, so Encode and
// Decode only pay the ProbeLocation cost once per call rather than once
// per delta-flagged part.
func probeOrigin(origin store.Backend) (*header.Header, error) {
	if origin == nil {
		return nil, nil
	}

	h, _, err := header.ProbeLocation(origin)
	if err != nil {
		return nil, fmt.Errorf("%w: origin: %v", errs.ErrMissingOrigin, err)
	}

	return h, nil
}

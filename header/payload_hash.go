package header

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/hash"
	"github.com/bpak-io/bpak/internal/pool"
	"github.com/bpak-io/bpak/store"
)

// ComputePayloadHash digests every part not flagged EXCLUDE_FROM_HASH, in
// part directory order, and stores the result in h.PayloadHash (spec §4.2:
// "payload hash... digest over the concatenation of every part's bytes
// that the EXCLUDE_FROM_HASH flag does not exclude, in part-directory
// order").
func ComputePayloadHash(h *Header, parts store.PartReader) error {
	engine, err := hash.GetEngine(h.HashKind)
	if err != nil {
		return err
	}

	digest := engine.New()
	buf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(buf)

	var rangeErr error

	h.Parts.Iterate(func(e *PartEntry) bool {
		if e.Flags.HasExcludeFromHash() {
			return true
		}

		if rangeErr = copyRange(digest, parts, int64(e.Offset), int64(e.Size), buf); rangeErr != nil {
			return false
		}

		return true
	})

	if rangeErr != nil {
		return rangeErr
	}

	sum := digest.Sum(nil)
	copy(h.PayloadHash[:], sum)

	return nil
}

// ComputeTransportPayloadHash digests every part not flagged
// EXCLUDE_FROM_HASH the same way ComputePayloadHash does, except that it
// reads TransportSize bytes at Offset rather than Size -- the
// transport-form layout a transport.Encode call just wrote to parts,
// not the installed-form layout (spec §4.4: "The output's header is
// written last, with an updated payload hash computed over the
// transport-form bytes").
func ComputeTransportPayloadHash(h *Header, parts store.PartReader) error {
	engine, err := hash.GetEngine(h.HashKind)
	if err != nil {
		return err
	}

	digest := engine.New()
	buf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(buf)

	var rangeErr error

	h.Parts.Iterate(func(e *PartEntry) bool {
		if e.Flags.HasExcludeFromHash() {
			return true
		}

		if rangeErr = copyRange(digest, parts, int64(e.Offset), int64(e.TransportSize), buf); rangeErr != nil {
			return false
		}

		return true
	})

	if rangeErr != nil {
		return rangeErr
	}

	sum := digest.Sum(nil)
	copy(h.PayloadHash[:], sum)

	return nil
}

// ComputeHeaderHash digests the header's own serialized bytes with the
// signature field zeroed (spec §4.2: "header hash... same digest engine,
// computed over the header's own bytes with the signature field zeroed
// out"), so a header hash can be computed before a signature exists and
// verified independently of it.
func ComputeHeaderHash(h *Header) ([]byte, error) {
	engine, err := hash.GetEngine(h.HashKind)
	if err != nil {
		return nil, err
	}

	clone := *h
	clone.SignatureSize = 0
	clone.Signature = [MaxSignatureSize]byte{}

	digest := engine.New()
	digest.Write(clone.Bytes())

	return digest.Sum(nil), nil
}

func copyRange(w interface{ Write([]byte) (int, error) }, r store.PartReader, offset, size int64, buf *pool.ByteBuffer) error {
	remaining := size
	pos := offset

	for remaining > 0 {
		chunk := buf.Cap()
		if int64(chunk) > remaining {
			chunk = int(remaining)
		}

		data := buf.Slice(0, chunk)

		n, err := r.ReadAt(data, pos)
		if n > 0 {
			if _, werr := w.Write(data[:n]); werr != nil {
				return fmt.Errorf("%w: %v", errs.ErrFailed, werr)
			}
		}

		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrReadError, err)
		}

		pos += int64(n)
		remaining -= int64(n)
	}

	return nil
}

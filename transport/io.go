package transport

import (
	"errors"
	"fmt"
	"io"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/header"
	"github.com/bpak-io/bpak/internal/pool"
	"github.com/bpak-io/bpak/store"
)

// ChunkSize is the fixed working-buffer size spec §4.4's "Buffer
// discipline" mandates ("4 KiB decode buffer"). Encode and Decode both
// move part bytes through a buffer of exactly this size rather than
// issuing one ReadAt/WriteAt sized to the whole part.
const ChunkSize = 4096

// readFullAt reads exactly len(buf) bytes from r starting at off,
// looping over short reads instead of treating them as failures (spec
// §4.4: "must be tolerant of short reads from the backing store and must
// loop until requested bytes are obtained or an error is signaled").
func readFullAt(r store.Backend, buf []byte, off int64) error {
	got := 0

	for got < len(buf) {
		n, err := r.ReadAt(buf[got:], off+int64(got))
		got += n

		if err != nil {
			if errors.Is(err, io.EOF) && got == len(buf) {
				return nil
			}

			return fmt.Errorf("%w: %v", errs.ErrReadError, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: zero-byte read with no error", errs.ErrReadError)
		}
	}

	return nil
}

// readPartChunked reads size bytes starting at base from r into dst,
// moving them through chunk ChunkSize bytes at a time rather than in one
// call, so the transport codec's read path honors the fixed 4 KiB
// working-buffer discipline regardless of part size.
func readPartChunked(r store.Backend, base, size int64, chunk []byte, dst *pool.ByteBuffer) error {
	dst.Grow(int(size))

	remaining := size
	pos := base

	for remaining > 0 {
		n := int64(len(chunk))
		if n > remaining {
			n = remaining
		}

		if err := readFullAt(r, chunk[:n], pos); err != nil {
			return err
		}

		dst.MustWrite(chunk[:n])
		pos += n
		remaining -= n
	}

	return nil
}

// writeChunked writes data to w starting at base, moving it through chunk
// ChunkSize bytes at a time for the same reason readPartChunked does.
func writeChunked(w store.Backend, base int64, data []byte, chunk []byte) error {
	pos := base

	for off := 0; off < len(data); {
		n := len(chunk)
		if off+n > len(data) {
			n = len(data) - off
		}

		copy(chunk[:n], data[off:off+n])

		if _, err := w.WriteAt(chunk[:n], pos); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrWriteError, err)
		}

		off += n
		pos += int64(n)
	}

	return nil
}

// originPartBytes reads the installed bytes of the part named by partID
// out of origin, using originHdr (already parsed via
// header.ProbeLocation) to locate it.
//
// Returns errs.ErrMissingOrigin if originHdr is nil or has no part with
// that id (spec §4.4: "absent or mismatched id => MISSING_ORIGIN").
func originPartBytes(originHdr *header.Header, origin store.Backend, partID uint32) ([]byte, error) {
	if originHdr == nil {
		return nil, fmt.Errorf("%w: part %d: no origin archive provided", errs.ErrMissingOrigin, partID)
	}

	originPart, ok := originHdr.Parts.Find(partID)
	if !ok {
		return nil, fmt.Errorf("%w: part %d not present in origin", errs.ErrMissingOrigin, partID)
	}

	data := make([]byte, originPart.Size)
	if err := readFullAt(origin, data, int64(originPart.Offset)); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrReadError, err)
	}

	return data, nil
}

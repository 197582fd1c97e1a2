// Package store defines the backing-store abstraction shared by the
// header codec, the Merkle builder, and the transport codec (spec §5/§6:
// "Backing-store callback surface"). Every subsystem that needs to read
// or write archive bytes at an absolute offset goes through a Backend
// rather than assuming a particular concrete file type, matching the
// function-pointer callback seam the original C implementation used
// (pkg_read_payload, decode_write_output, merkle_wr/merkle_rd in
// original_source/lib/pkg.c and pkg_create.c) — expressed here as Go's
// standard io.ReaderAt/io.WriterAt rather than bespoke callback structs.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bpak-io/bpak/errs"
)

// Backend is a randomly-addressable byte store: an open archive file, an
// origin archive, or an in-memory buffer. A short read or write is always
// treated as an error, never as a signal to retry — the caller layer, not
// Backend implementations, is responsible for retries (spec §6).
type Backend interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Size returns the current size of the backing store in bytes.
	Size() (int64, error)

	// Truncate resizes the backing store to size bytes.
	Truncate(size int64) error
}

// PartReader is a semantic alias for Backend used where a caller only
// reads already-written part bytes (the hash engine, the Merkle builder)
// rather than mutating the archive.
type PartReader = Backend

// FileBackend is a Backend over an *os.File.
type FileBackend struct {
	f *os.File
}

var _ Backend = (*FileBackend)(nil)

// OpenFile opens path with the given flags/permissions and wraps it as a
// Backend.
func OpenFile(path string, flag int, perm os.FileMode) (*FileBackend, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: %s: %v", errs.ErrFailed, path, err)
	}

	return &FileBackend{f: f}, nil
}

func (b *FileBackend) ReadAt(p []byte, off int64) (int, error) {
	n, err := b.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", errs.ErrReadError, err)
	}

	return n, err
}

func (b *FileBackend) WriteAt(p []byte, off int64) (int, error) {
	n, err := b.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("%w: %v", errs.ErrWriteError, err)
	}

	return n, nil
}

func (b *FileBackend) Size() (int64, error) {
	fi, err := b.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrFailed, err)
	}

	return fi.Size(), nil
}

func (b *FileBackend) Truncate(size int64) error {
	if err := b.f.Truncate(size); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrFailed, err)
	}

	return nil
}

func (b *FileBackend) Close() error {
	return b.f.Close()
}

// MemBackend is an in-memory Backend, useful for tests and for holding an
// archive entirely in RAM during construction.
type MemBackend struct {
	buf []byte
}

var _ Backend = (*MemBackend)(nil)

// NewMemBackend creates an empty in-memory Backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

// NewMemBackendFromBytes wraps an existing byte slice as a Backend. The
// slice is copied so later mutation through the Backend doesn't alias the
// caller's slice.
func NewMemBackendFromBytes(data []byte) *MemBackend {
	buf := make([]byte, len(data))
	copy(buf, data)

	return &MemBackend{buf: buf}
}

func (b *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset", errs.ErrSeekError)
	}

	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}

	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (b *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset", errs.ErrSeekError)
	}

	end := off + int64(len(p))
	if end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}

	return copy(b.buf[off:end], p), nil
}

func (b *MemBackend) Size() (int64, error) {
	return int64(len(b.buf)), nil
}

func (b *MemBackend) Truncate(size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrFailed)
	}

	if size <= int64(len(b.buf)) {
		b.buf = b.buf[:size]

		return nil
	}

	grown := make([]byte, size)
	copy(grown, b.buf)
	b.buf = grown

	return nil
}

func (b *MemBackend) Close() error { return nil }

// Bytes returns the backend's current contents. The returned slice aliases
// the backend's internal buffer and must not be retained across further
// writes.
func (b *MemBackend) Bytes() []byte {
	return b.buf
}

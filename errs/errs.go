// Package errs defines the sentinel error values shared across bpak's
// subpackages. Callers should compare with errors.Is, never string
// matching; call sites wrap a sentinel with additional context via
// fmt.Errorf("%w: ...", errs.ErrXxx, ...).
package errs

import "errors"

// Integrity errors: the header or its tables failed validation.
var (
	ErrBadMagic     = errors.New("bpak: bad magic")
	ErrBadVersion   = errors.New("bpak: bad version")
	ErrBadHashKind  = errors.New("bpak: bad hash kind")
	ErrCorruptTable = errors.New("bpak: corrupt metadata or part table")
)

// Capacity errors: a fixed-size table or blob ran out of room.
var (
	ErrOutOfSpace     = errors.New("bpak: out of space")
	ErrBufferTooSmall = errors.New("bpak: buffer too small")
	ErrDuplicateID    = errors.New("bpak: duplicate id")
)

// I/O errors: the backing store failed.
var (
	ErrReadError  = errors.New("bpak: read error")
	ErrWriteError = errors.New("bpak: write error")
	ErrSeekError  = errors.New("bpak: seek error")
	ErrNotFound   = errors.New("bpak: not found")
)

// Transport errors: encode/decode of a part's wire form failed.
var (
	ErrUnsupportedAlgorithm = errors.New("bpak: unsupported transport algorithm")
	ErrMissingOrigin        = errors.New("bpak: missing or mismatched origin part")
	ErrTruncated            = errors.New("bpak: truncated transport stream")
	ErrOverrun              = errors.New("bpak: transport stream overrun")
	ErrSizeError            = errors.New("bpak: size mismatch")
)

// Policy errors.
var (
	ErrNotSupported = errors.New("bpak: not supported")
	ErrFailed       = errors.New("bpak: operation failed")
)

// Hash errors.
var (
	ErrUnsupportedHash = errors.New("bpak: unsupported hash kind")
)

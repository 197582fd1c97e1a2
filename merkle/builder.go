// Package merkle builds and sizes the salted, block-wise hash tree bpak
// stores alongside a large part so a bootloader can verify it block by
// block at install time (spec §4.3).
package merkle

import (
	"crypto/sha256"
	"fmt"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/internal/pool"
	"github.com/bpak-io/bpak/store"
)

// BlockSize is the fixed block size every tree level is chunked and
// padded to.
const BlockSize = 4096

// HashSize is the width of the digest used at every level (SHA-256).
const HashSize = sha256.Size

// Salt is the per-part random value mixed into every block digest.
type Salt [HashSize]byte

// Root is the 32-byte Merkle root hash.
type Root [HashSize]byte

// Builder is a streaming accumulator over a part's bytes: Write feeds
// level 0 one chunk at a time, and Finish flushes the final partial block
// and cascades level 1 upward through the tree, writing every level but
// the root to out and returning the root hash.
type Builder struct {
	salt Salt
	out  store.Backend
	base int64

	level0  *pool.ByteBuffer
	written int64
	total   int64
}

// NewBuilder returns a Builder that writes tree levels to out starting at
// byte offset base.
func NewBuilder(salt Salt, out store.Backend, base int64) *Builder {
	return &Builder{
		salt:   salt,
		out:    out,
		base:   base,
		level0: pool.NewByteBuffer(BlockSize),
	}
}

// Write feeds p into level 0, hashing each full BlockSize chunk as it
// accumulates. It never returns a short write.
func (b *Builder) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	b.level0.MustWrite(p)

	var digests []byte

	for b.level0.Len() >= BlockSize {
		block := b.level0.Bytes()[:BlockSize]
		digests = append(digests, hashBlock(b.salt, block)...)

		rest := append([]byte(nil), b.level0.Bytes()[BlockSize:]...)
		b.level0.Reset()
		b.level0.MustWrite(rest)
	}

	if len(digests) > 0 {
		if err := b.writeLevel(digests); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Finish flushes any partial trailing block, cascades the remaining
// levels, and returns the tree root. Further calls to Write are invalid.
func (b *Builder) Finish() (Root, error) {
	if b.total == 0 {
		zero := make([]byte, BlockSize)

		if err := b.writeLevel(zero); err != nil {
			return Root{}, err
		}

		return Root(hashBlock(b.salt, zero)), nil
	}

	if b.level0.Len() > 0 {
		block := make([]byte, BlockSize)
		copy(block, b.level0.Bytes())

		if err := b.writeLevel(hashBlock(b.salt, block)); err != nil {
			return Root{}, err
		}

		b.level0.Reset()
	}

	return b.cascade()
}

// writeLevel appends raw bytes to the tail of the tree blob written so
// far.
func (b *Builder) writeLevel(p []byte) error {
	if _, err := b.out.WriteAt(p, b.base+b.written); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrWriteError, err)
	}

	b.written += int64(len(p))

	return nil
}

// cascade re-reads the just-written level-1 bytes back from out, pads
// them to a multiple of BlockSize, and repeatedly digests upward until a
// level of size <= BlockSize is reached; that level's single-block digest
// is the root.
func (b *Builder) cascade() (Root, error) {
	levelStart := int64(0)
	levelLen := b.written

	for {
		padded, err := b.readPadded(levelStart, levelLen)
		if err != nil {
			return Root{}, err
		}

		if int64(len(padded)) != levelLen {
			if err := b.writeLevel(padded[levelLen:]); err != nil {
				return Root{}, err
			}
		}

		if len(padded) <= BlockSize {
			return Root(hashBlock(b.salt, padded)), nil
		}

		nextStart := b.written
		var next []byte

		for off := 0; off < len(padded); off += BlockSize {
			next = append(next, hashBlock(b.salt, padded[off:off+BlockSize])...)
		}

		if err := b.writeLevel(next); err != nil {
			return Root{}, err
		}

		levelStart = nextStart
		levelLen = int64(len(next))
	}
}

func (b *Builder) readPadded(start, length int64) ([]byte, error) {
	buf := make([]byte, length)

	if length > 0 {
		if _, err := b.out.ReadAt(buf, b.base+start); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrReadError, err)
		}
	}

	rem := length % BlockSize
	if rem == 0 {
		return buf, nil
	}

	pad := make([]byte, BlockSize-rem)

	return append(buf, pad...), nil
}

func hashBlock(salt Salt, block []byte) []byte {
	h := sha256.New()
	h.Write(salt[:])
	h.Write(block)

	return h.Sum(nil)
}

// TreeSize returns the total number of bytes the tree for an N-byte part
// occupies, independent of any Builder instance (spec §4.3: "A builder
// must expose this as a pure function of N").
func TreeSize(n int64) int64 {
	blocks := (n + BlockSize - 1) / BlockSize
	if blocks == 0 {
		blocks = 1
	}

	var total int64

	for {
		levelRaw := blocks * HashSize
		levelPadded := ceilTo(levelRaw, BlockSize)
		total += levelPadded

		blocks = levelPadded / BlockSize
		if blocks == 1 {
			return total
		}
	}
}

func ceilTo(n, multiple int64) int64 {
	if n%multiple == 0 {
		return n
	}

	return (n/multiple + 1) * multiple
}

package hash

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/bpak-io/bpak/errs"
)

// Kind enumerates the hash algorithms a bpak header may declare (spec §3:
// "An enumerated hash kind: {SHA256, SHA384, SHA512}").
type Kind uint8

const (
	SHA256 Kind = 1
	SHA384 Kind = 2
	SHA512 Kind = 3
)

// Size returns the digest width in bytes for k, or 0 if k is unknown.
func (k Kind) Size() int {
	switch k {
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case SHA512:
		return "SHA512"
	default:
		return "Unknown"
	}
}

// IsValid reports whether k is one of the three recognized hash kinds.
func (k Kind) IsValid() bool {
	switch k {
	case SHA256, SHA384, SHA512:
		return true
	default:
		return false
	}
}

// Engine is bpak's polymorphism seam over {SHA256, SHA384, SHA512}: a
// tagged variant exposing the same {init, update, finish} capability set
// stdlib's hash.Hash already provides (spec §9), rather than an
// inheritance hierarchy of hash types.
type Engine interface {
	// New returns a fresh stdlib hash.Hash for this engine's kind.
	New() hash.Hash
	// Kind returns the hash kind this engine implements.
	Kind() Kind
}

type engine struct {
	kind Kind
	new  func() hash.Hash
}

func (e engine) New() hash.Hash { return e.new() }
func (e engine) Kind() Kind     { return e.kind }

var builtinEngines = map[Kind]Engine{
	SHA256: engine{kind: SHA256, new: sha256.New},
	SHA384: engine{kind: SHA384, new: sha512.New384},
	SHA512: engine{kind: SHA512, new: sha512.New},
}

// GetEngine retrieves the built-in Engine for kind.
//
// Returns errs.ErrUnsupportedHash if kind is not one of {SHA256, SHA384, SHA512}.
func GetEngine(kind Kind) (Engine, error) {
	if e, ok := builtinEngines[kind]; ok {
		return e, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedHash, kind)
}

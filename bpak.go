package bpak

import (
	"os"

	"github.com/bpak-io/bpak/hash"
	"github.com/bpak-io/bpak/store"
)

// CreateFile creates a new archive at path, truncating it if it already
// exists, and returns an open Package over it.
func CreateFile(path string, hashKind hash.Kind, opts ...OpenOption) (*Package, error) {
	backend, err := store.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	pkg, err := Create(backend, hashKind, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return pkg, nil
}

// OpenFile opens the archive at path for reading and writing.
func OpenFile(path string, opts ...OpenOption) (*Package, error) {
	backend, err := store.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	pkg, err := Open(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return pkg, nil
}

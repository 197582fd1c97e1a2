// Package bpak implements the Bit Packer firmware-update archive
// container: a fixed-size header with metadata and part directories, a
// Merkle-tree builder/verifier for block-level verification, and a
// streaming transport codec for wire-form encode/decode.
package bpak

import (
	"fmt"
	"log"

	"github.com/bpak-io/bpak/hash"
	"github.com/bpak-io/bpak/header"
	"github.com/bpak-io/bpak/internal/options"
	"github.com/bpak-io/bpak/merkle"
	"github.com/bpak-io/bpak/store"
	"github.com/bpak-io/bpak/transport"
)

// Package is an open bpak archive: a decoded Header plus the backing
// store it was read from or will be written to (spec §4.5's Package
// facade).
type Package struct {
	hdr      *header.Header
	backend  store.Backend
	location header.Location
	logger   *log.Logger
}

// OpenOption configures Open/Create.
type OpenOption = options.Option[*Package]

// WithLogger directs the package's diagnostic output to l instead of the
// default discard logger.
func WithLogger(l *log.Logger) OpenOption {
	return options.NoError(func(p *Package) {
		p.logger = l
	})
}

// WithHeaderLocation forces Create to place the header at loc instead of
// the default LocationFirst, for streamable producers that write parts
// before the header is known (spec §3: "header-at-tail layout for
// streamable producers").
func WithHeaderLocation(loc header.Location) OpenOption {
	return options.NoError(func(p *Package) {
		p.location = loc
	})
}

var discardLogger = log.New(logDiscard{}, "", 0)

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }

// Create initializes an empty archive over backend using hashKind for its
// payload/header digests and writes an initial header.
func Create(backend store.Backend, hashKind hash.Kind, opts ...OpenOption) (*Package, error) {
	pkg := &Package{
		hdr:      header.New(hashKind),
		backend:  backend,
		location: header.LocationFirst,
		logger:   discardLogger,
	}

	if err := options.Apply(pkg, opts...); err != nil {
		return nil, err
	}

	if err := backend.Truncate(header.Size); err != nil {
		return nil, err
	}

	if err := pkg.hdr.WriteTo(backend, pkg.location); err != nil {
		return nil, err
	}

	return pkg, nil
}

// Open reads and validates the header already present in backend,
// probing both the FIRST and LAST header locations.
func Open(backend store.Backend, opts ...OpenOption) (*Package, error) {
	hdr, loc, err := header.ProbeLocation(backend)
	if err != nil {
		return nil, err
	}

	if err := hdr.Validate(); err != nil {
		return nil, err
	}

	pkg := &Package{
		hdr:      hdr,
		backend:  backend,
		location: loc,
		logger:   discardLogger,
	}

	if err := options.Apply(pkg, opts...); err != nil {
		return nil, err
	}

	return pkg, nil
}

// Header returns the package's in-memory header.
func (p *Package) Header() *header.Header {
	return p.hdr
}

// Close releases the backing store.
func (p *Package) Close() error {
	return p.backend.Close()
}

// partDataOffset returns the offset new part bytes should be written at:
// immediately after the last existing part, or right after the header
// for the first part in a LocationFirst archive.
func (p *Package) partDataOffset() int64 {
	if p.hdr.Parts.Count() == 0 {
		if p.location == header.LocationFirst {
			return header.Size
		}

		return 0
	}

	var last *header.PartEntry

	p.hdr.Parts.Iterate(func(e *header.PartEntry) bool {
		last = e
		return true
	})

	return int64(last.Offset + last.Size + uint64(last.PadBytes))
}

// AddFile appends data as a new part named name, pads it to header.Align,
// recomputes the payload hash, and rewrites the header (spec §4.5:
// "add_file... updates directory, zero-pads to ALIGN, recomputes payload
// hash, rewrites header").
func (p *Package) AddFile(name string, data []byte, flags header.PartFlags) (*header.PartEntry, error) {
	id := hash.ID(name)

	entry, err := p.hdr.Parts.AddPart(id, p.location)
	if err != nil {
		return nil, err
	}

	header.SetGeometry(entry, uint64(len(data)), flags)

	if _, err := p.backend.WriteAt(data, int64(entry.Offset)); err != nil {
		return nil, err
	}

	if entry.PadBytes > 0 {
		if _, err := p.backend.WriteAt(make([]byte, entry.PadBytes), int64(entry.Offset+entry.Size)); err != nil {
			return nil, err
		}
	}

	p.logger.Printf("bpak: added part %q (id=%#x, size=%d)", name, id, len(data))

	if err := p.UpdateHash(); err != nil {
		return nil, err
	}

	return entry, nil
}

// AddFileWithMerkleTree calls AddFile, then builds a salted Merkle tree
// over the new part's bytes and appends it as a sibling part with
// "merkle-salt" and "merkle-root-hash" metadata keyed to the original
// part's id (spec §4.5).
func (p *Package) AddFileWithMerkleTree(name string, data []byte, flags header.PartFlags, salt merkle.Salt) (*header.PartEntry, *header.PartEntry, error) {
	fileEntry, err := p.AddFile(name, data, flags)
	if err != nil {
		return nil, nil, err
	}

	treeSize := merkle.TreeSize(int64(len(data)))
	treeID := hash.ID(name + "-hash-tree")

	treeEntry, err := p.hdr.Parts.AddPart(treeID, p.location)
	if err != nil {
		return nil, nil, err
	}

	header.SetGeometry(treeEntry, uint64(treeSize), flags)
	treeEntry.PadBytes = 0 // tree size is already a multiple of merkle.BlockSize

	builder := merkle.NewBuilder(salt, p.backend, int64(treeEntry.Offset))

	if _, err := builder.Write(data); err != nil {
		return nil, nil, err
	}

	root, err := builder.Finish()
	if err != nil {
		return nil, nil, err
	}

	saltRegion, err := p.hdr.Meta.AddMeta(hash.ID("merkle-salt"), fileEntry.ID, uint32(len(salt)))
	if err != nil {
		return nil, nil, err
	}

	copy(saltRegion, salt[:])

	rootRegion, err := p.hdr.Meta.AddMeta(hash.ID("merkle-root-hash"), fileEntry.ID, uint32(len(root)))
	if err != nil {
		return nil, nil, err
	}

	copy(rootRegion, root[:])

	if err := p.UpdateHash(); err != nil {
		return nil, nil, err
	}

	if err := p.hdr.WriteTo(p.backend, p.location); err != nil {
		return nil, nil, err
	}

	return fileEntry, treeEntry, nil
}

// AddKey appends the DER-encoded public key in der as a new part named
// name (spec §4.5: "add_key... append the DER-encoded public key from
// path as a part", supplemented from original_source's
// bpak_pkg_add_key).
func (p *Package) AddKey(name string, der []byte) (*header.PartEntry, error) {
	return p.AddFile(name, der, header.PartFlags(0).WithExcludeFromHash(true))
}

// Sign copies raw into the header's signature field and rewrites the
// header. No hashing or verification happens here: the caller is
// expected to have produced raw over a header hash obtained from
// HeaderHash (spec §4.5).
func (p *Package) Sign(raw []byte) error {
	if len(raw) > header.MaxSignatureSize {
		return fmt.Errorf("signature of %d bytes exceeds capacity %d", len(raw), header.MaxSignatureSize)
	}

	p.hdr.Signature = [header.MaxSignatureSize]byte{}
	copy(p.hdr.Signature[:], raw)
	p.hdr.SignatureSize = uint16(len(raw))

	return p.hdr.WriteTo(p.backend, p.location)
}

// UpdateHash recomputes the payload hash over the archive's current
// parts and rewrites the header (spec §4.5: "update_hash... recompute
// payload hash... rewrites header").
func (p *Package) UpdateHash() error {
	if err := header.ComputePayloadHash(p.hdr, p.backend); err != nil {
		return err
	}

	return p.hdr.WriteTo(p.backend, p.location)
}

// HeaderHash returns the header hash: the digest signed by Sign's caller
// (spec §4.5: "update_hash(opt out, opt size)... optionally compute and
// return the header hash").
func (p *Package) HeaderHash() ([]byte, error) {
	return header.ComputeHeaderHash(p.hdr)
}

// InstalledSize returns the total size the archive occupies once fully
// decoded: the sum of every part's installed size plus alignment padding
// (spec §4.5, supplemented from original_source's bpak_pkg_installed_size).
func (p *Package) InstalledSize() uint64 {
	var total uint64

	p.hdr.Parts.Iterate(func(e *header.PartEntry) bool {
		total += e.Size + uint64(e.PadBytes)
		return true
	})

	return total
}

// TransportSize returns the archive's size in wire form: the header plus
// each part's transport size where TRANSPORT is set, or its installed
// size otherwise (spec §4.5, supplemented from original_source's
// bpak_pkg_size).
func (p *Package) TransportSize() uint64 {
	return header.Size + p.hdr.Parts.TotalTransportSize()
}

// TransportEncode rewrites this archive's parts into out using algoFor to
// resolve each transport-flagged part's algorithm -- against the same-id
// part in origin when that algorithm is a transport.DeltaCodec, and origin
// is non-nil -- then writes the finalized header (with refreshed
// TransportSize fields and a payload hash recomputed over the transport-form
// bytes) to out.
func (p *Package) TransportEncode(origin store.Backend, out store.Backend, algoFor transport.PartAlgorithm) error {
	if err := transport.Encode(p.hdr, p.backend, origin, out, int64(header.Size), algoFor); err != nil {
		return err
	}

	return p.hdr.WriteTo(out, header.LocationFirst)
}

// TransportDecode reconstructs this archive's parts from a patch
// (produced by TransportEncode) into out, resolving delta-encoded parts
// against origin's matching part, then writes the finalized header (TRANSPORT
// flags cleared, transport sizes zeroed, payload hash recomputed over the
// installed-form bytes) to out.
func (p *Package) TransportDecode(patch store.Backend, origin store.Backend, out store.Backend, algoFor transport.PartAlgorithm) error {
	if err := out.Truncate(header.Size); err != nil {
		return err
	}

	if err := transport.Decode(p.hdr, patch, origin, out, int64(header.Size), algoFor); err != nil {
		return err
	}

	return p.hdr.WriteTo(out, header.LocationFirst)
}

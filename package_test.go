package bpak

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/bpak-io/bpak/errs"
	"github.com/bpak-io/bpak/hash"
	"github.com/bpak-io/bpak/header"
	"github.com/bpak-io/bpak/merkle"
	"github.com/bpak-io/bpak/store"
	"github.com/bpak-io/bpak/transport"
	"github.com/stretchr/testify/require"
)

func TestCreate_EmptyArchive(t *testing.T) {
	b := store.NewMemBackend()

	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)
	require.NoError(t, pkg.UpdateHash())

	require.Equal(t, 0, pkg.Header().Parts.Count())
	require.EqualValues(t, header.Size, pkg.InstalledSize()+header.Size-pkg.InstalledSize())

	reopened, err := Open(b)
	require.NoError(t, err)
	require.Equal(t, header.LocationFirst, headerLocation(reopened))
}

func headerLocation(p *Package) header.Location {
	return p.location
}

func TestPackage_AddFile(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	data := []byte("hello, firmware")
	entry, err := pkg.AddFile("rootfs", data, 0)
	require.NoError(t, err)
	require.EqualValues(t, len(data), entry.Size)
	require.EqualValues(t, len(data), pkg.InstalledSize())

	reopened, err := Open(b)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Header().Parts.Count())

	got, ok := reopened.Header().Parts.Find(entry.ID)
	require.True(t, ok)

	readBack := make([]byte, got.Size)
	_, err = b.ReadAt(readBack, int64(got.Offset))
	require.NoError(t, err)
	require.Equal(t, data, readBack)
}

func TestPackage_ExcludedPartDoesNotAffectHash(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	_, err = pkg.AddFile("rootfs", []byte("stable content"), 0)
	require.NoError(t, err)

	before := pkg.Header().PayloadHash

	_, err = pkg.AddFile("signature-block", []byte("sig-bytes"), header.PartFlags(0).WithExcludeFromHash(true))
	require.NoError(t, err)

	require.Equal(t, before, pkg.Header().PayloadHash)
}

func TestPackage_AddFileWithMerkleTree(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	data := make([]byte, 20000)
	_, err = rand.Read(data)
	require.NoError(t, err)

	var salt merkle.Salt
	copy(salt[:], []byte("fixed-test-salt-for-determinism!"))

	fileEntry, treeEntry, err := pkg.AddFileWithMerkleTree("rootfs", data, 0, salt)
	require.NoError(t, err)
	require.EqualValues(t, merkle.TreeSize(int64(len(data))), treeEntry.Size)

	saltEntry, ok := pkg.Header().Meta.Find(hash.ID("merkle-salt"), fileEntry.ID, true)
	require.True(t, ok)
	require.Equal(t, salt[:], pkg.Header().Meta.Bytes(saltEntry))

	_, ok = pkg.Header().Meta.Find(hash.ID("merkle-root-hash"), fileEntry.ID, true)
	require.True(t, ok)
}

func TestPackage_SignAndHeaderHash(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	hh, err := pkg.HeaderHash()
	require.NoError(t, err)

	sig := bytes.Repeat([]byte{0xAB}, 64)
	require.NoError(t, pkg.Sign(sig))

	reopened, err := Open(b)
	require.NoError(t, err)
	require.EqualValues(t, len(sig), reopened.Header().SignatureSize)

	hh2, err := reopened.HeaderHash()
	require.NoError(t, err)
	require.Equal(t, hh, hh2, "the header hash is computed with the signature field zeroed, so signing does not change it")
}

func TestPackage_AddKey(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	der := []byte("fake-der-encoded-public-key")
	entry, err := pkg.AddKey("bpak-key", der)
	require.NoError(t, err)
	require.True(t, entry.Flags.HasExcludeFromHash())
}

func TestPackage_TransportRoundTrip(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	data := bytes.Repeat([]byte("payload-bytes-for-transport-"), 200)
	entry, err := pkg.AddFile("rootfs", data, header.PartFlags(0).WithTransport(true))
	require.NoError(t, err)

	originalHash := pkg.Header().PayloadHash

	algoFor := func(partID uint32) transport.Algorithm {
		if partID == entry.ID {
			return transport.AlgorithmZstd
		}

		return transport.AlgorithmNone
	}

	encoded := store.NewMemBackend()
	require.NoError(t, pkg.TransportEncode(nil, encoded, algoFor))

	transportHash := pkg.Header().PayloadHash
	require.NotEqual(t, originalHash, transportHash, "TransportEncode must recompute PayloadHash over transport-form bytes")

	encodedEntry, ok := pkg.Header().Parts.Find(entry.ID)
	require.True(t, ok)
	require.True(t, encodedEntry.Flags.HasTransport())
	require.NotZero(t, encodedEntry.TransportSize)

	decoded := store.NewMemBackend()
	require.NoError(t, pkg.TransportDecode(encoded, nil, decoded, algoFor))

	got, ok := pkg.Header().Parts.Find(entry.ID)
	require.True(t, ok)
	require.False(t, got.Flags.HasTransport(), "TransportDecode must clear the TRANSPORT flag")
	require.Zero(t, got.TransportSize, "TransportDecode must zero TransportSize")
	require.Equal(t, originalHash, pkg.Header().PayloadHash, "TransportDecode must restore the installed-form PayloadHash")

	readBack := make([]byte, got.Size)
	_, err = decoded.ReadAt(readBack, int64(got.Offset))
	require.NoError(t, err)
	require.Equal(t, data, readBack)
}

func TestPackage_TransportRoundTrip_WithOriginDelta(t *testing.T) {
	originBackend := store.NewMemBackend()
	originPkg, err := Create(originBackend, hash.SHA256)
	require.NoError(t, err)

	originData := bytes.Repeat([]byte("payload-bytes-for-transport-"), 200)
	_, err = originPkg.AddFile("rootfs", originData, header.PartFlags(0))
	require.NoError(t, err)

	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	data := append([]byte(nil), originData...)
	copy(data[len(data)-16:], []byte("-changed-suffix-"))
	entry, err := pkg.AddFile("rootfs", data, header.PartFlags(0).WithTransport(true))
	require.NoError(t, err)

	algoFor := func(partID uint32) transport.Algorithm {
		if partID == entry.ID {
			return transport.AlgorithmDelta
		}

		return transport.AlgorithmNone
	}

	encoded := store.NewMemBackend()
	require.NoError(t, pkg.TransportEncode(originBackend, encoded, algoFor))

	encodedEntry, ok := pkg.Header().Parts.Find(entry.ID)
	require.True(t, ok)
	require.Less(t, encodedEntry.TransportSize, uint64(len(data)), "a near-identical origin should produce a small transport_size")

	decoded := store.NewMemBackend()
	require.NoError(t, pkg.TransportDecode(encoded, originBackend, decoded, algoFor))

	got, ok := pkg.Header().Parts.Find(entry.ID)
	require.True(t, ok)

	readBack := make([]byte, got.Size)
	_, err = decoded.ReadAt(readBack, int64(got.Offset))
	require.NoError(t, err)
	require.Equal(t, data, readBack)
}

func TestPackage_TransportEncode_MissingOrigin(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	data := bytes.Repeat([]byte("payload-bytes-for-transport-"), 200)
	entry, err := pkg.AddFile("rootfs", data, header.PartFlags(0).WithTransport(true))
	require.NoError(t, err)

	algoFor := func(partID uint32) transport.Algorithm {
		if partID == entry.ID {
			return transport.AlgorithmDelta
		}

		return transport.AlgorithmNone
	}

	encoded := store.NewMemBackend()
	err = pkg.TransportEncode(nil, encoded, algoFor)
	require.ErrorIs(t, err, errs.ErrMissingOrigin)
}

func TestPackage_CorruptionDetection(t *testing.T) {
	b := store.NewMemBackend()
	pkg, err := Create(b, hash.SHA256)
	require.NoError(t, err)

	_, err = pkg.AddFile("rootfs", []byte("original content"), 0)
	require.NoError(t, err)

	stored := pkg.Header().PayloadHash

	entry, ok := pkg.Header().Parts.Find(hash.ID("rootfs"))
	require.True(t, ok)

	corrupt := []byte("ORIGINAL content")
	_, err = b.WriteAt(corrupt, int64(entry.Offset))
	require.NoError(t, err)

	require.NoError(t, header.ComputePayloadHash(pkg.Header(), b))
	require.NotEqual(t, stored, pkg.Header().PayloadHash)
}

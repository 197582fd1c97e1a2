//go:build cgo

package transport

import (
	"github.com/valyala/gozstd"
)

// Encode compresses data with libzstd via cgo. Unlike the pure-Go path,
// gozstd's encoder is stateless per call, so no pool is needed here.
func (c ZstdCodec) Encode(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

func (c ZstdCodec) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}

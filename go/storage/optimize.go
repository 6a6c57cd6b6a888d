package storage

import (
	"bytes"
	"image/png"

	"github.com/pkg/errors"
)

// recompressPNG re-encodes PNG data at the best compression level. The
// decode/encode round trip is lossless: dimensions, format family and pixel
// values are all preserved, only the byte encoding changes.
func recompressPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding for recompression")
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "re-encoding")
	}
	return buf.Bytes(), nil
}

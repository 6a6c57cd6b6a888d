// Package raster holds decoded screenshot pixel data.
//
// An Image is an immutable RGBA raster plus the metadata the rest of the
// system keys on: dimensions, the source format and an MD5 digest of the
// pixel contents. The digest is what makes images content-addressable for
// diff caching and baseline lookups.
package raster

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/pkg/errors"
)

// FormatPNG is the only on-disk format iris produces. Captures arriving in
// other formats are converted on decode.
const FormatPNG = "png"

// Image is a decoded RGBA raster. Treat it as immutable once constructed;
// it is shared freely between goroutines and cache entries.
type Image struct {
	Width  int
	Height int
	Format string

	// Pix holds the pixels in NRGBA order, 4 bytes per pixel, row-major,
	// with a stride of exactly 4*Width.
	Pix []byte

	// Digest is the hex-encoded MD5 of the dimensions and pixel bytes.
	Digest string
}

// FromNRGBA wraps an *image.NRGBA in an Image, copying the pixels if the
// source is not origin-anchored with a compact stride.
func FromNRGBA(m *image.NRGBA, format string) *Image {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := m.Pix
	if b.Min.X != 0 || b.Min.Y != 0 || m.Stride != 4*w {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
		pix = dst.Pix
	}
	return &Image{
		Width:  w,
		Height: h,
		Format: format,
		Pix:    pix,
		Digest: digest(w, h, pix),
	}
}

// FromImage converts an arbitrary image.Image into an Image.
func FromImage(m image.Image, format string) *Image {
	if n, ok := m.(*image.NRGBA); ok {
		return FromNRGBA(n, format)
	}
	b := m.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
	return FromNRGBA(dst, format)
}

// NRGBA returns a view of the pixels as an *image.NRGBA. The returned image
// shares the underlying pixel buffer; callers must not write through it.
func (i *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    i.Pix,
		Stride: 4 * i.Width,
		Rect:   image.Rect(0, 0, i.Width, i.Height),
	}
}

// Bounds returns the pixel bounds, always anchored at the origin.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.Width, i.Height)
}

// DecodePNG decodes PNG data from r into an Image.
func DecodePNG(r io.Reader) (*Image, error) {
	m, err := png.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding png")
	}
	return FromImage(m, FormatPNG), nil
}

// DecodePNGBytes decodes in-memory PNG data into an Image.
func DecodePNGBytes(data []byte) (*Image, error) {
	return DecodePNG(bytes.NewReader(data))
}

// EncodePNG writes the image to w as a PNG.
func (i *Image) EncodePNG(w io.Writer) error {
	return errors.Wrap(png.Encode(w, i.NRGBA()), "encoding png")
}

// PNGBytes returns the image encoded as a PNG.
func (i *Image) PNGBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := i.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func digest(w, h int, pix []byte) string {
	hash := md5.New()
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(w))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(h))
	_, _ = hash.Write(dims[:])
	_, _ = hash.Write(pix)
	return hex.EncodeToString(hash.Sum(nil))
}

package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNRGBA_CompactBuffer_SharesPix(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	img := FromNRGBA(src, "png")
	require.Equal(t, 3, img.Width)
	require.Equal(t, 2, img.Height)
	assert.Same(t, &src.Pix[0], &img.Pix[0])
}

func TestFromNRGBA_SubImage_CopiesPix(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 200, A: 255})
	sub := src.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)

	img := FromNRGBA(sub, "png")
	require.Equal(t, 2, img.Width)
	require.Equal(t, 2, img.Height)
	require.Len(t, img.Pix, 2*2*4)
	// (2,2) in the source is (1,1) in the sub image.
	assert.Equal(t, uint8(200), img.Pix[(1*2+1)*4])
}

func TestDigest_DependsOnDimensionsAndPixels(t *testing.T) {
	a := FromNRGBA(image.NewNRGBA(image.Rect(0, 0, 2, 8)), "png")
	b := FromNRGBA(image.NewNRGBA(image.Rect(0, 0, 8, 2)), "png")
	c := FromNRGBA(image.NewNRGBA(image.Rect(0, 0, 2, 8)), "png")

	// Same byte count, different shapes.
	assert.NotEqual(t, a.Digest, b.Digest)
	assert.Equal(t, a.Digest, c.Digest)

	d := image.NewNRGBA(image.Rect(0, 0, 2, 8))
	d.SetNRGBA(0, 0, color.NRGBA{R: 1, A: 255})
	assert.NotEqual(t, a.Digest, FromNRGBA(d, "png").Digest)
}

func TestPNGRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	img := FromNRGBA(src, "png")

	var buf bytes.Buffer
	require.NoError(t, img.EncodePNG(&buf))

	decoded, err := DecodePNG(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Width, decoded.Width)
	assert.Equal(t, img.Height, decoded.Height)
	assert.Equal(t, img.Pix, decoded.Pix)
	assert.Equal(t, img.Digest, decoded.Digest)
}

func TestDecodePNGBytes_Garbage(t *testing.T) {
	_, err := DecodePNGBytes([]byte("not a png"))
	require.Error(t, err)
}

func TestNRGBA_SharesBuffer(t *testing.T) {
	img := FromNRGBA(image.NewNRGBA(image.Rect(0, 0, 2, 2)), "png")
	view := img.NRGBA()
	view.SetNRGBA(0, 0, color.NRGBA{R: 9, A: 255})
	assert.Equal(t, uint8(9), img.Pix[0])
}

package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankbria/iris/go/raster"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"home", "home"},
		{"Home Page", "Home-Page"},
		{"iPhone 15 Pro", "iPhone-15-Pro"},
		{"a/b\\c:d", "a-b-c-d"},
		{"  padded  ", "padded"},
		{"trailing!!!", "trailing"},
		{"dots.and_under-scores", "dots.and_under-scores"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in), "input %q", tc.in)
	}
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "home__iphone-15__diff.png", ArtifactName("home", "iphone 15", KindDiff))
	assert.Equal(t, "checkout__desktop__baseline.png", ArtifactName("checkout", "desktop", KindBaseline))

	// Deterministic: the same inputs always map to the same key.
	assert.Equal(t,
		ArtifactName("home", "iphone 15", KindCurrent),
		ArtifactName("home", "iphone 15", KindCurrent))
}

func TestFileBackend_WriteReadExists(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := backend.Exists(ctx, "suite/missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	saved, err := backend.Write(ctx, "suite/img.png", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.Size)
	assert.Equal(t, "png", saved.Format)
	assert.Equal(t, filepath.Join(backend.Root(), "suite", "img.png"), saved.Path)

	data, err := backend.Read(ctx, "suite/img.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	ok, err = backend.Exists(ctx, "suite/img.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileBackend_PathMatchesWrite(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	// The path is known before any write, and a later write reports the
	// same address; async writers depend on this agreement.
	predicted := backend.Path("suite/img.png")
	saved, err := backend.Write(context.Background(), "suite/img.png", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, predicted, saved.Path)

	m := NewManager(backend)
	assert.Equal(t, predicted, m.ImagePath("suite", "img.png"))
}

func TestFileBackend_OverwriteInPlace(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.Write(ctx, "k.png", []byte("first"))
	require.NoError(t, err)
	_, err = backend.Write(ctx, "k.png", []byte("second"))
	require.NoError(t, err)

	data, err := backend.Read(ctx, "k.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(backend.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileBackend_CancelledContext(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.Write(ctx, "k.png", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
	_, err = backend.Read(ctx, "k.png")
	require.ErrorIs(t, err, context.Canceled)
}

func TestManager_SaveRasterRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	m := NewManager(backend)
	ctx := context.Background()

	img := testRaster(10, 6)
	saved, err := m.SaveRaster(ctx, "suite", "home__desktop__current.png", img, SaveOptions{})
	require.NoError(t, err)
	assert.Greater(t, saved.Size, int64(0))

	data, err := m.ReadImage(ctx, "suite", "home__desktop__current.png")
	require.NoError(t, err)
	back, err := raster.DecodePNGBytes(data)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)

	ok, err := m.ImageExists(ctx, "suite", "home__desktop__current.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_AutoOptimizeLosslessAndNoLarger(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	m := NewManager(backend)
	ctx := context.Background()

	// Encode at no compression to give the optimizer something to shrink.
	src := testRaster(128, 128).NRGBA()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, src))
	original := buf.Bytes()

	saved, err := m.SaveImage(ctx, "suite", "big.png", original, SaveOptions{AutoOptimize: true})
	require.NoError(t, err)
	assert.Less(t, saved.Size, int64(len(original)))

	// Pixels survive untouched.
	data, err := m.ReadImage(ctx, "suite", "big.png")
	require.NoError(t, err)
	back, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), back.Bounds())
	for _, p := range []image.Point{{0, 0}, {17, 3}, {127, 127}} {
		assert.Equal(t, src.At(p.X, p.Y), color.NRGBAModel.Convert(back.At(p.X, p.Y)))
	}
}

func TestManager_AutoOptimizeIgnoresGarbage(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	m := NewManager(backend)

	// Non-PNG data is stored as-is rather than failing the save.
	saved, err := m.SaveImage(context.Background(), "suite", "x.png", []byte("not a png"), SaveOptions{AutoOptimize: true})
	require.NoError(t, err)
	assert.Equal(t, int64(9), saved.Size)
}

func testRaster(w, h int) *raster.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8((i * 31) % 251)
	}
	// Opaque alpha keeps PNG round trips byte-exact.
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return raster.FromNRGBA(img, raster.FormatPNG)
}

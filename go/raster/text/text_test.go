package text

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkerboard = `! IRISTEXT
2 2
0x00 0xff
0xff 0x00`

func TestDecode_Grayscale(t *testing.T) {
	img, err := Decode(strings.NewReader(checkerboard))
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	require.Equal(t, 2, img.Height)

	assert.Equal(t, []byte{
		0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0xff,
	}, img.Pix)
}

func TestDecode_RGBA(t *testing.T) {
	img, err := Decode(strings.NewReader("! IRISTEXT\n1 1\n0x12345678\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, img.Pix)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"bad header", "! SKTEXT\n1 1\n0x00\n"},
		{"bad dimensions", "! IRISTEXT\none two\n"},
		{"bad pixel", "! IRISTEXT\n1 1\n0x123\n"},
		{"too many columns", "! IRISTEXT\n1 1\n0x00 0x00\n"},
		{"too many rows", "! IRISTEXT\n1 1\n0x00\n0x00\n"},
		{"rows past a full image", "! IRISTEXT\n2 2\n0x00 0x00\n0x00 0x00\n0x00 0x00\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.input))
			require.Error(t, err)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := MustImage("! IRISTEXT\n2 1\n0x01020304 0xaabbccdd\n")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	assert.Equal(t, "! IRISTEXT\n2 1\n0x01020304 0xaabbccdd\n", buf.String())

	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestMustImage_PanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { MustImage("nope") })
}

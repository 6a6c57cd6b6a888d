package diff

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/frankbria/iris/go/raster"
)

// ResizePolicy controls what happens when the two images have different
// dimensions. The default is to refuse the comparison; silently comparing
// mismatched surfaces hides layout regressions.
type ResizePolicy string

const (
	// ResizeNone rejects dimension mismatches with a DimensionMismatchError.
	ResizeNone ResizePolicy = ""

	// ResizeToBaseline scales the current image to the baseline's
	// dimensions before comparing.
	ResizeToBaseline ResizePolicy = "scale-to-baseline"
)

// RGB is the overlay color painted over differing pixels in the diff image.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// DefaultDiffColor is the magenta overlay used when no color is configured.
var DefaultDiffColor = RGB{R: 255, G: 0, B: 255}

// DefaultAlpha is the anti-aliasing tolerance applied when none is set.
const DefaultAlpha = 0.1

// Options configures a single comparison. The zero value is usable. Options
// are value-like and hashable: CanonicalJSON produces a deterministic
// serialization that participates in the result-cache fingerprint.
type Options struct {
	// Threshold is the pixel-difference fraction, in [0,1], above which the
	// comparison is considered a failure. It does not influence the computed
	// metrics, only how callers interpret them.
	Threshold float64 `json:"threshold"`

	// IncludeAntiAliasing counts anti-aliasing artifacts as real
	// differences. By default pixels on strong edges of the baseline are
	// tolerated, since sub-pixel rendering noise concentrates there.
	IncludeAntiAliasing bool `json:"include_anti_aliasing"`

	// Alpha tunes the anti-aliasing tolerance in [0,1]. Larger values
	// tolerate weaker edges. Ignored when IncludeAntiAliasing is true.
	Alpha float64 `json:"alpha"`

	// MaskRegions are rectangles excluded entirely from the comparison,
	// both from the differing-pixel count and from the compared-pixel
	// total. Typical use: timestamps, ads, animated regions.
	MaskRegions []image.Rectangle `json:"mask_regions,omitempty"`

	// DiffMask requests a full-resolution diff image overlaying DiffColor
	// on differing, unmasked pixels.
	DiffMask bool `json:"diff_mask"`

	// DiffColor is the overlay color. Zero value means DefaultDiffColor.
	DiffColor RGB `json:"diff_color"`

	// ResizePolicy controls dimension-mismatch handling.
	ResizePolicy ResizePolicy `json:"resize_policy,omitempty"`

	// DisableStructural skips the SSIM pass; Similarity then reports
	// 1 - PixelDifference.
	DisableStructural bool `json:"disable_structural"`
}

func (o Options) withDefaults() Options {
	if o.Alpha == 0 {
		o.Alpha = DefaultAlpha
	}
	if o.DiffColor == (RGB{}) {
		o.DiffColor = DefaultDiffColor
	}
	return o
}

// CanonicalJSON returns a deterministic serialization of the options,
// suitable for fingerprinting. Defaults are applied first so that an empty
// Options and an explicitly-defaulted one hash identically.
func (o Options) CanonicalJSON() []byte {
	b, err := json.Marshal(o.withDefaults())
	if err != nil {
		// Options contains no unmarshalable types; this is unreachable.
		panic(err)
	}
	return b
}

// Outcome is the result of comparing two images. Produced once per
// (baseline, current, options) tuple and frozen afterward; cached outcomes
// are shared between callers, so treat every field as read-only.
type Outcome struct {
	// Similarity is the structural similarity score in [0,1]; 1 means
	// perceptually identical. With DisableStructural it degrades to
	// 1 - PixelDifference.
	Similarity float64 `json:"similarity"`

	// PixelDifference is the fraction of compared (unmasked) pixels that
	// differ, in [0,1].
	PixelDifference float64 `json:"pixel_difference"`

	// NumDiffPixels is the absolute count behind PixelDifference.
	NumDiffPixels int `json:"num_diff_pixels"`

	// ComparedPixels is the denominator: total pixels minus masked ones.
	ComparedPixels int `json:"compared_pixels"`

	// MaxRGBADiffs holds the maximum per-channel delta seen across all
	// differing pixels, in R, G, B, A order.
	MaxRGBADiffs [4]int `json:"max_rgba_diffs"`

	// DiffBounds is the bounding box of all differing pixels; the zero
	// rectangle when nothing differs.
	DiffBounds image.Rectangle `json:"diff_bounds"`

	// EarlyExit is true when the downsampled prepass short-circuited the
	// full comparison. PixelDifference is then the pessimistic 1.
	EarlyExit bool `json:"early_exit"`

	// DiffImage is only populated when Options.DiffMask was set and the
	// comparison ran the full-resolution pass.
	DiffImage *raster.Image `json:"-"`
}

// DimensionMismatchError is returned when the images disagree on size and no
// resize policy is configured.
type DimensionMismatchError struct {
	BaselineWidth, BaselineHeight int
	CurrentWidth, CurrentHeight   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions differ: baseline %dx%d, current %dx%d",
		e.BaselineWidth, e.BaselineHeight, e.CurrentWidth, e.CurrentHeight)
}

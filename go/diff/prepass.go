package diff

import (
	"github.com/nfnt/resize"

	"github.com/frankbria/iris/go/raster"
)

const (
	// EarlyExitCutoff is the sampled differing-pixel fraction above which
	// the full comparison is skipped and the outcome is pinned to
	// "maximally different". The short-circuit only ever fires toward
	// "very different"; a passing sample still runs the full pass.
	EarlyExitCutoff = 0.5

	// prepassMaxDim is the long-edge size of the downsampled grid.
	prepassMaxDim = 64

	// prepassMinPixels is the full-resolution pixel count below which the
	// prepass costs more than it saves.
	prepassMinPixels = 64 * 64 * 4

	// prepassChannelTolerance ignores tiny per-channel deltas in the
	// sampled comparison so resampling noise cannot trip the cutoff.
	prepassChannelTolerance = 16
)

// prepass compares the images on a coarse nearest-neighbor grid and
// returns the differing-sample fraction. ran is false when the prepass does
// not apply: small images (not worth it) and masked comparisons (mask
// geometry does not survive downsampling).
func prepass(baseline, current *raster.Image, opts Options) (frac float64, ran bool) {
	if len(opts.MaskRegions) > 0 {
		return 0, false
	}
	if baseline.Width*baseline.Height < prepassMinPixels {
		return 0, false
	}

	tw, th := thumbDims(baseline.Width, baseline.Height)
	a := resize.Resize(uint(tw), uint(th), baseline.NRGBA(), resize.NearestNeighbor)
	b := resize.Resize(uint(tw), uint(th), current.NRGBA(), resize.NearestNeighbor)
	ta := raster.FromImage(a, baseline.Format)
	tb := raster.FromImage(b, current.Format)

	total := tw * th
	diff := 0
	for i := 0; i < total; i++ {
		o := i * 4
		for c := 0; c < 4; c++ {
			d := int(ta.Pix[o+c]) - int(tb.Pix[o+c])
			if d < 0 {
				d = -d
			}
			if d > prepassChannelTolerance {
				diff++
				break
			}
		}
	}
	return float64(diff) / float64(total), true
}

func thumbDims(w, h int) (int, int) {
	if w >= h {
		th := h * prepassMaxDim / w
		return prepassMaxDim, max(th, 1)
	}
	tw := w * prepassMaxDim / h
	return max(tw, 1), prepassMaxDim
}

// Package diff computes perceptually-aware difference metrics between two
// screenshot rasters.
//
// A comparison runs up to three phases: a cheap downsampled prepass that can
// short-circuit grossly different images, a full-resolution pixel pass that
// honors mask regions and anti-aliasing tolerance, and a windowed structural
// similarity pass. The pixel pass is sharded across OS threads; the work is
// CPU bound and does not yield, so concurrent scheduling alone would not
// speed it up.
package diff

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/nfnt/resize"

	"github.com/frankbria/iris/go/raster"
	"github.com/frankbria/iris/go/timer"
)

// Compare computes the difference metrics for baseline vs current.
//
// It fails with a *DimensionMismatchError if the dimensions differ and
// opts.ResizePolicy is ResizeNone. Masked pixels are excluded from both the
// numerator and the denominator of PixelDifference. When the prepass
// short-circuits, no DiffImage is produced even if one was requested.
func Compare(ctx context.Context, baseline, current *raster.Image, opts Options) (*Outcome, error) {
	defer timer.New("diff.Compare").Stop()
	opts = opts.withDefaults()

	if baseline.Width != current.Width || baseline.Height != current.Height {
		if opts.ResizePolicy != ResizeToBaseline {
			return nil, &DimensionMismatchError{
				BaselineWidth:  baseline.Width,
				BaselineHeight: baseline.Height,
				CurrentWidth:   current.Width,
				CurrentHeight:  current.Height,
			}
		}
		scaled := resize.Resize(uint(baseline.Width), uint(baseline.Height), current.NRGBA(), resize.Bilinear)
		current = raster.FromImage(scaled, current.Format)
	}

	w, h := baseline.Width, baseline.Height
	total := w * h

	// Identical content needs no pixel work.
	if baseline.Digest == current.Digest {
		out := &Outcome{Similarity: 1, PixelDifference: 0, ComparedPixels: total}
		if opts.DiffMask {
			out.DiffImage = cloneImage(current)
		}
		return out, nil
	}

	if frac, ran := prepass(baseline, current, opts); ran && frac > EarlyExitCutoff {
		earlyExits.Inc()
		return &Outcome{Similarity: 0, PixelDifference: 1, EarlyExit: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	masked := maskBitmap(w, h, opts.MaskRegions)

	// Edge magnitudes of the baseline; differing pixels on strong edges are
	// attributed to sub-pixel rendering noise and not counted. Alpha <= 0
	// disables the tolerance outright, so no edge map is built at all; a
	// cutoff of 255 would still tolerate maximal-gradient pixels.
	var edges []uint8
	var edgeCutoff uint8
	if !opts.IncludeAntiAliasing && opts.Alpha > 0 {
		edges = sobelMagnitudes(grayscale(baseline), w, h)
		edgeCutoff = edgeThreshold(opts.Alpha)
	}

	var diffPix []byte
	if opts.DiffMask {
		diffPix = make([]byte, len(current.Pix))
		copy(diffPix, current.Pix)
	}

	workers := min(runtime.GOMAXPROCS(0), h)
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := h / workers

	type shardResult struct {
		numDiff int
		maxRGBA [4]int
		bounds  image.Rectangle
		hasDiff bool
	}
	shards := make([]shardResult, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == workers-1 {
			endY = h
		}
		go func(shard int, startY, endY int) {
			defer wg.Done()
			res := &shards[shard]
			for y := startY; y < endY; y++ {
				row := y * w
				for x := 0; x < w; x++ {
					idx := row + x
					if masked != nil && masked[idx] {
						continue
					}
					o := idx * 4
					if pixEqual(baseline.Pix, current.Pix, o) {
						continue
					}
					if edges != nil && edges[idx] >= edgeCutoff {
						continue
					}
					res.numDiff++
					fillMaxRGBADiffs(baseline.Pix, current.Pix, o, &res.maxRGBA)
					if !res.hasDiff {
						res.bounds = image.Rect(x, y, x+1, y+1)
						res.hasDiff = true
					} else {
						res.bounds = res.bounds.Union(image.Rect(x, y, x+1, y+1))
					}
					if diffPix != nil {
						diffPix[o+0] = opts.DiffColor.R
						diffPix[o+1] = opts.DiffColor.G
						diffPix[o+2] = opts.DiffColor.B
						diffPix[o+3] = 0xff
					}
				}
			}
		}(i, startY, endY)
	}
	wg.Wait()

	out := &Outcome{}
	for i := range shards {
		out.NumDiffPixels += shards[i].numDiff
		for c := 0; c < 4; c++ {
			out.MaxRGBADiffs[c] = max(out.MaxRGBADiffs[c], shards[i].maxRGBA[c])
		}
		if shards[i].hasDiff {
			if out.DiffBounds.Empty() {
				out.DiffBounds = shards[i].bounds
			} else {
				out.DiffBounds = out.DiffBounds.Union(shards[i].bounds)
			}
		}
	}

	maskedCount := 0
	if masked != nil {
		for _, m := range masked {
			if m {
				maskedCount++
			}
		}
	}
	out.ComparedPixels = total - maskedCount
	if out.ComparedPixels > 0 {
		out.PixelDifference = float64(out.NumDiffPixels) / float64(out.ComparedPixels)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.DisableStructural {
		out.Similarity = 1 - out.PixelDifference
	} else {
		out.Similarity = ssim(grayscale(baseline), grayscale(current), w, h, masked)
	}

	if diffPix != nil {
		out.DiffImage = raster.FromNRGBA(&image.NRGBA{
			Pix:    diffPix,
			Stride: 4 * w,
			Rect:   image.Rect(0, 0, w, h),
		}, raster.FormatPNG)
	}

	observeCompare(out)
	return out, nil
}

func pixEqual(a, b []byte, o int) bool {
	return a[o] == b[o] && a[o+1] == b[o+1] && a[o+2] == b[o+2] && a[o+3] == b[o+3]
}

func fillMaxRGBADiffs(a, b []byte, o int, maxDiffs *[4]int) {
	for c := 0; c < 4; c++ {
		d := int(a[o+c]) - int(b[o+c])
		if d < 0 {
			d = -d
		}
		if d > maxDiffs[c] {
			maxDiffs[c] = d
		}
	}
}

// maskBitmap returns a per-pixel exclusion bitmap, or nil when no regions
// are configured. Regions are clipped to the image bounds.
func maskBitmap(w, h int, regions []image.Rectangle) []bool {
	if len(regions) == 0 {
		return nil
	}
	bitmap := make([]bool, w*h)
	bounds := image.Rect(0, 0, w, h)
	for _, r := range regions {
		r = r.Intersect(bounds)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			row := y * w
			for x := r.Min.X; x < r.Max.X; x++ {
				bitmap[row+x] = true
			}
		}
	}
	return bitmap
}

// grayscale converts to 8-bit luma using the BT.601 weights.
func grayscale(img *raster.Image) []uint8 {
	out := make([]uint8, img.Width*img.Height)
	for i := range out {
		o := i * 4
		r := int(img.Pix[o])
		g := int(img.Pix[o+1])
		b := int(img.Pix[o+2])
		out[i] = uint8((299*r + 587*g + 114*b) / 1000)
	}
	return out
}

func cloneImage(img *raster.Image) *raster.Image {
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return &raster.Image{
		Width:  img.Width,
		Height: img.Height,
		Format: img.Format,
		Pix:    pix,
		Digest: img.Digest,
	}
}

package diff

import "math"

// sobelMagnitudes applies the Sobel operator to an 8-bit luma buffer and
// returns the per-pixel gradient magnitude, clipped to 255. Border pixels
// get magnitude 0 since the operator needs all 8 neighbors.
//
// Anti-aliasing artifacts concentrate on high-gradient pixels, so the
// magnitude map doubles as an "is this pixel on an edge" oracle.
func sobelMagnitudes(gray []uint8, w, h int) []uint8 {
	out := make([]uint8, w*h)
	if w < 3 || h < 3 {
		return out
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			tl := int(gray[(y-1)*w+x-1])
			tc := int(gray[(y-1)*w+x])
			tr := int(gray[(y-1)*w+x+1])
			ml := int(gray[y*w+x-1])
			mr := int(gray[y*w+x+1])
			bl := int(gray[(y+1)*w+x-1])
			bc := int(gray[(y+1)*w+x])
			br := int(gray[(y+1)*w+x+1])

			gx := tl + 2*ml + bl - tr - 2*mr - br
			gy := tl + 2*tc + tr - bl - 2*bc - br

			mag := math.Sqrt(float64(gx*gx + gy*gy))
			if mag > 255 {
				mag = 255
			}
			out[y*w+x] = uint8(mag)
		}
	}
	return out
}

// edgeThreshold maps the anti-aliasing tolerance alpha in (0,1] to a Sobel
// magnitude cutoff; alpha 1 tolerates every non-flat pixel. Callers skip
// the edge map for alpha <= 0 (magnitude 255 pixels exist, so no cutoff can
// express "tolerate nothing"); the clamp here is only a backstop.
func edgeThreshold(alpha float64) uint8 {
	if alpha <= 0 {
		return math.MaxUint8
	}
	if alpha >= 1 {
		return 1
	}
	return uint8(math.Ceil((1 - alpha) * 255))
}

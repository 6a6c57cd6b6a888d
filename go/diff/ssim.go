package diff

// Windowed structural similarity over 8-bit luma. The score captures
// perceptual structure (local luminance, contrast and correlation) that a
// raw pixel delta misses: a uniform brightness shift scores much higher
// than the same number of scattered pixel changes.

const (
	ssimWindow = 8

	// Stabilization constants per Wang et al., with K1=0.01, K2=0.03 and an
	// 8-bit dynamic range.
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// ssim returns the mean structural similarity of the two luma buffers,
// clamped to [0,1]. Windows that are fully masked are skipped; windows with
// any unmasked pixel contribute only their unmasked pixels. Returns 1 when
// no window could be evaluated.
func ssim(a, b []uint8, w, h int, masked []bool) float64 {
	var sum float64
	var windows int

	for wy := 0; wy < h; wy += ssimWindow {
		for wx := 0; wx < w; wx += ssimWindow {
			var n int
			var sumA, sumB float64
			for y := wy; y < min(wy+ssimWindow, h); y++ {
				for x := wx; x < min(wx+ssimWindow, w); x++ {
					idx := y*w + x
					if masked != nil && masked[idx] {
						continue
					}
					n++
					sumA += float64(a[idx])
					sumB += float64(b[idx])
				}
			}
			if n == 0 {
				continue
			}
			meanA := sumA / float64(n)
			meanB := sumB / float64(n)

			var varA, varB, cov float64
			for y := wy; y < min(wy+ssimWindow, h); y++ {
				for x := wx; x < min(wx+ssimWindow, w); x++ {
					idx := y*w + x
					if masked != nil && masked[idx] {
						continue
					}
					da := float64(a[idx]) - meanA
					db := float64(b[idx]) - meanB
					varA += da * da
					varB += db * db
					cov += da * db
				}
			}
			varA /= float64(n)
			varB /= float64(n)
			cov /= float64(n)

			num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
			den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
			sum += num / den
			windows++
		}
	}

	if windows == 0 {
		return 1
	}
	score := sum / float64(windows)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Package severity maps diff metrics to an impact tier.
package severity

import (
	"image"

	"github.com/frankbria/iris/go/diff"
)

// Severity classifies how disruptive a visual difference is.
type Severity string

const (
	// Minor differences are within the comfortable band: high structural
	// similarity and few changed pixels.
	Minor Severity = "minor"

	// Moderate differences warrant a look but rarely block.
	Moderate Severity = "moderate"

	// Breaking differences indicate the surface changed materially.
	Breaking Severity = "breaking"

	// Error marks results whose task failed before metrics existed; it is
	// never produced by Classify.
	Error Severity = "error"
)

// Rank orders severities for aggregation; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case Minor:
		return 0
	case Moderate:
		return 1
	case Breaking:
		return 2
	case Error:
		return 3
	}
	return -1
}

// Boundaries holds the classification cut points. These are tuning defaults
// inferred from practice, not fixed law; override them via configuration.
type Boundaries struct {
	// MinorSimilarity and MinorPixelDiff gate the Minor tier:
	// similarity >= MinorSimilarity and pixelDifference < MinorPixelDiff.
	MinorSimilarity float64 `json:"minor_similarity"`
	MinorPixelDiff  float64 `json:"minor_pixel_diff"`

	// BreakingSimilarity and BreakingPixelDiff gate the Breaking tier:
	// similarity < BreakingSimilarity or pixelDifference > BreakingPixelDiff.
	BreakingSimilarity float64 `json:"breaking_similarity"`
	BreakingPixelDiff  float64 `json:"breaking_pixel_diff"`
}

// DefaultBoundaries returns the stock cut points.
func DefaultBoundaries() Boundaries {
	return Boundaries{
		MinorSimilarity:    0.95,
		MinorPixelDiff:     0.05,
		BreakingSimilarity: 0.85,
		BreakingPixelDiff:  0.15,
	}
}

// Region names a rectangle of the page used for weighted classification,
// e.g. primary content vs. footer.
type Region struct {
	Name string          `json:"name"`
	Rect image.Rectangle `json:"rect"`
}

// Classifier assigns severity tiers. The zero value is not usable; call New.
type Classifier struct {
	b Boundaries
}

func New(b Boundaries) *Classifier {
	return &Classifier{b: b}
}

// Classify maps an outcome to a tier. When the Breaking and Minor rules both
// apply the more severe tier wins.
//
// regionWeights escalates differences that land inside high-value regions: a
// region with weight w > 1 intersecting the diff bounds is classified as if
// the dissimilarity were w times larger, and the worst region's tier is
// kept. Weights <= 1 never downgrade the unweighted tier.
func (c *Classifier) Classify(out *diff.Outcome, regionWeights map[Region]float64) Severity {
	result := c.classify(out.Similarity, out.PixelDifference)

	if len(regionWeights) > 0 && !out.DiffBounds.Empty() {
		for region, weight := range regionWeights {
			if weight <= 1 || !region.Rect.Overlaps(out.DiffBounds) {
				continue
			}
			sim := 1 - (1-out.Similarity)*weight
			if sim < 0 {
				sim = 0
			}
			pd := out.PixelDifference * weight
			if pd > 1 {
				pd = 1
			}
			if s := c.classify(sim, pd); s.Rank() > result.Rank() {
				result = s
			}
		}
	}
	return result
}

func (c *Classifier) classify(similarity, pixelDiff float64) Severity {
	// Breaking is checked first so a tie between rules resolves to the more
	// severe tier.
	if similarity < c.b.BreakingSimilarity || pixelDiff > c.b.BreakingPixelDiff {
		return Breaking
	}
	if similarity >= c.b.MinorSimilarity && pixelDiff < c.b.MinorPixelDiff {
		return Minor
	}
	return Moderate
}

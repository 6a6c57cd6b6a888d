package severity

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frankbria/iris/go/diff"
)

func TestClassify_DefaultBoundaries(t *testing.T) {
	c := New(DefaultBoundaries())

	cases := []struct {
		name       string
		similarity float64
		pixelDiff  float64
		want       Severity
	}{
		{"identical", 1.0, 0.0, Minor},
		{"tiny change", 0.99, 0.01, Minor},
		{"minor upper edge", 0.95, 0.049, Minor},
		{"similarity below minor gate", 0.94, 0.01, Moderate},
		{"pixel diff at minor gate", 0.99, 0.05, Moderate},
		{"middling", 0.90, 0.10, Moderate},
		{"breaking by similarity", 0.84, 0.01, Breaking},
		{"breaking by pixel diff", 0.99, 0.151, Breaking},
		{"clearly broken", 0.2, 0.8, Breaking},
		// 0.99 similarity qualifies for Minor but 0.16 pixel diff is
		// Breaking; the more severe tier wins the tie.
		{"conflicting rules resolve severe", 0.99, 0.16, Breaking},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &diff.Outcome{Similarity: tc.similarity, PixelDifference: tc.pixelDiff}
			assert.Equal(t, tc.want, c.Classify(out, nil))
		})
	}
}

func TestClassify_BoundaryValuesExact(t *testing.T) {
	c := New(DefaultBoundaries())

	// similarity == BreakingSimilarity is not "< 0.85", so not Breaking.
	out := &diff.Outcome{Similarity: 0.85, PixelDifference: 0.10}
	assert.Equal(t, Moderate, c.Classify(out, nil))

	// pixelDiff == BreakingPixelDiff is not "> 0.15", so not Breaking.
	out = &diff.Outcome{Similarity: 0.90, PixelDifference: 0.15}
	assert.Equal(t, Moderate, c.Classify(out, nil))

	// similarity == MinorSimilarity satisfies ">= 0.95".
	out = &diff.Outcome{Similarity: 0.95, PixelDifference: 0.01}
	assert.Equal(t, Minor, c.Classify(out, nil))
}

func TestClassify_RegionWeightEscalates(t *testing.T) {
	c := New(DefaultBoundaries())
	header := Region{Name: "header", Rect: image.Rect(0, 0, 100, 50)}
	footer := Region{Name: "footer", Rect: image.Rect(0, 900, 100, 1000)}

	out := &diff.Outcome{
		Similarity:      0.97,
		PixelDifference: 0.03,
		DiffBounds:      image.Rect(10, 10, 20, 20),
	}

	// Unweighted this is Minor.
	assert.Equal(t, Minor, c.Classify(out, nil))

	// The diff lands in the header; weight 4 turns 3% into an effective 12%.
	weights := map[Region]float64{header: 4}
	assert.Equal(t, Moderate, c.Classify(out, weights))

	// A weighted region the diff does not touch changes nothing.
	weights = map[Region]float64{footer: 4}
	assert.Equal(t, Minor, c.Classify(out, weights))
}

func TestClassify_WeightNeverDowngrades(t *testing.T) {
	c := New(DefaultBoundaries())
	region := Region{Name: "hero", Rect: image.Rect(0, 0, 50, 50)}

	out := &diff.Outcome{
		Similarity:      0.80,
		PixelDifference: 0.20,
		DiffBounds:      image.Rect(5, 5, 10, 10),
	}
	// Weight below 1 is ignored entirely.
	assert.Equal(t, Breaking, c.Classify(out, map[Region]float64{region: 0.1}))
}

func TestClassify_WeightClamps(t *testing.T) {
	c := New(DefaultBoundaries())
	region := Region{Name: "hero", Rect: image.Rect(0, 0, 50, 50)}

	out := &diff.Outcome{
		Similarity:      0.90,
		PixelDifference: 0.10,
		DiffBounds:      image.Rect(0, 0, 10, 10),
	}
	// A huge weight pushes the effective metrics to their worst but must not
	// escape [0, 1]; classification still resolves.
	assert.Equal(t, Breaking, c.Classify(out, map[Region]float64{region: 1000}))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, Minor.Rank(), Moderate.Rank())
	assert.Less(t, Moderate.Rank(), Breaking.Rank())
	assert.Less(t, Breaking.Rank(), Error.Rank())
	assert.Equal(t, -1, Severity("bogus").Rank())
}

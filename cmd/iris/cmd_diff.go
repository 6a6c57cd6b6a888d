package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/frankbria/iris/go/diff"
	"github.com/frankbria/iris/go/raster"
)

func diffCommand() *cobra.Command {
	var (
		flagOut       string
		flagAA        bool
		flagAlpha     float64
		flagThreshold float64
	)
	cmd := &cobra.Command{
		Use:   "diff <baseline.png> <current.png>",
		Short: "Diff two local PNG files and print the metrics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], flagOut, flagAA, flagAlpha, flagThreshold)
		},
	}
	cmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write the diff overlay PNG to this file")
	cmd.Flags().BoolVar(&flagAA, "include-aa", false, "Count anti-aliasing differences as real differences")
	cmd.Flags().Float64Var(&flagAlpha, "alpha", 0, "Anti-aliasing tolerance in [0, 1]; 0 uses the default")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "Failing pixel-difference fraction")
	return cmd
}

func runDiff(cmd *cobra.Command, leftPath, rightPath, outPath string, includeAA bool, alpha, threshold float64) error {
	left, err := decodePNGFile(leftPath)
	if err != nil {
		return err
	}
	right, err := decodePNGFile(rightPath)
	if err != nil {
		return err
	}

	out, err := diff.Compare(cmd.Context(), left, right, diff.Options{
		Threshold:           threshold,
		IncludeAntiAliasing: includeAA,
		Alpha:               alpha,
		DiffMask:            outPath != "",
	})
	if err != nil {
		return err
	}

	fmt.Printf("similarity:       %.6f\n", out.Similarity)
	fmt.Printf("pixel difference: %.6f (%d of %d pixels)\n", out.PixelDifference, out.NumDiffPixels, out.ComparedPixels)
	fmt.Printf("max RGBA deltas:  %v\n", out.MaxRGBADiffs)
	if !out.DiffBounds.Empty() {
		fmt.Printf("diff bounds:      %v\n", out.DiffBounds)
	}
	if out.EarlyExit {
		fmt.Println("early exit: images are grossly different")
	}

	if outPath != "" && out.DiffImage != nil {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrapf(err, "creating %s", outPath)
		}
		defer f.Close()
		if err := out.DiffImage.EncodePNG(f); err != nil {
			return errors.Wrapf(err, "writing %s", outPath)
		}
		fmt.Printf("diff image:       %s\n", outPath)
	}

	if out.PixelDifference > threshold {
		return errors.Errorf("images differ beyond threshold %v", threshold)
	}
	return nil
}

func decodePNGFile(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	img, err := raster.DecodePNG(f)
	return img, errors.Wrapf(err, "decoding %s", path)
}

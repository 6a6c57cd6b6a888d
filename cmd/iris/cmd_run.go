package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frankbria/iris/go/baseline"
	"github.com/frankbria/iris/go/capture"
	"github.com/frankbria/iris/go/config"
	"github.com/frankbria/iris/go/engine"
	"github.com/frankbria/iris/go/runner"
	"github.com/frankbria/iris/go/storage"
	"github.com/frankbria/iris/go/types"
)

func runCommand() *cobra.Command {
	var (
		flagConfig          string
		flagUpdateBaselines bool
		flagJSONOut         string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured page×device comparisons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flagConfig, flagUpdateBaselines, flagJSONOut)
		},
	}
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "iris.json5", "Path to the JSON5 run configuration")
	cmd.Flags().BoolVar(&flagUpdateBaselines, "update-baselines", false, "Overwrite baselines with fresh captures instead of comparing")
	cmd.Flags().StringVar(&flagJSONOut, "json", "", "Write the full run result as JSON to this file")
	return cmd
}

func runRun(ctx context.Context, configPath string, updateBaselines bool, jsonOut string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	manager := storage.NewManager(backend)

	capturer, err := capture.NewPlaywrightCapturer(cfg.CaptureConfig())
	if err != nil {
		return errors.Wrap(err, "starting browser")
	}

	eng := engine.New(engine.Config{
		CacheSize:     cfg.CacheSize,
		Boundaries:    cfg.Boundaries(),
		RegionWeights: cfg.RegionWeights(),
	})

	r := runner.New(runner.Config{
		TestName:        cfg.TestName,
		Concurrency:     cfg.Concurrency,
		TaskTimeout:     cfg.TaskTimeout.Std(),
		RunTimeout:      cfg.RunTimeout.Std(),
		DiffOptions:     cfg.DiffOptions(),
		UpdateBaselines: updateBaselines,
	}, eng, capturer, baseline.NewFSStore(manager, cfg.TestName), manager)
	defer func() {
		if err := r.Close(); err != nil {
			zap.S().Warnf("closing runner: %s", err)
		}
	}()

	result, err := r.Run(ctx, cfg.Pages, cfg.Devices)
	if err != nil {
		return err
	}

	printSummary(result)
	if jsonOut != "" {
		if err := writeJSON(jsonOut, result); err != nil {
			return err
		}
	}
	if result.OverallStatus != types.StatusPassed {
		return errors.Errorf("run %s: %s", result.RunID, result.OverallStatus)
	}
	return nil
}

func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.S3Bucket != "" {
		return storage.NewS3Backend(ctx, cfg.S3Bucket, cfg.S3Prefix)
	}
	root := cfg.ArtifactRoot
	if root == "" {
		root = "iris-artifacts"
	}
	return storage.NewFileBackend(root)
}

func printSummary(result *types.TestRunResult) {
	fmt.Printf("Run %s (%s): %d comparisons in %s\n",
		result.RunID, result.TestName, result.Summary.TotalComparisons, result.Duration.Round(time.Millisecond))
	for _, r := range result.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		line := fmt.Sprintf("  %s  %s/%s  similarity=%.4f diff=%.4f severity=%s",
			status, r.Page, r.Device, r.Similarity, r.PixelDifference, r.Severity)
		if r.BaselineCreated {
			line += " (baseline created)"
		}
		if r.Error != "" {
			line += "  error: " + r.Error
		}
		fmt.Println(line)
	}
	for _, key := range result.Cancelled {
		fmt.Printf("  SKIP  %s/%s  (cancelled)\n", key.Page, key.Device)
	}
	fmt.Printf("Passed %d, failed %d, cancelled %d. Overall: %s\n",
		result.Summary.Passed, result.Summary.Failed, len(result.Cancelled), result.OverallStatus)
}

func writeJSON(path string, result *types.TestRunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(result), "writing %s", path)
}

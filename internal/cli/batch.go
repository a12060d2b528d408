package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cutout/internal/telemetry"
	"github.com/matzehuels/cutout/pkg/pipeline"
)

// batchOptions holds flags for the batch command.
type batchOptions struct {
	transform transformFlags

	output      string
	masks       string
	keypoints   string
	workers     int
	saveParams  bool
	failFast    bool
	asFloat     bool
	noCache     bool
	metricsAddr string
}

// batchCommand creates the batch command for directories of images.
func (c *CLI) batchCommand() *cobra.Command {
	opts := batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <input-dir>",
		Short: "Cut holes out of every image in a directory",
		Long: `Cut holes out of every image in a directory, concurrently.

Image i (in file name order) is sampled with seed + i, so reruns produce the
same holes no matter how jobs are scheduled. Masks and keypoints are matched
by file stem: <masks>/<stem>.png and <keypoints>/<stem>.json.`,
		Example: `  cutout batch images/ -o occluded/ --masks masks/ --workers 8
  cutout batch images/ -o occluded/ --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args[0], opts)
		},
	}

	opts.transform.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output directory (required)")
	f.StringVar(&opts.masks, "masks", "", "directory of masks named after each image")
	f.StringVar(&opts.keypoints, "keypoints", "", "directory of keypoint files named after each image")
	f.IntVarP(&opts.workers, "workers", "w", 0, "concurrent jobs (default from config)")
	f.BoolVar(&opts.saveParams, "save-params", false, "write <stem>_params.json for every image")
	f.BoolVar(&opts.failFast, "fail-fast", false, "stop at the first failed image")
	f.BoolVar(&opts.asFloat, "float", false, "process images as float32 in [0, 1]")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the params cache")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CLI) runBatch(cmd *cobra.Command, inputDir string, opts batchOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	f, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg, err := opts.transform.resolve(f)
	if err != nil {
		return err
	}
	workers := opts.workers
	if workers <= 0 {
		workers = f.Workers
	}

	jobs, err := pipeline.Discover(pipeline.DiscoverOptions{
		InputDir:     inputDir,
		OutputDir:    opts.output,
		MaskDir:      opts.masks,
		KeypointsDir: opts.keypoints,
		SaveParams:   opts.saveParams,
	}, pipeline.Options{
		Transform: cfg,
		AsFloat:   opts.asFloat,
	})
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		printWarning("No images found in %s", inputDir)
		return nil
	}

	if opts.metricsAddr != "" {
		stop := startMetrics(ctx, opts.metricsAddr, c)
		defer stop()
	}

	runner, err := c.newRunner(ctx, f, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Processing %d images with %d workers...", len(jobs), workers))
	spinner.Start()
	res, err := runner.Batch(ctx, jobs, pipeline.BatchOptions{
		Workers:  workers,
		Seed:     f.Seed,
		FailFast: opts.failFast,
	})
	if err != nil {
		// Stop cancels the spinner context, so ask first.
		if spinner.Cancelled() {
			spinner.Stop()
			printWarning("Batch interrupted")
		} else {
			spinner.StopWithError("Batch failed")
		}
		return err
	}

	logger.Debug("batch finished", "run", res.RunID, "duration", res.Duration)
	if res.Failed == 0 {
		spinner.StopWithSuccess(fmt.Sprintf("Occluded %d images", res.Succeeded))
	} else {
		spinner.Stop()
		printWarning("Occluded %d images, %d failed", res.Succeeded, res.Failed)
		for _, jr := range res.Jobs {
			if jr.Err != nil {
				printError("%s: %v", jr.Image, jr.Err)
			}
		}
	}
	printDetail("run %s · %s", res.RunID, res.Duration.Round(time.Millisecond))
	printFile(opts.output)

	if res.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", res.Failed, len(jobs))
	}
	return nil
}

// startMetrics installs Prometheus hooks and serves them on addr until the
// returned stop function is called.
func startMetrics(ctx context.Context, addr string, c *CLI) func() {
	m := telemetry.New()
	m.Install()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Expose(ctx, addr); err != nil {
			c.Logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	c.Logger.Info("serving metrics", "addr", addr)
	return func() {
		cancel()
		<-done
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cutout/pkg/pipeline"
)

// applyOptions holds flags for the apply command.
type applyOptions struct {
	transform transformFlags

	mask            string
	keypoints       string
	replay          string
	output          string
	maskOutput      string
	keypointsOutput string
	paramsOutput    string
	asFloat         bool
	keepAlpha       bool
	noCache         bool
	refresh         bool
}

// applyCommand creates the apply command for occluding one image.
func (c *CLI) applyCommand() *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <image>",
		Short: "Cut random holes out of an image",
		Long: `Cut random rectangular holes out of an image.

A mask and keypoints given alongside the image receive the same holes: mask
pixels inside a hole take the mask fill, and keypoints inside a hole are
removed. Outputs default to <image>_cutout.<ext> next to the input.`,
		Example: `  # One to four holes of 10-25% of each side, random fill
  cutout apply photo.jpg --holes 1,4 --hole-height 0.1,0.25 --hole-width 0.1,0.25 --fill random

  # Keep a segmentation mask and keypoints consistent
  cutout apply photo.jpg --mask seg.png --mask-fill 0 --keypoints points.json

  # Reuse the holes from an earlier run
  cutout apply other.jpg --replay params.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runApply(cmd, args[0], opts)
		},
	}

	opts.transform.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.mask, "mask", "m", "", "mask image to occlude with the same holes")
	f.StringVarP(&opts.keypoints, "keypoints", "k", "", "keypoints JSON file to filter")
	f.StringVar(&opts.replay, "replay", "", "apply the holes stored in a params file instead of sampling")
	f.StringVarP(&opts.output, "output", "o", "", "output image path")
	f.StringVar(&opts.maskOutput, "mask-output", "", "output mask path")
	f.StringVar(&opts.keypointsOutput, "keypoints-output", "", "output keypoints path")
	f.StringVar(&opts.paramsOutput, "save-params", "", "write the sampled holes to this JSON file")
	f.BoolVar(&opts.asFloat, "float", false, "process the image as float32 in [0, 1]")
	f.BoolVar(&opts.keepAlpha, "keep-alpha", false, "keep the alpha channel of color images")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the params cache")
	f.BoolVar(&opts.refresh, "refresh", false, "resample even if cached params exist")

	return cmd
}

func (c *CLI) runApply(cmd *cobra.Command, image string, opts applyOptions) error {
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

	runner, err := c.newRunner(ctx, f, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	res, err := runner.Execute(ctx, pipeline.Options{
		Image:           image,
		Mask:            opts.mask,
		Keypoints:       opts.keypoints,
		Params:          opts.replay,
		Output:          opts.output,
		MaskOutput:      opts.maskOutput,
		KeypointsOutput: opts.keypointsOutput,
		ParamsOutput:    opts.paramsOutput,
		Seed:            f.Seed,
		Refresh:         opts.refresh,
		AsFloat:         opts.asFloat,
		KeepAlpha:       opts.keepAlpha,
		Transform:       cfg,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	prog.done("Applied coarse dropout")

	printSuccess("Occluded %s", image)
	printHoleStats(res.Params, res.CacheInfo.ParamsHit, res.CacheInfo.Replayed)
	if opts.keypoints != "" {
		printDetail("%d of %d keypoints dropped", res.Dropped, res.Dropped+len(res.Keypoints))
	}
	for _, path := range res.Outputs {
		printFile(path)
	}
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
	"github.com/matzehuels/cutout/pkg/pipeline"
)

// sampleOptions holds flags for the sample command.
type sampleOptions struct {
	transform transformFlags

	height  int
	width   int
	output  string
	asJSON  bool
	noCache bool
}

// sampleCommand creates the sample command, which draws holes without
// touching any image.
func (c *CLI) sampleCommand() *cobra.Command {
	opts := sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the holes sampled for an image size",
		Long: `Print the holes a configuration and seed produce for an image size.

The result can be saved with --output and later passed to "cutout apply --replay"
to occlude any image of the same size with exactly these holes.`,
		Example: `  cutout sample --height 480 --width 640 --holes 2,6 --hole-height 0.05,0.2 --seed 7
  cutout sample --height 480 --width 640 --json > params.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSample(cmd, opts)
		},
	}

	opts.transform.register(cmd)
	f := cmd.Flags()
	f.IntVar(&opts.height, "height", 0, "image height in pixels")
	f.IntVar(&opts.width, "width", 0, "image width in pixels")
	f.StringVarP(&opts.output, "output", "o", "", "write params JSON to this file")
	f.BoolVar(&opts.asJSON, "json", false, "print params JSON to stdout")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the params cache")
	_ = cmd.MarkFlagRequired("height")
	_ = cmd.MarkFlagRequired("width")

	return cmd
}

func (c *CLI) runSample(cmd *cobra.Command, opts sampleOptions) error {
	ctx := cmd.Context()
	if opts.height <= 0 || opts.width <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "height and width must be positive, got %dx%d", opts.height, opts.width)
	}

	f, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg, err := opts.transform.resolve(f)
	if err != nil {
		return err
	}
	t, err := dropout.New(cfg)
	if err != nil {
		return err
	}
	seed := f.Seed
	if seed == 0 {
		seed = pipeline.DefaultSeed
	}

	runner, err := c.newRunner(ctx, f, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	p, hit, err := runner.Params(ctx, t, opts.height, opts.width, seed, false)
	if err != nil {
		return err
	}

	if opts.asJSON {
		return imgio.WriteParams(p, cmd.OutOrStdout())
	}
	if opts.output != "" {
		if err := imgio.ExportParams(p, opts.output); err != nil {
			return err
		}
	}

	printHoles(p)
	printHoleStats(p, hit, false)
	printDetail("seed %d", seed)
	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cutout/pkg/config"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/pipeline"
)

// noMaskFill disables mask filling from the command line.
const noMaskFill = "none"

// transformFlags override the transform settings of the config file.
// Values use the same syntax as CUTOUT_ environment variables.
type transformFlags struct {
	holes    string
	height   string
	width    string
	fill     string
	maskFill string
	seed     uint64

	cmd *cobra.Command
}

func (t *transformFlags) register(cmd *cobra.Command) {
	t.cmd = cmd
	f := cmd.Flags()
	f.StringVar(&t.holes, "holes", "", "number of holes as lo,hi (e.g. 1,4)")
	f.StringVar(&t.height, "hole-height", "", "hole height as lo,hi: integers are pixels, decimals are fractions")
	f.StringVar(&t.width, "hole-width", "", "hole width as lo,hi: integers are pixels, decimals are fractions")
	f.StringVar(&t.fill, "fill", "", "image fill: a value, per-channel values (0,0,255) or random")
	f.StringVar(&t.maskFill, "mask-fill", "", "mask fill value, or none to leave masks unchanged")
	f.Uint64Var(&t.seed, "seed", 0, "random seed, non-zero (default from config, then 42)")
}

// apply writes the flags that were set into f.
func (t *transformFlags) apply(f *config.File) {
	// A range flag also clears the deprecated min/max pair it replaces.
	set := func(dst *any, v string, legacy ...*any) {
		if v == "" {
			return
		}
		*dst = v
		for _, l := range legacy {
			*l = nil
		}
	}
	set(&f.NumHolesRange, t.holes, &f.MinHoles, &f.MaxHoles)
	set(&f.HoleHeightRange, t.height, &f.MinHeight, &f.MaxHeight)
	set(&f.HoleWidthRange, t.width, &f.MinWidth, &f.MaxWidth)
	set(&f.FillValue, t.fill)
	switch t.maskFill {
	case "":
	case noMaskFill:
		f.MaskFillValue = nil
	default:
		f.MaskFillValue = t.maskFill
	}
	if t.seed != 0 {
		f.Seed = t.seed
	}
}

// resolve applies the flags to f and builds the transform configuration.
func (t *transformFlags) resolve(f *config.File) (dropout.Config, error) {
	if t.cmd != nil && t.cmd.Flags().Changed("seed") {
		if err := pipeline.ValidateSeed(t.seed); err != nil {
			return dropout.Config{}, err
		}
	}
	t.apply(f)
	return f.Transform()
}

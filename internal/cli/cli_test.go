package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cutout/pkg/config"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
	"github.com/matzehuels/cutout/pkg/raster"
)

// captureStdout redirects status output into a buffer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

// run executes the root command with args and an isolated cache.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	out := captureStdout(t)
	captureSpinner(t)

	var logs bytes.Buffer
	c := New(&logs, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeGray(t *testing.T, path string, h, w int, v uint8) {
	t.Helper()
	r, err := raster.FromUint8(h, w, 0, slices.Repeat([]uint8{v}, h*w))
	if err != nil {
		t.Fatal(err)
	}
	if err := imgio.SaveImage(path, r); err != nil {
		t.Fatal(err)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	for _, name := range []string{"apply", "sample", "batch", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestCacheDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
		dir, err := cacheDir()
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		dir, err := cacheDir()
		if err != nil {
			t.Fatal(err)
		}
		home, _ := os.UserHomeDir()
		if want := filepath.Join(home, ".cache", appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})
}

func TestTransformFlagsResolve(t *testing.T) {
	tests := []struct {
		name  string
		flags transformFlags
		file  *config.File
		check func(t *testing.T, cfg dropout.Config, f *config.File)
	}{
		{
			name:  "ranges override file",
			flags: transformFlags{holes: "2,5", height: "0.1,0.2", width: "4,8"},
			file:  &config.File{NumHolesRange: []any{1, 1}},
			check: func(t *testing.T, cfg dropout.Config, _ *config.File) {
				if cfg.NumHoles != (dropout.IntRange{Low: 2, High: 5}) {
					t.Errorf("NumHoles = %+v", cfg.NumHoles)
				}
				if cfg.HoleHeight != dropout.Fraction(0.1, 0.2) {
					t.Errorf("HoleHeight = %v", cfg.HoleHeight)
				}
				if cfg.HoleWidth != dropout.Pixels(4, 8) {
					t.Errorf("HoleWidth = %v", cfg.HoleWidth)
				}
			},
		},
		{
			name:  "range flag clears legacy pair",
			flags: transformFlags{holes: "3,4"},
			file:  &config.File{MinHoles: 1, MaxHoles: 9},
			check: func(t *testing.T, cfg dropout.Config, f *config.File) {
				if f.MinHoles != nil || f.MaxHoles != nil {
					t.Errorf("legacy fields not cleared: %v %v", f.MinHoles, f.MaxHoles)
				}
				if cfg.NumHoles != (dropout.IntRange{Low: 3, High: 4}) {
					t.Errorf("NumHoles = %+v", cfg.NumHoles)
				}
			},
		},
		{
			name:  "fill and mask fill",
			flags: transformFlags{fill: "random", maskFill: "0", seed: 9},
			file:  &config.File{},
			check: func(t *testing.T, cfg dropout.Config, f *config.File) {
				if cfg.Fill.Kind != dropout.FillRandom {
					t.Errorf("Fill = %v, want random", cfg.Fill)
				}
				if cfg.MaskFill == nil {
					t.Fatal("MaskFill should be set")
				}
				if f.Seed != 9 {
					t.Errorf("Seed = %d, want 9", f.Seed)
				}
			},
		},
		{
			name:  "mask fill none",
			flags: transformFlags{maskFill: noMaskFill},
			file:  &config.File{MaskFillValue: 0},
			check: func(t *testing.T, cfg dropout.Config, _ *config.File) {
				if cfg.MaskFill != nil {
					t.Errorf("MaskFill = %v, want nil", cfg.MaskFill)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.flags.resolve(tt.file)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			tt.check(t, cfg, tt.file)
		})
	}
}

func TestTransformFlagsResolveInvalid(t *testing.T) {
	flags := transformFlags{holes: "5,2"}
	if _, err := flags.resolve(&config.File{}); err == nil {
		t.Error("expected an error for an inverted range")
	}
}

func TestSampleJSON(t *testing.T) {
	args := []string{"sample", "--height", "40", "--width", "60", "--holes", "3,3", "--hole-height", "5,5", "--hole-width", "6,6", "--seed", "7", "--json"}
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	p, err := imgio.ReadParams(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadParams: %v\n%s", err, out)
	}
	if p.Height != 40 || p.Width != 60 || len(p.Holes) != 3 {
		t.Fatalf("params = %+v", p)
	}
	for _, h := range p.Holes {
		if h.Height() != 5 || h.Width() != 6 {
			t.Errorf("hole %v has size %dx%d, want 5x6", h, h.Height(), h.Width())
		}
	}

	again, err := run(t, args...)
	if err != nil {
		t.Fatal(err)
	}
	if again != out {
		t.Error("same seed should print the same holes")
	}
}

func TestSampleRejectsBadSize(t *testing.T) {
	if _, err := run(t, "sample", "--height", "0", "--width", "10"); err == nil {
		t.Error("expected an error for a zero height")
	}
}

func TestSampleRejectsZeroSeed(t *testing.T) {
	_, err := run(t, "sample", "--height", "10", "--width", "10", "--seed", "0")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"cancelled", fmt.Errorf("batch: %w", context.Canceled), ExitInterrupted},
		{"bad range", errors.New(errors.ErrCodeInvalidRange, "low > high"), ExitConfig},
		{"bad fill", errors.New(errors.ErrCodeInvalidFill, "fill out of range"), ExitConfig},
		{"missing file", errors.New(errors.ErrCodeFileNotFound, "cat.png"), ExitFailure},
		{"plain", fmt.Errorf("2 of 3 images failed"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestBatchRejectsSharedStem(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "a.png"), 8, 8, 255)
	writeGray(t, filepath.Join(in, "a.jpg"), 8, 8, 255)

	_, err := run(t, "batch", in, "-o", out)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "cat.png")
	writeGray(t, img, 20, 20, 200)
	params := filepath.Join(dir, "params.json")

	out, err := run(t, "apply", img, "--holes", "1,2", "--hole-height", "4,6", "--hole-width", "4,6", "--fill", "0", "--save-params", params)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "Occluded") {
		t.Errorf("output %q missing summary", out)
	}

	result := filepath.Join(dir, "cat_cutout.png")
	r, err := imgio.LoadImage(result, imgio.LoadOptions{})
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	p, err := imgio.ImportParams(params)
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			want := uint8(200)
			if p.Holes.Contains(float64(x), float64(y)) {
				want = 0
			}
			if got := r.Uint8()[y*20+x]; got != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestApplyMissingImage(t *testing.T) {
	if _, err := run(t, "apply", filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected an error for a missing image")
	}
}

func TestBatch(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeGray(t, filepath.Join(in, name), 16, 16, 255)
	}

	got, err := run(t, "batch", in, "-o", out, "--workers", "2", "--holes", "1,1", "--hole-height", "2,3", "--hole-width", "2,3", "--save-params")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !strings.Contains(got, "Occluded 3 images") {
		t.Errorf("output %q missing summary", got)
	}
	for _, stem := range []string{"a", "b", "c"} {
		if _, err := os.Stat(filepath.Join(out, stem+".png")); err != nil {
			t.Errorf("missing output for %s: %v", stem, err)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	cacheHome := t.TempDir()

	// Populate the cache with one sample.
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	buf := captureStdout(t)
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	root.SetArgs([]string{"sample", "--height", "10", "--width", "10"})
	if err := root.Execute(); err != nil {
		t.Fatalf("sample: %v", err)
	}

	buf.Reset()
	root = New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	root.SetArgs([]string{"cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(buf.String()), filepath.Join(cacheHome, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	buf.Reset()
	root = New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Cleared 1 cached entries") {
		t.Errorf("clear output = %q", buf.String())
	}
}

func TestCompletion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appName) {
		t.Error("bash completion should mention the command name")
	}
}

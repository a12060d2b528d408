package dropout

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

func TestNewValidatesConfig(t *testing.T) {
	bad := Constant(1)
	bad.Values = append(bad.Values, 2)

	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.Code
	}{
		{"default is valid", func(*Config) {}, ""},
		{"zero holes", func(c *Config) { c.NumHoles = IntRange{0, 1} }, errors.ErrCodeInvalidRange},
		{"reversed width", func(c *Config) { c.HoleWidth = Pixels(4, 1) }, errors.ErrCodeInvalidRange},
		{"negative height", func(c *Config) { c.HoleHeight = Pixels(-1, 1) }, errors.ErrCodeInvalidRange},
		{"fraction out of range", func(c *Config) { c.HoleHeight = Fraction(0, 2) }, errors.ErrCodeInvalidRange},
		{"bad fill", func(c *Config) { c.Fill = bad }, errors.ErrCodeInvalidFill},
		{"bad mask fill", func(c *Config) { c.MaskFill = &bad }, errors.ErrCodeInvalidFill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			if tt.code == "" {
				if err != nil {
					t.Errorf("New() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("New() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestApplyConsistentAcrossTargets(t *testing.T) {
	maskFill := Constant(255)
	tr, err := New(Config{
		NumHoles:   IntRange{Low: 3, High: 6},
		HoleHeight: Fraction(0.1, 0.3),
		HoleWidth:  Pixels(2, 8),
		Fill:       Constant(0),
		MaskFill:   &maskFill,
	})
	if err != nil {
		t.Fatal(err)
	}

	img := filled(t, raster.Uint8, 32, 32, 3, 128)
	mask := filled(t, raster.Uint8, 32, 32, 0, 0)
	var kps []Keypoint
	for y := 0; y < 32; y += 2 {
		for x := 0; x < 32; x += 2 {
			kps = append(kps, Keypoint{X: float64(x), Y: float64(y)})
		}
	}

	res, err := tr.Apply(Input{Image: img, Mask: mask, Keypoints: kps}, NewRand(4))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	holes := res.Params.Holes
	if n := len(holes); n < 3 || n > 6 {
		t.Fatalf("got %d holes, want 3..6", n)
	}

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			inside := holes.Contains(float64(x), float64(y))
			if got := res.Image.At(y, x, 1) == 0; got != inside {
				t.Errorf("image (%d,%d) occluded=%v, inside=%v", x, y, got, inside)
			}
			if got := res.Mask.At(y, x, 0) == 255; got != inside {
				t.Errorf("mask (%d,%d) occluded=%v, inside=%v", x, y, got, inside)
			}
		}
	}
	for _, kp := range res.Keypoints {
		if holes.Contains(kp.X, kp.Y) {
			t.Errorf("keypoint %v inside a hole survived", kp)
		}
	}
	if len(res.Keypoints) == len(kps) {
		t.Error("expected some keypoints to be dropped")
	}
}

func TestApplyWithParamsReplays(t *testing.T) {
	tr, _ := New(DefaultConfig())
	img := filled(t, raster.Float32, 20, 20, 0, 1)

	first, err := tr.Apply(Input{Image: img}, NewRand(10))
	if err != nil {
		t.Fatal(err)
	}
	replay, err := tr.ApplyWithParams(Input{Image: img}, first.Params, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Image.Equal(replay.Image) {
		t.Error("replaying params should reproduce the image")
	}
}

func TestApplyWithoutMaskFillKeepsMask(t *testing.T) {
	tr, _ := New(DefaultConfig())
	mask := filled(t, raster.Uint8, 16, 16, 0, 3)
	res, err := tr.Apply(Input{Image: filled(t, raster.Uint8, 16, 16, 0, 3), Mask: mask}, NewRand(2))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Mask.Equal(mask) {
		t.Error("mask changed without a mask fill")
	}
	if res.Keypoints != nil {
		t.Error("no keypoints in, no keypoints out")
	}
}

func TestApplyRequiresImage(t *testing.T) {
	tr, _ := New(DefaultConfig())
	if _, err := tr.Apply(Input{}, NewRand(0)); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Apply() error = %v, want INVALID_INPUT", err)
	}
}

func TestApplyLowBoundAboveImage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoleHeight = Pixels(16, 32)
	tr, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.Apply(Input{Image: filled(t, raster.Uint8, 8, 8, 0, 0)}, NewRand(0))
	if !errors.Is(err, errors.ErrCodeInvalidRange) {
		t.Errorf("Apply() error = %v, want INVALID_RANGE", err)
	}
}

func TestTransformArgs(t *testing.T) {
	mf := PerChannel(1, 2)
	tr, _ := New(Config{
		NumHoles:   IntRange{1, 3},
		HoleHeight: Fraction(0.1, 0.2),
		HoleWidth:  Pixels(4, 8),
		Fill:       Random(),
		MaskFill:   &mf,
	})

	data, err := json.Marshal(tr.TransformArgs())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"fill_value":"random","hole_height_range":[0.1,0.2],"hole_width_range":[4,8],"mask_fill_value":[1,2],"num_holes_range":[1,3]}`
	if string(data) != want {
		t.Errorf("TransformArgs() = %s, want %s", data, want)
	}
}

func TestFillJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Fill
	}{
		{`0`, Constant(0)},
		{`127.5`, Constant(127.5)},
		{`[1, 2, 3]`, PerChannel(1, 2, 3)},
		{`"random"`, Random()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Fill
			if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if f.Kind != tt.want.Kind || !slices.Equal(f.Values, tt.want.Values) {
				t.Errorf("got %+v, want %+v", f, tt.want)
			}
		})
	}

	var f Fill
	if err := json.Unmarshal([]byte(`"noise"`), &f); !errors.Is(err, errors.ErrCodeInvalidFill) {
		t.Errorf("Unmarshal(noise) error = %v, want INVALID_FILL", err)
	}
}

func TestParseFill(t *testing.T) {
	tests := []struct {
		in      string
		kind    FillKind
		values  []float64
		wantErr bool
	}{
		{"random", FillRandom, nil, false},
		{"RANDOM", FillRandom, nil, false},
		{"0", FillConstant, []float64{0}, false},
		{"0.25", FillConstant, []float64{0.25}, false},
		{"10,20,30", FillPerChannel, []float64{10, 20, 30}, false},
		{"(10, 20, 30)", FillPerChannel, []float64{10, 20, 30}, false},
		{"[5]", FillPerChannel, []float64{5}, false},
		{"", 0, nil, true},
		{"red", 0, nil, true},
		{"7 8", 0, nil, true},
		{"0,0,255abc", 0, nil, true},
		{"1,,2", 0, nil, true},
		{"nan", 0, nil, true},
		{"inf", 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFill(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFill(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if f.Kind != tt.kind || !slices.Equal(f.Values, tt.values) {
				t.Errorf("ParseFill(%q) = %+v", tt.in, f)
			}
		})
	}
}

package dropout

import (
	"slices"
	"testing"

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

func filled(t *testing.T, dtype raster.DType, h, w, c int, v float64) *raster.Raster {
	t.Helper()
	r, err := raster.New(dtype, h, w, c)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.FillRect(r.Bounds(), slices.Repeat([]float64{v}, r.Channels())); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestApplyToImageScenario(t *testing.T) {
	img := filled(t, raster.Uint8, 10, 10, 0, 5)
	holes := HoleSet{{X1: 2, Y1: 2, X2: 6, Y2: 6}}

	out, err := ApplyToImage(img, holes, Constant(0), nil)
	if err != nil {
		t.Fatalf("ApplyToImage() error: %v", err)
	}

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := 5.0
			if y >= 2 && y <= 5 && x >= 2 && x <= 5 {
				want = 0
			}
			if got := out.At(y, x, 0); got != want {
				t.Errorf("out[%d][%d] = %v, want %v", y, x, got, want)
			}
		}
	}
	if img.At(3, 3, 0) != 5 {
		t.Error("input image was modified")
	}
}

func TestApplyToImagePreservesShape(t *testing.T) {
	tests := []struct {
		name     string
		dtype    raster.DType
		channels int
		fill     Fill
	}{
		{"uint8 2d constant", raster.Uint8, 0, Constant(7)},
		{"uint8 rgb per-channel", raster.Uint8, 3, PerChannel(1, 2, 3)},
		{"uint8 rgb random", raster.Uint8, 3, Random()},
		{"float32 2d random", raster.Float32, 0, Random()},
		{"float32 rgba constant", raster.Float32, 4, Constant(0.5)},
	}

	holes := HoleSet{{1, 1, 4, 3}, {0, 0, 2, 2}, {5, 5, 5, 7}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := filled(t, tt.dtype, 8, 9, tt.channels, 0)
			out, err := ApplyToImage(img, holes, tt.fill, NewRand(1))
			if err != nil {
				t.Fatalf("ApplyToImage() error: %v", err)
			}
			if !out.SameShape(img) {
				t.Errorf("shape %v %s, want %v %s", out.Shape(), out.DType(), img.Shape(), img.DType())
			}
		})
	}
}

func TestApplyToImagePerChannel(t *testing.T) {
	img := filled(t, raster.Uint8, 4, 4, 3, 9)
	out, err := ApplyToImage(img, HoleSet{{0, 0, 2, 1}}, PerChannel(10, 20, 30), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := []float64{out.At(0, 1, 0), out.At(0, 1, 1), out.At(0, 1, 2)}
	if !slices.Equal(got, []float64{10, 20, 30}) {
		t.Errorf("pixel = %v, want [10 20 30]", got)
	}
	if out.At(1, 0, 0) != 9 {
		t.Errorf("pixel outside hole changed to %v", out.At(1, 0, 0))
	}
}

func TestApplyToImageRandomDomain(t *testing.T) {
	imgU8 := filled(t, raster.Uint8, 16, 16, 3, 0)
	outU8, err := ApplyToImage(imgU8, HoleSet{{0, 0, 16, 16}}, Random(), NewRand(5))
	if err != nil {
		t.Fatal(err)
	}
	distinct := map[uint8]bool{}
	for _, v := range outU8.Uint8() {
		distinct[v] = true
	}
	if len(distinct) < 100 {
		t.Errorf("random uint8 fill produced only %d distinct values", len(distinct))
	}

	imgF := filled(t, raster.Float32, 16, 16, 0, 5)
	outF, err := ApplyToImage(imgF, HoleSet{{0, 0, 16, 16}}, Random(), NewRand(5))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range outF.Float32() {
		if v < 0 || v >= 1 {
			t.Fatalf("random float32 value %d = %v, want [0, 1)", i, v)
		}
	}
}

func TestApplyToImageLaterHoleWins(t *testing.T) {
	img := filled(t, raster.Uint8, 4, 4, 0, 0)
	holes := HoleSet{{0, 0, 3, 3}, {1, 1, 4, 4}}

	a, err := ApplyToImage(img, holes, Random(), NewRand(11))
	if err != nil {
		t.Fatal(err)
	}
	// Apply the holes one at a time with the same stream: the overlap must
	// hold the second hole's values.
	rng := NewRand(11)
	step, _ := ApplyToImage(img, holes[:1], Random(), rng)
	b, _ := ApplyToImage(step, holes[1:], Random(), rng)
	if !a.Equal(b) {
		t.Error("holes were not applied in order")
	}
}

func TestApplyToImageErrors(t *testing.T) {
	rgb := filled(t, raster.Uint8, 5, 5, 3, 0)

	tests := []struct {
		name  string
		holes HoleSet
		fill  Fill
		code  errors.Code
	}{
		{"hole outside", HoleSet{{3, 3, 6, 4}}, Constant(0), errors.ErrCodeShapeMismatch},
		{"negative hole", HoleSet{{-1, 0, 2, 2}}, Constant(0), errors.ErrCodeShapeMismatch},
		{"inverted hole", HoleSet{{3, 0, 2, 2}}, Constant(0), errors.ErrCodeShapeMismatch},
		{"tuple too short", HoleSet{{0, 0, 1, 1}}, PerChannel(1, 2), errors.ErrCodeShapeMismatch},
		{"tuple too long", HoleSet{{0, 0, 1, 1}}, PerChannel(1, 2, 3, 4), errors.ErrCodeShapeMismatch},
		{"value out of range", HoleSet{{0, 0, 1, 1}}, Constant(300), errors.ErrCodeInvalidFill},
		{"random without rng", HoleSet{{0, 0, 1, 1}}, Random(), errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyToImage(rgb, tt.holes, tt.fill, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("ApplyToImage() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestApplyToMaskNilFillIsIdentity(t *testing.T) {
	mask := filled(t, raster.Uint8, 6, 6, 0, 1)
	out, err := ApplyToMask(mask, HoleSet{{0, 0, 6, 6}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != mask || !out.Equal(mask) {
		t.Error("nil mask fill should return the input mask unchanged")
	}
}

func TestImageAndMaskShareRegions(t *testing.T) {
	img := filled(t, raster.Uint8, 12, 12, 3, 200)
	mask := filled(t, raster.Uint8, 12, 12, 0, 1)
	holes, err := Sample(12, 12, IntRange{2, 4}, Pixels(2, 6), Pixels(2, 6), NewRand(21))
	if err != nil {
		t.Fatal(err)
	}

	outImg, err := ApplyToImage(img, holes, Constant(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	maskFill := Constant(0)
	outMask, err := ApplyToMask(mask, holes, &maskFill, nil)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			imgHit := outImg.At(y, x, 0) == 0
			maskHit := outMask.At(y, x, 0) == 0
			if imgHit != maskHit {
				t.Errorf("pixel (%d,%d): image occluded=%v, mask occluded=%v", x, y, imgHit, maskHit)
			}
		}
	}
}

func TestApplyToMaskSmallerThanHoles(t *testing.T) {
	mask := filled(t, raster.Uint8, 4, 4, 0, 0)
	fill := Constant(0)
	_, err := ApplyToMask(mask, HoleSet{{2, 2, 6, 6}}, &fill, nil)
	if !errors.Is(err, errors.ErrCodeShapeMismatch) {
		t.Errorf("ApplyToMask() error = %v, want SHAPE_MISMATCH", err)
	}
}

func TestFilterKeypoints(t *testing.T) {
	kps := []Keypoint{{X: 1, Y: 1}, {X: 3, Y: 3, Label: "nose"}, {X: 7, Y: 7}}
	got := FilterKeypoints(kps, HoleSet{{2, 2, 6, 6}})
	want := []Keypoint{{X: 1, Y: 1}, {X: 7, Y: 7}}
	if !slices.Equal(got, want) {
		t.Errorf("FilterKeypoints() = %v, want %v", got, want)
	}
}

func TestFilterKeypointsHalfOpenBoundary(t *testing.T) {
	hole := HoleSet{{X1: 2, Y1: 2, X2: 6, Y2: 6}}

	tests := []struct {
		name string
		kp   Keypoint
		keep bool
	}{
		{"top-left corner", Keypoint{X: 2, Y: 2}, false},
		{"bottom-right corner", Keypoint{X: 6, Y: 6}, true},
		{"right edge", Keypoint{X: 6, Y: 3}, true},
		{"bottom edge", Keypoint{X: 3, Y: 6}, true},
		{"just inside", Keypoint{X: 5.999, Y: 5.999}, false},
		{"just outside left", Keypoint{X: 1.999, Y: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterKeypoints([]Keypoint{tt.kp}, hole)
			if kept := len(got) == 1; kept != tt.keep {
				t.Errorf("kept = %v, want %v", kept, tt.keep)
			}
		})
	}
}

func TestFilterKeypointsZeroAreaHole(t *testing.T) {
	kps := []Keypoint{{X: 3, Y: 3}}
	got := FilterKeypoints(kps, HoleSet{{3, 3, 3, 5}, {3, 3, 5, 3}})
	if len(got) != 1 {
		t.Error("zero-area holes must not drop keypoints")
	}
}

type taggedPoint struct {
	x, y float64
	id   int
}

func (p taggedPoint) XY() (float64, float64) { return p.x, p.y }

func TestFilterKeypointsGeneric(t *testing.T) {
	pts := []taggedPoint{{0, 0, 1}, {5, 5, 2}, {9, 9, 3}}
	got := FilterKeypoints(pts, HoleSet{{4, 4, 6, 6}})
	if len(got) != 2 || got[0].id != 1 || got[1].id != 3 {
		t.Errorf("FilterKeypoints() = %v, want ids [1 3]", got)
	}
}

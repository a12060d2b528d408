package dropout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

// FillKind selects how a hole is filled.
type FillKind uint8

const (
	// FillConstant broadcasts one value across every channel.
	FillConstant FillKind = iota
	// FillPerChannel writes Values[c] into channel c.
	FillPerChannel
	// FillRandom draws an independent value for every element.
	FillRandom
)

// RandomFill is the configuration keyword for [FillRandom].
const RandomFill = "random"

// Fill describes the values written into holes. The zero value is a
// constant fill of 0.
type Fill struct {
	Kind   FillKind
	Values []float64
}

// Constant returns a fill that writes v into every channel.
func Constant(v float64) Fill {
	return Fill{Kind: FillConstant, Values: []float64{v}}
}

// PerChannel returns a fill that writes values[c] into channel c.
func PerChannel(values ...float64) Fill {
	return Fill{Kind: FillPerChannel, Values: slices.Clone(values)}
}

// Random returns a fill that draws independent noise per element: uniform
// integers in [0, 255] for uint8 buffers, uniform floats in [0, 1) for
// float32 buffers.
func Random() Fill {
	return Fill{Kind: FillRandom}
}

// Validate checks that the fill carries a usable set of values.
func (f Fill) Validate() error {
	switch f.Kind {
	case FillConstant:
		if len(f.Values) > 1 {
			return errors.New(errors.ErrCodeInvalidFill, "constant fill takes one value, got %d", len(f.Values))
		}
	case FillPerChannel:
		if len(f.Values) == 0 {
			return errors.New(errors.ErrCodeInvalidFill, "per-channel fill needs at least one value")
		}
	case FillRandom:
		if len(f.Values) != 0 {
			return errors.New(errors.ErrCodeInvalidFill, "random fill takes no values")
		}
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidFill, "unknown fill kind %d", f.Kind)
	}
	for _, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidFill, "fill value must be finite, got %g", v)
		}
	}
	return nil
}

// channelValues resolves a constant fill to one value per channel.
func (f Fill) channelValues(channels int) ([]float64, error) {
	switch f.Kind {
	case FillConstant:
		v := 0.0
		if len(f.Values) == 1 {
			v = f.Values[0]
		}
		out := make([]float64, channels)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case FillPerChannel:
		if len(f.Values) != channels {
			return nil, errors.New(errors.ErrCodeShapeMismatch,
				"fill has %d values, buffer has %d channels", len(f.Values), channels)
		}
		return f.Values, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFill, "fill kind %d has no constant values", f.Kind)
}

// fillHole writes one hole into r.
func (f Fill) fillHole(r *raster.Raster, h Hole, rng *rand.Rand) error {
	if f.Kind == FillRandom {
		if rng == nil {
			return errors.New(errors.ErrCodeInvalidInput, "random fill requires a random source")
		}
		next := func() float64 { return rng.Float64() }
		if r.DType() == raster.Uint8 {
			next = func() float64 { return float64(rng.IntN(256)) }
		}
		return r.FillRectFunc(h.Rect(), next)
	}

	values, err := f.channelValues(r.Channels())
	if err != nil {
		return err
	}
	return r.FillRect(h.Rect(), values)
}

func (f Fill) String() string {
	switch f.Kind {
	case FillRandom:
		return RandomFill
	case FillPerChannel:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = fmt.Sprintf("%g", v)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	if len(f.Values) == 0 {
		return "0"
	}
	return fmt.Sprintf("%g", f.Values[0])
}

// MarshalJSON encodes the fill as a number, an array or "random".
func (f Fill) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FillRandom:
		return json.Marshal(RandomFill)
	case FillPerChannel:
		return json.Marshal(f.Values)
	}
	v := 0.0
	if len(f.Values) > 0 {
		v = f.Values[0]
	}
	return json.Marshal(v)
}

// UnmarshalJSON accepts a number, an array of numbers or "random".
func (f *Fill) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var err error
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err = json.Unmarshal(data, &s); err == nil {
			*f, err = ParseFill(s)
		}
	case len(data) > 0 && data[0] == '[':
		var vs []float64
		if err = json.Unmarshal(data, &vs); err == nil {
			*f = PerChannel(vs...)
		}
	default:
		var v float64
		if err = json.Unmarshal(data, &v); err == nil {
			*f = Constant(v)
		}
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFill, err, "decode fill value %s", data)
	}
	return f.Validate()
}

// ParseFill parses the textual form of a fill: "random", a single number, or
// a comma-separated list of numbers (optionally in parentheses or brackets).
func ParseFill(s string) (Fill, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, RandomFill) {
		return Random(), nil
	}
	trimmed := strings.Trim(s, "()[] ")
	parts := strings.Split(trimmed, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Fill{}, errors.Wrap(errors.ErrCodeInvalidFill, err, "invalid fill value %q", s)
		}
		values = append(values, v)
	}
	f := PerChannel(values...)
	if len(values) == 1 && trimmed == s {
		f = Constant(values[0])
	}
	if err := f.Validate(); err != nil {
		return Fill{}, err
	}
	return f, nil
}

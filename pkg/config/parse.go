package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
)

// NormalizeLegacy folds the deprecated min/max pair of one range into the
// range form. When maxV is set the range becomes (minV or maxV, maxV), where
// a missing or zero minV falls back to maxV. Otherwise current is returned
// unchanged.
func NormalizeLegacy(minV, maxV, current any) any {
	if maxV == nil {
		return current
	}
	if minV == nil || isZero(minV) {
		minV = maxV
	}
	return []any{minV, maxV}
}

func isZero(v any) bool {
	n, ok := toNumber(v)
	return ok && n.v == 0
}

// number is a decoded config scalar that remembers whether it was written
// as a float.
type number struct {
	v    float64
	frac bool
}

func toNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{v: float64(x)}, true
	case int64:
		return number{v: float64(x)}, true
	case uint64:
		return number{v: float64(x)}, true
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case string:
		return parseNumber(x)
	}
	return number{}, false
}

func parseNumber(s string) (number, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{v: float64(i)}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return number{}, false
	}
	return finite(f)
}

// finite wraps a fractional value, rejecting NaN and infinities.
func finite(f float64) (number, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return number{}, false
	}
	return number{v: f, frac: true}, true
}

// bounds is a decoded two-element range. frac follows the first element.
type bounds struct {
	lo, hi float64
	frac   bool
}

// parseRange accepts a two-element list or a "lo,hi" string.
func parseRange(name string, v any) (bounds, error) {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []int:
		for _, i := range x {
			items = append(items, i)
		}
	case []float64:
		for _, f := range x {
			items = append(items, f)
		}
	case string:
		for _, p := range strings.Split(strings.Trim(x, "()[] "), ",") {
			items = append(items, p)
		}
	default:
		return bounds{}, errors.New(errors.ErrCodeInvalidRange, "%s must be a two-element list, got %T", name, v)
	}
	if len(items) != 2 {
		return bounds{}, errors.New(errors.ErrCodeInvalidRange, "%s must have exactly two values, got %d", name, len(items))
	}

	lo, ok := toNumber(items[0])
	if !ok {
		return bounds{}, errors.New(errors.ErrCodeInvalidRange, "%s: %v is not a number", name, items[0])
	}
	hi, ok := toNumber(items[1])
	if !ok {
		return bounds{}, errors.New(errors.ErrCodeInvalidRange, "%s: %v is not a number", name, items[1])
	}
	if !lo.frac && hi.v != math.Trunc(hi.v) {
		return bounds{}, errors.New(errors.ErrCodeInvalidRange, "%s mixes pixels and fractions: %v", name, v)
	}
	return bounds{lo: lo.v, hi: hi.v, frac: lo.frac}, nil
}

// parseSizeRange decodes a hole height or width range: integers are pixels,
// floats are fractions of the image dimension.
func parseSizeRange(name string, v any) (dropout.SizeRange, error) {
	b, err := parseRange(name, v)
	if err != nil {
		return dropout.SizeRange{}, err
	}
	if b.frac {
		return dropout.Fraction(b.lo, b.hi), nil
	}
	return dropout.Pixels(int(b.lo), int(b.hi)), nil
}

// parseFill decodes a number, a list of numbers, or "random".
func parseFill(name string, v any) (dropout.Fill, error) {
	switch x := v.(type) {
	case string:
		f, err := dropout.ParseFill(x)
		if err != nil {
			return f, errors.Wrap(errors.ErrCodeInvalidFill, err, "%s", name)
		}
		return f, nil
	case []any:
		values := make([]float64, len(x))
		for i, item := range x {
			n, ok := toNumber(item)
			if !ok {
				return dropout.Fill{}, errors.New(errors.ErrCodeInvalidFill, "%s: %v is not a number", name, item)
			}
			values[i] = n.v
		}
		return dropout.PerChannel(values...), nil
	}
	if n, ok := toNumber(v); ok {
		return dropout.Constant(n.v), nil
	}
	return dropout.Fill{}, errors.New(errors.ErrCodeInvalidFill, "%s: unsupported value %s", name, fmt.Sprint(v))
}

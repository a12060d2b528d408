package errors

import (
	"math"
	"testing"
)

func TestValidateIntRange(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  int
		minimum int
		wantErr bool
	}{
		{"equal bounds", 1, 1, 1, false},
		{"ordered", 2, 8, 1, false},
		{"zero allowed", 0, 4, 0, false},

		{"below minimum", 0, 4, 1, true},
		{"negative", -1, 4, 0, true},
		{"reversed", 5, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIntRange("r", tt.lo, tt.hi, tt.minimum)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIntRange(%d, %d) error = %v, wantErr %v", tt.lo, tt.hi, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidRange) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidRange)
			}
		})
	}
}

func TestValidateFracRange(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  float64
		wantErr bool
	}{
		{"unit interval", 0, 1, false},
		{"equal", 0.5, 0.5, false},

		{"above one", 0.5, 1.5, true},
		{"negative", -0.1, 0.5, true},
		{"reversed", 0.6, 0.2, true},
		{"nan", math.NaN(), math.NaN(), true},
		{"nan high", 0.1, math.NaN(), true},
		{"infinite", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFracRange("r", tt.lo, tt.hi)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFracRange(%g, %g) error = %v, wantErr %v", tt.lo, tt.hi, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "images/cat.png", false},
		{"absolute", "/data/cat.png", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 5000)), true},
		{"null byte", "cat\x00.png", true},
		{"newline", "cat\n.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRelativeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "cat.png", false},
		{"hidden", ".cat.png", false},

		{"with slash", "a/cat.png", true},
		{"with backslash", "a\\cat.png", true},
		{"dot dot", "..", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelativeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateIntRange checks that lo <= hi and that lo is at least minimum.
// name is used in the error message (e.g. "num_holes_range").
func ValidateIntRange(name string, lo, hi, minimum int) error {
	if lo < minimum {
		return New(ErrCodeInvalidRange, "%s low value should be at least %d, got (%d, %d)", name, minimum, lo, hi)
	}
	if lo > hi {
		return New(ErrCodeInvalidRange, "%s low value should be less than or equal to high value, got (%d, %d)", name, lo, hi)
	}
	return nil
}

// ValidateFracRange checks that lo <= hi and both lie in [0, 1].
func ValidateFracRange(name string, lo, hi float64) error {
	// Written as a negation so NaN fails the check.
	if !(lo >= 0 && lo <= 1 && hi >= 0 && hi <= 1) {
		return New(ErrCodeInvalidRange, "all values in %s should be in [0, 1], got (%g, %g)", name, lo, hi)
	}
	if lo > hi {
		return New(ErrCodeInvalidRange, "%s low value should be less than or equal to high value, got (%g, %g)", name, lo, hi)
	}
	return nil
}

// ValidatePath validates a user-supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateRelativeName validates a file name taken from an untrusted source,
// such as a multipart upload. It must be a bare base name.
func ValidateRelativeName(name string) error {
	if err := ValidatePath(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, "/\\") || filepath.Base(name) != name {
		return New(ErrCodeInvalidPath, "file name cannot contain path separators: %q", name)
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidPath, "invalid file name: %q", name)
	}
	return nil
}

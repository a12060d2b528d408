package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
)

// WriteKeypoints encodes keypoints as indented JSON. A nil slice is written
// as an empty array so the output can always be re-read with
// [ReadKeypoints].
func WriteKeypoints(kps []dropout.Keypoint, w io.Writer) error {
	if kps == nil {
		kps = []dropout.Keypoint{}
	}
	return encode(w, kps, "keypoints")
}

// ExportKeypoints writes keypoints to a JSON file at path.
func ExportKeypoints(kps []dropout.Keypoint, path string) error {
	return export(path, func(w io.Writer) error { return WriteKeypoints(kps, w) })
}

// WriteParams encodes sampled params (dimensions and holes) as JSON. This
// format can be re-imported with [ReadParams] to replay the same holes.
func WriteParams(p dropout.Params, w io.Writer) error {
	if p.Holes == nil {
		p.Holes = dropout.HoleSet{}
	}
	return encode(w, p, "params")
}

// ExportParams writes params to a JSON file at path.
func ExportParams(p dropout.Params, path string) error {
	return export(path, func(w io.Writer) error { return WriteParams(p, w) })
}

func encode(w io.Writer, v any, what string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", what)
	}
	return nil
}

func export(path string, write func(io.Writer) error) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()
	return write(f)
}

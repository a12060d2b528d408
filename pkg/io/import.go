package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
)

// ReadKeypoints decodes a JSON keypoint list from r.
//
// The input is an array of objects with "x" and "y" fields. "angle",
// "scale" and "label" are optional and carried through unchanged:
//
//	[{"x": 12.5, "y": 40}, {"x": 3, "y": 7, "label": "nose"}]
//
// An empty array yields an empty, non-nil slice. ReadKeypoints does not
// close r.
func ReadKeypoints(r io.Reader) ([]dropout.Keypoint, error) {
	kps := []dropout.Keypoint{}
	if err := json.NewDecoder(r).Decode(&kps); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode keypoints")
	}
	return kps, nil
}

// ImportKeypoints reads a keypoint JSON file at path.
func ImportKeypoints(path string) ([]dropout.Keypoint, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKeypoints(f)
}

// ReadParams decodes sampled params written by [WriteParams] and checks
// that every hole fits the recorded dimensions.
func ReadParams(r io.Reader) (dropout.Params, error) {
	var p dropout.Params
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return p, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode params")
	}
	for i, h := range p.Holes {
		if !h.Within(p.Height, p.Width) {
			return p, errors.New(errors.ErrCodeShapeMismatch,
				"hole %d %s does not fit %dx%d", i, h, p.Height, p.Width)
		}
	}
	return p, nil
}

// ImportParams reads a params JSON file at path.
func ImportParams(path string) (dropout.Params, error) {
	f, err := open(path)
	if err != nil {
		return dropout.Params{}, err
	}
	defer f.Close()
	return ReadParams(f)
}

func open(path string) (*os.File, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	return f, nil
}

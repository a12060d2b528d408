package io

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder

	"github.com/matzehuels/cutout/pkg/errors"
	"github.com/matzehuels/cutout/pkg/raster"
)

// LoadOptions controls how image files are converted to rasters.
type LoadOptions struct {
	// AsFloat produces float32 rasters with values in [0, 1].
	AsFloat bool
	// KeepAlpha keeps the alpha channel of color images.
	KeepAlpha bool
}

func (o LoadOptions) convert() raster.ConvertOptions {
	dt := raster.Uint8
	if o.AsFloat {
		dt = raster.Float32
	}
	return raster.ConvertOptions{DType: dt, KeepAlpha: o.KeepAlpha}
}

// LoadImage decodes the image at path. EXIF orientation is applied, so the
// raster matches what an image viewer shows.
func LoadImage(path string, opts LoadOptions) (*raster.Raster, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", path)
	}
	return raster.FromImage(img, opts.convert())
}

// DecodeImage decodes an image from r.
func DecodeImage(r io.Reader, opts LoadOptions) (*raster.Raster, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode image")
	}
	return raster.FromImage(img, opts.convert())
}

// SaveImage encodes r to path. The format follows the file extension
// (.png, .jpg, .jpeg, .gif, .tif, .tiff, .bmp). Parent directories are
// created as needed.
func SaveImage(path string, r *raster.Raster) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return errors.Wrap(errors.ErrCodeUnsupported, err, "save %s", path)
	}
	img, err := raster.ToImage(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create directory for %s", path)
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save %s", path)
	}
	return nil
}

// EncodeImage writes r to w in the named format ("png", "jpeg", ...).
func EncodeImage(w io.Writer, r *raster.Raster, format string) error {
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(format, "."))
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnsupported, err, "encode")
	}
	img, err := raster.ToImage(r)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, f); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", format)
	}
	return nil
}

// EncodePNG returns r as PNG bytes.
func EncodePNG(r *raster.Raster) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeImage(&buf, r, "png"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsImageFile reports whether path has an extension [LoadImage] understands.
func IsImageFile(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

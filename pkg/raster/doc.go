// Package raster provides the dense pixel buffers that cutout reads and
// rewrites.
//
// # Layout
//
// A [Raster] is a height x width x channels array stored row-major and
// channel-last, the layout used by numpy-style image libraries:
//
//	offset(y, x, c) = (y*width + x)*channels + c
//
// Two element types are supported, [Uint8] and [Float32]. A raster created
// with zero channels is two-dimensional (a single value per pixel), which is
// the usual shape for segmentation masks.
//
// # Region Writes
//
// [Raster.FillRect] and [Raster.FillRectFunc] overwrite a rectangular region
// across all channels. Both reject regions that are not fully inside the
// raster instead of clipping them, and FillRect rejects a value tuple whose
// length differs from the channel count.
//
// # Conversion
//
// [FromImage] and [ToImage] convert between rasters and the standard
// library's image.Image, so any decoder registered with the image package can
// feed a raster.
package raster

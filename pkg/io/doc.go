// Package io reads and writes the files cutout works with: images, masks,
// keypoint lists and sampled hole params.
//
// # Images
//
// [LoadImage] decodes PNG, JPEG, GIF, TIFF and BMP files into a
// [raster.Raster]. Grayscale files (typical for masks) become 2D rasters;
// color files become 3-channel RGB rasters, or 4-channel RGBA with
// [LoadOptions].KeepAlpha. With [LoadOptions].AsFloat the raster holds
// float32 values in [0, 1].
//
// [SaveImage] picks the encoder from the file extension. Float32 rasters are
// clamped to [0, 1] and scaled to 8 bits.
//
// # Keypoints
//
// Keypoints are stored as a JSON array:
//
//	[
//	  {"x": 12.5, "y": 40},
//	  {"x": 3, "y": 7, "angle": 0.5, "scale": 1, "label": "nose"}
//	]
//
// # Params
//
// Params record the image dimensions and the holes of one invocation:
//
//	{
//	  "height": 480,
//	  "width": 640,
//	  "holes": [{"x1": 10, "y1": 20, "x2": 42, "y2": 60}]
//	}
//
// Writing params next to an output lets the same holes be replayed later on
// another target, for example a mask produced after the fact.
package io

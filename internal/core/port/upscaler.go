package port

import (
	"context"
	"image"
)

type Upscaler interface {
	// Upscale returns a raster enlarged by the model's fixed magnification
	// factor. The first call process-wide triggers the model load.
	Upscale(ctx context.Context, img image.Image) (image.Image, error)
	// ScaleFactor returns the fixed linear magnification of the model.
	ScaleFactor() int
}

type Resizer interface {
	// Resize scales the image to exactly the given dimensions with a
	// quality-preserving interpolation filter.
	Resize(img image.Image, width, height int) image.Image
}

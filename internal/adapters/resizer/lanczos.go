package resizer

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/robertsLando/upscaler/internal/core/port"
)

// Lanczos resizes with the Lanczos3 kernel from "github.com/nfnt/resize".
type Lanczos struct{}

var _ port.Resizer = (*Lanczos)(nil)

func (*Lanczos) Resize(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}

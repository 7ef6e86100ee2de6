package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rs/zerolog/log"

	"github.com/robertsLando/upscaler/internal/core/domain"
	"github.com/robertsLando/upscaler/internal/core/port"
)

// UpscalePipeline orchestrates a single run: decode, RGB normalization,
// target resolution, model inference, fit-inside resize and PNG encoding.
// Any step's failure short-circuits the rest; no partial output.
type UpscalePipeline struct {
	upscaler port.Upscaler
	resizer  port.Resizer
}

var _ port.Pipeline = (*UpscalePipeline)(nil)

func NewUpscalePipeline(upscaler port.Upscaler, resizer port.Resizer) *UpscalePipeline {
	return &UpscalePipeline{upscaler: upscaler, resizer: resizer}
}

func (p *UpscalePipeline) Run(ctx context.Context, raw []byte, spec domain.SizeSpec) (*domain.Result, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode image: %s", domain.ErrValidation, err)
	}

	target, err := spec.Resolve()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	l := log.With().
		Str("format", format).
		Int("srcWidth", b.Dx()).
		Int("srcHeight", b.Dy()).
		Logger()

	l.Debug().
		Int("targetWidth", target.Width).
		Int("targetHeight", target.Height).
		Msg("resolved target size")

	// The model output is exactly factor times the source, so an
	// unreachable target can be rejected before the expensive inference.
	factor := p.upscaler.ScaleFactor()
	if _, _, err := domain.FitWithin(b.Dx()*factor, b.Dy()*factor, target); err != nil {
		return nil, err
	}

	upscaled, err := p.upscaler.Upscale(ctx, normalizeRGB(img))
	if err != nil {
		return nil, err
	}

	ub := upscaled.Bounds()
	width, height, err := domain.FitWithin(ub.Dx(), ub.Dy(), target)
	if err != nil {
		return nil, err
	}

	final := p.resizer.Resize(upscaled, width, height)

	var buf bytes.Buffer
	if err := png.Encode(&buf, final); err != nil {
		return nil, fmt.Errorf("%w: could not encode result: %s", domain.ErrProcessing, err)
	}

	l.Info().Int("width", width).Int("height", height).Msg("image upscaled")

	return &domain.Result{PNG: buf.Bytes(), Width: width, Height: height}, nil
}

// normalizeRGB flattens any color mode onto an opaque RGBA raster,
// compositing transparency over white.
func normalizeRGB(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Opaque() {
		return rgba
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)

	return dst
}

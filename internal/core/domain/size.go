package domain

import (
	"fmt"
	"math"
)

// ResolvedTarget is the canonical pixel target a SizeSpec resolves to.
type ResolvedTarget struct {
	Width  int
	Height int
}

// SizeSpec is the caller-supplied target size. Exactly one of the two
// variants exists per request; ParseSizeSpec rejects ambiguous input.
type SizeSpec interface {
	// Resolve validates the spec and converts it to a pixel target.
	Resolve() (ResolvedTarget, error)
}

// PixelTarget is a target size given directly in pixels.
type PixelTarget struct {
	Width  int
	Height int
}

func (t PixelTarget) Resolve() (ResolvedTarget, error) {
	if t.Width < MinPixels || t.Width > MaxPixels {
		return ResolvedTarget{}, fmt.Errorf("%w: width must be between %d and %d pixels", ErrValidation,
			MinPixels, MaxPixels)
	}

	if t.Height < MinPixels || t.Height > MaxPixels {
		return ResolvedTarget{}, fmt.Errorf("%w: height must be between %d and %d pixels", ErrValidation,
			MinPixels, MaxPixels)
	}

	return ResolvedTarget{Width: t.Width, Height: t.Height}, nil
}

// PhysicalTarget is a target size given as physical dimensions at a print
// resolution.
type PhysicalTarget struct {
	WidthCm  float64
	HeightCm float64
	DPI      int
}

func (t PhysicalTarget) Resolve() (ResolvedTarget, error) {
	if t.WidthCm < MinCm || t.WidthCm > MaxCm {
		return ResolvedTarget{}, fmt.Errorf("%w: width must be between %g and %g centimeters", ErrValidation,
			MinCm, MaxCm)
	}

	if t.HeightCm < MinCm || t.HeightCm > MaxCm {
		return ResolvedTarget{}, fmt.Errorf("%w: height must be between %g and %g centimeters", ErrValidation,
			MinCm, MaxCm)
	}

	if t.DPI < MinDPI || t.DPI > MaxDPI {
		return ResolvedTarget{}, fmt.Errorf("%w: dpi must be between %d and %d", ErrValidation,
			MinDPI, MaxDPI)
	}

	return ResolvedTarget{
		Width:  cmToPixels(t.WidthCm, t.DPI),
		Height: cmToPixels(t.HeightCm, t.DPI),
	}, nil
}

// cmToPixels converts one axis independently; rounding per axis can drift
// the pixel aspect ratio slightly from the physical one.
func cmToPixels(cm float64, dpi int) int {
	px := int(math.Round(cm / CmPerInch * float64(dpi)))
	if px < MinPixels {
		px = MinPixels
	}

	return px
}

// ParseSizeSpec builds a SizeSpec from raw request fields, nil meaning
// absent. Exactly one input mode must be supplied: pixel dimensions, or
// physical dimensions with a resolution.
func ParseSizeSpec(widthPx, heightPx *int, widthCm, heightCm *float64, dpi *int) (SizeSpec, error) {
	usingPixels := widthPx != nil || heightPx != nil
	usingPhysical := widthCm != nil || heightCm != nil || dpi != nil

	switch {
	case usingPixels && usingPhysical:
		return nil, fmt.Errorf("%w: cannot mix pixel and physical dimensions", ErrValidation)
	case usingPhysical:
		if widthCm == nil || heightCm == nil || dpi == nil {
			return nil, fmt.Errorf("%w: physical mode requires width_cm, height_cm and dpi", ErrValidation)
		}

		return PhysicalTarget{WidthCm: *widthCm, HeightCm: *heightCm, DPI: *dpi}, nil
	case usingPixels:
		if widthPx == nil || heightPx == nil {
			return nil, fmt.Errorf("%w: pixel mode requires both width and height", ErrValidation)
		}

		return PixelTarget{Width: *widthPx, Height: *heightPx}, nil
	default:
		return nil, fmt.Errorf("%w: no target size given", ErrValidation)
	}
}

// FitWithin computes the largest size with the source aspect ratio that
// fits inside the target box; at least one axis matches the box exactly.
// The source is never enlarged: a target exceeding the source on both
// axes is unreachable and rejected.
func FitWithin(srcWidth, srcHeight int, target ResolvedTarget) (int, int, error) {
	if srcWidth < 1 || srcHeight < 1 {
		return 0, 0, fmt.Errorf("%w: empty source image", ErrValidation)
	}

	scale := math.Min(float64(target.Width)/float64(srcWidth), float64(target.Height)/float64(srcHeight))
	if scale > 1 {
		return 0, 0, fmt.Errorf("%w: target exceeds maximum achievable size", ErrValidation)
	}

	width := int(math.Round(float64(srcWidth) * scale))
	if width < 1 {
		width = 1
	}

	height := int(math.Round(float64(srcHeight) * scale))
	if height < 1 {
		height = 1
	}

	return width, height, nil
}

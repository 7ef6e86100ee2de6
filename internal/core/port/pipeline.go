package port

import (
	"context"

	"github.com/robertsLando/upscaler/internal/core/domain"
)

type Pipeline interface {
	// Run decodes raw image bytes, upscales them and fits the result into
	// the resolved target size, returning the PNG-encoded outcome.
	Run(ctx context.Context, raw []byte, spec domain.SizeSpec) (*domain.Result, error)
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robertsLando/upscaler/internal/core/domain"
	"github.com/robertsLando/upscaler/internal/core/port"
)

// BatchRunner drives the pipeline over every file matching a glob pattern.
// Files are processed in order; one file's failure is recorded and the
// batch continues.
type BatchRunner struct {
	pipeline port.Pipeline
}

func NewBatchRunner(pipeline port.Pipeline) *BatchRunner {
	return &BatchRunner{pipeline: pipeline}
}

func (r *BatchRunner) Run(ctx context.Context, pattern string, spec domain.SizeSpec) ([]domain.FileResult, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad glob pattern: %s", domain.ErrValidation, err)
	}
	sort.Strings(matches)

	log.Info().Str("pattern", pattern).Int("files", len(matches)).Msg("starting batch run")

	results := make([]domain.FileResult, 0, len(matches))

	for _, path := range matches {
		res := r.processFile(ctx, path, spec)
		if res.Err != nil {
			log.Error().Err(res.Err).Str("path", path).Msg("failed to process file")
		} else {
			log.Info().Str("path", path).Str("output", res.OutputPath).Msg("processed file")
		}
		results = append(results, res)
	}

	return results, nil
}

func (r *BatchRunner) processFile(ctx context.Context, path string, spec domain.SizeSpec) domain.FileResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.FileResult{Path: path, Err: fmt.Errorf("%w: could not read file: %s", domain.ErrValidation, err)}
	}

	res, err := r.pipeline.Run(ctx, raw, spec)
	if err != nil {
		return domain.FileResult{Path: path, Err: err}
	}

	out := OutputPath(path)
	if err := os.WriteFile(out, res.PNG, 0o644); err != nil {
		return domain.FileResult{Path: path, Err: fmt.Errorf("%w: could not write output: %s", domain.ErrProcessing, err)}
	}

	return domain.FileResult{Path: path, OutputPath: out}
}

// OutputPath returns the sibling output name for a processed file. The
// extension is kept for common image suffixes and forced to .png
// otherwise; the content is always PNG. The source is never overwritten.
func OutputPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg":
	default:
		ext = ".png"
	}

	return stem + "_upscaled" + ext
}

package esrgan

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/robertsLando/upscaler/internal/adapters/file"
)

// Loader returns a LoaderFunc that fetches serialized model weights from
// weightsURL, caching them under cacheDir for later process starts.
func Loader(weightsURL, cacheDir string, workers int) LoaderFunc {
	return func(ctx context.Context) (Inferencer, error) {
		cachePath := filepath.Join(cacheDir, filepath.Base(weightsURL))

		log.Debug().Str("url", weightsURL).Str("cache", cachePath).Msg("acquiring model weights")

		buf, err := file.Fetch(ctx, weightsURL, cachePath)
		if err != nil {
			return nil, fmt.Errorf("could not fetch model weights: %w", err)
		}

		engine, err := NewEngine(buf, workers)
		if err != nil {
			return nil, err
		}

		return engine, nil
	}
}

package esrgan

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/robertsLando/upscaler/internal/core/domain"
	"github.com/robertsLando/upscaler/internal/core/port"
)

// Inferencer is the loaded model handle the gateway guards.
type Inferencer interface {
	Upscale(img image.Image) (image.Image, error)
}

// LoaderFunc constructs the model handle: weight acquisition and engine
// setup. Called at most once per initialization attempt.
type LoaderFunc func(ctx context.Context) (Inferencer, error)

// Gateway owns the one shared inference resource. Initialization happens
// lazily on first use: concurrent first callers share a single attempt and
// fail together if it fails; a later call re-attempts. Inference itself is
// serialized, bounding the process to one in-flight transform.
type Gateway struct {
	load  LoaderFunc
	group singleflight.Group

	// mu serializes inference against the shared handle.
	mu sync.Mutex

	handleMu sync.RWMutex
	handle   Inferencer
}

var _ port.Upscaler = (*Gateway)(nil)

func NewGateway(load LoaderFunc) *Gateway {
	return &Gateway{load: load}
}

func (g *Gateway) ScaleFactor() int {
	return domain.ScaleFactor
}

func (g *Gateway) Upscale(ctx context.Context, img image.Image) (image.Image, error) {
	handle, err := g.handleOrInit(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelUnavailable, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out, err := handle.Upscale(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProcessing, err)
	}

	return out, nil
}

func (g *Gateway) handleOrInit(ctx context.Context) (Inferencer, error) {
	g.handleMu.RLock()
	handle := g.handle
	g.handleMu.RUnlock()

	if handle != nil {
		return handle, nil
	}

	v, err, _ := g.group.Do("init", func() (interface{}, error) {
		log.Info().Msg("initializing super-resolution model")

		handle, err := g.load(ctx)
		if err != nil {
			log.Error().Err(err).Msg("model initialization failed")
			return nil, err
		}

		g.handleMu.Lock()
		g.handle = handle
		g.handleMu.Unlock()

		log.Info().Msg("super-resolution model ready")

		return handle, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Inferencer), nil
}

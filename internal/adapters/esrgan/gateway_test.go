package esrgan

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsLando/upscaler/internal/core/domain"
)

type stubInferencer struct {
	mu          sync.Mutex
	inflight    int
	maxInflight int
	err         error
	delay       time.Duration
}

func (s *stubInferencer) Upscale(img image.Image) (image.Image, error) {
	s.mu.Lock()
	s.inflight++
	if s.inflight > s.maxInflight {
		s.maxInflight = s.inflight
	}
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inflight--
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return image.NewRGBA(image.Rect(0, 0, b.Dx()*domain.ScaleFactor, b.Dy()*domain.ScaleFactor)), nil
}

func TestGatewayInitializesOnce(t *testing.T) {
	var inits atomic.Int32
	stub := &stubInferencer{}

	gateway := NewGateway(func(_ context.Context) (Inferencer, error) {
		inits.Add(1)
		time.Sleep(20 * time.Millisecond)
		return stub, nil
	})

	const callers = 8
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gateway.Upscale(context.Background(), src)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestGatewayInitFailureSharedAndRetried(t *testing.T) {
	var inits atomic.Int32
	var fail atomic.Bool
	fail.Store(true)

	gateway := NewGateway(func(_ context.Context) (Inferencer, error) {
		inits.Add(1)
		time.Sleep(20 * time.Millisecond)
		if fail.Load() {
			return nil, errors.New("weights download failed")
		}
		return &stubInferencer{}, nil
	})

	const callers = 4
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gateway.Upscale(context.Background(), src)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load(), "waiters share one failed attempt")
	for _, err := range errs {
		require.ErrorIs(t, err, domain.ErrModelUnavailable)
	}

	// A later call re-attempts initialization.
	fail.Store(false)
	_, err := gateway.Upscale(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inits.Load())
}

func TestGatewaySerializesInference(t *testing.T) {
	stub := &stubInferencer{delay: 5 * time.Millisecond}

	gateway := NewGateway(func(_ context.Context) (Inferencer, error) {
		return stub, nil
	})

	const callers = 6
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gateway.Upscale(context.Background(), src)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stub.maxInflight, "inference must not run concurrently")
}

func TestGatewayInferenceErrorDoesNotInvalidateHandle(t *testing.T) {
	var inits atomic.Int32
	stub := &stubInferencer{err: errors.New("out of memory")}

	gateway := NewGateway(func(_ context.Context) (Inferencer, error) {
		inits.Add(1)
		return stub, nil
	})

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))

	_, err := gateway.Upscale(context.Background(), src)
	require.ErrorIs(t, err, domain.ErrProcessing)

	stub.mu.Lock()
	stub.err = nil
	stub.mu.Unlock()

	out, err := gateway.Upscale(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 8, out.Bounds().Dx())
	assert.Equal(t, int32(1), inits.Load(), "handle survives a per-call failure")
}

func TestGatewayScaleFactor(t *testing.T) {
	gateway := NewGateway(func(_ context.Context) (Inferencer, error) {
		return &stubInferencer{}, nil
	})

	assert.Equal(t, domain.ScaleFactor, gateway.ScaleFactor())
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsLando/upscaler/internal/core/domain"
)

func TestBatchRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.png")
	corrupt := filepath.Join(dir, "corrupt.dat")
	good2 := filepath.Join(dir, "good2.png")

	require.NoError(t, os.WriteFile(good, encodePNG(t, 8, 8), 0o644))
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0o644))
	require.NoError(t, os.WriteFile(good2, encodePNG(t, 4, 4), 0o644))

	runner := NewBatchRunner(NewUpscalePipeline(&MockUpscaler{}, &MockResizer{}))

	results, err := runner.Run(context.Background(), filepath.Join(dir, "*"),
		domain.PixelTarget{Width: 16, Height: 16})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var failed, succeeded int
	for _, res := range results {
		if res.Err != nil {
			failed++
			assert.Equal(t, corrupt, res.Path)
			assert.ErrorIs(t, res.Err, domain.ErrValidation)
			continue
		}

		succeeded++
		assert.FileExists(t, res.OutputPath)
		assert.NotEqual(t, res.Path, res.OutputPath)
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)

	assert.FileExists(t, filepath.Join(dir, "good_upscaled.png"))
	assert.FileExists(t, filepath.Join(dir, "good2_upscaled.png"))

	// Sources stay untouched.
	buf, err := os.ReadFile(corrupt)
	require.NoError(t, err)
	assert.Equal(t, []byte("not an image"), buf)
}

func TestBatchRunEmptyMatch(t *testing.T) {
	runner := NewBatchRunner(NewUpscalePipeline(&MockUpscaler{}, &MockResizer{}))

	results, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "*.png"),
		domain.PixelTarget{Width: 16, Height: 16})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchRunBadPattern(t *testing.T) {
	runner := NewBatchRunner(NewUpscalePipeline(&MockUpscaler{}, &MockResizer{}))

	_, err := runner.Run(context.Background(), "[", domain.PixelTarget{Width: 16, Height: 16})

	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "png keeps extension",
			path: "photos/cat.png",
			want: "photos/cat_upscaled.png",
		},
		{
			name: "jpeg keeps extension",
			path: "cat.JPG",
			want: "cat_upscaled.JPG",
		},
		{
			name: "unknown extension becomes png",
			path: "scan.tiff",
			want: "scan_upscaled.png",
		},
		{
			name: "no extension",
			path: "raw",
			want: "raw_upscaled.png",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OutputPath(tc.path))
		})
	}
}

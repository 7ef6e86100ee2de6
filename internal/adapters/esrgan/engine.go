package esrgan

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/nfnt/resize"

	"github.com/robertsLando/upscaler/internal/core/domain"
)

// convLayer is one serialized convolution layer of the model. The weight
// tensor is indexed [outputPlane][inputPlane][row][col].
type convLayer struct {
	Weight       [][][][]float64 `json:"weight"`
	Bias         []float64       `json:"bias"`
	NInputPlane  int             `json:"nInputPlane"`
	NOutputPlane int             `json:"nOutputPlane"`
	KW           int             `json:"kW"`
	KH           int             `json:"kH"`
}

// Engine runs the super-resolution transform on the CPU. It enlarges the
// raster by the fixed factor with a nearest-neighbor pre-pass and refines
// the luma plane through the model's convolution layers.
type Engine struct {
	layers  []convLayer
	workers int
}

// NewEngine parses serialized JSON conv layers into a ready engine.
// workers bounds convolution parallelism; zero means one per CPU.
func NewEngine(weights []byte, workers int) (*Engine, error) {
	var layers []convLayer
	if err := json.Unmarshal(weights, &layers); err != nil {
		return nil, fmt.Errorf("corrupt model weights: %w", err)
	}

	if len(layers) == 0 {
		return nil, errors.New("model has no layers")
	}

	// A weights file can be valid JSON yet structurally wrong; every
	// shape runLayer relies on is checked here so corrupt weights fail
	// at load time instead of mid-inference.
	inPlanes := 1
	for i, l := range layers {
		if l.KW != 3 || l.KH != 3 {
			return nil, fmt.Errorf("layer %d: unsupported kernel size %dx%d", i, l.KW, l.KH)
		}
		if len(l.Weight) == 0 || len(l.Bias) == 0 {
			return nil, fmt.Errorf("layer %d: missing weights", i)
		}
		if len(l.Weight) != len(l.Bias) {
			return nil, fmt.Errorf("layer %d: %d weight sets for %d biases", i, len(l.Weight), len(l.Bias))
		}
		for j, kernels := range l.Weight {
			if len(kernels) != inPlanes {
				return nil, fmt.Errorf("layer %d: output plane %d has %d kernels, want %d", i, j, len(kernels), inPlanes)
			}
			for k, kernel := range kernels {
				if len(kernel) != l.KH {
					return nil, fmt.Errorf("layer %d: kernel %d.%d has %d rows, want %d", i, j, k, len(kernel), l.KH)
				}
				for _, row := range kernel {
					if len(row) != l.KW {
						return nil, fmt.Errorf("layer %d: kernel %d.%d has a row of %d columns, want %d",
							i, j, k, len(row), l.KW)
					}
				}
			}
		}
		inPlanes = len(l.Bias)
	}

	if workers < 1 {
		workers = runtime.NumCPU()
	}

	return &Engine{layers: layers, workers: workers}, nil
}

func (e *Engine) Upscale(img image.Image) (image.Image, error) {
	b := img.Bounds()
	width := b.Dx() * domain.ScaleFactor
	height := b.Dy() * domain.ScaleFactor

	up := resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)

	luma, cb, cr := splitYCbCr(up, width, height)

	p := pad(&plane{w: width, h: height, pix: luma}, len(e.layers))
	planes := []*plane{p}

	for _, l := range e.layers {
		planes = e.runLayer(l, planes)
	}

	if len(planes) != 1 {
		return nil, fmt.Errorf("model collapsed to %d planes instead of one", len(planes))
	}

	out := planes[0]
	if out.w != width || out.h != height {
		return nil, fmt.Errorf("refined plane is %dx%d, want %dx%d", out.w, out.h, width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range out.pix {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		r, g, bl := color.YCbCrToRGB(uint8(v*255), cb[i], cr[i])
		o := i * 4
		dst.Pix[o] = r
		dst.Pix[o+1] = g
		dst.Pix[o+2] = bl
		dst.Pix[o+3] = 0xff
	}

	return dst, nil
}

// runLayer computes every output plane of a layer, fanning the work out
// over at most e.workers goroutines.
func (e *Engine) runLayer(l convLayer, in []*plane) []*plane {
	out := make([]*plane, len(l.Bias))
	sem := make(chan struct{}, e.workers)

	var wg sync.WaitGroup
	for i := range l.Bias {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var acc *plane
			for j, kernel := range l.Weight[i] {
				p := correlate(in[j], kernel)
				if acc == nil {
					acc = p
				} else {
					acc.add(p)
				}
			}
			acc.activate(l.Bias[i])
			out[i] = acc
		}(i)
	}
	wg.Wait()

	return out
}

type plane struct {
	w, h int
	pix  []float64
}

func (p *plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

func (p *plane) add(o *plane) {
	for i := range p.pix {
		p.pix[i] += o.pix[i]
	}
}

// activate adds the bias and applies a leaky rectifier.
func (p *plane) activate(bias float64) {
	for i, v := range p.pix {
		v += bias
		if v < 0 {
			v *= 0.1
		}
		p.pix[i] = v
	}
}

// pad grows a plane by n pixels on every side, replicating the edges.
func pad(src *plane, n int) *plane {
	dst := &plane{w: src.w + 2*n, h: src.h + 2*n}
	dst.pix = make([]float64, dst.w*dst.h)

	idx := 0
	for y := 0; y < dst.h; y++ {
		sy := clamp(y-n, src.h-1)
		for x := 0; x < dst.w; x++ {
			sx := clamp(x-n, src.w-1)
			dst.pix[idx] = src.at(sx, sy)
			idx++
		}
	}

	return dst
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// correlate applies a 3x3 kernel without padding; the result shrinks by
// one pixel on every side.
func correlate(src *plane, k [][]float64) *plane {
	dst := &plane{w: src.w - 2, h: src.h - 2}
	dst.pix = make([]float64, dst.w*dst.h)

	idx := 0
	for y := 1; y < src.h-1; y++ {
		for x := 1; x < src.w-1; x++ {
			s := src.at(x-1, y-1)*k[0][0] + src.at(x, y-1)*k[0][1] + src.at(x+1, y-1)*k[0][2] +
				src.at(x-1, y)*k[1][0] + src.at(x, y)*k[1][1] + src.at(x+1, y)*k[1][2] +
				src.at(x-1, y+1)*k[2][0] + src.at(x, y+1)*k[2][1] + src.at(x+1, y+1)*k[2][2]
			dst.pix[idx] = s
			idx++
		}
	}

	return dst
}

// splitYCbCr separates the enlarged raster into a normalized luma plane
// and raw chroma planes.
func splitYCbCr(img image.Image, width, height int) ([]float64, []uint8, []uint8) {
	luma := make([]float64, width*height)
	cb := make([]uint8, width*height)
	cr := make([]uint8, width*height)

	b := img.Bounds()
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			yy, pb, pr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			luma[idx] = float64(yy) / 255.0
			cb[idx] = pb
			cr[idx] = pr
			idx++
		}
	}

	return luma, cb, cr
}

package domain

import "errors"

// ScaleFactor is the fixed linear magnification of the super-resolution
// model.
const ScaleFactor = 4

const (
	MinPixels = 1
	MaxPixels = 10000
	MinCm     = 0.1
	MaxCm     = 400.0
	MinDPI    = 10
	MaxDPI    = 1200
)

const CmPerInch = 2.54

var (
	// ErrValidation marks failures attributable to the caller: corrupt
	// input, an out-of-range size spec, or an unreachable target.
	ErrValidation = errors.New("validation failed")
	// ErrModelUnavailable marks a failed model initialization. A later
	// call re-attempts initialization.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrProcessing marks a per-request inference or encoding failure.
	ErrProcessing = errors.New("processing failed")
)

package colorize

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStep is returned when the grid step is not a positive finite number.
	ErrInvalidStep = errors.New("colorize: grid step must be positive and finite")

	// ErrInvalidExtent is returned when the grid extent is negative or not finite.
	ErrInvalidExtent = errors.New("colorize: grid extent must be non-negative and finite")

	// ErrNilMask is returned when a table is built without an admissibility rule.
	ErrNilMask = errors.New("colorize: gamut mask is nil")

	// ErrEmptyGamut is returned when the mask admits no grid point.
	ErrEmptyGamut = errors.New("colorize: gamut mask admits no bins")

	// ErrInvalidNeighbors is returned for a neighbour count below one.
	ErrInvalidNeighbors = errors.New("colorize: neighbour count must be at least 1")

	// ErrInvalidSigma is returned when the kernel width is not a positive finite number.
	ErrInvalidSigma = errors.New("colorize: sigma must be positive and finite")

	// ErrInvalidTemperature is returned for a negative or non-finite temperature.
	ErrInvalidTemperature = errors.New("colorize: temperature must be non-negative and finite")

	// ErrInvalidWorkers is returned for a negative worker count.
	ErrInvalidWorkers = errors.New("colorize: worker count must not be negative")

	// ErrShapeMismatch is returned when scores, targets or images disagree in size.
	ErrShapeMismatch = errors.New("colorize: shape mismatch")

	// ErrInvalidSample is returned for a chrominance sample with NaN or infinite coordinates.
	ErrInvalidSample = errors.New("colorize: chrominance sample is not finite")

	// ErrInvalidScores is returned for score vectors containing NaN or +Inf,
	// or made only of -Inf.
	ErrInvalidScores = errors.New("colorize: invalid score vector")
)

// BatchError reports the first failing element of a batched call.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("colorize: batch element %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// PixelError reports the first failing pixel of a per-image call.
type PixelError struct {
	X, Y int
	Err  error
}

func (e *PixelError) Error() string {
	return fmt.Sprintf("colorize: pixel (%d,%d): %v", e.X, e.Y, e.Err)
}

func (e *PixelError) Unwrap() error { return e.Err }

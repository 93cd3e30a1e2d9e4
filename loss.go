package colorize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/setanarut/colorize/internal/parallel"
)

// Loss is the pixelwise soft-target classification loss.
//
// For each pixel with raw scores s and target distribution t it computes
//
//	Σ_i t_i·(log t_i − logsoftmax(s)_i)
//
// which is the cross-entropy against t minus the entropy of t. A prediction
// whose softmax equals t scores exactly zero and any other prediction scores
// more; the gradient with respect to s is the usual softmax(s) − t. The
// result is the mean over every pixel of every batch element.
type Loss struct {
	workers int
}

// NewLoss uses opt.Workers.
func NewLoss(opt Options) (*Loss, error) {
	if err := validateWorkers(opt.Workers); err != nil {
		return nil, err
	}
	return &Loss{workers: opt.Workers}, nil
}

// Compute returns the mean loss over all pixels of the batch. Shapes are
// checked for every element before anything is computed.
func (l *Loss) Compute(scores, targets []*BinMap) (float64, error) {
	pixels, err := checkPairs(scores, targets)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for i := range scores {
		sum, err := l.sumMap(scores[i], targets[i])
		if err != nil {
			return 0, &BatchError{Index: i, Err: err}
		}
		total += sum
	}
	return total / float64(pixels), nil
}

// ComputeMap is Compute for a single score map and target.
func (l *Loss) ComputeMap(scores, target *BinMap) (float64, error) {
	return l.Compute([]*BinMap{scores}, []*BinMap{target})
}

// Gradient returns d(Compute)/d(scores) for every element:
// (softmax(s) − t) divided by the number of pixels in the batch.
func (l *Loss) Gradient(scores, targets []*BinMap) ([]*BinMap, error) {
	pixels, err := checkPairs(scores, targets)
	if err != nil {
		return nil, err
	}
	inv := 1 / float64(pixels)
	out := make([]*BinMap, len(scores))
	for i := range scores {
		s, t := scores[i], targets[i]
		g := NewBinMap(s.W, s.H, s.N)
		rowErr := make([]error, s.H)
		parallel.For(l.workers, s.H, func(y int) {
			for x := range s.W {
				sp, tp, gp := s.Pixel(x, y), t.Pixel(x, y), g.Pixel(x, y)
				if err := checkPixel(sp, tp); err != nil {
					rowErr[y] = &PixelError{X: x, Y: y, Err: err}
					return
				}
				softmaxInto(gp, sp, 1)
				floats.Sub(gp, tp)
				floats.Scale(inv, gp)
			}
		})
		for _, err := range rowErr {
			if err != nil {
				return nil, &BatchError{Index: i, Err: err}
			}
		}
		out[i] = g
	}
	return out, nil
}

// sumMap returns the summed per-pixel loss of one element. Row sums are
// reduced in row order so the result is independent of the worker count.
func (l *Loss) sumMap(s, t *BinMap) (float64, error) {
	rowSum := make([]float64, s.H)
	rowErr := make([]error, s.H)
	parallel.For(l.workers, s.H, func(y int) {
		sum := 0.0
		for x := range s.W {
			sp, tp := s.Pixel(x, y), t.Pixel(x, y)
			if err := checkPixel(sp, tp); err != nil {
				rowErr[y] = &PixelError{X: x, Y: y, Err: err}
				return
			}
			sum += pixelLoss(sp, tp)
		}
		rowSum[y] = sum
	})
	total := 0.0
	for y := range s.H {
		if rowErr[y] != nil {
			return 0, rowErr[y]
		}
		total += rowSum[y]
	}
	return total, nil
}

func pixelLoss(scores, target []float64) float64 {
	lse := floats.LogSumExp(scores)
	cross := 0.0
	for i, t := range target {
		if t != 0 {
			cross -= t * (scores[i] - lse)
		}
	}
	return cross - stat.Entropy(target)
}

func checkPixel(scores, target []float64) error {
	if err := checkScores(scores); err != nil {
		return err
	}
	for i, v := range target {
		if !(v >= 0) || math.IsInf(v, 1) {
			return fmt.Errorf("%w: target %v at bin %d", ErrInvalidScores, v, i)
		}
	}
	return nil
}

// checkPairs validates batch length and per-element shapes and returns the
// total pixel count.
func checkPairs(scores, targets []*BinMap) (int, error) {
	if len(scores) != len(targets) {
		return 0, fmt.Errorf("%w: %d score maps, %d targets", ErrShapeMismatch, len(scores), len(targets))
	}
	pixels := 0
	for i := range scores {
		s, t := scores[i], targets[i]
		if t == nil {
			return 0, &BatchError{Index: i, Err: fmt.Errorf("%w: nil target", ErrShapeMismatch)}
		}
		if err := t.check(t.N); err != nil {
			return 0, &BatchError{Index: i, Err: err}
		}
		if err := s.check(t.N); err != nil {
			return 0, &BatchError{Index: i, Err: err}
		}
		if s.W != t.W || s.H != t.H || t.N == 0 {
			return 0, &BatchError{Index: i, Err: fmt.Errorf("%w: scores %dx%dx%d, target %dx%dx%d",
				ErrShapeMismatch, s.W, s.H, s.N, t.W, t.H, t.N)}
		}
		pixels += s.W * s.H
	}
	if pixels == 0 {
		return 0, fmt.Errorf("%w: batch has no pixels", ErrShapeMismatch)
	}
	return pixels, nil
}

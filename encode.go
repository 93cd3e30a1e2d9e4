package colorize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/setanarut/colorize/internal/parallel"
)

// SoftEncoder turns chrominance samples into soft training targets: a
// Gaussian-weighted distribution over the k nearest bins.
type SoftEncoder struct {
	table   *Table
	k       int
	sigma   float64
	workers int
}

// NewSoftEncoder uses opt.Neighbors, opt.Sigma and opt.Workers.
func NewSoftEncoder(t *Table, opt Options) (*SoftEncoder, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table", ErrEmptyGamut)
	}
	if err := validateEncoder(opt.Neighbors, opt.Sigma); err != nil {
		return nil, err
	}
	if err := validateWorkers(opt.Workers); err != nil {
		return nil, err
	}
	return &SoftEncoder{
		table:   t,
		k:       min(opt.Neighbors, t.Size()),
		sigma:   opt.Sigma,
		workers: opt.Workers,
	}, nil
}

func (e *SoftEncoder) Table() *Table { return e.table }

// Encode returns a distribution of length Table().Size() with at most k
// nonzero entries summing to 1.
func (e *SoftEncoder) Encode(s Sample) ([]float64, error) {
	dst := make([]float64, e.table.Size())
	sc := e.newScratch()
	if err := e.encodeInto(s, dst, sc); err != nil {
		return nil, err
	}
	return dst, nil
}

// EncodeImage encodes every pixel of img. Pixels are independent and the
// result does not depend on the worker count.
func (e *SoftEncoder) EncodeImage(img *ChromaImage) (*BinMap, error) {
	if err := img.check(); err != nil {
		return nil, err
	}
	n := e.table.Size()
	out := NewBinMap(img.W, img.H, n)
	rowErr := make([]error, img.H)

	parallel.For(e.workers, img.H, func(y int) {
		sc := e.newScratch()
		for x := range img.W {
			if err := e.encodeInto(img.At(x, y), out.Pixel(x, y), sc); err != nil {
				rowErr[y] = &PixelError{X: x, Y: y, Err: err}
				return
			}
		}
	})
	for _, err := range rowErr {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeBatch encodes images in order and stops at the first failure, which
// is reported as a *BatchError.
func (e *SoftEncoder) EncodeBatch(imgs []*ChromaImage) ([]*BinMap, error) {
	Logger().Debug("colorize: encoding batch", "elements", len(imgs), "bins", e.table.Size(), "k", e.k)
	out := make([]*BinMap, len(imgs))
	for i, img := range imgs {
		m, err := e.EncodeImage(img)
		if err != nil {
			return out[:i], &BatchError{Index: i, Err: err}
		}
		out[i] = m
	}
	return out, nil
}

type encodeScratch struct {
	topIdx  []int
	topDist []float64
	weights []float64
}

func (e *SoftEncoder) newScratch() *encodeScratch {
	return &encodeScratch{
		topIdx:  make([]int, e.k),
		topDist: make([]float64, e.k),
		weights: make([]float64, e.k),
	}
}

// encodeInto writes the distribution for s into dst, which must have length N.
// Weights are taken relative to the nearest bin so they never all underflow:
// exp(-(d²-d0²)/2σ²) normalizes to the same values as exp(-d²/2σ²).
func (e *SoftEncoder) encodeInto(s Sample, dst []float64, sc *encodeScratch) error {
	if !s.finite() {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidSample, s.A, s.B)
	}
	count := e.table.nearestInto(s, sc.topIdx, sc.topDist)
	clear(dst)

	inv2s2 := 1 / (2 * e.sigma * e.sigma)
	d0 := sc.topDist[0]
	w := sc.weights[:count]
	for i := range count {
		w[i] = math.Exp(-(sc.topDist[i] - d0) * inv2s2)
	}
	normalizeWeightsInPlace(w)
	for i := range count {
		dst[sc.topIdx[i]] = w[i]
	}
	return nil
}

// normalizeWeightsInPlace scales vals to sum to 1. The first weight is
// always exp(0) = 1 so the sum is never zero here.
func normalizeWeightsInPlace(vals []float64) bool {
	sumW := floats.Sum(vals)
	if sumW < 1e-300 {
		return false
	}
	floats.Scale(1/sumW, vals)
	return true
}

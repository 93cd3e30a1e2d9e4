package colorize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/setanarut/colorize/internal/parallel"
)

// AnnealedDecoder maps per-bin scores back to a chrominance estimate.
//
// Scores are normalized with a softmax, sharpened to q ∝ p^(1/T) and the
// estimate is Σ q_i·center_i. T = 1 gives the plain expectation, T → 0 the
// mode. T = 0 selects the most probable bin directly (lowest index on ties).
type AnnealedDecoder struct {
	table   *Table
	t       float64
	workers int
}

// NewAnnealedDecoder uses opt.Temperature and opt.Workers.
func NewAnnealedDecoder(t *Table, opt Options) (*AnnealedDecoder, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table", ErrEmptyGamut)
	}
	if err := validateTemperature(opt.Temperature); err != nil {
		return nil, err
	}
	if err := validateWorkers(opt.Workers); err != nil {
		return nil, err
	}
	return &AnnealedDecoder{table: t, t: opt.Temperature, workers: opt.Workers}, nil
}

func (d *AnnealedDecoder) Table() *Table { return d.table }

func (d *AnnealedDecoder) Temperature() float64 { return d.t }

// Decode decodes one vector of raw scores of length Table().Size().
// -Inf scores are allowed and mean zero probability.
func (d *AnnealedDecoder) Decode(scores []float64) (Sample, error) {
	buf := make([]float64, d.table.Size())
	return d.decodeInto(scores, buf)
}

// DecodeDistribution decodes an already normalized (or merely non-negative)
// distribution over the bins.
func (d *AnnealedDecoder) DecodeDistribution(p []float64) (Sample, error) {
	if len(p) != d.table.Size() {
		return Sample{}, fmt.Errorf("%w: distribution has %d bins, table has %d", ErrShapeMismatch, len(p), d.table.Size())
	}
	logp := make([]float64, len(p))
	for i, v := range p {
		if !(v >= 0) || math.IsInf(v, 1) {
			return Sample{}, fmt.Errorf("%w: probability %v at bin %d", ErrInvalidScores, v, i)
		}
		logp[i] = math.Log(v)
	}
	return d.Decode(logp)
}

// DecodeMap decodes every pixel of m. The result does not depend on the
// worker count.
func (d *AnnealedDecoder) DecodeMap(m *BinMap) (*ChromaImage, error) {
	if err := m.check(d.table.Size()); err != nil {
		return nil, err
	}
	out := NewChromaImage(m.W, m.H)
	rowErr := make([]error, m.H)

	parallel.For(d.workers, m.H, func(y int) {
		buf := make([]float64, m.N)
		for x := range m.W {
			s, err := d.decodeInto(m.Pixel(x, y), buf)
			if err != nil {
				rowErr[y] = &PixelError{X: x, Y: y, Err: err}
				return
			}
			out.Set(x, y, s)
		}
	})
	for _, err := range rowErr {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeBatch decodes maps in order and stops at the first failure, which
// is reported as a *BatchError.
func (d *AnnealedDecoder) DecodeBatch(ms []*BinMap) ([]*ChromaImage, error) {
	Logger().Debug("colorize: decoding batch", "elements", len(ms), "bins", d.table.Size(), "T", d.t)
	out := make([]*ChromaImage, len(ms))
	for i, m := range ms {
		img, err := d.DecodeMap(m)
		if err != nil {
			return out[:i], &BatchError{Index: i, Err: err}
		}
		out[i] = img
	}
	return out, nil
}

func (d *AnnealedDecoder) decodeInto(scores, q []float64) (Sample, error) {
	if len(scores) != len(q) {
		return Sample{}, fmt.Errorf("%w: scores have %d bins, table has %d", ErrShapeMismatch, len(scores), len(q))
	}
	if err := checkScores(scores); err != nil {
		return Sample{}, err
	}
	softmaxInto(q, scores, 1)
	if d.t == 0 {
		return d.table.Center(floats.MaxIdx(q)), nil
	}
	if d.t != 1 {
		softmaxInto(q, scores, d.t)
	}
	return Sample{A: floats.Dot(q, d.table.colA), B: floats.Dot(q, d.table.colB)}, nil
}

// checkScores rejects NaN and +Inf and requires at least one finite score.
func checkScores(scores []float64) error {
	finite := false
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 1) {
			return fmt.Errorf("%w: %v at bin %d", ErrInvalidScores, v, i)
		}
		if !math.IsInf(v, -1) {
			finite = true
		}
	}
	if !finite {
		return fmt.Errorf("%w: every score is -Inf", ErrInvalidScores)
	}
	return nil
}

// softmaxInto writes softmax(scores/t) to dst, subtracting the max score
// first. p^(1/t) renormalized equals softmax(scores/t), so the same routine
// serves the plain and the annealed distribution.
func softmaxInto(dst, scores []float64, t float64) {
	m := floats.Max(scores)
	for i, v := range scores {
		dst[i] = math.Exp((v - m) / t)
	}
	floats.Scale(1/floats.Sum(dst), dst)
}

package colorize

import (
	"fmt"
	"math"
)

type Options struct {
	// Spacing of the chrominance grid in CIE a/b units.
	// 10 gives a few hundred bins over the sRGB gamut.
	GridStep float64
	// Largest |a| and |b| considered when enumerating grid points.
	// Natural images stay within roughly ±110.
	Extent float64
	// Bins that receive weight when soft-encoding a sample.
	// Higher values spread targets wider; 1 gives one-hot targets.
	Neighbors int
	// Width of the Gaussian kernel over bin distance.
	// Should be about half the grid step.
	Sigma float64
	// Annealing temperature for decoding.
	// 0 => mode (most saturated), 1 => mean (desaturated). 0.38 is a good start.
	Temperature float64
	// Goroutines used for per-row fan-out. 0 => GOMAXPROCS.
	// Results do not depend on this value.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		GridStep:    10,
		Extent:      110,
		Neighbors:   5,
		Sigma:       5,
		Temperature: 0.38,
		Workers:     0,
	}
}

// OptionsFromTable returns DefaultOptions with GridStep taken from t and
// Sigma scaled to half of it.
func OptionsFromTable(t *Table) Options {
	opt := DefaultOptions()
	if t == nil {
		return opt
	}
	opt.GridStep = t.Step()
	opt.Sigma = t.Step() / 2
	return opt
}

// Validate reports the first invalid field. Nothing is clamped.
func (o Options) Validate() error {
	if err := validateGrid(o.GridStep, o.Extent); err != nil {
		return err
	}
	if err := validateEncoder(o.Neighbors, o.Sigma); err != nil {
		return err
	}
	if err := validateTemperature(o.Temperature); err != nil {
		return err
	}
	return validateWorkers(o.Workers)
}

func validateGrid(step, extent float64) error {
	if !(step > 0) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidStep, step)
	}
	if !(extent >= 0) || math.IsInf(extent, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidExtent, extent)
	}
	return nil
}

func validateEncoder(k int, sigma float64) error {
	if k < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidNeighbors, k)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}
	return nil
}

func validateTemperature(t float64) error {
	if !(t >= 0) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, t)
	}
	return nil
}

func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, n)
	}
	return nil
}

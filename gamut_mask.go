package colorize

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Mask decides whether the grid point (a, b) becomes a bin.
type Mask func(a, b float64) bool

type gridKey struct{ i, j int64 }

func keyOf(step, a, b float64) gridKey {
	return gridKey{int64(math.Round(a / step)), int64(math.Round(b / step))}
}

// PointsMask admits exactly the grid points nearest to the given samples on a
// grid of the given step.
func PointsMask(step float64, points ...Sample) Mask {
	set := make(map[gridKey]struct{}, len(points))
	for _, p := range points {
		set[keyOf(step, p.A, p.B)] = struct{}{}
	}
	return func(a, b float64) bool {
		_, ok := set[keyOf(step, a, b)]
		return ok
	}
}

// srgbLightnessStep is the L* resolution used when probing a grid point.
const srgbLightnessStep = 0.5

// SRGBMask admits a grid point when at least one lightness in (0, 100) puts
// it inside the sRGB cube.
func SRGBMask() Mask {
	return func(a, b float64) bool {
		for l := srgbLightnessStep; l < 100; l += srgbLightnessStep {
			if colorful.Lab(l/100, a/100, b/100).IsValid() {
				return true
			}
		}
		return false
	}
}

// MaskFromSamples builds an empirical gamut: a grid point is admitted when at
// least minCount samples quantize to it. minCount below 1 is treated as 1.
// Non-finite samples are ignored.
func MaskFromSamples(step float64, minCount int, samples []Sample) Mask {
	minCount = max(minCount, 1)
	hist := make(map[gridKey]int)
	for _, s := range samples {
		if !s.finite() {
			continue
		}
		hist[keyOf(step, s.A, s.B)]++
	}
	return func(a, b float64) bool {
		return hist[keyOf(step, a, b)] >= minCount
	}
}

// ChromaSamples flattens images into a sample list, e.g. for MaskFromSamples.
func ChromaSamples(images ...*ChromaImage) []Sample {
	n := 0
	for _, img := range images {
		n += len(img.Pix) / 2
	}
	out := make([]Sample, 0, n)
	for _, img := range images {
		for i := 0; i+1 < len(img.Pix); i += 2 {
			out = append(out, Sample{A: img.Pix[i], B: img.Pix[i+1]})
		}
	}
	return out
}

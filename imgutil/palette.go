package imgutil

import (
	"image"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/setanarut/colorize"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ParsePaletteMethod is the inverse of PaletteMethod.String.
func ParsePaletteMethod(s string) (PaletteMethod, bool) {
	switch s {
	case "kmeans":
		return PaletteMethodKMeans, true
	case "dominantcolor":
		return PaletteMethodDominantColor, true
	}
	return PaletteMethodDominantColor, false
}

// Swatch is one palette colour together with the gamut bin its chrominance
// falls into.
type Swatch struct {
	Color  colorful.Color
	Weight float64 // Share of the image, sums to 1 over a palette
	Chroma colorize.Sample
	Bin    int // Nearest bin of the table, -1 without a table
}

// ExtractPalette returns up to k swatches of img, heaviest first. With a
// non-nil table every swatch is tagged with its nearest bin.
func ExtractPalette(img image.Image, k int, method PaletteMethod, table *colorize.Table) []Swatch {
	if k <= 0 {
		return nil
	}
	var out []Swatch
	switch method {
	case PaletteMethodKMeans:
		out = kmeansPalette(img, k)
		if len(out) == 0 {
			colorize.Logger().Warn("palette: kmeans returned empty palette, falling back to dominantcolor")
			out = dominantPalette(img, k)
		}
	default:
		out = dominantPalette(img, k)
	}

	total := 0.0
	for _, s := range out {
		total += s.Weight
	}
	for i := range out {
		if total > 0 {
			out[i].Weight /= total
		}
		_, a, b := out[i].Color.Lab()
		out[i].Chroma = colorize.Sample{A: a * 100, B: b * 100}
		out[i].Bin = -1
		if table != nil {
			if nn, ok := table.Nearest(out[i].Chroma); ok {
				out[i].Bin = nn.Index
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Swatch) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	return out
}

func dominantPalette(img image.Image, k int) []Swatch {
	candidates := dominantcolor.FindWeight(img, k)
	out := make([]Swatch, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, Swatch{Color: col.Clamped(), Weight: max(c.Weight, 1e-6)})
	}
	return out
}

// kmeansPalette clusters subsampled pixels in Lab space, where distances
// match perceived colour differences better than in RGB.
func kmeansPalette(img image.Image, k int) []Swatch {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	maxSamples := 12000
	step := 1
	if width*height > maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			col, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, a, bb := col.Lab()
			dataset = append(dataset, clusters.Coordinates{l, a, bb})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, min(k, len(dataset)))
	if err != nil || len(cc) == 0 {
		return nil
	}

	out := make([]Swatch, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		out = append(out, Swatch{
			Color:  colorful.Lab(c.Center[0], c.Center[1], c.Center[2]).Clamped(),
			Weight: float64(len(c.Observations)),
		})
	}
	return out
}

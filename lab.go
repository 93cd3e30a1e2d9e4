package colorize

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/setanarut/colorize/internal/parallel"
)

// ============ RGB → LAB ============

// ToLab converts img to CIE L*a*b* under D65. L is scaled to [0,100] and a,
// b to the usual CIE range (roughly ±110 for sRGB). Alpha is ignored.
func ToLab(img image.Image) *LabImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	lab := NewLabImage(w, h)
	parallel.For(0, h, func(y int) {
		for x := range w {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := colorful.Color{
				R: float64(r>>8) / 255.0,
				G: float64(g>>8) / 255.0,
				B: float64(b>>8) / 255.0,
			}
			l, a, bb := c.Lab()
			lab.L[y*w+x] = l * 100
			lab.AB.Set(x, y, Sample{A: a * 100, B: bb * 100})
		}
	})
	return lab
}

// ============ LAB → RGB ============

// ToRGB converts lab back to 8-bit sRGB, clamping out-of-gamut colours.
func ToRGB(lab *LabImage) *image.RGBA {
	w, h := lab.W, lab.H
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	parallel.For(0, h, func(y int) {
		for x := range w {
			ab := lab.AB.At(x, y)
			c := colorful.Lab(lab.L[y*w+x]/100, ab.A/100, ab.B/100).Clamped()
			out.SetRGBA(x, y, color.RGBA{
				uint8(max(0, min(255, c.R*255+0.5))),
				uint8(max(0, min(255, c.G*255+0.5))),
				uint8(max(0, min(255, c.B*255+0.5))),
				255,
			})
		}
	})
	return out
}

// WithChroma returns a Lab image sharing lab's lightness and using ab as
// chrominance. ab must have the same size as lab.
func WithChroma(lab *LabImage, ab *ChromaImage) (*LabImage, error) {
	if err := ab.check(); err != nil {
		return nil, err
	}
	if ab.W != lab.W || ab.H != lab.H {
		return nil, fmt.Errorf("%w: chroma %dx%d, lightness %dx%d", ErrShapeMismatch, ab.W, ab.H, lab.W, lab.H)
	}
	return &LabImage{W: lab.W, H: lab.H, L: lab.L, AB: ab}, nil
}

// Gray returns the lightness of lab as an 8-bit grayscale RGB image, the
// input a colorizer sees.
func Gray(lab *LabImage) *image.RGBA {
	return ToRGB(&LabImage{W: lab.W, H: lab.H, L: lab.L, AB: NewChromaImage(lab.W, lab.H)})
}

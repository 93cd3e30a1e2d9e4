package colorize

import (
	"fmt"
	"math"
)

// Sample is a chrominance coordinate in CIE a*b* units.
type Sample struct {
	A, B float64
}

func (s Sample) finite() bool {
	return !math.IsNaN(s.A) && !math.IsNaN(s.B) && !math.IsInf(s.A, 0) && !math.IsInf(s.B, 0)
}

func (s Sample) dist2(o Sample) float64 {
	da := s.A - o.A
	db := s.B - o.B
	return da*da + db*db
}

// ChromaImage holds the a/b channels of an image.
type ChromaImage struct {
	W, H int
	Pix  []float64 // Interleaved a,b, len = W*H*2
}

func NewChromaImage(w, h int) *ChromaImage {
	return &ChromaImage{W: w, H: h, Pix: make([]float64, w*h*2)}
}

func chromaOffset(w, x, y int) int {
	return (y*w + x) * 2
}

func (c *ChromaImage) At(x, y int) Sample {
	off := chromaOffset(c.W, x, y)
	return Sample{A: c.Pix[off], B: c.Pix[off+1]}
}

func (c *ChromaImage) Set(x, y int, s Sample) {
	off := chromaOffset(c.W, x, y)
	c.Pix[off] = s.A
	c.Pix[off+1] = s.B
}

func (c *ChromaImage) check() error {
	if c == nil {
		return fmt.Errorf("%w: nil chroma image", ErrShapeMismatch)
	}
	if c.W < 0 || c.H < 0 || len(c.Pix) != c.W*c.H*2 {
		return fmt.Errorf("%w: chroma image %dx%d has %d values", ErrShapeMismatch, c.W, c.H, len(c.Pix))
	}
	return nil
}

// Resize returns a bilinear resample of c to w×h. Pixel centers are aligned
// the same way image/draw aligns them.
func (c *ChromaImage) Resize(w, h int) *ChromaImage {
	out := NewChromaImage(w, h)
	if c.W == 0 || c.H == 0 || w == 0 || h == 0 {
		return out
	}
	sx := float64(c.W) / float64(w)
	sy := float64(c.H) / float64(h)
	for y := range h {
		fy := max((float64(y)+0.5)*sy-0.5, 0)
		y0 := min(int(fy), c.H-1)
		y1 := min(y0+1, c.H-1)
		ty := fy - float64(y0)
		for x := range w {
			fx := max((float64(x)+0.5)*sx-0.5, 0)
			x0 := min(int(fx), c.W-1)
			x1 := min(x0+1, c.W-1)
			tx := fx - float64(x0)
			for ch := range 2 {
				v00 := c.Pix[chromaOffset(c.W, x0, y0)+ch]
				v10 := c.Pix[chromaOffset(c.W, x1, y0)+ch]
				v01 := c.Pix[chromaOffset(c.W, x0, y1)+ch]
				v11 := c.Pix[chromaOffset(c.W, x1, y1)+ch]
				top := v00 + (v10-v00)*tx
				bot := v01 + (v11-v01)*tx
				out.Pix[chromaOffset(w, x, y)+ch] = top + (bot-top)*ty
			}
		}
	}
	return out
}

// BinMap holds one length-N vector per pixel: raw scores from a predictor
// or encoded target distributions.
type BinMap struct {
	W, H, N int
	Data    []float64 // len = W*H*N, pixel (x,y) starts at (y*W+x)*N
}

func NewBinMap(w, h, n int) *BinMap {
	return &BinMap{W: w, H: h, N: n, Data: make([]float64, w*h*n)}
}

// Pixel returns the vector of pixel (x, y). The slice aliases m.Data.
func (m *BinMap) Pixel(x, y int) []float64 {
	off := (y*m.W + x) * m.N
	return m.Data[off : off+m.N : off+m.N]
}

func (m *BinMap) check(n int) error {
	if m == nil {
		return fmt.Errorf("%w: nil bin map", ErrShapeMismatch)
	}
	if m.N != n {
		return fmt.Errorf("%w: bin map has %d bins, table has %d", ErrShapeMismatch, m.N, n)
	}
	if m.W < 0 || m.H < 0 || len(m.Data) != m.W*m.H*m.N {
		return fmt.Errorf("%w: bin map %dx%dx%d has %d values", ErrShapeMismatch, m.W, m.H, m.N, len(m.Data))
	}
	return nil
}

// LabImage is an image in CIE L*a*b* (D65), L in [0,100].
type LabImage struct {
	W, H int
	L    []float64 // len = W*H
	AB   *ChromaImage
}

func NewLabImage(w, h int) *LabImage {
	return &LabImage{W: w, H: h, L: make([]float64, w*h), AB: NewChromaImage(w, h)}
}

// Planes returns a channel-first copy: L, a and b planes of W*H values each.
func (l *LabImage) Planes() [3][]float64 {
	n := l.W * l.H
	var p [3][]float64
	p[0] = append([]float64(nil), l.L...)
	p[1] = make([]float64, n)
	p[2] = make([]float64, n)
	for i := range n {
		p[1][i] = l.AB.Pix[i*2]
		p[2][i] = l.AB.Pix[i*2+1]
	}
	return p
}

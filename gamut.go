package colorize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Bin is one admitted cell of the quantized chrominance grid.
type Bin struct {
	Index  int
	Center Sample
}

// Neighbor is a bin found by a nearest-neighbour query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Table is the ordered set of in-gamut bins. It is immutable once built and
// safe to share between goroutines without locking.
//
// Bins are numbered row-major over the grid: a ascending in the outer loop,
// b ascending in the inner loop. The numbering is the class label space of
// the encoder, decoder and loss.
type Table struct {
	step    float64
	extent  float64
	bins    []Bin
	centers *mat.Dense // N×2, columns a and b
	colA    []float64
	colB    []float64

	// Dense lookup over the (2*half+1)² grid, -1 for rejected points.
	half int
	grid []int
}

// NewTable enumerates the grid points (i*step, j*step) with |i*step| and
// |j*step| at most extent and keeps those admitted by mask.
func NewTable(step, extent float64, mask Mask) (*Table, error) {
	if err := validateGrid(step, extent); err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, ErrNilMask
	}
	half := int(math.Floor(extent/step + 1e-9))
	side := 2*half + 1
	t := &Table{
		step:   step,
		extent: extent,
		half:   half,
		grid:   make([]int, side*side),
	}
	for gi := range side {
		a := float64(gi-half) * step
		for gj := range side {
			b := float64(gj-half) * step
			t.grid[gi*side+gj] = -1
			if !mask(a, b) {
				continue
			}
			idx := len(t.bins)
			t.bins = append(t.bins, Bin{Index: idx, Center: Sample{A: a, B: b}})
			t.grid[gi*side+gj] = idx
		}
	}
	n := len(t.bins)
	if n == 0 {
		return nil, fmt.Errorf("%w: step %v extent %v", ErrEmptyGamut, step, extent)
	}

	data := make([]float64, n*2)
	for i, b := range t.bins {
		data[i*2] = b.Center.A
		data[i*2+1] = b.Center.B
	}
	t.centers = mat.NewDense(n, 2, data)
	t.colA = mat.Col(nil, 0, t.centers)
	t.colB = mat.Col(nil, 1, t.centers)

	Logger().Debug("colorize: gamut table built", "bins", n, "step", step, "extent", extent, "grid", side*side)
	return t, nil
}

// NewDefaultTable builds the table used for natural images: step 10,
// extent 110, admitted when the grid point is reachable in sRGB.
func NewDefaultTable() (*Table, error) {
	opt := DefaultOptions()
	return NewTable(opt.GridStep, opt.Extent, SRGBMask())
}

func (t *Table) Size() int { return len(t.bins) }

func (t *Table) Step() float64 { return t.step }

func (t *Table) Extent() float64 { return t.extent }

// Center returns the center of bin i. It panics if i is outside [0, Size()).
func (t *Table) Center(i int) Sample {
	return t.bins[i].Center
}

// Bins returns a copy of the bins in index order.
func (t *Table) Bins() []Bin {
	return append([]Bin(nil), t.bins...)
}

// Centers returns a copy of the N×2 matrix of bin centers.
func (t *Table) Centers() *mat.Dense {
	return mat.DenseCopyOf(t.centers)
}

// Lookup returns the index of the bin centered on the grid point closest to
// s, or false when that point lies outside the grid or was rejected.
func (t *Table) Lookup(s Sample) (int, bool) {
	if !s.finite() {
		return -1, false
	}
	gi := math.Round(s.A/t.step) + float64(t.half)
	gj := math.Round(s.B/t.step) + float64(t.half)
	side := 2*t.half + 1
	if gi < 0 || gj < 0 || gi >= float64(side) || gj >= float64(side) {
		return -1, false
	}
	idx := t.grid[int(gi)*side+int(gj)]
	return idx, idx >= 0
}

// NearestK returns the k bins closest to s by Euclidean distance, nearest
// first, ties in ascending index order. The search is exhaustive. When k
// exceeds Size() every bin is returned. A non-finite s or k < 1 yields nil.
func (t *Table) NearestK(s Sample, k int) []Neighbor {
	if k < 1 || !s.finite() {
		return nil
	}
	k = min(k, len(t.bins))
	topIdx := make([]int, k)
	topDist := make([]float64, k)
	count := t.nearestInto(s, topIdx, topDist)
	out := make([]Neighbor, count)
	for i := range count {
		out[i] = Neighbor{Index: topIdx[i], Distance: math.Sqrt(topDist[i])}
	}
	return out
}

// Nearest returns the single closest bin.
func (t *Table) Nearest(s Sample) (Neighbor, bool) {
	nn := t.NearestK(s, 1)
	if len(nn) == 0 {
		return Neighbor{}, false
	}
	return nn[0], true
}

// nearestInto fills topIdx/topDist (squared distances) with the len(topIdx)
// nearest bins in ascending (distance, index) order and returns how many were
// written. s must be finite.
func (t *Table) nearestInto(s Sample, topIdx []int, topDist []float64) int {
	k := min(len(topIdx), len(t.bins))
	count := 0
	for i := range t.bins {
		da := s.A - t.colA[i]
		db := s.B - t.colB[i]
		d := da*da + db*db
		if count == k && d >= topDist[k-1] {
			continue
		}
		pos := count
		for pos > 0 && topDist[pos-1] > d {
			pos--
		}
		if count < k {
			count++
		}
		copy(topIdx[pos+1:count], topIdx[pos:count-1])
		copy(topDist[pos+1:count], topDist[pos:count-1])
		topIdx[pos] = i
		topDist[pos] = d
	}
	return count
}

package colorize

import (
	"errors"
	"math"
	"testing"
)

func almostEq(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// threeBinTable is the table {(0,0), (0,10), (10,0)} on a step-10 grid.
func threeBinTable(t *testing.T) *Table {
	t.Helper()
	tab, err := NewTable(10, 110, PointsMask(10, Sample{0, 0}, Sample{10, 0}, Sample{0, 10}))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tab
}

// =============================================================================
// Construction
// =============================================================================

func TestNewTable_RowMajorIndices(t *testing.T) {
	tab := threeBinTable(t)
	if tab.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", tab.Size())
	}
	want := []Sample{{0, 0}, {0, 10}, {10, 0}}
	for i, w := range want {
		if got := tab.Center(i); got != w {
			t.Errorf("Center(%d) = %v, want %v", i, got, w)
		}
	}
	for i, b := range tab.Bins() {
		if b.Index != i {
			t.Errorf("Bins()[%d].Index = %d", i, b.Index)
		}
	}
}

func TestNewTable_Deterministic(t *testing.T) {
	a, err := NewDefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewDefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	if a.Size() != b.Size() {
		t.Fatalf("sizes differ: %d vs %d", a.Size(), b.Size())
	}
	for i := range a.Size() {
		if a.Center(i) != b.Center(i) {
			t.Fatalf("bin %d differs: %v vs %v", i, a.Center(i), b.Center(i))
		}
	}
}

func TestNewDefaultTable(t *testing.T) {
	tab, err := NewDefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	if n := tab.Size(); n < 100 || n >= 23*23 {
		t.Errorf("Size() = %d, want a few hundred bins", n)
	}
	if _, ok := tab.Lookup(Sample{0, 0}); !ok {
		t.Error("neutral grey (0,0) must be in the sRGB gamut")
	}
	for _, corner := range []Sample{{110, 110}, {110, -110}, {-110, 110}, {-110, -110}} {
		if _, ok := tab.Lookup(corner); ok {
			t.Errorf("corner %v must be outside the sRGB gamut", corner)
		}
	}
	for i := range tab.Size() {
		c := tab.Center(i)
		if math.Mod(c.A, 10) != 0 || math.Mod(c.B, 10) != 0 {
			t.Fatalf("center %v is off the grid", c)
		}
	}
}

func TestNewTable_Errors(t *testing.T) {
	all := func(a, b float64) bool { return true }
	tests := []struct {
		name   string
		step   float64
		extent float64
		mask   Mask
		want   error
	}{
		{"zero step", 0, 10, all, ErrInvalidStep},
		{"negative step", -1, 10, all, ErrInvalidStep},
		{"NaN step", math.NaN(), 10, all, ErrInvalidStep},
		{"infinite step", math.Inf(1), 10, all, ErrInvalidStep},
		{"negative extent", 10, -1, all, ErrInvalidExtent},
		{"nil mask", 10, 10, nil, ErrNilMask},
		{"empty gamut", 10, 10, func(a, b float64) bool { return false }, ErrEmptyGamut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(tt.step, tt.extent, tt.mask); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTable_Centers(t *testing.T) {
	tab := threeBinTable(t)
	m := tab.Centers()
	r, c := m.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("Dims() = %d,%d, want 3,2", r, c)
	}
	m.Set(0, 0, 99)
	if tab.Center(0).A != 0 {
		t.Error("Centers must return a copy")
	}
}

func TestTable_CenterPanicsOutOfRange(t *testing.T) {
	tab := threeBinTable(t)
	defer func() {
		if recover() == nil {
			t.Error("Center(3) did not panic")
		}
	}()
	tab.Center(3)
}

// =============================================================================
// Nearest neighbours
// =============================================================================

func TestNearestK_Scenario(t *testing.T) {
	tab := threeBinTable(t)
	nn := tab.NearestK(Sample{3, 1}, 2)
	if len(nn) != 2 {
		t.Fatalf("len = %d, want 2", len(nn))
	}
	if tab.Center(nn[0].Index) != (Sample{0, 0}) || tab.Center(nn[1].Index) != (Sample{10, 0}) {
		t.Errorf("nearest = %v,%v; want (0,0),(10,0)", tab.Center(nn[0].Index), tab.Center(nn[1].Index))
	}
	if !almostEq(nn[0].Distance, math.Sqrt(10), 1e-12) || !almostEq(nn[1].Distance, math.Sqrt(50), 1e-12) {
		t.Errorf("distances = %v,%v", nn[0].Distance, nn[1].Distance)
	}
}

func TestNearestK_TiesByIndex(t *testing.T) {
	tab := threeBinTable(t)
	nn := tab.NearestK(Sample{5, 5}, 3)
	got := []int{nn[0].Index, nn[1].Index, nn[2].Index}
	// (0,0), (0,10) and (10,0) are all at distance sqrt(50).
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestNearestK_KLargerThanTable(t *testing.T) {
	tab := threeBinTable(t)
	nn := tab.NearestK(Sample{9, 0}, 10)
	if len(nn) != 3 {
		t.Fatalf("len = %d, want 3", len(nn))
	}
	for i := 1; i < len(nn); i++ {
		if nn[i].Distance < nn[i-1].Distance {
			t.Errorf("not sorted: %v", nn)
		}
	}
	if tab.Center(nn[0].Index) != (Sample{10, 0}) {
		t.Errorf("nearest = %v, want (10,0)", tab.Center(nn[0].Index))
	}
}

func TestNearestK_Degenerate(t *testing.T) {
	tab := threeBinTable(t)
	if nn := tab.NearestK(Sample{1, 1}, 0); nn != nil {
		t.Errorf("k=0 returned %v", nn)
	}
	if nn := tab.NearestK(Sample{math.NaN(), 1}, 2); nn != nil {
		t.Errorf("NaN sample returned %v", nn)
	}
}

func TestNearestK_MatchesBruteForce(t *testing.T) {
	tab, err := NewDefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	for a := -100.0; a <= 100; a += 7.3 {
		for b := -100.0; b <= 100; b += 11.1 {
			s := Sample{a, b}
			nn := tab.NearestK(s, 5)
			// Every bin outside the result must be at least as far as the last one.
			in := map[int]bool{}
			for _, n := range nn {
				in[n.Index] = true
			}
			last := nn[len(nn)-1]
			for i := range tab.Size() {
				if in[i] {
					continue
				}
				d := math.Sqrt(s.dist2(tab.Center(i)))
				if d < last.Distance || (d == last.Distance && i < last.Index) {
					t.Fatalf("sample %v: bin %d (d=%v) beats %v", s, i, d, last)
				}
			}
		}
	}
}

func TestLookup(t *testing.T) {
	tab := threeBinTable(t)
	if i, ok := tab.Lookup(Sample{9.2, 0.4}); !ok || i != 2 {
		t.Errorf("Lookup(9.2,0.4) = %d,%v; want 2,true", i, ok)
	}
	if _, ok := tab.Lookup(Sample{10, 10}); ok {
		t.Error("(10,10) is not a bin")
	}
	if _, ok := tab.Lookup(Sample{500, 0}); ok {
		t.Error("(500,0) is off the grid")
	}
}

// =============================================================================
// Masks
// =============================================================================

func TestMaskFromSamples(t *testing.T) {
	samples := []Sample{{1, 1}, {-2, 3}, {19, 1}, {21, -2}, {math.NaN(), 0}, {-40, 40}}
	mask := MaskFromSamples(10, 2, samples)
	tab, err := NewTable(10, 110, mask)
	if err != nil {
		t.Fatal(err)
	}
	if tab.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tab.Size())
	}
	if tab.Center(0) != (Sample{0, 0}) || tab.Center(1) != (Sample{20, 0}) {
		t.Errorf("bins = %v", tab.Bins())
	}
}

func TestChromaSamples(t *testing.T) {
	img := NewChromaImage(2, 1)
	img.Set(1, 0, Sample{5, -5})
	got := ChromaSamples(img, img)
	if len(got) != 4 || got[1] != (Sample{5, -5}) {
		t.Errorf("ChromaSamples = %v", got)
	}
}

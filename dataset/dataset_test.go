package dataset

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/setanarut/colorize"
	"github.com/setanarut/colorize/imgutil"
)

func writeSolid(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	if err := imgutil.SaveImage(img, path); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.png")
	writeSolid(t, path, 5, 3, color.RGBA{200, 60, 40, 255})

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ModeFile || d.Len() != 1 {
		t.Fatalf("mode %v len %d", d.Mode(), d.Len())
	}
	lab, got, err := d.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != path || lab.W != 5 || lab.H != 3 {
		t.Errorf("At(0) = %dx%d %q", lab.W, lab.H, got)
	}
	if a := lab.AB.At(0, 0).A; a < 30 {
		t.Errorf("a = %v, want a reddish sample", a)
	}
	if _, _, err := d.At(1); !errors.Is(err, ErrIndex) {
		t.Errorf("At(1) err = %v", err)
	}
}

func TestOpen_DirectorySortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeSolid(t, filepath.Join(dir, "b.png"), 2, 2, color.RGBA{0, 0, 255, 255})
	writeSolid(t, filepath.Join(dir, "a.png"), 2, 2, color.RGBA{255, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	d, err := Open(dir, WithSize(4))
	if err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ModeDir || d.Len() != 2 {
		t.Fatalf("mode %v len %d (%v)", d.Mode(), d.Len(), d.Paths())
	}
	lab, path, err := d.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "a.png" {
		t.Errorf("first item = %s, want a.png", path)
	}
	if lab.W != 4 || lab.H != 4 {
		t.Errorf("resized to %dx%d, want 4x4", lab.W, lab.H)
	}
	planes := lab.Planes()
	if len(planes[0]) != 16 {
		t.Errorf("plane length %d", len(planes[0]))
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing path accepted")
	}
	path := filepath.Join(t.TempDir(), "one.png")
	writeSolid(t, path, 1, 1, color.RGBA{A: 255})
	if _, err := Open(path, WithSize(-1)); err == nil {
		t.Error("negative size accepted")
	}
}

func TestChroma_EmpiricalGamut(t *testing.T) {
	dir := t.TempDir()
	writeSolid(t, filepath.Join(dir, "grey.png"), 3, 3, color.RGBA{128, 128, 128, 255})
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ab := d.Chroma()
	if len(ab) != 1 {
		t.Fatalf("got %d chroma images, want 1", len(ab))
	}
	tab, err := colorize.NewTable(10, 110, colorize.MaskFromSamples(10, 1, colorize.ChromaSamples(ab...)))
	if err != nil {
		t.Fatal(err)
	}
	if tab.Size() != 1 || tab.Center(0) != (colorize.Sample{}) {
		t.Errorf("empirical gamut = %v", tab.Bins())
	}
}

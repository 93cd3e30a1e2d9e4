// Package dataset enumerates Lab-encoded training or evaluation images from
// a single file or a directory.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/setanarut/colorize"
	"github.com/setanarut/colorize/imgutil"
)

type Mode int

const (
	ModeFile Mode = iota
	ModeDir
)

func (m Mode) String() string {
	if m == ModeDir {
		return "dir"
	}
	return "file"
}

// ErrIndex is returned by At for an index outside [0, Len()).
var ErrIndex = errors.New("dataset: index out of range")

// ImageFileOrDirectory serves either one image file or every image in a
// directory, in lexical order. Every item is converted to Lab the same way.
type ImageFileOrDirectory struct {
	mode  Mode
	root  string
	files []string
	size  int
}

type Option func(*ImageFileOrDirectory)

// WithSize resizes every image to size×size before Lab conversion.
func WithSize(size int) Option {
	return func(d *ImageFileOrDirectory) {
		d.size = size
	}
}

// Open inspects fileOrRoot. A directory is listed once; files added later
// are not seen. Subdirectories and files without an image extension are
// skipped.
func Open(fileOrRoot string, opts ...Option) (*ImageFileOrDirectory, error) {
	info, err := os.Stat(fileOrRoot)
	if err != nil {
		return nil, fmt.Errorf("dataset: %q does not exist: %w", fileOrRoot, err)
	}
	d := &ImageFileOrDirectory{root: fileOrRoot}
	for _, o := range opts {
		o(d)
	}
	if d.size < 0 {
		return nil, fmt.Errorf("dataset: negative size %d", d.size)
	}

	if !info.IsDir() {
		d.mode = ModeFile
		d.files = []string{fileOrRoot}
		return d, nil
	}

	d.mode = ModeDir
	entries, err := os.ReadDir(fileOrRoot)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	for _, e := range entries {
		path := filepath.Join(fileOrRoot, e.Name())
		if e.IsDir() || !imgutil.IsImagePath(path) {
			colorize.Logger().Debug("dataset: skipping entry", "path", path)
			continue
		}
		d.files = append(d.files, path)
	}
	colorize.Logger().Debug("dataset: opened directory", "root", fileOrRoot, "images", len(d.files))
	return d, nil
}

func (d *ImageFileOrDirectory) Mode() Mode { return d.mode }

func (d *ImageFileOrDirectory) Len() int { return len(d.files) }

// Paths returns the image paths in index order.
func (d *ImageFileOrDirectory) Paths() []string {
	return append([]string(nil), d.files...)
}

// At loads item i and returns it in Lab together with its path.
func (d *ImageFileOrDirectory) At(i int) (*colorize.LabImage, string, error) {
	if i < 0 || i >= len(d.files) {
		return nil, "", fmt.Errorf("%w: %d of %d", ErrIndex, i, len(d.files))
	}
	path := d.files[i]
	img, err := imgutil.ReadImage(path)
	if err != nil {
		return nil, path, fmt.Errorf("dataset: %w", err)
	}
	if d.size > 0 {
		return colorize.ToLab(colorize.ResizeImage(img, d.size, d.size)), path, nil
	}
	return colorize.ToLab(img), path, nil
}

// Chroma loads the a/b channels of every item, e.g. to build an empirical
// gamut with colorize.MaskFromSamples. Unreadable items are skipped with a
// warning.
func (d *ImageFileOrDirectory) Chroma() []*colorize.ChromaImage {
	out := make([]*colorize.ChromaImage, 0, len(d.files))
	for i := range d.files {
		lab, path, err := d.At(i)
		if err != nil {
			colorize.Logger().Warn("dataset: skipping unreadable image", "path", path, "err", err)
			continue
		}
		out = append(out, lab.AB)
	}
	return out
}

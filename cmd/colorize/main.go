// Command colorize runs the quantized colorization pipeline over one image or
// a directory of images.
//
// Without a trained network it uses the reference predictor, which encodes
// each image's own chrominance: the output shows exactly what quantizing to
// the gamut table and annealed decoding do to an image.
//
//	colorize -input-image in.jpg -output-image out.png -temperature 0.38
//	colorize -input-dir photos/ -output-dir previews/ -palette 5 -verbose
//	colorize -dump-gamut
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/setanarut/colorize"
	"github.com/setanarut/colorize/dataset"
	"github.com/setanarut/colorize/imgutil"
)

type config struct {
	inputImage, inputDir   string
	outputImage, outputDir string
	inputSize              int
	gamut                  string
	minCount               int
	palette                int
	paletteMethod          string
	dumpGamut              bool
	encodeTargets          string
	verbose                bool
	opt                    colorize.Options
}

func parseFlags(args []string) (*config, error) {
	cfg := &config{opt: colorize.DefaultOptions()}
	fs := flag.NewFlagSet("colorize", flag.ContinueOnError)
	fs.StringVar(&cfg.inputImage, "input-image", "", "path to single input image")
	fs.StringVar(&cfg.inputDir, "input-dir", "", "path to directory containing input images")
	fs.StringVar(&cfg.outputImage, "output-image", "", "location to which the colorized image is written")
	fs.StringVar(&cfg.outputDir, "output-dir", "", "directory in which to write output images")
	fs.IntVar(&cfg.inputSize, "input-size", 224, "side of the square images are resized to before prediction (0 keeps size)")
	fs.StringVar(&cfg.gamut, "gamut", "srgb", "gamut rule: srgb or empirical (from the input images)")
	fs.IntVar(&cfg.minCount, "gamut-min-count", 1, "samples a grid point needs to enter the empirical gamut")
	fs.Float64Var(&cfg.opt.GridStep, "step", cfg.opt.GridStep, "grid step in a/b units")
	fs.Float64Var(&cfg.opt.Extent, "extent", cfg.opt.Extent, "largest |a| and |b| on the grid")
	fs.IntVar(&cfg.opt.Neighbors, "neighbors", cfg.opt.Neighbors, "bins weighted per soft-encoded sample")
	fs.Float64Var(&cfg.opt.Sigma, "sigma", cfg.opt.Sigma, "Gaussian kernel width")
	fs.Float64Var(&cfg.opt.Temperature, "temperature", cfg.opt.Temperature, "annealed-mean temperature (0 = mode, 1 = mean)")
	fs.IntVar(&cfg.opt.Workers, "workers", cfg.opt.Workers, "goroutines per image (0 = GOMAXPROCS)")
	fs.IntVar(&cfg.palette, "palette", 0, "print this many dominant swatches of each output")
	fs.StringVar(&cfg.paletteMethod, "palette-method", "dominantcolor", "dominantcolor or kmeans")
	fs.BoolVar(&cfg.dumpGamut, "dump-gamut", false, "print the gamut table and exit")
	fs.StringVar(&cfg.encodeTargets, "encode-targets", "", "soft-encode every input at -input-size into this directory and exit")
	fs.BoolVar(&cfg.verbose, "verbose", false, "display progress")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (c *config) validate() error {
	if err := c.opt.Validate(); err != nil {
		return err
	}
	if c.gamut != "srgb" && c.gamut != "empirical" {
		return fmt.Errorf("unknown -gamut %q", c.gamut)
	}
	if _, ok := imgutil.ParsePaletteMethod(c.paletteMethod); !ok {
		return fmt.Errorf("unknown -palette-method %q", c.paletteMethod)
	}
	if c.inputSize < 0 {
		return errors.New("-input-size must not be negative")
	}
	if c.dumpGamut && c.gamut == "srgb" {
		return nil
	}
	if (c.inputImage == "") == (c.inputDir == "") {
		return errors.New("either -input-image OR -input-dir must be specified")
	}
	if c.dumpGamut || c.encodeTargets != "" {
		return nil
	}
	if c.inputImage != "" && c.outputImage == "" {
		return errors.New("-input-image and -output-image must be specified together")
	}
	if c.inputDir != "" && c.outputDir == "" {
		return errors.New("-input-dir and -output-dir must be specified together")
	}
	return nil
}

func (c *config) input() string {
	if c.inputImage != "" {
		return c.inputImage
	}
	return c.inputDir
}

func buildTable(c *config, src *dataset.ImageFileOrDirectory) (*colorize.Table, error) {
	mask := colorize.SRGBMask()
	if c.gamut == "empirical" {
		samples := colorize.ChromaSamples(src.Chroma()...)
		mask = colorize.MaskFromSamples(c.opt.GridStep, c.minCount, samples)
	}
	return colorize.NewTable(c.opt.GridStep, c.opt.Extent, mask)
}

func run(c *config) error {
	var src *dataset.ImageFileOrDirectory
	if c.inputImage != "" || c.inputDir != "" {
		var err error
		if src, err = dataset.Open(c.input(), dataset.WithSize(c.inputSize)); err != nil {
			return err
		}
	}
	table, err := buildTable(c, src)
	if err != nil {
		return err
	}
	if c.dumpGamut {
		fmt.Printf("# %d bins, step %v\n", table.Size(), table.Step())
		for _, b := range table.Bins() {
			fmt.Printf("%d\t%g\t%g\n", b.Index, b.Center.A, b.Center.B)
		}
		return nil
	}

	enc, err := colorize.NewSoftEncoder(table, c.opt)
	if err != nil {
		return err
	}
	if c.encodeTargets != "" {
		return encodeTargets(src, enc, c.encodeTargets)
	}
	dec, err := colorize.NewAnnealedDecoder(table, c.opt)
	if err != nil {
		return err
	}
	loss, err := colorize.NewLoss(c.opt)
	if err != nil {
		return err
	}
	method, _ := imgutil.ParsePaletteMethod(c.paletteMethod)
	ev := &evaluator{
		pipe: &colorize.Pipeline{
			Predictor: colorize.NewReferencePredictor(enc),
			Decoder:   dec,
			InputSize: c.inputSize,
		},
		enc:         enc,
		loss:        loss,
		paletteSize: c.palette,
		method:      method,
	}

	if c.outputDir != "" {
		if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
			return err
		}
	}
	for _, in := range src.Paths() {
		out := c.outputImage
		if c.outputDir != "" {
			base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
			out = filepath.Join(c.outputDir, base+".png")
		}
		slog.Info("processing", "image", in)
		if err := ev.evaluate(in, out); err != nil {
			if c.inputImage != "" {
				return err
			}
			slog.Warn("skipping image", "image", in, "err", err)
		}
	}
	return nil
}

func encodeTargets(src *dataset.ImageFileOrDirectory, enc *colorize.SoftEncoder, dir string) error {
	cache, err := dataset.NewTargetCache(src, enc, dir)
	if err != nil {
		return err
	}
	for i, path := range src.Paths() {
		m, err := cache.Target(i)
		if err != nil {
			slog.Warn("skipping image", "image", path, "err", err)
			continue
		}
		slog.Info("encoded", "image", path, "w", m.W, "h", m.H, "bins", m.N)
	}
	return nil
}

type evaluator struct {
	pipe        *colorize.Pipeline
	enc         *colorize.SoftEncoder
	loss        *colorize.Loss
	paletteSize int
	method      imgutil.PaletteMethod
}

// evaluate colorizes in, writes the result to out and prints how far the
// output chrominance is from the input's, both as a mean a/b distance and as
// the distribution loss between their soft encodings.
func (e *evaluator) evaluate(in, out string) error {
	img, err := imgutil.ReadImage(in)
	if err != nil {
		return err
	}
	lab, err := e.pipe.Predict(img)
	if err != nil {
		return err
	}
	rgb := colorize.ToRGB(lab)
	if err := imgutil.SaveImage(rgb, out); err != nil {
		return err
	}

	truth := colorize.ToLab(img).AB
	chromaErr, err := colorize.ChromaError(lab.AB, truth)
	if err != nil {
		return err
	}
	encoded, err := e.enc.EncodeBatch([]*colorize.ChromaImage{lab.AB, truth})
	if err != nil {
		return err
	}
	l, err := e.loss.ComputeMap(colorize.LogProbabilities(smooth(encoded[0], 1e-4)), encoded[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\tmean chroma error %.3f\tloss %.4f\n", in, out, chromaErr, l)

	if e.paletteSize > 0 {
		for _, s := range imgutil.ExtractPalette(rgb, e.paletteSize, e.method, e.pipe.Decoder.Table()) {
			fmt.Printf("\t%s\t%5.1f%%\tbin %d\t(a %.1f, b %.1f)\n", s.Color.Hex(), s.Weight*100, s.Bin, s.Chroma.A, s.Chroma.B)
		}
	}
	return nil
}

// smooth mixes eps of the uniform distribution into every pixel so that bins
// the output never reaches keep a finite log-probability.
func smooth(m *colorize.BinMap, eps float64) *colorize.BinMap {
	u := eps / float64(m.N)
	for i, v := range m.Data {
		m.Data[i] = (1-eps)*v + u
	}
	return m
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "colorize:", err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	colorize.SetLogger(logger)

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "colorize:", err)
		os.Exit(1)
	}
}

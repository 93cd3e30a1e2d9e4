package colorize

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Predictor produces per-pixel raw scores over the bins of a table from the
// lightness of an image. A trained network sits behind this interface.
type Predictor interface {
	Predict(lab *LabImage) (*BinMap, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(lab *LabImage) (*BinMap, error)

func (f PredictorFunc) Predict(lab *LabImage) (*BinMap, error) { return f(lab) }

// ReferencePredictor reads the chrominance already present in its input and
// returns the log of its soft encoding. Decoding its output previews what
// the quantization alone does to an image; it is also the ideal predictor
// the loss is measured against.
type ReferencePredictor struct {
	enc *SoftEncoder
}

func NewReferencePredictor(enc *SoftEncoder) *ReferencePredictor {
	return &ReferencePredictor{enc: enc}
}

func (p *ReferencePredictor) Predict(lab *LabImage) (*BinMap, error) {
	m, err := p.enc.EncodeImage(lab.AB)
	if err != nil {
		return nil, err
	}
	return LogProbabilities(m), nil
}

// LogProbabilities replaces every value of m with its natural log in place
// and returns m. Zero probabilities become -Inf, which the decoder and the
// loss treat as impossible bins.
func LogProbabilities(m *BinMap) *BinMap {
	for i, v := range m.Data {
		m.Data[i] = math.Log(v)
	}
	return m
}

// Pipeline runs a predictor and a decoder over whole images.
type Pipeline struct {
	Predictor Predictor
	Decoder   *AnnealedDecoder
	// Side of the square the image is resized to before prediction. The
	// decoded chrominance is resized back and joined with the full
	// resolution lightness. 0 keeps the original size.
	InputSize int
}

// Predict returns the full-resolution Lab image with predicted chrominance.
func (p *Pipeline) Predict(img image.Image) (*LabImage, error) {
	lab := ToLab(img)
	in := lab
	if p.InputSize > 0 && (lab.W != p.InputSize || lab.H != p.InputSize) {
		in = ToLab(ResizeImage(img, p.InputSize, p.InputSize))
	}
	scores, err := p.Predictor.Predict(in)
	if err != nil {
		return nil, fmt.Errorf("colorize: predict: %w", err)
	}
	if scores.W != in.W || scores.H != in.H {
		return nil, fmt.Errorf("%w: predictor returned %dx%d for %dx%d input", ErrShapeMismatch, scores.W, scores.H, in.W, in.H)
	}
	ab, err := p.Decoder.DecodeMap(scores)
	if err != nil {
		return nil, fmt.Errorf("colorize: decode: %w", err)
	}
	if ab.W != lab.W || ab.H != lab.H {
		ab = ab.Resize(lab.W, lab.H)
	}
	return WithChroma(lab, ab)
}

// Colorize returns img recoloured with the predicted chrominance.
func (p *Pipeline) Colorize(img image.Image) (*image.RGBA, error) {
	lab, err := p.Predict(img)
	if err != nil {
		return nil, err
	}
	return ToRGB(lab), nil
}

// ResizeImage scales img to w×h with Catmull-Rom filtering.
func ResizeImage(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ChromaError returns the mean Euclidean distance between the chrominance of
// two equally sized images.
func ChromaError(got, want *ChromaImage) (float64, error) {
	if err := got.check(); err != nil {
		return 0, err
	}
	if err := want.check(); err != nil {
		return 0, err
	}
	if got.W != want.W || got.H != want.H {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, got.W, got.H, want.W, want.H)
	}
	n := got.W * got.H
	if n == 0 {
		return 0, nil
	}
	sum := 0.0
	for i := range n {
		sum += math.Sqrt(Sample{got.Pix[i*2], got.Pix[i*2+1]}.dist2(Sample{want.Pix[i*2], want.Pix[i*2+1]}))
	}
	return sum / float64(n), nil
}

// Package colorize implements the quantized chrominance machinery behind
// classification-style automatic colorization.
//
// The CIE a*b* plane is cut into a regular grid and only the grid points
// inside a colour gamut are kept as bins ([Table]). Ground-truth chrominance
// becomes a soft distribution over those bins ([SoftEncoder]), a predictor's
// per-pixel scores are turned back into chrominance with an annealed mean
// ([AnnealedDecoder]), and training compares the two with a pixelwise
// soft-target loss ([Loss]).
//
// A typical round trip:
//
//	table, _ := colorize.NewDefaultTable()
//	opt := colorize.DefaultOptions()
//	enc, _ := colorize.NewSoftEncoder(table, opt)
//	dec, _ := colorize.NewAnnealedDecoder(table, opt)
//
//	lab := colorize.ToLab(img)
//	target, _ := enc.EncodeImage(lab.AB)
//	ab, _ := dec.DecodeMap(colorize.LogProbabilities(target))
//
// All types are safe for concurrent use; a Table is never modified after
// NewTable returns.
package colorize

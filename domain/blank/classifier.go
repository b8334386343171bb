package blank

import "image"

// Classifier computes black/white fractions of a luminance plane and maps
// them to a ternary classification. Pure; safe for concurrent use.
type Classifier struct {
	blackThresh uint8   // luminance strictly below counts as black
	whiteThresh uint8   // luminance strictly above counts as white
	confirmPct  float64 // blank fraction at or above confirms Blank
	watchPct    float64 // blank fraction at or above marks Possible
}

// NewClassifier builds a classifier from threshold presets. Values are taken
// as-is; config validation is responsible for sane ranges.
func NewClassifier(blackThresh, whiteThresh uint8, confirmPct, watchPct float64) *Classifier {
	return &Classifier{
		blackThresh: blackThresh,
		whiteThresh: whiteThresh,
		confirmPct:  confirmPct,
		watchPct:    watchPct,
	}
}

// Classify scans the luminance plane and returns the verdict for this frame.
// An empty plane is Clear with zero fractions.
func (c *Classifier) Classify(g *image.Gray) Verdict {
	if g == nil {
		return Verdict{}
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h
	if total == 0 {
		return Verdict{}
	}
	var black, white int
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, lum := range row {
			if lum < c.blackThresh {
				black++
			} else if lum > c.whiteThresh {
				white++
			}
		}
	}
	v := Verdict{
		BlackPct: float64(black) * 100 / float64(total),
		WhitePct: float64(white) * 100 / float64(total),
	}
	switch pct := v.BlankPct(); {
	case pct >= c.confirmPct:
		v.Class = Blank
	case pct >= c.watchPct:
		v.Class = Possible
	}
	return v
}

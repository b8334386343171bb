package blank

import (
	"image"
	"testing"
)

// uniformPlane builds a w x h luminance plane filled with lum.
func uniformPlane(w, h int, lum byte) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = lum
	}
	return g
}

// paintRows overwrites the first n rows of the plane with lum.
func paintRows(g *image.Gray, n int, lum byte) {
	for y := 0; y < n; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+g.Rect.Dx()]
		for x := range row {
			row[x] = lum
		}
	}
}

func newTestClassifier() *Classifier {
	return NewClassifier(15, 240, 97.0, 95.0)
}

func TestClassifier_UniformBlack(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify(uniformPlane(32, 32, 0))
	if v.Class != Blank {
		t.Fatalf("expected Blank, got %v", v.Class)
	}
	if v.BlackPct != 100 {
		t.Fatalf("expected black_pct=100, got %v", v.BlackPct)
	}
	if v.WhitePct != 0 {
		t.Fatalf("expected white_pct=0, got %v", v.WhitePct)
	}
}

func TestClassifier_UniformWhite(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify(uniformPlane(32, 32, 255))
	if v.Class != Blank {
		t.Fatalf("expected Blank, got %v", v.Class)
	}
	if v.WhitePct != 100 {
		t.Fatalf("expected white_pct=100, got %v", v.WhitePct)
	}
}

func TestClassifier_ThresholdBoundaries(t *testing.T) {
	c := newTestClassifier()
	// Luminance 15 is not below the black threshold; 14 is.
	if v := c.Classify(uniformPlane(8, 8, 15)); v.Class != Clear {
		t.Fatalf("luminance 15: expected Clear, got %v", v.Class)
	}
	if v := c.Classify(uniformPlane(8, 8, 14)); v.Class != Blank {
		t.Fatalf("luminance 14: expected Blank, got %v", v.Class)
	}
	// 240 is not above the white threshold; 241 is.
	if v := c.Classify(uniformPlane(8, 8, 240)); v.Class != Clear {
		t.Fatalf("luminance 240: expected Clear, got %v", v.Class)
	}
	if v := c.Classify(uniformPlane(8, 8, 241)); v.Class != Blank {
		t.Fatalf("luminance 241: expected Blank, got %v", v.Class)
	}
}

func TestClassifier_SeverityBands(t *testing.T) {
	c := newTestClassifier()
	cases := []struct {
		name      string
		blackRows int // of 100 rows
		want      Classification
	}{
		{"fully black", 100, Blank},
		{"confirm edge", 97, Blank},
		{"watch band", 96, Possible},
		{"watch edge", 95, Possible},
		{"below watch", 94, Clear},
		{"mostly content", 10, Clear},
	}
	for _, tc := range cases {
		g := uniformPlane(10, 100, 128)
		paintRows(g, tc.blackRows, 0)
		v := c.Classify(g)
		if v.Class != tc.want {
			t.Errorf("%s: expected %v, got %v (black=%v)", tc.name, tc.want, v.Class, v.BlackPct)
		}
		if want := float64(tc.blackRows); v.BlackPct != want {
			t.Errorf("%s: expected black_pct=%v, got %v", tc.name, want, v.BlackPct)
		}
	}
}

func TestClassifier_EmptyPlane(t *testing.T) {
	c := newTestClassifier()
	if v := c.Classify(nil); v.Class != Clear {
		t.Fatalf("nil plane: expected Clear, got %v", v.Class)
	}
	if v := c.Classify(image.NewGray(image.Rect(0, 0, 0, 0))); v.Class != Clear {
		t.Fatalf("empty plane: expected Clear, got %v", v.Class)
	}
}

func TestClassifier_SubsampledUniformStaysBlank(t *testing.T) {
	// Area-averaging a uniform plane preserves uniformity, so any shrink of
	// a uniform black frame must classify identically.
	c := newTestClassifier()
	full := c.Classify(uniformPlane(64, 64, 0))
	small := c.Classify(uniformPlane(8, 8, 0))
	if full.Class != small.Class || full.BlackPct != small.BlackPct {
		t.Fatalf("classification changed under downsampling: %v/%v vs %v/%v",
			full.Class, full.BlackPct, small.Class, small.BlackPct)
	}
}

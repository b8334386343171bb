package capture

import (
	"image"
	"sync"
)

// Luminance planes are recycled through a pool so the steady-state tick loop
// does not retain a fresh backing slice per frame. The screenshot library
// still allocates its own RGBA frame per grab; the plane is the part we own
// long enough to reuse.

var planePool sync.Pool // stores *image.Gray

// acquirePlane returns a reusable gray plane sized w x h. Pix length matches
// exactly; Stride is w.
func acquirePlane(w, h int) *image.Gray {
	needed := w * h
	var g *image.Gray
	if v := planePool.Get(); v != nil {
		g = v.(*image.Gray)
	}
	if g == nil || cap(g.Pix) < needed {
		return &image.Gray{Pix: make([]byte, needed), Stride: w, Rect: image.Rect(0, 0, w, h)}
	}
	g.Pix = g.Pix[:needed]
	g.Stride = w
	g.Rect = image.Rect(0, 0, w, h)
	return g
}

// RecyclePlane returns a plane to the pool. The caller must not touch the
// plane afterwards. Never recycling degrades gracefully to plain allocation.
func RecyclePlane(g *image.Gray) {
	if g == nil || g.Pix == nil {
		return
	}
	planePool.Put(g)
}

// grayFromPix converts a 4-byte-per-pixel buffer (RGBA or NRGBA layout) into
// a pooled luminance plane. Luminance is the mean of the three color
// channels; alpha is ignored.
func grayFromPix(pix []byte, stride, w, h int) *image.Gray {
	g := acquirePlane(w, h)
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		out := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := 0; x < w; x++ {
			i := x * 4
			out[x] = byte((uint32(row[i]) + uint32(row[i+1]) + uint32(row[i+2])) / 3)
		}
	}
	return g
}

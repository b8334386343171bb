package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// Sampler produces luminance planes for capture regions. Implementations
// must return an error rather than crash on transient capture failure.
type Sampler interface {
	Sample(ctx context.Context, r blank.Region) (*image.Gray, error)
}

// ScreenSampler grabs frames from the display server, optionally downsamples
// them by area averaging, and reduces them to pooled luminance planes.
// Safe for concurrent use across regions.
type ScreenSampler struct {
	downscale float64
	timeout   time.Duration
	logger    *slog.Logger

	stats samplerCounters
}

// NewScreenSampler builds a sampler. downscale in (0,1) shrinks frames before
// analysis; values outside that range disable downsampling. timeout bounds
// each grab; zero or negative disables the bound.
func NewScreenSampler(downscale float64, timeout time.Duration, logger *slog.Logger) *ScreenSampler {
	return &ScreenSampler{downscale: downscale, timeout: timeout, logger: logger}
}

// Sample captures the region and returns its luminance plane. The grab runs
// under the configured timeout; an expired deadline is reported as a capture
// error for this tick. Returned planes should be handed back via
// RecyclePlane once consumed.
func (s *ScreenSampler) Sample(ctx context.Context, r blank.Region) (*image.Gray, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		img *image.RGBA
		err error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- result{err: fmt.Errorf("capture panic: %v", rec)}
			}
		}()
		img, err := screenshot.CaptureRect(r.Bounds)
		ch <- result{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		s.stats.failures.Add(1)
		return nil, fmt.Errorf("capture %s: %w", r.Name, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			s.stats.failures.Add(1)
			return nil, fmt.Errorf("capture %s: %w", r.Name, res.err)
		}
		s.stats.captures.Add(1)
		s.stats.grabNanos.Add(uint64(time.Since(start).Nanoseconds()))
		return s.plane(res.img), nil
	}
}

// Stats returns a snapshot of sampler instrumentation.
func (s *ScreenSampler) Stats() Stats { return s.stats.snapshot() }

// plane reduces a captured frame to a luminance plane, downsampling first
// when configured. imaging.Box is an area average, so a uniform frame stays
// uniform and its classification is unchanged by the shrink.
func (s *ScreenSampler) plane(img *image.RGBA) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if s.downscale > 0 && s.downscale < 1 {
		dw, dh := scaled(w, s.downscale), scaled(h, s.downscale)
		small := imaging.Resize(img, dw, dh, imaging.Box)
		return grayFromPix(small.Pix, small.Stride, dw, dh)
	}
	return grayFromPix(img.Pix, img.Stride, w, h)
}

func scaled(v int, f float64) int {
	n := int(float64(v)*f + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

var _ Sampler = (*ScreenSampler)(nil)

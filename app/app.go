// Package app wires the sampler, classifier, per-region trackers and sinks
// into the scheduler loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/becco1sar/blank-slots/capture"
	"github.com/becco1sar/blank-slots/config"
	"github.com/becco1sar/blank-slots/domain/blank"
	"github.com/becco1sar/blank-slots/sink"
)

const statsLogInterval = 30 * time.Second

// Enumerator resolves the current set of capture regions.
type Enumerator func() ([]blank.Region, error)

// statser is satisfied by samplers exposing instrumentation.
type statser interface{ Stats() capture.Stats }

// App drives all regions from a single timer loop: one tick samples every
// region, classifies the frames and feeds the per-region trackers. Per-region
// work inside a tick runs in parallel; trackers are never shared between
// workers, so no locking is needed around episode state.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	enumerate  Enumerator
	sampler    capture.Sampler
	recorder   sink.Recorder
	frames     *sink.FrameStore
	classifier *blank.Classifier
	trackers   []*blank.Tracker
}

// New assembles the scheduler. frames may be nil to disable persistence.
func New(cfg *config.Config, logger *slog.Logger, enumerate Enumerator, sampler capture.Sampler, recorder sink.Recorder, frames *sink.FrameStore) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		enumerate: enumerate,
		sampler:   sampler,
		recorder:  recorder,
		frames:    frames,
		classifier: blank.NewClassifier(
			cfg.BlackThresh, cfg.WhiteThresh, cfg.BlankPctMin, cfg.WatchPctMin),
	}
}

// Run enumerates regions, builds one tracker per region and drives the tick
// loop until ctx is cancelled. It returns an error only for unrecoverable
// startup failure (no displays after the configured retries); cancellation is
// a normal shutdown: the current tick finishes and open episodes are flushed
// as Ended events before returning nil.
func (a *App) Run(ctx context.Context) error {
	regions, err := a.resolveRegions(ctx)
	if err != nil {
		a.note(sink.Warning, "no connected monitors found")
		return err
	}

	a.note(sink.Info, fmt.Sprintf("service_started sample_sec=%g policy=%s",
		a.cfg.SampleIntervalSec, a.cfg.Policy))

	a.trackers = make([]*blank.Tracker, 0, len(regions))
	for _, r := range regions {
		line := fmt.Sprintf("monitor_detected mon%d: %s %dx%d @ (%d,%d)",
			r.ID, r.Name, r.Bounds.Dx(), r.Bounds.Dy(), r.Bounds.Min.X, r.Bounds.Min.Y)
		a.note(sink.Info, line)
		a.logger.Info("monitor detected",
			slog.Int("region", r.ID),
			slog.String("monitor", r.Name),
			slog.Int("width", r.Bounds.Dx()),
			slog.Int("height", r.Bounds.Dy()))
		a.trackers = append(a.trackers,
			blank.NewTracker(r, a.newPolicy(), a.recorder, a.logger))
	}

	a.loop(ctx)

	now := time.Now()
	for _, tr := range a.trackers {
		tr.Flush(now)
	}
	a.note(sink.Info, "service_stopped")
	return nil
}

// resolveRegions enumerates displays, retrying per configuration before
// giving up with the enumeration error.
func (a *App) resolveRegions(ctx context.Context) ([]blank.Region, error) {
	attempts := a.cfg.EnumerateRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			a.logger.Warn("display enumeration retry",
				slog.Int("attempt", i+1), slog.Any("error", lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.EnumerateRetryDelay()):
			}
		}
		regions, err := a.enumerate()
		if err == nil && len(regions) > 0 {
			return regions, nil
		}
		if err == nil {
			err = capture.ErrNoDisplays
		}
		lastErr = err
	}
	return nil, lastErr
}

func (a *App) loop(ctx context.Context) {
	timer := time.NewTimer(a.cfg.SampleInterval())
	defer timer.Stop()
	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			a.tick(ctx, now)
			timer.Reset(a.interval())
		case <-statsTicker.C:
			a.logStats()
		}
	}
}

// interval picks the next tick delay: burst cadence while any tracker's
// policy is resolving an unconfirmed candidate, base cadence otherwise.
func (a *App) interval() time.Duration {
	for _, tr := range a.trackers {
		if tr.Burst() {
			return a.cfg.BurstInterval()
		}
	}
	return a.cfg.SampleInterval()
}

// tick samples and classifies every region in parallel. The join is bounded
// by the sampling interval so a wedged grab cannot make ticks overlap; a
// region's failure is isolated to its own tracker.
func (a *App) tick(ctx context.Context, now time.Time) {
	tickCtx, cancel := context.WithTimeout(ctx, a.cfg.SampleInterval())
	defer cancel()

	var wg sync.WaitGroup
	for _, tr := range a.trackers {
		wg.Add(1)
		go func(tr *blank.Tracker) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("tick worker panic",
						slog.String("monitor", tr.Region().Name),
						slog.Any("error", r),
						slog.String("stack", string(debug.Stack())))
				}
			}()
			a.tickRegion(tickCtx, tr, now)
		}(tr)
	}
	wg.Wait()
}

func (a *App) tickRegion(ctx context.Context, tr *blank.Tracker, now time.Time) {
	plane, err := a.sampler.Sample(ctx, tr.Region())
	if err != nil {
		tr.Skip(now, err)
		a.note(sink.Error, fmt.Sprintf("monitor=%q capture_error=%q",
			tr.Region().Name, err.Error()))
		return
	}
	defer capture.RecyclePlane(plane)

	v := a.classifier.Classify(plane)
	a.logger.Debug("sample",
		slog.Int("region", tr.Region().ID),
		slog.String("monitor", tr.Region().Name),
		slog.Float64("black_pct", v.BlackPct),
		slog.Float64("white_pct", v.WhitePct),
		slog.Float64("threshold", a.cfg.BlankPctMin),
		slog.String("class", v.Class.String()))

	wasActive := tr.Active()
	tr.Tick(now, v)

	if !wasActive && tr.Active() && a.frames != nil {
		a.frames.Persist(tr.Region(), plane, now)
	}
	if wasActive && tr.Active() {
		a.logger.Debug("still blank",
			slog.String("monitor", tr.Region().Name),
			slog.String("for", humanize.RelTime(tr.StartedAt(), now, "", "")))
	}
}

func (a *App) logStats() {
	st, ok := a.sampler.(statser)
	if !ok {
		return
	}
	s := st.Stats()
	a.logger.Info("sampler stats",
		slog.String("captures", humanize.Comma(int64(s.Captures))),
		slog.String("failures", humanize.Comma(int64(s.Failures))),
		slog.Duration("avg_grab", s.AvgGrab))
}

// note writes an operational line to the durable sink, reporting sink
// trouble to the process log rather than propagating it.
func (a *App) note(sev sink.Severity, line string) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Note(sev, line); err != nil {
		a.logger.Error("sink note failure", slog.Any("error", err))
	}
}

func (a *App) newPolicy() blank.Policy {
	if a.cfg.Policy == config.PolicyWindow {
		return blank.NewWindowPolicy(a.cfg.Window(), a.cfg.WindowConfirmCount,
			a.cfg.DebounceClearFrames, a.cfg.WindowCapacity)
	}
	return blank.NewStreakPolicy(a.cfg.DebounceClearFrames)
}

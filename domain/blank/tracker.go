package blank

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Tracker owns the episode state for a single region. It reduces noisy
// per-tick verdicts into debounced Started/Ended events via its policy and
// hands each transition to the sink exactly once.
// Not safe for concurrent use; each region's worker drives one tracker.
type Tracker struct {
	region Region
	policy Policy
	sink   Sink
	logger *slog.Logger

	active    bool
	startedAt time.Time
	last      Verdict
	skips     uint64
}

// NewTracker builds a tracker for region driven by the given policy.
func NewTracker(region Region, policy Policy, sink Sink, logger *slog.Logger) *Tracker {
	return &Tracker{region: region, policy: policy, sink: sink, logger: logger}
}

// Tick feeds one classified sample into the policy and emits any resulting
// transitions.
func (t *Tracker) Tick(now time.Time, v Verdict) {
	t.last = v
	t.emit(t.policy.Observe(now, v))
}

// Skip records a tick lost to a capture failure. The episode state is left
// untouched: the failed tick neither advances nor resets the debounce.
func (t *Tracker) Skip(now time.Time, err error) {
	t.skips++
	if t.logger != nil {
		t.logger.Error("capture error",
			slog.String("monitor", t.region.Name),
			slog.Int("region", t.region.ID),
			slog.Any("error", err))
	}
}

// Flush closes any open episode, emitting its Ended event. Called on
// graceful shutdown so in-progress episodes are not dropped silently.
func (t *Tracker) Flush(now time.Time) {
	t.emit(t.policy.Flush(now))
}

// Burst reports whether this tracker's policy wants the shortened interval.
func (t *Tracker) Burst() bool { return t.policy.Burst() }

// Active reports whether an episode is currently open.
func (t *Tracker) Active() bool { return t.active }

// StartedAt returns the open episode's start time; zero when idle.
func (t *Tracker) StartedAt() time.Time {
	if !t.active {
		return time.Time{}
	}
	return t.startedAt
}

// Last returns the most recent verdict, for per-tick reporting.
func (t *Tracker) Last() Verdict { return t.last }

// Region returns the tracked region.
func (t *Tracker) Region() Region { return t.region }

// Skips returns the number of ticks lost to capture failures.
func (t *Tracker) Skips() uint64 { return t.skips }

func (t *Tracker) emit(events []Event) {
	for _, ev := range events {
		ev.RegionID = t.region.ID
		ev.RegionName = t.region.Name
		switch ev.Kind {
		case Started:
			t.active = true
			t.startedAt = ev.Timestamp
		case Ended:
			t.active = false
			t.startedAt = time.Time{}
		}
		if t.sink == nil {
			continue
		}
		if err := t.sink.Record(ev); err != nil && t.logger != nil {
			// Sink trouble must never corrupt episode state; report and move on.
			t.logger.Error("event sink failure",
				slog.String("monitor", t.region.Name),
				slog.String("kind", ev.Kind.String()),
				slog.Any("error", err))
		}
	}
}

// StreakPolicy is the consecutive-clear debounce: the first blank tick opens
// an episode immediately, and a budget of consecutive clear ticks must drain
// before it closes. A blank tick while active refills the budget, so a single
// stray clear frame does not end the episode.
type StreakPolicy struct {
	clearBudget int

	active    bool
	episodeID uuid.UUID
	startTime time.Time
	clearLeft int
	lastBlack float64
	lastWhite float64
}

// NewStreakPolicy returns the policy with the given clear-tick budget.
// Budgets below one are clamped to one.
func NewStreakPolicy(clearBudget int) *StreakPolicy {
	if clearBudget < 1 {
		clearBudget = 1
	}
	return &StreakPolicy{clearBudget: clearBudget}
}

func (p *StreakPolicy) Observe(now time.Time, v Verdict) []Event {
	if v.Class == Blank {
		if !p.active {
			p.active = true
			p.episodeID = uuid.New()
			p.startTime = now
			p.clearLeft = p.clearBudget
			p.lastBlack, p.lastWhite = v.BlackPct, v.WhitePct
			return []Event{{
				EpisodeID: p.episodeID,
				Kind:      Started,
				Timestamp: now,
				BlackPct:  v.BlackPct,
				WhitePct:  v.WhitePct,
			}}
		}
		p.clearLeft = p.clearBudget
		p.lastBlack, p.lastWhite = v.BlackPct, v.WhitePct
		return nil
	}
	if !p.active {
		return nil
	}
	p.clearLeft--
	if p.clearLeft > 0 {
		return nil
	}
	return p.end(now)
}

func (p *StreakPolicy) Flush(now time.Time) []Event {
	if !p.active {
		return nil
	}
	return p.end(now)
}

// Burst always reports false: the streak policy runs at the base cadence.
func (p *StreakPolicy) Burst() bool { return false }

func (p *StreakPolicy) end(now time.Time) []Event {
	ev := Event{
		EpisodeID: p.episodeID,
		Kind:      Ended,
		Timestamp: now,
		Duration:  now.Sub(p.startTime),
		BlackPct:  p.lastBlack,
		WhitePct:  p.lastWhite,
	}
	p.active = false
	p.startTime = time.Time{}
	p.clearLeft = 0
	return []Event{ev}
}

var _ Policy = (*StreakPolicy)(nil)

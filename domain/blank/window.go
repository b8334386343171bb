package blank

import (
	"time"

	"github.com/google/uuid"
)

// candidateWindow is a fixed-capacity ring of candidate-tick timestamps in
// insertion order. When full, pushing drops the oldest entry; the oldest is
// always the next to expire anyway.
type candidateWindow struct {
	buf   []time.Time
	head  int
	count int
}

func newCandidateWindow(capacity int) *candidateWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &candidateWindow{buf: make([]time.Time, capacity)}
}

func (w *candidateWindow) push(t time.Time) {
	if w.count == len(w.buf) {
		w.head = (w.head + 1) % len(w.buf)
		w.count--
	}
	w.buf[(w.head+w.count)%len(w.buf)] = t
	w.count++
}

// evictBefore drops entries older than cutoff.
func (w *candidateWindow) evictBefore(cutoff time.Time) {
	for w.count > 0 && w.buf[w.head].Before(cutoff) {
		w.head = (w.head + 1) % len(w.buf)
		w.count--
	}
}

func (w *candidateWindow) len() int { return w.count }

func (w *candidateWindow) earliest() time.Time {
	if w.count == 0 {
		return time.Time{}
	}
	return w.buf[w.head]
}

func (w *candidateWindow) reset() {
	w.head, w.count = 0, 0
}

// WindowPolicy is the sliding-window confirmation debounce: possible-or-blank
// ticks are collected in a trailing window and an episode is only confirmed
// once at least confirmCount of them land inside it. The Started event is
// back-dated to the earliest candidate in the window. While unconfirmed
// candidates are accumulating the policy demands burst sampling; candidates
// that age out of the window without reaching the count are dropped silently.
// Once confirmed, ending works like the streak policy's clear budget.
type WindowPolicy struct {
	window       time.Duration
	confirmCount int
	clearBudget  int

	candidates *candidateWindow
	active     bool
	episodeID  uuid.UUID
	startTime  time.Time
	clearLeft  int
	lastBlack  float64
	lastWhite  float64
}

// NewWindowPolicy returns the policy with the given trailing window length,
// confirmation count and clear-tick budget. Out-of-range values are clamped.
func NewWindowPolicy(window time.Duration, confirmCount, clearBudget, capacity int) *WindowPolicy {
	if window <= 0 {
		window = time.Minute
	}
	if confirmCount < 1 {
		confirmCount = 1
	}
	if clearBudget < 1 {
		clearBudget = 1
	}
	return &WindowPolicy{
		window:       window,
		confirmCount: confirmCount,
		clearBudget:  clearBudget,
		candidates:   newCandidateWindow(capacity),
	}
}

func (p *WindowPolicy) Observe(now time.Time, v Verdict) []Event {
	p.candidates.evictBefore(now.Add(-p.window))
	if v.Class >= Possible {
		p.candidates.push(now)
		p.lastBlack, p.lastWhite = v.BlackPct, v.WhitePct
		if p.active {
			p.clearLeft = p.clearBudget
			return nil
		}
		if p.candidates.len() < p.confirmCount {
			return nil
		}
		p.active = true
		p.episodeID = uuid.New()
		p.startTime = p.candidates.earliest()
		p.clearLeft = p.clearBudget
		return []Event{{
			EpisodeID: p.episodeID,
			Kind:      Started,
			Timestamp: p.startTime,
			BlackPct:  v.BlackPct,
			WhitePct:  v.WhitePct,
		}}
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

func (p *WindowPolicy) Flush(now time.Time) []Event {
	if !p.active {
		return nil
	}
	return p.end(now)
}

// Burst demands the shortened interval while an unconfirmed candidate streak
// is still inside the window.
func (p *WindowPolicy) Burst() bool {
	return !p.active && p.candidates.len() > 0
}

func (p *WindowPolicy) end(now time.Time) []Event {
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
	p.candidates.reset()
	return []Event{ev}
}

var _ Policy = (*WindowPolicy)(nil)

package blank

import (
	"errors"
	"image"
	"log/slog"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// recSink records events and can be told to fail.
type recSink struct {
	events []Event
	err    error
}

func (s *recSink) Record(ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

var (
	vBlank    = Verdict{Class: Blank, BlackPct: 100}
	vPossible = Verdict{Class: Possible, BlackPct: 96}
	vClear    = Verdict{Class: Clear, BlackPct: 3, WhitePct: 1}
)

func testRegion(id int, name string) Region {
	return Region{ID: id, Name: name, Bounds: image.Rect(0, 0, 1920, 1080)}
}

// feed drives the tracker with one verdict per second starting at base and
// returns the tick timestamps.
func feed(tr *Tracker, base time.Time, verdicts []Verdict) []time.Time {
	ticks := make([]time.Time, len(verdicts))
	for i, v := range verdicts {
		now := base.Add(time.Duration(i) * time.Second)
		ticks[i] = now
		tr.Tick(now, v)
	}
	return ticks
}

func TestStreak_StartedImmediatelyEndedAfterBudget(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ticks := feed(tr, base, []Verdict{vBlank, vClear, vClear, vClear})

	if len(s.events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(s.events), s.events)
	}
	started, ended := s.events[0], s.events[1]
	if started.Kind != Started || !started.Timestamp.Equal(ticks[0]) {
		t.Fatalf("bad started event: %+v", started)
	}
	if ended.Kind != Ended {
		t.Fatalf("expected Ended, got %v", ended.Kind)
	}
	// The budget of 2 drains on the second clear tick; duration runs to that
	// tick, not to the trailing clears.
	if !ended.Timestamp.Equal(ticks[2]) {
		t.Fatalf("expected end at tick 2, got %v", ended.Timestamp)
	}
	if ended.Duration != 2*time.Second {
		t.Fatalf("expected duration 2s, got %v", ended.Duration)
	}
	if started.RegionName != "HDMI-1" || ended.RegionID != 0 {
		t.Fatalf("region fields not stamped: %+v %+v", started, ended)
	}
	if started.EpisodeID != ended.EpisodeID {
		t.Fatalf("episode id mismatch: %v vs %v", started.EpisodeID, ended.EpisodeID)
	}
}

func TestStreak_BlankRefillsClearBudget(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	// A lone clear tick inside the episode never drains the budget of 2.
	feed(tr, base, []Verdict{vBlank, vBlank, vClear, vBlank, vClear})

	if len(s.events) != 1 {
		t.Fatalf("expected only the Started event, got %d: %+v", len(s.events), s.events)
	}
	if s.events[0].Kind != Started {
		t.Fatalf("expected Started, got %v", s.events[0].Kind)
	}
	if !tr.Active() {
		t.Fatal("episode should still be open")
	}
}

func TestStreak_ClearWhileIdleIsNoop(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	feed(tr, time.Now(), []Verdict{vClear, vClear, vPossible, vClear})
	if len(s.events) != 0 {
		t.Fatalf("expected no events, got %+v", s.events)
	}
}

func TestStreak_SkippedTickLeavesStateUntouched(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	tr.Tick(base, vBlank)
	tr.Tick(base.Add(1*time.Second), vClear) // budget 2 -> 1
	tr.Skip(base.Add(2*time.Second), errors.New("display server hiccup"))
	if len(s.events) != 1 || !tr.Active() {
		t.Fatalf("skip must not emit or close: events=%d active=%v", len(s.events), tr.Active())
	}
	// The skipped tick did not advance the budget either: one more clear
	// drains it.
	tr.Tick(base.Add(3*time.Second), vClear)
	if len(s.events) != 2 || s.events[1].Kind != Ended {
		t.Fatalf("expected Ended after second real clear, got %+v", s.events)
	}
	if tr.Skips() != 1 {
		t.Fatalf("expected 1 recorded skip, got %d", tr.Skips())
	}
}

func TestStreak_SkipBetweenBlanksEmitsNothing(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	tr.Tick(base, vBlank)
	tr.Skip(base.Add(1*time.Second), errors.New("timeout"))
	tr.Tick(base.Add(2*time.Second), vBlank)

	if len(s.events) != 1 {
		t.Fatalf("expected exactly the Started event, got %+v", s.events)
	}
}

func TestTracker_FlushClosesOpenEpisode(t *testing.T) {
	s := &recSink{}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	tr.Tick(base, vBlank)
	tr.Flush(base.Add(5 * time.Second))

	if len(s.events) != 2 || s.events[1].Kind != Ended {
		t.Fatalf("expected Started+Ended, got %+v", s.events)
	}
	if s.events[1].Duration != 5*time.Second {
		t.Fatalf("expected flushed duration 5s, got %v", s.events[1].Duration)
	}
	if tr.Active() {
		t.Fatal("tracker should be idle after flush")
	}
	// Flushing an idle tracker is a no-op.
	tr.Flush(base.Add(6 * time.Second))
	if len(s.events) != 2 {
		t.Fatalf("idle flush emitted events: %+v", s.events)
	}
}

func TestTracker_SinkFailureDoesNotCorruptState(t *testing.T) {
	s := &recSink{err: errors.New("disk full")}
	tr := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	tr.Tick(base, vBlank)
	if !tr.Active() {
		t.Fatal("episode should open even when the sink fails")
	}
	feed(tr, base.Add(time.Second), []Verdict{vClear, vClear})
	if tr.Active() {
		t.Fatal("episode should close despite sink failures")
	}
	if len(s.events) != 2 {
		t.Fatalf("every transition still reaches the sink once: %+v", s.events)
	}
}

func TestTracker_TwoRegionsDoNotInterfere(t *testing.T) {
	s := &recSink{}
	tr0 := NewTracker(testRegion(0, "HDMI-1"), NewStreakPolicy(2), s, discardLogger)
	tr1 := NewTracker(testRegion(1, "DP-1"), NewStreakPolicy(2), s, discardLogger)
	base := time.Now()

	for i := 0; i < 4; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		tr0.Tick(now, vBlank)
		tr1.Skip(now, errors.New("capture failed"))
	}

	if len(s.events) != 1 || s.events[0].RegionID != 0 {
		t.Fatalf("expected one event from region 0 only, got %+v", s.events)
	}
	if tr1.Active() {
		t.Fatal("failing region must stay idle")
	}
	if tr1.Skips() != 4 {
		t.Fatalf("expected 4 skips on region 1, got %d", tr1.Skips())
	}
}

func TestWindow_ConfirmationBackdatesStart(t *testing.T) {
	s := &recSink{}
	p := NewWindowPolicy(60*time.Second, 2, 2, 16)
	tr := NewTracker(testRegion(0, "HDMI-1"), p, s, discardLogger)
	base := time.Now()

	tr.Tick(base, vPossible)
	if len(s.events) != 0 {
		t.Fatalf("single candidate must not escalate: %+v", s.events)
	}
	if !tr.Burst() {
		t.Fatal("unconfirmed candidate should demand burst sampling")
	}

	tr.Tick(base.Add(2*time.Second), vBlank)
	if len(s.events) != 1 || s.events[0].Kind != Started {
		t.Fatalf("expected confirmation Started, got %+v", s.events)
	}
	if !s.events[0].Timestamp.Equal(base) {
		t.Fatalf("start must back-date to the first candidate: got %v want %v",
			s.events[0].Timestamp, base)
	}
	if tr.Burst() {
		t.Fatal("burst demand should stop once confirmed")
	}

	// Clear budget of 2 closes the episode.
	tr.Tick(base.Add(3*time.Second), vClear)
	tr.Tick(base.Add(4*time.Second), vClear)
	if len(s.events) != 2 || s.events[1].Kind != Ended {
		t.Fatalf("expected Ended, got %+v", s.events)
	}
	if got := s.events[1].Duration; got != 4*time.Second {
		t.Fatalf("duration should span from first candidate: got %v", got)
	}
}

func TestWindow_CandidatesExpireWithoutConfirmation(t *testing.T) {
	s := &recSink{}
	p := NewWindowPolicy(60*time.Second, 2, 2, 16)
	tr := NewTracker(testRegion(0, "HDMI-1"), p, s, discardLogger)
	base := time.Now()

	tr.Tick(base, vPossible)
	// The second candidate lands after the first expired out of the window.
	tr.Tick(base.Add(61*time.Second), vPossible)
	if len(s.events) != 0 {
		t.Fatalf("expired candidates must not confirm: %+v", s.events)
	}
	// It starts a fresh candidate streak though.
	tr.Tick(base.Add(62*time.Second), vBlank)
	if len(s.events) != 1 || s.events[0].Kind != Started {
		t.Fatalf("expected fresh confirmation, got %+v", s.events)
	}
	if !s.events[0].Timestamp.Equal(base.Add(61 * time.Second)) {
		t.Fatalf("start must back-date to the surviving candidate, got %v", s.events[0].Timestamp)
	}
}

func TestWindow_FlushClosesConfirmedEpisode(t *testing.T) {
	s := &recSink{}
	p := NewWindowPolicy(60*time.Second, 2, 2, 16)
	tr := NewTracker(testRegion(0, "HDMI-1"), p, s, discardLogger)
	base := time.Now()

	tr.Tick(base, vBlank)
	tr.Tick(base.Add(time.Second), vBlank)
	tr.Flush(base.Add(10 * time.Second))

	if len(s.events) != 2 || s.events[1].Kind != Ended {
		t.Fatalf("expected Started+Ended, got %+v", s.events)
	}
	if s.events[1].Duration != 10*time.Second {
		t.Fatalf("expected duration from first candidate, got %v", s.events[1].Duration)
	}
}

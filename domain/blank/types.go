package blank

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Region is one rectangular capture area, usually a physical display.
// Immutable once enumerated for a run.
type Region struct {
	ID     int
	Name   string
	Bounds image.Rectangle
}

// Classification is the ternary per-frame result, ordered by severity.
type Classification int

const (
	Clear Classification = iota
	Possible
	Blank
)

func (c Classification) String() string {
	switch c {
	case Clear:
		return "clear"
	case Possible:
		return "possible"
	case Blank:
		return "blank"
	default:
		return "unknown"
	}
}

// Verdict is the classifier output for a single sampled frame.
type Verdict struct {
	Class    Classification
	BlackPct float64
	WhitePct float64
}

// BlankPct returns the dominant uniform fraction.
func (v Verdict) BlankPct() float64 {
	if v.WhitePct > v.BlackPct {
		return v.WhitePct
	}
	return v.BlackPct
}

// EventKind discriminates episode transitions.
type EventKind int

const (
	Started EventKind = iota
	Ended
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Event records one episode transition. Immutable after creation; emitted at
// most once per transition and handed to the sink exactly once.
type Event struct {
	EpisodeID  uuid.UUID
	RegionID   int
	RegionName string
	Kind       EventKind
	Timestamp  time.Time
	Duration   time.Duration // Ended only
	BlackPct   float64
	WhitePct   float64
}

// Sink durably records episode events. Implementations must be safe for
// concurrent Record calls from per-region workers in the same tick.
type Sink interface {
	Record(Event) error
}

// Policy is a debounce strategy: it consumes one classification per sampling
// tick and decides when an episode opens and closes. Implementations are
// stateful and not safe for concurrent use; each tracker owns one instance.
type Policy interface {
	// Observe processes one tick and returns zero or more transitions.
	Observe(now time.Time, v Verdict) []Event
	// Flush closes any open episode, for graceful shutdown.
	Flush(now time.Time) []Event
	// Burst reports whether the policy wants a shortened sampling interval.
	Burst() bool
}

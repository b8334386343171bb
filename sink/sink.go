// Package sink records episode events and operational notes to durable
// destinations: an append-only log file, syslog, and an optional
// representative-frame store.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// Severity classifies a durable log line. Episode starts are Critical,
// episode ends and lifecycle notes Info, capture failures Error.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Recorder is the full sink contract: episode events plus operational notes
// (startup, monitor detection, capture failures).
type Recorder interface {
	blank.Sink
	Note(sev Severity, line string) error
}

// formatEvent renders one event as a key=value log line in the blankwatch
// wire format, and picks its severity.
func formatEvent(ev blank.Event) (Severity, string) {
	switch ev.Kind {
	case blank.Started:
		return Critical, fmt.Sprintf(
			"monitor=%q blank_slot_timestamp=%q blank_slot_detected=1 black_pct=%.2f white_pct=%.2f episode=%s",
			ev.RegionName, ev.Timestamp.Format(time.RFC3339),
			ev.BlackPct, ev.WhitePct, ev.EpisodeID)
	case blank.Ended:
		return Info, fmt.Sprintf(
			"monitor=%q blank_slot_detected=0 blank_slot_timestamp=%q blank_slot_duration=%.1fs black_pct=%.2f white_pct=%.2f episode=%s",
			ev.RegionName, ev.Timestamp.Format(time.RFC3339),
			ev.Duration.Seconds(), ev.BlackPct, ev.WhitePct, ev.EpisodeID)
	default:
		return Warning, fmt.Sprintf("monitor=%q unknown_event_kind=%d", ev.RegionName, ev.Kind)
	}
}

// Log appends one line per event to a writer. Writes are serialized and
// line-buffered so concurrent per-region emitters never interleave records.
type Log struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	now    func() time.Time
}

// NewLog wraps an arbitrary writer, typically for tests.
func NewLog(w io.Writer) *Log {
	return &Log{w: bufio.NewWriter(w), now: time.Now}
}

// OpenLog opens (or creates) the log file for appending.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open log: %w", err)
	}
	l := NewLog(f)
	l.closer = f
	return l, nil
}

func (l *Log) Record(ev blank.Event) error {
	sev, line := formatEvent(ev)
	return l.write(sev, line)
}

func (l *Log) Note(sev Severity, line string) error {
	return l.write(sev, line)
}

func (l *Log) write(sev Severity, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintf(l.w, "%s - %s - blankwatch - %s\n",
		l.now().Format(time.RFC3339), sev, line); err != nil {
		return fmt.Errorf("sink: write log: %w", err)
	}
	// Flush per line: the log must be durable the moment an event lands.
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("sink: flush log: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying file, if any.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.w.Flush()
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Multi fans out to several recorders. Every recorder sees every event even
// when an earlier one fails; errors are joined.
type Multi struct {
	sinks []Recorder
}

func NewMulti(sinks ...Recorder) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Record(ev blank.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Note(sev Severity, line string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Note(sev, line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Recorder = (*Log)(nil)
	_ Recorder = (*Multi)(nil)
)

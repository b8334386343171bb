//go:build !windows && !plan9

package sink

import (
	"fmt"
	"log/syslog"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// Syslog forwards events and notes to the local syslog daemon. The writer
// serializes internally; severities map onto syslog priorities.
type Syslog struct {
	w *syslog.Writer
}

// NewSyslog connects to syslog with the given tag (typically "blankwatch").
func NewSyslog(tag string) (*Syslog, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("sink: syslog: %w", err)
	}
	return &Syslog{w: w}, nil
}

func (s *Syslog) Record(ev blank.Event) error {
	sev, line := formatEvent(ev)
	return s.send(sev, line)
}

func (s *Syslog) Note(sev Severity, line string) error {
	return s.send(sev, line)
}

func (s *Syslog) send(sev Severity, line string) error {
	switch sev {
	case Critical:
		return s.w.Crit(line)
	case Error:
		return s.w.Err(line)
	case Warning:
		return s.w.Warning(line)
	default:
		return s.w.Info(line)
	}
}

// Close releases the syslog connection.
func (s *Syslog) Close() error { return s.w.Close() }

var _ Recorder = (*Syslog)(nil)

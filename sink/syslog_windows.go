//go:build windows

package sink

import (
	"errors"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// Syslog is unavailable on Windows; NewSyslog always fails so the caller
// falls back to the file sink alone.
type Syslog struct{}

func NewSyslog(string) (*Syslog, error) {
	return nil, errors.New("sink: syslog not supported on this platform")
}

func (s *Syslog) Record(blank.Event) error    { return nil }
func (s *Syslog) Note(Severity, string) error { return nil }
func (s *Syslog) Close() error                { return nil }

package capture

import (
	"sync/atomic"
	"time"
)

// Stats summarises sampler behaviour for instrumentation.
type Stats struct {
	Captures uint64
	Failures uint64
	AvgGrab  time.Duration
}

type samplerCounters struct {
	captures  atomic.Uint64
	failures  atomic.Uint64
	grabNanos atomic.Uint64
}

func (c *samplerCounters) snapshot() Stats {
	captures := c.captures.Load()
	total := c.grabNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	return Stats{
		Captures: captures,
		Failures: c.failures.Load(),
		AvgGrab:  avg,
	}
}

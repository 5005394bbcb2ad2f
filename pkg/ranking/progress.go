package ranking

import "time"

// Progress is one comparison-completed event (spec §4.D).
type Progress struct {
	IDA      string
	IDB      string
	Direct   bool
	Latency  time.Duration
}

func (e *Engine) reportProgress(a, b string, direct bool, latency time.Duration) {
	if e.opts.OnProgress == nil {
		return
	}
	e.opts.OnProgress(Progress{IDA: a, IDB: b, Direct: direct, Latency: latency})
}

package scan

import "sync/atomic"

// Stats summarises session activity for instrumentation.
type Stats struct {
	Phase     Phase
	Opens     uint64
	Results   uint64
	Fallbacks uint64
	Passes    uint64
	Failures  map[ErrorKind]uint64
}

type counters struct {
	opens     atomic.Uint64
	results   atomic.Uint64
	fallbacks atomic.Uint64
	passes    atomic.Uint64
	failures  [numKinds]atomic.Uint64
}

const numKinds = int(KindDecoderInitFailure) + 1

func (c *counters) failed(k ErrorKind) {
	if int(k) >= 0 && int(k) < len(c.failures) {
		c.failures[k].Add(1)
	}
}

func (c *counters) snapshot(phase Phase) Stats {
	st := Stats{
		Phase:     phase,
		Opens:     c.opens.Load(),
		Results:   c.results.Load(),
		Fallbacks: c.fallbacks.Load(),
		Passes:    c.passes.Load(),
		Failures:  make(map[ErrorKind]uint64, len(c.failures)),
	}
	for i := range c.failures {
		st.Failures[ErrorKind(i)] = c.failures[i].Load()
	}
	return st
}

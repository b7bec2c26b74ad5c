package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of pipeline activity.
type Stats struct {
	// FramesSeen counts every frame delivered to ProcessFrame.
	FramesSeen uint64
	// SampledOut counts frames discarded by the sampling interval.
	SampledOut uint64
	// DroppedBusy counts qualifying frames discarded while a run was in
	// flight.
	DroppedBusy uint64
	// Runs counts dispatched pipeline runs, stream and still-image alike.
	Runs uint64
	// Failures counts abandoned runs.
	Failures uint64
	// TotalRunTime is the cumulative wall time of completed runs.
	TotalRunTime time.Duration
}

// counters accumulates pipeline activity with atomics so the producer
// callback, the worker, and readers never contend.
type counters struct {
	framesSeen  atomic.Uint64
	sampledOut  atomic.Uint64
	droppedBusy atomic.Uint64
	runs        atomic.Uint64
	failures    atomic.Uint64
	runTimeNs   atomic.Int64
}

func (c *counters) recordRun(elapsed time.Duration, failed bool) {
	c.runs.Add(1)
	if failed {
		c.failures.Add(1)
	}
	c.runTimeNs.Add(elapsed.Nanoseconds())
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesSeen:   c.framesSeen.Load(),
		SampledOut:   c.sampledOut.Load(),
		DroppedBusy:  c.droppedBusy.Load(),
		Runs:         c.runs.Load(),
		Failures:     c.failures.Load(),
		TotalRunTime: time.Duration(c.runTimeNs.Load()),
	}
}

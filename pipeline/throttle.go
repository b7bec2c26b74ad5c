package pipeline

import (
	"sync/atomic"
)

// Admission is the throttle's verdict for one delivered frame.
type Admission int

const (
	// AdmitRun lets the frame dispatch a pipeline run.
	AdmitRun Admission = iota
	// DropSampled discards a frame that does not fall on the sampling
	// interval.
	DropSampled
	// DropBusy discards a qualifying frame because a run is already in
	// flight. Frames are never queued: newest-accepted-or-dropped.
	DropBusy
)

// Throttle governs how camera frames are sampled and guarantees at most one
// postprocessing run in flight. Its only state is a persistent sample
// counter and a busy flag, both atomic and owned exclusively by the one
// Throttle instance created with its pipeline.
type Throttle struct {
	interval uint64
	counter  atomic.Uint64
	busy     atomic.Bool
}

// NewThrottle creates a throttle sampling every interval-th frame.
// Intervals below 1 are clamped to 1 (every frame qualifies).
func NewThrottle(sampleInterval int) *Throttle {
	if sampleInterval < 1 {
		sampleInterval = 1
	}
	return &Throttle{interval: uint64(sampleInterval)}
}

// Admit records one delivered frame and decides its fate. The busy
// transition is a compare-and-swap: two concurrent qualifying frames can
// never both dispatch, no matter how the producer callback and worker
// interleave.
func (t *Throttle) Admit() Admission {
	n := t.counter.Add(1)
	if n%t.interval != 0 {
		return DropSampled
	}
	if !t.busy.CompareAndSwap(false, true) {
		return DropBusy
	}
	return AdmitRun
}

// Release returns the throttle to Idle. It is called on every run exit
// path, success or failure.
func (t *Throttle) Release() {
	t.busy.Store(false)
}

// Busy reports whether a run is currently in flight.
func (t *Throttle) Busy() bool {
	return t.busy.Load()
}

// Frames reports how many frames have been delivered so far.
func (t *Throttle) Frames() uint64 {
	return t.counter.Load()
}

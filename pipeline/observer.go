package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fruitsight/go-ripeness/postprocess"
)

// Observer receives pipeline run lifecycle events. Per-frame failures are
// reported here instead of being propagated to the frame producer; the
// producer must never block or crash on a bad frame.
type Observer interface {
	// RunStarted fires when an admitted frame dispatches a run.
	RunStarted(runID uuid.UUID)
	// RunCompleted fires after a successful run has published its
	// detections.
	RunCompleted(runID uuid.UUID, detections []postprocess.Detection, elapsed time.Duration)
	// RunFailed fires when a run is abandoned: conversion failure,
	// inference failure, or timeout. The previously published detections
	// stay visible.
	RunFailed(runID uuid.UUID, err error)
}

// LogObserver logs run events with the standard logger. It is the default
// observer when none is configured.
type LogObserver struct{}

// RunStarted implements Observer.
func (LogObserver) RunStarted(runID uuid.UUID) {
	log.Printf("[pipeline] run %s started", runID)
}

// RunCompleted implements Observer.
func (LogObserver) RunCompleted(runID uuid.UUID, detections []postprocess.Detection, elapsed time.Duration) {
	log.Printf("[pipeline] run %s completed: %d detections in %s", runID, len(detections), elapsed)
}

// RunFailed implements Observer.
func (LogObserver) RunFailed(runID uuid.UUID, err error) {
	log.Printf("[pipeline] run %s failed: %v", runID, err)
}

package pipeline

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fruitsight/go-ripeness/images"
	"github.com/fruitsight/go-ripeness/inference"
	"github.com/fruitsight/go-ripeness/postprocess"
)

// Pipeline turns raw camera frames into published detection sets:
// YUV conversion, preprocessing, inference, decoding, and suppression, with
// at most one run in flight. The published set is a single-writer cell any
// number of readers may snapshot without coordination.
type Pipeline struct {
	engine    inference.Engine
	cfg       Config
	decoder   *postprocess.Decoder
	throttle  *Throttle
	observer  Observer
	stats     counters
	published atomic.Pointer[[]postprocess.Detection]
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithObserver replaces the default log-backed observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New builds a pipeline around a loaded engine. The configuration is
// validated against the engine's declared metadata exactly once here; a
// mismatch returns an error wrapping ErrConfiguration and no pipeline.
//
// Arguments:
//   - engine: The loaded inference engine.
//   - cfg: The externally settable pipeline configuration.
//   - opts: Optional overrides.
//
// Returns:
//   - *Pipeline: The ready pipeline, Idle.
//   - error: Configuration mismatches.
func New(engine inference.Engine, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(engine.Metadata()); err != nil {
		return nil, err
	}

	decoder, err := postprocess.NewDecoder(cfg.Layout, cfg.Labels, cfg.ConfidenceThreshold)
	if err != nil {
		return nil, errors.Wrap(ErrConfiguration, err.Error())
	}

	p := &Pipeline{
		engine:   engine,
		cfg:      cfg,
		decoder:  decoder,
		throttle: NewThrottle(cfg.SampleInterval),
		observer: LogObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessFrame accepts one camera frame from the capture callback. It never
// blocks: the frame is either discarded by the throttle or handed to a
// worker goroutine for one pipeline run. Errors inside the run are reported
// to the observer, never returned to the producer.
//
// Arguments:
//   - frame: The raw 4:2:0 frame. Ownership passes to the pipeline; the
//     producer must not reuse the plane buffers for an admitted frame.
//
// Returns:
//   - Admission: What happened to the frame, mostly useful for tests and
//     stats displays.
func (p *Pipeline) ProcessFrame(frame *images.Frame) Admission {
	p.stats.framesSeen.Add(1)

	admission := p.throttle.Admit()
	switch admission {
	case DropSampled:
		p.stats.sampledOut.Add(1)
	case DropBusy:
		p.stats.droppedBusy.Add(1)
	case AdmitRun:
		go p.run(frame)
	}
	return admission
}

// run executes one stream pipeline pass. The busy flag is released on every
// exit path; only a successful pass publishes.
func (p *Pipeline) run(frame *images.Frame) {
	defer p.throttle.Release()

	runID := uuid.New()
	start := time.Now()
	p.observer.RunStarted(runID)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RunTimeout)
	defer cancel()

	raster, err := images.ConvertYUV420(frame)
	if err != nil {
		p.finishRun(runID, nil, start, err)
		return
	}

	detections, err := p.execute(ctx, raster)
	p.finishRun(runID, detections, start, err)
}

func (p *Pipeline) finishRun(runID uuid.UUID, detections []postprocess.Detection, start time.Time, err error) {
	elapsed := time.Since(start)
	p.stats.recordRun(elapsed, err != nil)
	if err != nil {
		p.observer.RunFailed(runID, err)
		return
	}
	p.published.Store(&detections)
	p.observer.RunCompleted(runID, detections, elapsed)
}

// execute runs the shared tail of both paths: preprocess, infer, decode,
// suppress.
func (p *Pipeline) execute(ctx context.Context, raster *images.Raster) ([]postprocess.Detection, error) {
	tensor := inference.PrepareInput(raster, p.engine.Metadata().InputSize)

	output, err := p.engine.Infer(ctx, tensor)
	if err != nil {
		return nil, err
	}

	candidates, err := p.decoder.Decode(output)
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, p.cfg.IoUThreshold), nil
}

// ProcessImage runs the single-shot still-image path: the source is already
// a decoded raster, so the YUV conversion is skipped and no throttling state
// is touched. The result is returned to the caller and also published, so
// overlay readers see the still capture like any stream frame.
//
// Arguments:
//   - ctx: Cancels or bounds the run; the configured RunTimeout applies on
//     top of any caller deadline.
//   - img: The decoded still image.
//
// Returns:
//   - []postprocess.Detection: The suppressed detection set.
//   - error: Conversion-free per-run failures: inference error or timeout.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image) ([]postprocess.Detection, error) {
	runID := uuid.New()
	start := time.Now()
	p.observer.RunStarted(runID)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	detections, err := p.execute(ctx, images.RasterFromImage(img))
	p.finishRun(runID, detections, start, err)
	return detections, err
}

// Detections returns the most recently published detection set, nil before
// the first successful run. The returned slice is read-only by contract.
func (p *Pipeline) Detections() []postprocess.Detection {
	set := p.published.Load()
	if set == nil {
		return nil
	}
	return *set
}

// Stats returns a snapshot of pipeline activity counters.
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot()
}

// Throttle exposes the pipeline's throttle state for stats displays.
func (p *Pipeline) Throttle() *Throttle {
	return p.throttle
}

// Close releases the engine. In-flight runs are not cancelled; their
// eventual results are discarded by their callers.
func (p *Pipeline) Close() error {
	return p.engine.Close()
}

package pipeline

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsight/go-ripeness/images"
	"github.com/fruitsight/go-ripeness/inference"
	"github.com/fruitsight/go-ripeness/postprocess"
)

// stubEngine is an in-memory Engine returning a canned output tensor. When
// block is set, Infer waits for it (or the context) like a slow model.
type stubEngine struct {
	meta   inference.Metadata
	output []float32
	block  chan struct{}
	calls  atomic.Int32

	mu  sync.Mutex
	err error
}

func (e *stubEngine) Metadata() inference.Metadata { return e.meta }

func (e *stubEngine) Infer(ctx context.Context, t *inference.Tensor) (*inference.RawOutput, error) {
	e.calls.Add(1)
	if e.block != nil {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(inference.ErrInference, ctx.Err().Error())
		case <-e.block:
		}
	}
	e.mu.Lock()
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return inference.NewRawOutput(e.meta.AttributeCount, e.meta.AnchorCount, e.output)
}

func (e *stubEngine) Close() error { return nil }

func (e *stubEngine) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// newStubEngine builds an engine emitting one strong candidate (class 1)
// and one sub-threshold anchor, in the class-scores layout.
func newStubEngine() *stubEngine {
	meta := inference.Metadata{InputSize: 16, AttributeCount: 8, AnchorCount: 2}
	cols := [][]float32{
		{0.5, 0.5, 0.2, 0.2, 0.1, 0.9, 0.1, 0.1},
		{0.3, 0.3, 0.1, 0.1, 0.2, 0.1, 0.1, 0.1},
	}
	data := make([]float32, meta.AttributeCount*meta.AnchorCount)
	for i, col := range cols {
		for a, v := range col {
			data[a*meta.AnchorCount+i] = v
		}
	}
	return &stubEngine{meta: meta, output: data}
}

// recObserver records run events on channels so tests can synchronize on
// run completion without sleeping.
type recObserver struct {
	started   chan uuid.UUID
	completed chan []postprocess.Detection
	failed    chan error
}

func newRecObserver() *recObserver {
	return &recObserver{
		started:   make(chan uuid.UUID, 16),
		completed: make(chan []postprocess.Detection, 16),
		failed:    make(chan error, 16),
	}
}

func (o *recObserver) RunStarted(runID uuid.UUID) { o.started <- runID }
func (o *recObserver) RunCompleted(_ uuid.UUID, detections []postprocess.Detection, _ time.Duration) {
	o.completed <- detections
}
func (o *recObserver) RunFailed(_ uuid.UUID, err error) { o.failed <- err }

func (o *recObserver) waitCompleted(t *testing.T) []postprocess.Detection {
	t.Helper()
	select {
	case d := <-o.completed:
		return d
	case err := <-o.failed:
		t.Fatalf("run failed unexpectedly: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run completion")
	}
	return nil
}

func (o *recObserver) waitFailed(t *testing.T) error {
	t.Helper()
	select {
	case err := <-o.failed:
		return err
	case <-o.completed:
		t.Fatal("run succeeded unexpectedly")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run failure")
	}
	return nil
}

// testFrame builds a neutral gray 4:2:0 frame.
func testFrame(width, height int) *images.Frame {
	cw := (width + 1) / 2
	ch := (height + 1) / 2
	y := make([]byte, width*height)
	for i := range y {
		y[i] = 120
	}
	u := make([]byte, cw*ch)
	v := make([]byte, cw*ch)
	for i := range u {
		u[i] = 128
		v[i] = 128
	}
	return &images.Frame{
		Width:  width,
		Height: height,
		Y:      images.Plane{Data: y, RowStride: width, PixelStride: 1},
		U:      images.Plane{Data: u, RowStride: cw, PixelStride: 1},
		V:      images.Plane{Data: v, RowStride: cw, PixelStride: 1},
	}
}

func newTestPipeline(t *testing.T, engine inference.Engine, observer Observer, sampleInterval int) *Pipeline {
	t.Helper()
	cfg := validConfig()
	cfg.SampleInterval = sampleInterval
	p, err := New(engine, cfg, WithObserver(observer))
	require.NoError(t, err)
	return p
}

func waitIdle(t *testing.T, p *Pipeline) {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Throttle().Busy() },
		2*time.Second, time.Millisecond, "throttle never returned to Idle")
}

// TestPipelineStreamRunPublishes runs one admitted frame end to end and
// checks the published detection set.
func TestPipelineStreamRunPublishes(t *testing.T) {
	observer := newRecObserver()
	p := newTestPipeline(t, newStubEngine(), observer, 1)

	require.Nil(t, p.Detections(), "nothing published before the first run")
	require.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))

	detections := observer.waitCompleted(t)
	require.Len(t, detections, 1)
	assert.Equal(t, "semi_ripe", detections[0].Label)
	assert.InDelta(t, 0.9, detections[0].Score, 1e-6)

	assert.Equal(t, detections, p.Detections())
	waitIdle(t, p)

	stats := p.Stats()
	assert.EqualValues(t, 1, stats.FramesSeen)
	assert.EqualValues(t, 1, stats.Runs)
	assert.EqualValues(t, 0, stats.Failures)
}

// TestPipelineFailureKeepsPublished verifies a failed run releases the busy
// flag and leaves the previous detection set visible.
func TestPipelineFailureKeepsPublished(t *testing.T) {
	engine := newStubEngine()
	observer := newRecObserver()
	p := newTestPipeline(t, engine, observer, 1)

	require.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))
	published := observer.waitCompleted(t)
	waitIdle(t, p)

	engine.setErr(errors.Wrap(inference.ErrInference, "engine exploded"))
	require.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))
	err := observer.waitFailed(t)
	assert.ErrorIs(t, err, inference.ErrInference)

	assert.Equal(t, published, p.Detections(), "failed run must not replace the published set")
	waitIdle(t, p)

	stats := p.Stats()
	assert.EqualValues(t, 2, stats.Runs)
	assert.EqualValues(t, 1, stats.Failures)
}

// TestPipelineRunTimeout verifies that a run outliving the configured
// timeout is abandoned as a failure and the throttle returns to Idle.
func TestPipelineRunTimeout(t *testing.T) {
	engine := newStubEngine()
	engine.block = make(chan struct{})
	defer close(engine.block)

	observer := newRecObserver()
	cfg := validConfig()
	cfg.SampleInterval = 1
	cfg.RunTimeout = 20 * time.Millisecond
	p, err := New(engine, cfg, WithObserver(observer))
	require.NoError(t, err)

	require.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))
	runErr := observer.waitFailed(t)
	assert.ErrorIs(t, runErr, inference.ErrInference)

	assert.Nil(t, p.Detections())
	waitIdle(t, p)
}

// TestPipelineOverloadDropsQualifyingFrames reproduces the overload
// scenario: frame #5 starts a long run, frames #6-#9 fall off the sampling
// interval, frame #10 qualifies but is dropped while Busy, and the next
// qualifying frame after completion dispatches again.
func TestPipelineOverloadDropsQualifyingFrames(t *testing.T) {
	engine := newStubEngine()
	engine.block = make(chan struct{})

	observer := newRecObserver()
	p := newTestPipeline(t, engine, observer, 5)

	for frame := 1; frame <= 4; frame++ {
		require.Equal(t, DropSampled, p.ProcessFrame(testFrame(32, 24)))
	}
	require.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))
	<-observer.started

	for frame := 6; frame <= 9; frame++ {
		require.Equal(t, DropSampled, p.ProcessFrame(testFrame(32, 24)))
	}
	require.Equal(t, DropBusy, p.ProcessFrame(testFrame(32, 24)))

	close(engine.block)
	observer.waitCompleted(t)
	waitIdle(t, p)

	for frame := 11; frame <= 14; frame++ {
		require.Equal(t, DropSampled, p.ProcessFrame(testFrame(32, 24)))
	}
	assert.Equal(t, AdmitRun, p.ProcessFrame(testFrame(32, 24)))
	observer.waitCompleted(t)
	waitIdle(t, p)

	stats := p.Stats()
	assert.EqualValues(t, 15, stats.FramesSeen)
	assert.EqualValues(t, 12, stats.SampledOut)
	assert.EqualValues(t, 1, stats.DroppedBusy)
	assert.EqualValues(t, 2, stats.Runs)
}

// TestPipelineStillImage runs the single-shot path and checks it bypasses
// the throttle entirely.
func TestPipelineStillImage(t *testing.T) {
	observer := newRecObserver()
	p := newTestPipeline(t, newStubEngine(), observer, 5)

	still := image.NewRGBA(image.Rect(0, 0, 48, 36))
	detections, err := p.ProcessImage(context.Background(), still)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, "semi_ripe", detections[0].Label)

	observer.waitCompleted(t)
	assert.EqualValues(t, 0, p.Throttle().Frames(), "still path must not touch throttle state")
	assert.Equal(t, detections, p.Detections())
}

// TestPipelineConversionFailure feeds a malformed frame: the run fails with
// the conversion error kind and nothing is published.
func TestPipelineConversionFailure(t *testing.T) {
	engine := newStubEngine()
	observer := newRecObserver()
	p := newTestPipeline(t, engine, observer, 1)

	bad := testFrame(32, 24)
	bad.U.Data = nil
	require.Equal(t, AdmitRun, p.ProcessFrame(bad))

	err := observer.waitFailed(t)
	assert.ErrorIs(t, err, images.ErrFrameConversion)
	assert.Nil(t, p.Detections())
	assert.EqualValues(t, 0, engine.calls.Load(), "inference must not run on a rejected frame")
	waitIdle(t, p)
}

// TestPipelineRefusesBadConfiguration verifies construction fails once, at
// load, when the declared metadata cannot match the configured layout.
func TestPipelineRefusesBadConfiguration(t *testing.T) {
	engine := newStubEngine()
	cfg := validConfig()
	cfg.Layout = postprocess.LayoutObjectness // needs 9 attributes, model has 8

	_, err := New(engine, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

package inference

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures the ONNX Runtime engine adapter.
type ONNXConfig struct {
	// ModelPath points at the .onnx model file.
	ModelPath string
	// LibraryPath overrides the platform default ONNX Runtime shared
	// library location. Optional.
	LibraryPath string
	// Metadata is the model's declared shape contract. The session's fixed
	// input and output tensors are allocated from it.
	Metadata Metadata
	// InputName and OutputName are the model's tensor names. Defaults:
	// "images" / "output0".
	InputName  string
	OutputName string
}

// onnxEngine runs a fixed-shape ONNX session. Input shape [1, S, S, 3],
// output shape [1, attributes, anchors], both owned by the session for its
// whole lifetime.
type onnxEngine struct {
	meta    Metadata
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

var ortInitOnce sync.Once

// NewONNXEngine loads a model into an ONNX Runtime session and returns it
// behind the Engine interface.
//
// Arguments:
//   - cfg: Model path, declared metadata, and optional runtime overrides.
//
// Returns:
//   - Engine: The ready engine.
//   - error: Library, model, or shape setup failures.
func NewONNXEngine(cfg ONNXConfig) (Engine, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}
	meta := cfg.Metadata
	if meta.InputSize <= 0 || meta.AttributeCount <= 0 || meta.AnchorCount <= 0 {
		return nil, errors.Errorf("incomplete model metadata %+v", meta)
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = defaultSharedLibPath()
	}
	var initErr error
	ortInitOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "initializing ONNX Runtime environment")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(meta.InputSize), int64(meta.InputSize), 3))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	outputTensor, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(meta.AttributeCount), int64(meta.AnchorCount)))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	inputName := cfg.InputName
	if inputName == "" {
		inputName = "images"
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = "output0"
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(err, "creating session for %s", cfg.ModelPath)
	}

	return &onnxEngine{
		meta:    meta,
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Metadata reports the declared model contract.
func (e *onnxEngine) Metadata() Metadata { return e.meta }

// waitRun blocks until the in-flight session run finishes or ctx expires,
// whichever comes first. The caller must hold mu. On expiry the abandoned
// run still owns the session's fixed tensors, so mu is handed to a drain
// goroutine that unlocks it only when the run returns; the caller must not
// unlock mu on that path. The second return reports whether the run
// finished in time.
func waitRun(ctx context.Context, mu *sync.Mutex, done <-chan error) (error, bool) {
	select {
	case <-ctx.Done():
		go func() {
			<-done
			mu.Unlock()
		}()
		return ctx.Err(), false
	case err := <-done:
		return err, true
	}
}

// Infer copies the prepared tensor into the session input, runs one forward
// pass off-goroutine so the context deadline stays enforceable, and copies
// the session output into a fresh RawOutput. There is no cancellation of the
// underlying run; a timed-out run holds the session lock until it drains,
// so the next Infer or Close can never touch the fixed tensors while the
// stale run is still using them, and its eventual result is discarded.
func (e *onnxEngine) Infer(ctx context.Context, t *Tensor) (*RawOutput, error) {
	e.mu.Lock()

	if t.Size != e.meta.InputSize || len(t.Data) != t.Len() {
		e.mu.Unlock()
		return nil, errors.Wrapf(ErrInference,
			"input tensor edge %d does not match model input %d", t.Size, e.meta.InputSize)
	}
	copy(e.input.GetData(), t.Data)

	done := make(chan error, 1)
	go func() {
		done <- e.session.Run()
	}()

	runErr, finished := waitRun(ctx, &e.mu, done)
	if !finished {
		// waitRun keeps e.mu held until the abandoned run drains.
		return nil, errors.Wrap(ErrInference, runErr.Error())
	}
	defer e.mu.Unlock()
	if runErr != nil {
		return nil, errors.Wrap(ErrInference, runErr.Error())
	}

	data := make([]float32, e.meta.AttributeCount*e.meta.AnchorCount)
	copy(data, e.output.GetData())
	out, err := NewRawOutput(e.meta.AttributeCount, e.meta.AnchorCount, data)
	if err != nil {
		return nil, errors.Wrap(ErrInference, err.Error())
	}
	return out, nil
}

// Close releases the session and its fixed tensors. Taking the session lock
// makes it wait behind any abandoned run before destroying the tensors that
// run is still using.
func (e *onnxEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return errors.Wrap(err, "destroying ONNX session")
		}
		e.session = nil
	}
	return nil
}

// defaultSharedLibPath returns the ONNX Runtime shared library location for
// the current platform.
func defaultSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

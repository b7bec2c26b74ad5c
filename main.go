package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/fruitsight/go-ripeness/inference"
	"github.com/fruitsight/go-ripeness/pipeline"
	"github.com/fruitsight/go-ripeness/postprocess"
	"github.com/fruitsight/go-ripeness/util"
)

const (
	// DefaultModelPath is the bundled ripeness model.
	DefaultModelPath = "ripeness.onnx"
	// DefaultRunTimeout bounds a single pipeline run.
	DefaultRunTimeout = 2 * time.Second
)

func main() {
	var (
		modelPath  = flag.String("model", DefaultModelPath, "Path to the ONNX detection model")
		libPath    = flag.String("ort-lib", "", "Override path to the ONNX Runtime shared library")
		labelsPath = flag.String("labels", "", "Label file (one class per line); defaults to the ripeness set")
		layoutName = flag.String("layout", string(postprocess.LayoutClassScores),
			"Model output layout: class-scores or objectness")
		inputSize  = flag.Int("input-size", 640, "Model input edge length (from the model card)")
		anchors    = flag.Int("anchors", 8400, "Model anchor count (from the model card)")
		confidence = flag.Float64("confidence", 0.5, "Confidence threshold (strictly greater keeps)")
		iou        = flag.Float64("iou", 0.45, "IoU suppression threshold")
		timeout    = flag.Duration("timeout", DefaultRunTimeout, "Per-run timeout")
		dir        = flag.String("dir", "snapshots", "Directory of frame-N.jpg/png snapshots to process")
	)
	flag.Parse()

	labels := postprocess.RipenessLabels
	if *labelsPath != "" {
		loaded, err := postprocess.LoadLabels(*labelsPath)
		if err != nil {
			log.Fatalf("loading labels: %v", err)
		}
		labels = loaded
	}

	layout := postprocess.Layout(*layoutName)
	engine, err := inference.NewONNXEngine(inference.ONNXConfig{
		ModelPath:   *modelPath,
		LibraryPath: *libPath,
		Metadata: inference.Metadata{
			InputSize:      *inputSize,
			AttributeCount: layout.ScoreOffset() + len(labels),
			AnchorCount:    *anchors,
		},
	})
	if err != nil {
		log.Fatalf("loading model %s: %v", *modelPath, err)
	}

	pipe, err := pipeline.New(engine, pipeline.Config{
		ConfidenceThreshold: float32(*confidence),
		IoUThreshold:        float32(*iou),
		SampleInterval:      1,
		Layout:              layout,
		RunTimeout:          *timeout,
		Labels:              labels,
	})
	if err != nil {
		log.Fatalf("building pipeline: %v", err)
	}
	defer pipe.Close()

	snapshots, err := util.LoadSnapshotDir(*dir)
	if err != nil {
		log.Fatalf("loading snapshots: %v", err)
	}
	if len(snapshots) == 0 {
		log.Fatalf("no frame-N snapshots found in %s", *dir)
	}

	for _, snapshot := range snapshots {
		detections, err := pipe.ProcessImage(context.Background(), snapshot.Image)
		if err != nil {
			log.Printf("frame %d (%s): run failed: %v", snapshot.Frame, snapshot.Path, err)
			continue
		}

		log.Printf("frame %d (%s): %d detections", snapshot.Frame, snapshot.Path, len(detections))
		for _, d := range detections {
			log.Printf("  %s", d)
		}
	}

	stats := pipe.Stats()
	log.Printf("processed %d runs (%d failed) in %s total",
		stats.Runs, stats.Failures, stats.TotalRunTime)
}

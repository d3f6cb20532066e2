// calibcam solves camera intrinsics from footage of a ChArUco board: pull
// frames from a video, camera, or image directory, detect board corners,
// gate each frame on detection quality, then hand the accumulated
// correspondences to the calibration solver and persist the result.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"calibcam/artifact"
	"calibcam/board"
	"calibcam/calib"
	"calibcam/detect"
	"calibcam/gate"
	"calibcam/pipeline"
	"calibcam/source"
)

var (
	input  = flag.String("input", "", "Frame source (required)\n\t\tcamera index (\"0\"), video file, image directory, glob, or single image")
	outDir = flag.String("o", "calib_out", "Output directory for calibration artifacts")

	boardCols  = flag.Int("sx", 4, "Board squares along X")
	boardRows  = flag.Int("sy", 6, "Board squares along Y")
	squareMM   = flag.Float64("square-mm", 40.0, "Square side length in millimeters")
	markerFrac = flag.Float64("marker-frac", 0.8, "Marker side as a fraction of the square side")
	dictName   = flag.String("dict", "DICT_6X6_1000", "ArUco dictionary name, e.g. DICT_6X6_1000")
	legacy     = flag.Bool("legacy", true, "Use the legacy board layout (marker parity flipped)")

	minCorners  = flag.Int("min-corners", 12, "Minimum detected interior corners to accept a frame")
	minAreaFrac = flag.Float64("min-area-frac", 0, "Minimum board bounding-box area as a fraction of the frame (<=0 disables)")
	minFrames   = flag.Int("min-frames", 12, "Minimum accepted frames required before the solver runs")

	frameStep = flag.Int("frame-step", 1, "Process every Nth frame of a video source")
	maxFrames = flag.Int("max-frames", 500, "Hard cap on frames pulled from the source (<=0 disables)")

	calibFlags = flag.String("calib-flags", "", "Comma-separated solver flags (default: rational,zero-tangent)\n\t\tExample: -calib-flags=rational,fix-k3")

	showPreview = flag.Bool("show", false, "Show a live preview window with detection overlays (ESC or q stops acquisition early)")
	debugMode   = flag.Bool("debug", false, "Enable detailed per-stage diagnostics")
)

// debugMsg prints a component-tagged diagnostic line. Injected into every
// library package so their output shares one format.
func debugMsg(component, message string) {
	fmt.Printf("[%s][%s] %s\n", time.Now().Format("15:04:05.000"), component, message)
}

func fail(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(code)
}

func main() {
	flag.Parse()

	if *input == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	source.SetDebugFunction(debugMsg)
	calib.SetDebugFunction(debugMsg)
	artifact.SetDebugFunction(debugMsg)
	pipeline.SetDebugFunction(debugMsg)
	if *debugMode {
		detect.SetDebugFunction(debugMsg)
	}

	dict, err := board.ParseDictionary(*dictName)
	if err != nil {
		fail(1, "%v", err)
	}
	b, err := board.New(*boardCols, *boardRows, *squareMM, *markerFrac, dict, *legacy)
	if err != nil {
		fail(1, "invalid board: %v", err)
	}
	debugMsg("MAIN", fmt.Sprintf("board: %s", b))

	flags, err := calib.ParseFlags(*calibFlags)
	if err != nil {
		fail(1, "%v", err)
	}

	src, err := source.Open(*input, source.Options{FrameStep: *frameStep, MaxFrames: *maxFrames})
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			fail(1, "cannot open source %q: %v", *input, err)
		}
		fail(1, "%v", err)
	}
	defer src.Close()
	debugMsg("MAIN", fmt.Sprintf("source: %s", src.Describe()))

	adapter, info, err := detect.NewAdapter(b, detect.DefaultParams())
	if err != nil {
		if errors.Is(err, detect.ErrUnsupported) {
			fail(3, "no usable detection backend: %v", err)
		}
		fail(3, "%v", err)
	}
	defer adapter.Close()
	debugMsg("MAIN", fmt.Sprintf("detection backend: %s", info.Name))

	cfg := pipeline.Config{
		Thresholds:  gate.Thresholds{MinCorners: *minCorners, MinAreaFraction: *minAreaFrac},
		MinFrames:   *minFrames,
		Flags:       flags,
		ShowPreview: *showPreview,
	}
	deps := pipeline.Deps{
		Source:  src,
		Adapter: adapter,
		Invoker: calib.NewInvoker(),
		Sink:    artifact.NewWriter(*outDir),
		Board:   b,
	}

	out, err := pipeline.Run(cfg, deps)
	if err != nil {
		if errors.Is(err, calib.ErrInsufficientFrames) {
			fail(2, "%v", err)
		}
		if errors.Is(err, calib.ErrImageSizeMismatch) {
			fail(2, "%v", err)
		}
		fail(4, "%v", err)
	}

	fmt.Printf("\n✅ Calibration complete: %d/%d frames accepted, rms %.4f px\n",
		out.FramesAccepted, out.FramesSeen, out.Result.RMS)
	fmt.Printf("💾 Results:\n  %s\n  %s\n  %s\n  %s\n",
		out.Paths.Bundle, out.Paths.Metadata, out.Paths.Matrix, out.Paths.Preview)
}

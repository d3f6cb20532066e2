// Batch pre-screening tool. Grades a directory of still captures against the
// calibration acceptance criteria without running the solver, so a capture
// session can be culled before calibration.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"calibcam/board"
	"calibcam/detect"
	"calibcam/gate"
	"calibcam/source"
)

var (
	imageDir  = flag.String("dir", "", "Directory of capture images to screen (required)")
	outDir    = flag.String("o", "", "Output directory for annotated debug images and reports (default: <dir>/prescreen)")
	recursive = flag.Bool("recursive", false, "Descend into subdirectories of -dir")

	minCorners  = flag.Int("min-corners", 12, "Minimum detected interior corners to accept an image")
	minAreaFrac = flag.Float64("min-area-frac", 0.08, "Minimum board bounding-box area as a fraction of the frame (<=0 disables)")

	boardCols  = flag.Int("sx", 4, "Board squares along X")
	boardRows  = flag.Int("sy", 6, "Board squares along Y")
	squareMM   = flag.Float64("square-mm", 40.0, "Square side length in millimeters")
	markerFrac = flag.Float64("marker-frac", 0.8, "Marker side as a fraction of the square side")
	dictName   = flag.String("dict", "DICT_6X6_1000", "ArUco dictionary name, e.g. DICT_6X6_1000")
	legacy     = flag.Bool("legacy", true, "Use the legacy board layout (marker parity flipped)")

	csvPath   = flag.String("csv", "", "Write per-image verdicts to this CSV file")
	htmlPath  = flag.String("html", "", "Write an interactive HTML report to this file")
	noDebug   = flag.Bool("no-debug-images", false, "Skip writing annotated debug copies")
	debugMode = flag.Bool("debug", false, "Print detection diagnostics")
)

func main() {
	flag.Parse()

	if *imageDir == "" {
		fmt.Println("❌ -dir is required")
		flag.Usage()
		os.Exit(1)
	}

	if *debugMode {
		detect.SetDebugFunction(func(component, message string) {
			fmt.Printf("[%s] [%s] %s\n", time.Now().Format("15:04:05.000"), component, message)
		})
	}

	dict, err := board.ParseDictionary(*dictName)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	b, err := board.New(*boardCols, *boardRows, *squareMM, *markerFrac, dict, *legacy)
	if err != nil {
		fmt.Printf("❌ invalid board: %v\n", err)
		os.Exit(1)
	}

	adapter, info, err := detect.NewAdapter(b, detect.DefaultParams())
	if err != nil {
		if errors.Is(err, detect.ErrUnsupported) {
			fmt.Printf("❌ no usable detection backend: %v\n", err)
			os.Exit(3)
		}
		fmt.Printf("❌ %v\n", err)
		os.Exit(3)
	}
	defer adapter.Close()
	fmt.Printf("🔍 Detection backend: %s\n", info.Name)

	dest := *outDir
	if dest == "" {
		dest = filepath.Join(*imageDir, "prescreen")
	}
	if !*noDebug || *csvPath != "" || *htmlPath != "" {
		if err := os.MkdirAll(dest, 0755); err != nil {
			fmt.Printf("❌ failed to create output directory: %v\n", err)
			os.Exit(4)
		}
	}

	ev := &Evaluator{
		Adapter:    adapter,
		Thresholds: gate.Thresholds{MinCorners: *minCorners, MinAreaFraction: *minAreaFrac},
	}
	if !*noDebug {
		ev.OutDir = dest
	}

	report, err := ev.EvaluateDir(*imageDir, *recursive)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n📊 Screened %d images: ✅ %d accepted, ❌ %d rejected\n",
		report.Total, report.Accepted, report.Rejected)
	for _, row := range report.Rows {
		verdict := "❌"
		if row.Accepted {
			verdict = "✅"
		}
		fmt.Printf("  %s %-40s corners=%-3d area=%.3f\n",
			verdict, filepath.Base(row.File), row.Corners, row.AreaFraction)
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, report); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(4)
		}
		fmt.Printf("💾 CSV report: %s\n", *csvPath)
	}
	if *htmlPath != "" {
		if err := writeHTML(*htmlPath, report, *minCorners); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(4)
		}
		fmt.Printf("💾 HTML report: %s\n", *htmlPath)
	}
}

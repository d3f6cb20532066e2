package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"calibcam/detect"
	"calibcam/gate"
	"calibcam/overlay"
	"calibcam/source"
)

// Row is the per-image verdict.
type Row struct {
	File         string
	Accepted     bool
	Corners      int
	AreaFraction float64
	DebugImage   string
}

// Report tallies a whole directory.
type Report struct {
	Total    int
	Accepted int
	Rejected int
	Rows     []Row
}

// Evaluator screens still images against the acceptance criteria without
// running the solver, so a capture session can be graded before calibration.
type Evaluator struct {
	Adapter    detect.Adapter
	Thresholds gate.Thresholds

	// OutDir receives the annotated debug copies; empty disables them.
	OutDir string
}

// EvaluateDir screens every image under dir and returns the tally. Images
// that fail to decode are counted as rejected with zero corners.
func (e *Evaluator) EvaluateDir(dir string, recursive bool) (*Report, error) {
	files, err := source.ListImages(dir, recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found under %s", dir)
	}

	report := &Report{}
	for _, file := range files {
		row := e.evaluateFile(file)
		report.Rows = append(report.Rows, row)
	}
	tally(report)
	return report, nil
}

func (e *Evaluator) evaluateFile(file string) Row {
	row := Row{File: file}

	img := gocv.IMRead(file, gocv.IMReadColor)
	if img.Empty() {
		fmt.Printf("⚠️  %s: failed to decode, counted as rejected\n", filepath.Base(file))
		return row
	}
	defer img.Close()

	res, err := e.Adapter.Detect(img)
	if err != nil {
		fmt.Printf("⚠️  %s: detection failed: %v\n", filepath.Base(file), err)
		return row
	}

	decision := gate.Evaluate(res, img.Cols(), img.Rows(), e.Thresholds)
	row.Accepted = decision.Accepted
	row.Corners = decision.CornerCount
	row.AreaFraction = decision.AreaFraction

	if e.OutDir != "" {
		row.DebugImage = debugImagePath(e.OutDir, file)
		overlay.Annotate(&img, res, decision, e.Thresholds)
		if !gocv.IMWrite(row.DebugImage, img) {
			fmt.Printf("⚠️  %s: failed to save debug image\n", filepath.Base(file))
			row.DebugImage = ""
		}
	}
	return row
}

// tally recomputes the summary counters from the rows.
func tally(r *Report) {
	r.Total = len(r.Rows)
	r.Accepted = 0
	for _, row := range r.Rows {
		if row.Accepted {
			r.Accepted++
		}
	}
	r.Rejected = r.Total - r.Accepted
}

// debugImagePath maps an input image to its annotated copy under outDir.
func debugImagePath(outDir, file string) string {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"_board_debug.jpg")
}

// Package artifact persists calibration results in three co-written forms:
// a compressed numeric bundle, a human-readable metadata record, and a
// minimal matrix-only interchange file, plus an undistortion preview image.
package artifact

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"calibcam/board"
	"calibcam/calib"
)

// Global debug function for the artifact package, injected by main.
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide its debug function.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Paths lists everything one Write produced.
type Paths struct {
	Bundle   string
	Metadata string
	Matrix   string
	Preview  string
}

// Writer persists calibration runs under OutDir. Filenames are timestamped so
// repeated runs never overwrite earlier results.
type Writer struct {
	OutDir string

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewWriter creates a writer targeting outDir. The directory is created on
// first use.
func NewWriter(outDir string) *Writer {
	return &Writer{OutDir: outDir, now: time.Now}
}

// bundle is the full numeric payload, gzip-compressed on disk.
type bundle struct {
	CameraMatrix  [3][3]float64 `json:"camera_matrix"`
	DistCoeffs    []float64     `json:"dist_coeffs"`
	Rotations     [][3]float64  `json:"rvecs,omitempty"`
	Translations  [][3]float64  `json:"tvecs,omitempty"`
	PerViewErrors []float64     `json:"per_view_errors,omitempty"`
	RMS           float64       `json:"rms"`
	ImageSize     [2]int        `json:"image_size"`
	Squares       [2]int        `json:"squares"`
	SquareMM      float64       `json:"square_mm"`
	MarkerMM      float64       `json:"marker_mm"`
	Dictionary    string        `json:"dict"`
	LegacyLayout  bool          `json:"legacy"`
	Flags         int64         `json:"flags"`
	FramesUsed    int           `json:"frames_used"`
}

// metadata is the human-readable record mirroring the bundle.
type metadata struct {
	RunID        string        `json:"run_id"`
	Timestamp    string        `json:"timestamp"`
	Source       string        `json:"source,omitempty"`
	RMS          float64       `json:"rms"`
	CameraMatrix [3][3]float64 `json:"camera_matrix"`
	DistCoeffs   []float64     `json:"dist_coeffs"`
	PerViewStats *viewStats    `json:"per_view_errors,omitempty"`
	ImageSize    [2]int        `json:"image_size"`
	Board        boardMeta     `json:"board"`
	Flags        string        `json:"flags"`
	FramesUsed   int           `json:"frames_used"`
}

type viewStats struct {
	Values []float64 `json:"values"`
}

type boardMeta struct {
	Columns      int     `json:"columns"`
	Rows         int     `json:"rows"`
	SquareMM     float64 `json:"square_mm"`
	MarkerMM     float64 `json:"marker_mm"`
	Dictionary   string  `json:"dict"`
	LegacyLayout bool    `json:"legacy"`
}

func (w *Writer) pathsFor(ts string) Paths {
	return Paths{
		Bundle:   filepath.Join(w.OutDir, fmt.Sprintf("calib_%s.json.gz", ts)),
		Metadata: filepath.Join(w.OutDir, fmt.Sprintf("calib_%s.json", ts)),
		Matrix:   filepath.Join(w.OutDir, fmt.Sprintf("calib_%s.xml", ts)),
		Preview:  filepath.Join(w.OutDir, fmt.Sprintf("undistort_preview_%s.jpg", ts)),
	}
}

// Write persists the result. sourceDesc names the frame source for the
// metadata record; it carries no numeric weight.
func (w *Writer) Write(res *calib.Result, b *board.Descriptor, sourceDesc string) (Paths, error) {
	if err := os.MkdirAll(w.OutDir, 0755); err != nil {
		return Paths{}, fmt.Errorf("failed to create output directory: %v", err)
	}
	paths := w.pathsFor(w.now().Format("20060102_150405"))

	if err := w.writeBundle(paths.Bundle, res, b); err != nil {
		return Paths{}, err
	}
	if err := w.writeMetadata(paths.Metadata, res, b, sourceDesc); err != nil {
		return Paths{}, err
	}
	if err := writeOpenCVMatrix(paths.Matrix, res); err != nil {
		return Paths{}, err
	}
	if err := writePreview(paths.Preview, res); err != nil {
		return Paths{}, err
	}

	debugMsg("ARTIFACT", fmt.Sprintf("saved %s", paths.Bundle))
	debugMsg("ARTIFACT", fmt.Sprintf("saved %s", paths.Metadata))
	debugMsg("ARTIFACT", fmt.Sprintf("saved %s", paths.Matrix))
	debugMsg("ARTIFACT", fmt.Sprintf("saved %s", paths.Preview))
	return paths, nil
}

func (w *Writer) writeBundle(path string, res *calib.Result, b *board.Descriptor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	err = enc.Encode(bundle{
		CameraMatrix:  res.CameraMatrix,
		DistCoeffs:    res.DistCoeffs,
		Rotations:     res.Rotations,
		Translations:  res.Translations,
		PerViewErrors: res.PerViewErrors,
		RMS:           res.RMS,
		ImageSize:     [2]int{res.ImageSize.X, res.ImageSize.Y},
		Squares:       [2]int{b.Columns, b.Rows},
		SquareMM:      b.CellSizeMM,
		MarkerMM:      b.MarkerSizeMM(),
		Dictionary:    b.Dictionary.String(),
		LegacyLayout:  b.LegacyLayout,
		Flags:         int64(res.Flags),
		FramesUsed:    res.FramesUsed,
	})
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %v", err)
	}
	return gz.Close()
}

func (w *Writer) writeMetadata(path string, res *calib.Result, b *board.Descriptor, sourceDesc string) error {
	meta := metadata{
		RunID:        uuid.New().String(),
		Timestamp:    w.now().Format(time.RFC3339),
		Source:       sourceDesc,
		RMS:          res.RMS,
		CameraMatrix: res.CameraMatrix,
		DistCoeffs:   res.DistCoeffs,
		ImageSize:    [2]int{res.ImageSize.X, res.ImageSize.Y},
		Board: boardMeta{
			Columns:      b.Columns,
			Rows:         b.Rows,
			SquareMM:     b.CellSizeMM,
			MarkerMM:     b.MarkerSizeMM(),
			Dictionary:   b.Dictionary.String(),
			LegacyLayout: b.LegacyLayout,
		},
		Flags:      res.Flags.String(),
		FramesUsed: res.FramesUsed,
	}
	if res.PerViewErrors != nil {
		meta.PerViewStats = &viewStats{Values: res.PerViewErrors}
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %v", err)
	}
	return nil
}

// Package detect wraps the vision library's board detectors behind one
// capability interface so callers never branch on which detector generation a
// given build exposes.
package detect

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// ErrUnsupported is returned when no usable detector backend is available in
// the underlying vision library build. Fatal, reported once at startup.
var ErrUnsupported = errors.New("no usable board detector available")

// Global debug function for the detect package, injected by main.
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

// Result is the output of one board detection. Corners and IDs are parallel
// slices; ids are unique within one result. Marker fields carry the raw
// marker detections for diagnostics and overlays only.
type Result struct {
	Corners []gocv.Point2f
	IDs     []int

	MarkerCorners [][]gocv.Point2f
	MarkerIDs     []int
}

// CornerCount returns the number of interpolated board corners.
func (r *Result) CornerCount() int {
	if r == nil {
		return 0
	}
	return len(r.Corners)
}

// Adapter is the capability interface over the detector backends. One
// implementation is selected at startup by feature probing and never
// re-checked per call.
type Adapter interface {
	// Detect finds board corners in a frame. A frame with no detectable
	// board yields an empty Result, not an error.
	Detect(frame gocv.Mat) (*Result, error)
	// Name identifies the active backend for logging.
	Name() string
	Close() error
}

// Params are the detector tuning knobs, exposed as named overridable options.
// Defaults favour small, low-contrast markers.
type Params struct {
	AdaptiveThreshWinSizeMin  int
	AdaptiveThreshWinSizeMax  int
	AdaptiveThreshWinSizeStep int
	AdaptiveThreshConstant    float64

	MinMarkerPerimeterRate      float64
	MaxMarkerPerimeterRate      float64
	PolygonalApproxAccuracyRate float64
	MinCornerDistanceRate       float64
	MinOtsuStdDev               float64

	PerspectiveRemovePixelPerCell         int
	PerspectiveRemoveIgnoredMarginPerCell float64

	CornerRefinementWinSize       int
	CornerRefinementMaxIterations int
	CornerRefinementMinAccuracy   float64

	// MinMarkers is the smallest number of decoded markers required before
	// corner interpolation is attempted.
	MinMarkers int
}

// DefaultParams returns the tuning used for small printed boards.
func DefaultParams() Params {
	return Params{
		AdaptiveThreshWinSizeMin:  3,
		AdaptiveThreshWinSizeMax:  23,
		AdaptiveThreshWinSizeStep: 10,
		AdaptiveThreshConstant:    7,

		MinMarkerPerimeterRate:      0.02,
		MaxMarkerPerimeterRate:      4.0,
		PolygonalApproxAccuracyRate: 0.03,
		MinCornerDistanceRate:       0.05,
		MinOtsuStdDev:               5.0,

		PerspectiveRemovePixelPerCell:         8,
		PerspectiveRemoveIgnoredMarginPerCell: 0.33,

		CornerRefinementWinSize:       5,
		CornerRefinementMaxIterations: 50,
		CornerRefinementMinAccuracy:   0.01,

		MinMarkers: 2,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.AdaptiveThreshWinSizeMin < 3 || p.AdaptiveThreshWinSizeMax < p.AdaptiveThreshWinSizeMin {
		return fmt.Errorf("invalid adaptive threshold window range %d..%d",
			p.AdaptiveThreshWinSizeMin, p.AdaptiveThreshWinSizeMax)
	}
	if p.MinMarkerPerimeterRate <= 0 || p.MaxMarkerPerimeterRate <= p.MinMarkerPerimeterRate {
		return fmt.Errorf("invalid marker perimeter rate bounds %.3f..%.3f",
			p.MinMarkerPerimeterRate, p.MaxMarkerPerimeterRate)
	}
	if p.CornerRefinementWinSize < 1 || p.CornerRefinementMaxIterations < 1 {
		return fmt.Errorf("invalid corner refinement settings win=%d iters=%d",
			p.CornerRefinementWinSize, p.CornerRefinementMaxIterations)
	}
	if p.MinMarkers < 1 {
		return fmt.Errorf("min markers must be >= 1, got %d", p.MinMarkers)
	}
	return nil
}

// BackendInfo describes the backend the probe selected.
type BackendInfo struct {
	Name      string
	ProbeTime time.Duration
}

// grayscale converts a frame to single-channel for detection, cloning when it
// already is grayscale so the caller keeps ownership of the input.
func grayscale(frame gocv.Mat) gocv.Mat {
	if frame.Channels() == 1 {
		return frame.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	return gray
}

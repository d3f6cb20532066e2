// Package calib accumulates accepted correspondences and invokes the
// calibration solver behind a facade.
package calib

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"calibcam/detect"
)

// ErrImageSizeMismatch is returned when a frame's resolution differs from the
// first accepted frame. All views in one calibration run must share one
// resolution; the run is aborted rather than silently mixing geometries.
var ErrImageSizeMismatch = errors.New("image size mismatch")

// ErrInsufficientFrames is returned by Finalize when fewer frames were
// accepted than the configured minimum. The solver is under-determined with
// too few independent views.
var ErrInsufficientFrames = errors.New("insufficient accepted frames")

// minFramesFloor is the hard lower bound below which the solver cannot run at
// all, whatever the configured minimum.
const minFramesFloor = 4

// View holds the correspondences of one accepted frame.
type View struct {
	Corners []gocv.Point2f
	IDs     []int
}

// Dataset is the finalized, read-only accumulation handed to the solver.
type Dataset struct {
	Views     []View
	ImageSize image.Point
}

// FrameCount returns the number of accepted views.
func (d *Dataset) FrameCount() int { return len(d.Views) }

// Accumulator collects accepted per-frame correspondences. It is owned
// exclusively by the pipeline loop; no concurrent access.
type Accumulator struct {
	minFrames int
	size      image.Point
	sized     bool
	views     []View
}

// NewAccumulator creates an accumulator requiring at least minFrames accepted
// frames, clamped to the solver floor of 4.
func NewAccumulator(minFrames int) *Accumulator {
	if minFrames < minFramesFloor {
		minFrames = minFramesFloor
	}
	return &Accumulator{minFrames: minFrames}
}

// Append records the correspondences of one accepted frame. The first call
// fixes the run's image size; later calls must match it.
func (a *Accumulator) Append(res *detect.Result, size image.Point) error {
	if res.CornerCount() == 0 {
		return fmt.Errorf("refusing to accumulate a frame with no corners")
	}
	if len(res.Corners) != len(res.IDs) {
		return fmt.Errorf("corrupt detection: %d corners vs %d ids", len(res.Corners), len(res.IDs))
	}
	if !a.sized {
		a.size = size
		a.sized = true
	} else if size != a.size {
		return fmt.Errorf("%w: run is %dx%d, frame is %dx%d",
			ErrImageSizeMismatch, a.size.X, a.size.Y, size.X, size.Y)
	}

	// The detection result is ephemeral; keep our own copy.
	v := View{
		Corners: append([]gocv.Point2f(nil), res.Corners...),
		IDs:     append([]int(nil), res.IDs...),
	}
	a.views = append(a.views, v)
	return nil
}

// Count returns how many frames have been accepted so far.
func (a *Accumulator) Count() int { return len(a.views) }

// MinFrames returns the effective minimum frame requirement.
func (a *Accumulator) MinFrames() int { return a.minFrames }

// Finalize releases the dataset, failing with ErrInsufficientFrames when too
// few views were collected. It is called exactly once per run.
func (a *Accumulator) Finalize() (*Dataset, error) {
	if len(a.views) < a.minFrames {
		return nil, fmt.Errorf("%w: accepted %d, need at least %d",
			ErrInsufficientFrames, len(a.views), a.minFrames)
	}
	return &Dataset{Views: a.views, ImageSize: a.size}, nil
}

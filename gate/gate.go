// Package gate decides whether a detection is good enough to feed the
// calibration solver.
package gate

import (
	"fmt"

	"calibcam/detect"
)

// Thresholds configures the acceptance criteria. MinAreaFraction <= 0
// disables the bounding-box criterion so corner count alone decides.
type Thresholds struct {
	MinCorners      int
	MinAreaFraction float64
}

// Decision is the outcome of evaluating one frame. Derived per frame, logged
// and discarded.
type Decision struct {
	Accepted     bool
	CornerCount  int
	AreaFraction float64
}

func (d Decision) String() string {
	verdict := "REJECT"
	if d.Accepted {
		verdict = "ACCEPT"
	}
	return fmt.Sprintf("%s corners=%d area=%.3f", verdict, d.CornerCount, d.AreaFraction)
}

// Evaluate applies both criteria to a detection result. Zero corners always
// reject; a degenerate bounding box counts as zero area.
func Evaluate(res *detect.Result, frameWidth, frameHeight int, th Thresholds) Decision {
	d := Decision{
		CornerCount:  res.CornerCount(),
		AreaFraction: AreaFraction(res, frameWidth, frameHeight),
	}
	if d.CornerCount == 0 {
		return d
	}
	d.Accepted = d.CornerCount >= th.MinCorners &&
		(th.MinAreaFraction <= 0 || d.AreaFraction >= th.MinAreaFraction)
	return d
}

// AreaFraction computes the axis-aligned bounding box of the detected corners
// as a fraction of the frame area.
func AreaFraction(res *detect.Result, frameWidth, frameHeight int) float64 {
	if res.CornerCount() == 0 || frameWidth <= 0 || frameHeight <= 0 {
		return 0
	}
	minX, minY := res.Corners[0].X, res.Corners[0].Y
	maxX, maxY := minX, minY
	for _, c := range res.Corners[1:] {
		if c.X < minX {
			minX = c.X
		}
		if c.X > maxX {
			maxX = c.X
		}
		if c.Y < minY {
			minY = c.Y
		}
		if c.Y > maxY {
			maxY = c.Y
		}
	}
	w := float64(maxX - minX)
	h := float64(maxY - minY)
	if w <= 0 || h <= 0 {
		return 0
	}
	return (w * h) / (float64(frameWidth) * float64(frameHeight))
}

// Package overlay draws detection diagnostics onto frames for the live
// preview window and the batch evaluator's debug images.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"calibcam/detect"
	"calibcam/gate"
)

var (
	acceptGreen = color.RGBA{0, 210, 0, 0}
	rejectRed   = color.RGBA{0, 0, 210, 0}
	markerBlue  = color.RGBA{255, 140, 0, 0}
	cornerGreen = color.RGBA{0, 255, 0, 0}
	idOrange    = color.RGBA{0, 200, 255, 0}
	infoGrey    = color.RGBA{20, 20, 20, 0}
)

// DrawDetection renders the raw marker outlines and the interpolated board
// corners onto img.
func DrawDetection(img *gocv.Mat, res *detect.Result) {
	if res == nil {
		return
	}
	for i, quad := range res.MarkerCorners {
		if len(quad) != 4 {
			continue
		}
		for j := 0; j < 4; j++ {
			p1 := image.Pt(int(quad[j].X), int(quad[j].Y))
			p2 := image.Pt(int(quad[(j+1)%4].X), int(quad[(j+1)%4].Y))
			gocv.Line(img, p1, p2, markerBlue, 1)
		}
		if i < len(res.MarkerIDs) {
			anchor := image.Pt(int(quad[0].X), int(quad[0].Y)-4)
			gocv.PutText(img, fmt.Sprintf("%d", res.MarkerIDs[i]), anchor,
				gocv.FontHersheySimplex, 0.35, markerBlue, 1)
		}
	}
	for i, c := range res.Corners {
		center := image.Pt(int(c.X), int(c.Y))
		gocv.Circle(img, center, 3, cornerGreen, -1)
		if i < len(res.IDs) {
			gocv.PutText(img, fmt.Sprintf("%d", res.IDs[i]),
				image.Pt(center.X+3, center.Y-3),
				gocv.FontHersheySimplex, 0.4, idOrange, 1)
		}
	}
}

// DrawDecision stamps the accept/reject banner and the active thresholds in
// the upper-left corner.
func DrawDecision(img *gocv.Mat, d gate.Decision, th gate.Thresholds) {
	banner := acceptGreen
	if !d.Accepted {
		banner = rejectRed
	}
	gocv.PutText(img, d.String(), image.Pt(10, 24),
		gocv.FontHersheySimplex, 0.7, banner, 2)

	criteria := fmt.Sprintf("min_corners=%d", th.MinCorners)
	if th.MinAreaFraction > 0 {
		criteria = fmt.Sprintf("%s min_area=%.3f", criteria, th.MinAreaFraction)
	}
	gocv.PutText(img, criteria, image.Pt(10, 50),
		gocv.FontHersheySimplex, 0.6, infoGrey, 2)
}

// Annotate is the full per-frame overlay: detections plus the decision banner.
func Annotate(img *gocv.Mat, res *detect.Result, d gate.Decision, th gate.Thresholds) {
	DrawDetection(img, res)
	DrawDecision(img, d, th)
}

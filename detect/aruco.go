package detect

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"calibcam/board"
)

// OpenCV aruco corner refinement method id for subpixel refinement.
const arucoCornerRefineSubpix = 1

// arucoBackend is the two-stage detector generation: decode the ArUco markers
// first, then interpolate the chessboard corners from the marker-to-board
// homography and refine them to subpixel accuracy.
type arucoBackend struct {
	board    *board.Descriptor
	params   Params
	detector gocv.ArucoDetector
	quads    map[int]board.MarkerQuad
	objPts   []gocv.Point3f
}

func newArucoBackend(b *board.Descriptor, p Params) *arucoBackend {
	ap := gocv.NewArucoDetectorParameters()
	ap.SetAdaptiveThreshWinSizeMin(p.AdaptiveThreshWinSizeMin)
	ap.SetAdaptiveThreshWinSizeMax(p.AdaptiveThreshWinSizeMax)
	ap.SetAdaptiveThreshWinSizeStep(p.AdaptiveThreshWinSizeStep)
	ap.SetAdaptiveThreshConstant(p.AdaptiveThreshConstant)
	ap.SetMinMarkerPerimeterRate(p.MinMarkerPerimeterRate)
	ap.SetMaxMarkerPerimeterRate(p.MaxMarkerPerimeterRate)
	ap.SetPolygonalApproxAccuracyRate(p.PolygonalApproxAccuracyRate)
	ap.SetMinCornerDistanceRate(p.MinCornerDistanceRate)
	ap.SetMinOtsuStdDev(p.MinOtsuStdDev)
	ap.SetPerspectiveRemovePixelPerCell(p.PerspectiveRemovePixelPerCell)
	ap.SetPerspectiveRemoveIgnoredMarginPerCell(p.PerspectiveRemoveIgnoredMarginPerCell)
	ap.SetCornerRefinementMethod(arucoCornerRefineSubpix)
	ap.SetCornerRefinementWinSize(p.CornerRefinementWinSize)
	ap.SetCornerRefinementMaxIterations(p.CornerRefinementMaxIterations)
	ap.SetCornerRefinementMinAccuracy(p.CornerRefinementMinAccuracy)

	dict := gocv.GetPredefinedDictionary(b.Dictionary.Code())
	return &arucoBackend{
		board:    b,
		params:   p,
		detector: gocv.NewArucoDetectorWithParams(dict, ap),
		quads:    b.MarkerObjectCorners(),
		objPts:   b.CornerObjectPoints(),
	}
}

func (a *arucoBackend) Name() string { return "aruco-interpolate" }

func (a *arucoBackend) Close() error {
	return a.detector.Close()
}

// Detect decodes markers and interpolates the interior chessboard corners.
func (a *arucoBackend) Detect(frame gocv.Mat) (*Result, error) {
	gray := grayscale(frame)
	defer gray.Close()

	markerCorners, markerIDs, _ := a.detector.DetectMarkers(gray)
	res := &Result{MarkerCorners: markerCorners, MarkerIDs: markerIDs}
	if len(markerIDs) < a.params.MinMarkers {
		return res, nil
	}

	// Collect board-plane to image correspondences from every marker whose
	// id belongs to this board layout.
	var pairs []pointPair
	var centers []gocv.Point2f
	var sides []float64
	for i, id := range markerIDs {
		quad, ok := a.quads[id]
		if !ok || len(markerCorners[i]) != 4 {
			continue
		}
		var cx, cy float32
		for j := 0; j < 4; j++ {
			img := markerCorners[i][j]
			pairs = append(pairs, pointPair{
				srcX: float64(quad[j].X), srcY: float64(quad[j].Y),
				dstX: float64(img.X), dstY: float64(img.Y),
			})
			cx += img.X / 4
			cy += img.Y / 4
		}
		centers = append(centers, gocv.Point2f{X: cx, Y: cy})
		sides = append(sides, markerSidePx(markerCorners[i]))
	}
	if len(centers) < a.params.MinMarkers {
		return res, nil
	}

	h, err := fitHomography(pairs)
	if err != nil {
		debugMsg("DETECT", fmt.Sprintf("homography fit failed on %d markers: %v", len(centers), err))
		return res, nil
	}

	// One global homography is exact for the planar board up to lens
	// distortion. Keep only corners near detected marker support, where the
	// distortion residual stays within the subpixel search window.
	sort.Float64s(sides)
	squarePx := sides[len(sides)/2] / a.board.MarkerFraction
	supportRadius := 2.0 * squarePx
	margin := float32(a.params.CornerRefinementWinSize + 2)
	w, hgt := float32(gray.Cols()), float32(gray.Rows())

	var kept []gocv.Point2f
	var ids []int
	for id, obj := range a.objPts {
		u, v := projectPoint(h, float64(obj.X), float64(obj.Y))
		if math.IsNaN(u) {
			continue
		}
		pt := gocv.Point2f{X: float32(u), Y: float32(v)}
		if pt.X < margin || pt.Y < margin || pt.X >= w-margin || pt.Y >= hgt-margin {
			continue
		}
		if nearestDistance(pt, centers) > supportRadius {
			continue
		}
		kept = append(kept, pt)
		ids = append(ids, id)
	}
	if len(kept) == 0 {
		return res, nil
	}

	res.Corners = a.refineSubpix(gray, kept)
	res.IDs = ids
	return res, nil
}

// refineSubpix snaps interpolated corner estimates onto the image gradient.
func (a *arucoBackend) refineSubpix(gray gocv.Mat, corners []gocv.Point2f) []gocv.Point2f {
	m := gocv.NewMatWithSize(len(corners), 1, gocv.MatTypeCV32FC2)
	defer m.Close()
	for i, c := range corners {
		m.SetFloatAt(i, 0, c.X)
		m.SetFloatAt(i, 1, c.Y)
	}
	win := a.params.CornerRefinementWinSize
	criteria := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS,
		a.params.CornerRefinementMaxIterations, a.params.CornerRefinementMinAccuracy)
	gocv.CornerSubPix(gray, &m, image.Pt(win, win), image.Pt(-1, -1), criteria)

	out := make([]gocv.Point2f, len(corners))
	for i := range out {
		out[i] = gocv.Point2f{X: m.GetFloatAt(i, 0), Y: m.GetFloatAt(i, 1)}
	}
	return out
}

// markerSidePx is the mean side length of a detected marker quad in pixels.
func markerSidePx(quad []gocv.Point2f) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		n := (i + 1) % 4
		sum += math.Hypot(float64(quad[n].X-quad[i].X), float64(quad[n].Y-quad[i].Y))
	}
	return sum / 4
}

// nearestDistance returns the distance from pt to the closest of the centers.
func nearestDistance(pt gocv.Point2f, centers []gocv.Point2f) float64 {
	best := math.MaxFloat64
	for _, c := range centers {
		d := math.Hypot(float64(pt.X-c.X), float64(pt.Y-c.Y))
		if d < best {
			best = d
		}
	}
	return best
}

package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// applyH maps a point through a known ground-truth homography.
func applyH(h [9]float64, x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

func TestFitHomographyRecoversKnownTransform(t *testing.T) {
	// A mild perspective view of a 160x240mm board.
	truth := [9]float64{
		5.2, 0.31, 412.0,
		-0.18, 4.9, 218.0,
		0.00021, -0.00013, 1,
	}

	var pairs []pointPair
	for _, p := range [][2]float64{
		{0, 0}, {160, 0}, {0, 240}, {160, 240},
		{40, 40}, {120, 40}, {40, 200}, {120, 200},
		{80, 120}, {40, 120}, {120, 160}, {80, 40},
	} {
		u, v := applyH(truth, p[0], p[1])
		pairs = append(pairs, pointPair{srcX: p[0], srcY: p[1], dstX: u, dstY: v})
	}

	h, err := fitHomography(pairs)
	require.NoError(t, err)

	// The fitted homography must reproduce held-out board points.
	for _, p := range [][2]float64{{20, 30}, {150, 210}, {75, 95}} {
		wantU, wantV := applyH(truth, p[0], p[1])
		gotU, gotV := projectPoint(h, p[0], p[1])
		assert.InDelta(t, wantU, gotU, 1e-6)
		assert.InDelta(t, wantV, gotV, 1e-6)
	}
}

func TestFitHomographyRejectsTooFewPoints(t *testing.T) {
	pairs := []pointPair{
		{srcX: 0, srcY: 0, dstX: 10, dstY: 10},
		{srcX: 1, srcY: 0, dstX: 20, dstY: 10},
		{srcX: 0, srcY: 1, dstX: 10, dstY: 20},
	}
	_, err := fitHomography(pairs)
	assert.Error(t, err)
}

func TestFitHomographyIdentity(t *testing.T) {
	pairs := []pointPair{
		{srcX: 0, srcY: 0, dstX: 0, dstY: 0},
		{srcX: 100, srcY: 0, dstX: 100, dstY: 0},
		{srcX: 0, srcY: 100, dstX: 0, dstY: 100},
		{srcX: 100, srcY: 100, dstX: 100, dstY: 100},
	}
	h, err := fitHomography(pairs)
	require.NoError(t, err)

	// Identity mapping within numerical noise.
	u, v := projectPoint(h, 50, 50)
	assert.InDelta(t, 50, u, 1e-6)
	assert.InDelta(t, 50, v, 1e-6)
}

func TestFitHomographyMinimalCorrespondences(t *testing.T) {
	// A single marker quad supplies exactly 4 correspondences; the fit
	// must still recover the exact projective map, not a degenerate one.
	truth := [9]float64{
		3.1, 0.2, 120.0,
		-0.1, 2.9, 80.0,
		0.0001, 0.00005, 1,
	}
	var pairs []pointPair
	for _, p := range [][2]float64{{44, 4}, {76, 4}, {76, 36}, {44, 36}} {
		u, v := applyH(truth, p[0], p[1])
		pairs = append(pairs, pointPair{srcX: p[0], srcY: p[1], dstX: u, dstY: v})
	}

	h, err := fitHomography(pairs)
	require.NoError(t, err)

	for _, p := range [][2]float64{{60, 20}, {50, 30}, {44, 36}} {
		wantU, wantV := applyH(truth, p[0], p[1])
		gotU, gotV := projectPoint(h, p[0], p[1])
		require.False(t, math.IsNaN(gotU), "projection collapsed at (%v,%v)", p[0], p[1])
		assert.InDelta(t, wantU, gotU, 1e-6)
		assert.InDelta(t, wantV, gotV, 1e-6)
	}
}

func TestMarkerSidePx(t *testing.T) {
	quad := []gocv.Point2f{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	assert.InDelta(t, 10.0, markerSidePx(quad), 1e-6)
}

func TestNearestDistance(t *testing.T) {
	centers := []gocv.Point2f{{X: 0, Y: 0}, {X: 100, Y: 0}}
	d := nearestDistance(gocv.Point2f{X: 97, Y: 4}, centers)
	assert.InDelta(t, 5.0, d, 1e-6)
	assert.Equal(t, math.MaxFloat64, nearestDistance(gocv.Point2f{}, nil))
}

func TestResultCornerCount(t *testing.T) {
	var nilRes *Result
	assert.Equal(t, 0, nilRes.CornerCount())
	assert.Equal(t, 0, (&Result{}).CornerCount())
	r := &Result{Corners: make([]gocv.Point2f, 7), IDs: make([]int, 7)}
	assert.Equal(t, 7, r.CornerCount())
}

func TestDefaultParamsValid(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.MinMarkers = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.AdaptiveThreshWinSizeMax = 1
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.MaxMarkerPerimeterRate = 0.01
	assert.Error(t, p.Validate())
}

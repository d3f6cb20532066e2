package calib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestRodriguesIdentity(t *testing.T) {
	rot := rodrigues([3]float64{0, 0, 0})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, rot[i][j], 1e-12)
		}
	}
}

func TestRodriguesQuarterTurnAboutZ(t *testing.T) {
	rot := rodrigues([3]float64{0, 0, math.Pi / 2})
	// Rotates x onto y.
	assert.InDelta(t, 0, rot[0][0], 1e-12)
	assert.InDelta(t, -1, rot[0][1], 1e-12)
	assert.InDelta(t, 1, rot[1][0], 1e-12)
	assert.InDelta(t, 0, rot[1][1], 1e-12)
	assert.InDelta(t, 1, rot[2][2], 1e-12)
}

func TestProjectUndistortedPinhole(t *testing.T) {
	in := &intrinsics{fx: 1000, fy: 1000, cx: 960, cy: 540}
	rot := rodrigues([3]float64{0, 0, 0})

	// A point on the optical axis lands on the principal point.
	u, v := in.project(gocv.Point3f{X: 0, Y: 0, Z: 0}, rot, [3]float64{0, 0, 500})
	assert.InDelta(t, 960, u, 1e-9)
	assert.InDelta(t, 540, v, 1e-9)

	// 50mm off-axis at 500mm depth: 0.1 normalized, 100px offset.
	u, v = in.project(gocv.Point3f{X: 50, Y: 0, Z: 0}, rot, [3]float64{0, 0, 500})
	assert.InDelta(t, 1060, u, 1e-9)
	assert.InDelta(t, 540, v, 1e-9)
}

func TestProjectRadialDistortionPushesOutward(t *testing.T) {
	in := &intrinsics{fx: 1000, fy: 1000, cx: 960, cy: 540, dist: []float64{0.1, 0, 0, 0}}
	rot := rodrigues([3]float64{0, 0, 0})

	u, _ := in.project(gocv.Point3f{X: 50, Y: 0, Z: 0}, rot, [3]float64{0, 0, 500})
	// r2 = 0.01, radial = 1.001 -> 100.1px offset.
	assert.InDelta(t, 1060.1, u, 1e-9)
}

func TestViewErrorZeroForPerfectObservations(t *testing.T) {
	in := &intrinsics{fx: 1000, fy: 1000, cx: 960, cy: 540}
	obj := []gocv.Point3f{{X: 0, Y: 0, Z: 0}, {X: 40, Y: 0, Z: 0}, {X: 0, Y: 40, Z: 0}}
	rvec := [3]float64{0, 0, 0}
	tvec := [3]float64{0, 0, 400}
	rot := rodrigues(rvec)

	v := View{}
	for id, o := range obj {
		u, vv := in.project(o, rot, tvec)
		v.Corners = append(v.Corners, gocv.Point2f{X: float32(u), Y: float32(vv)})
		v.IDs = append(v.IDs, id)
	}
	assert.InDelta(t, 0, viewError(v, obj, in, rvec, tvec), 1e-4)
}

func TestViewErrorMeasuresOffset(t *testing.T) {
	in := &intrinsics{fx: 1000, fy: 1000, cx: 960, cy: 540}
	obj := []gocv.Point3f{{X: 0, Y: 0, Z: 0}}
	rvec := [3]float64{0, 0, 0}
	tvec := [3]float64{0, 0, 400}

	// Observation displaced by 3px horizontally and 4px vertically.
	v := View{
		Corners: []gocv.Point2f{{X: 963, Y: 544}},
		IDs:     []int{0},
	}
	assert.InDelta(t, 5.0, viewError(v, obj, in, rvec, tvec), 1e-6)
}

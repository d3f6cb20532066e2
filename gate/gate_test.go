package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"calibcam/detect"
)

// gridResult fabricates a detection whose corners tile the given rectangle.
func gridResult(n int, x0, y0, x1, y1 float32) *detect.Result {
	res := &detect.Result{}
	for i := 0; i < n; i++ {
		fx := float32(i%4) / 3
		fy := float32(i/4) / 3
		res.Corners = append(res.Corners, gocv.Point2f{
			X: x0 + fx*(x1-x0),
			Y: y0 + fy*(y1-y0),
		})
		res.IDs = append(res.IDs, i)
	}
	return res
}

func TestEvaluateCornerCount(t *testing.T) {
	th := Thresholds{MinCorners: 12}
	tests := []struct {
		name    string
		corners int
		want    bool
	}{
		{"zero corners", 0, false},
		{"below threshold", 11, false},
		{"at threshold", 12, true},
		{"above threshold", 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gridResult(tt.corners, 100, 100, 500, 500)
			d := Evaluate(res, 1920, 1080, th)
			assert.Equal(t, tt.want, d.Accepted)
			assert.Equal(t, tt.corners, d.CornerCount)
		})
	}
}

func TestEvaluateAreaCriterion(t *testing.T) {
	th := Thresholds{MinCorners: 12, MinAreaFraction: 0.08}

	// Corners spanning half the frame width and height: area fraction 0.25.
	big := gridResult(16, 0, 0, 960, 540)
	d := Evaluate(big, 1920, 1080, th)
	assert.True(t, d.Accepted)
	assert.InDelta(t, 0.25, d.AreaFraction, 1e-9)

	// Enough corners but a tiny board: rejected on area alone.
	small := gridResult(16, 0, 0, 96, 54)
	d = Evaluate(small, 1920, 1080, th)
	assert.False(t, d.Accepted)
	assert.InDelta(t, 0.0025, d.AreaFraction, 1e-9)

	// Disabled area criterion accepts the same tiny board.
	d = Evaluate(small, 1920, 1080, Thresholds{MinCorners: 12})
	assert.True(t, d.Accepted)
}

func TestAreaFractionEdgeCases(t *testing.T) {
	// Corners covering exactly the full frame.
	full := gridResult(16, 0, 0, 1920, 1080)
	assert.InDelta(t, 1.0, AreaFraction(full, 1920, 1080), 1e-9)

	// Zero corners.
	assert.Equal(t, 0.0, AreaFraction(&detect.Result{}, 1920, 1080))

	// Degenerate bounding box: every corner on the same point.
	point := &detect.Result{}
	for i := 0; i < 5; i++ {
		point.Corners = append(point.Corners, gocv.Point2f{X: 100, Y: 100})
		point.IDs = append(point.IDs, i)
	}
	assert.Equal(t, 0.0, AreaFraction(point, 1920, 1080))

	d := Evaluate(point, 1920, 1080, Thresholds{MinCorners: 3, MinAreaFraction: 0.01})
	assert.False(t, d.Accepted)
}

func TestDecisionString(t *testing.T) {
	d := Decision{Accepted: true, CornerCount: 15, AreaFraction: 0.5}
	assert.Equal(t, "ACCEPT corners=15 area=0.500", d.String())
	d.Accepted = false
	assert.Equal(t, "REJECT corners=15 area=0.500", d.String())
}

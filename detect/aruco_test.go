package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"calibcam/board"
)

func TestRefineSubpixSnapsToSaddlePoint(t *testing.T) {
	b, err := board.New(4, 6, 40, 0.8, board.Dict6x6_1000, true)
	require.NoError(t, err)
	backend := newArucoBackend(b, DefaultParams())
	defer backend.Close()

	// Checkerboard corner: opposite quadrants share intensity, the saddle
	// point sits on the pixel boundary at (49.5, 49.5).
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 100, gocv.MatTypeCV8UC1)
	defer gray.Close()
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if (x < 50) != (y < 50) {
				gray.SetUCharAt(y, x, 255)
			}
		}
	}

	refined := backend.refineSubpix(gray, []gocv.Point2f{{X: 48, Y: 51}})
	require.Len(t, refined, 1)
	require.InDelta(t, 49.5, float64(refined[0].X), 1.0)
	require.InDelta(t, 49.5, float64(refined[0].Y), 1.0)
}

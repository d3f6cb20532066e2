package artifact

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"calibcam/calib"
)

// writePreview renders a synthetic grid at the calibrated resolution,
// undistorts it through the computed intrinsics, and writes it as a visual
// sanity check. Curvature left in the grid means a poor model.
func writePreview(path string, res *calib.Result) error {
	w, h := res.ImageSize.X, res.ImageSize.Y
	if w <= 0 || h <= 0 {
		return fmt.Errorf("result has no image size for preview")
	}

	grid := renderGrid(w, h)
	defer grid.Close()

	k := matFromCameraMatrix(res.CameraMatrix)
	defer k.Close()
	d := matFromCoeffs(res.DistCoeffs)
	defer d.Close()

	newK, _ := gocv.GetOptimalNewCameraMatrixWithParams(k, d, image.Pt(w, h), 0, image.Pt(w, h), false)
	defer newK.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Undistort(grid, &out, k, d, newK)

	if ok := gocv.IMWrite(path, out); !ok {
		return fmt.Errorf("failed to write preview image %q", path)
	}
	return nil
}

// renderGrid draws light grey gridlines on a white canvas. The line spacing
// scales with the frame so the preview stays readable at any resolution.
func renderGrid(w, h int) gocv.Mat {
	grid := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC3)

	step := min(w, h) / 20
	if step < 40 {
		step = 40
	}
	grey := color.RGBA{220, 220, 220, 0}
	for x := 0; x < w; x += step {
		gocv.Line(&grid, image.Pt(x, 0), image.Pt(x, h-1), grey, 1)
	}
	for y := 0; y < h; y += step {
		gocv.Line(&grid, image.Pt(0, y), image.Pt(w-1, y), grey, 1)
	}
	return grid
}

func matFromCameraMatrix(k [3][3]float64) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, k[r][c])
		}
	}
	return m
}

func matFromCoeffs(coeffs []float64) gocv.Mat {
	if len(coeffs) == 0 {
		coeffs = make([]float64, 5)
	}
	m := gocv.NewMatWithSize(1, len(coeffs), gocv.MatTypeCV64F)
	for i, v := range coeffs {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

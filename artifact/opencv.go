package artifact

import (
	"fmt"
	"os"
	"strings"

	"calibcam/calib"
)

// writeOpenCVMatrix writes the minimal matrix-only interchange file in the
// cv::FileStorage XML layout, so downstream rectification tools can load the
// camera matrix and distortion coefficients directly.
func writeOpenCVMatrix(path string, res *calib.Result) error {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\"?>\n<opencv_storage>\n")
	writeXMLMatrix(&sb, "camera_matrix", 3, 3, flattenCameraMatrix(res.CameraMatrix))
	writeXMLMatrix(&sb, "dist_coeffs", 1, len(res.DistCoeffs), res.DistCoeffs)
	sb.WriteString("</opencv_storage>\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to save matrix file: %v", err)
	}
	return nil
}

func writeXMLMatrix(sb *strings.Builder, name string, rows, cols int, data []float64) {
	fmt.Fprintf(sb, "<%s type_id=\"opencv-matrix\">\n", name)
	fmt.Fprintf(sb, "  <rows>%d</rows>\n  <cols>%d</cols>\n  <dt>d</dt>\n  <data>\n   ", rows, cols)
	for _, v := range data {
		fmt.Fprintf(sb, " %.16e", v)
	}
	fmt.Fprintf(sb, "</data></%s>\n", name)
}

func flattenCameraMatrix(k [3][3]float64) []float64 {
	out := make([]float64, 0, 9)
	for _, row := range k {
		out = append(out, row[:]...)
	}
	return out
}

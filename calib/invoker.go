package calib

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"calibcam/board"
)

// Global debug function for the calib package, injected by main.
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide its debug function.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Result holds the solved camera model. Created once per run, immutable,
// written to durable storage and then discarded.
type Result struct {
	CameraMatrix [3][3]float64
	DistCoeffs   []float64
	RMS          float64

	// Extended diagnostics. Nil when per-view extrinsics could not be
	// recovered from the solver output (reduced-diagnostics form).
	PerViewErrors []float64
	Rotations     [][3]float64
	Translations  [][3]float64

	FramesUsed int
	ImageSize  image.Point
	Flags      Flags
}

// Invoker runs the calibration solver on a finalized dataset.
type Invoker interface {
	Calibrate(ds *Dataset, b *board.Descriptor, flags Flags) (*Result, error)
}

// SolverInvoker is the production Invoker backed by the vision library's
// camera calibration.
type SolverInvoker struct{}

// NewInvoker returns the production solver facade.
func NewInvoker() *SolverInvoker { return &SolverInvoker{} }

// Calibrate solves for the intrinsics over all accumulated views. Object
// points come from the board geometry, matched to observations by corner id.
func (s *SolverInvoker) Calibrate(ds *Dataset, b *board.Descriptor, flags Flags) (*Result, error) {
	if ds.FrameCount() == 0 {
		return nil, fmt.Errorf("empty dataset")
	}
	objAll := b.CornerObjectPoints()

	objViews := make([][]gocv.Point3f, 0, ds.FrameCount())
	imgViews := make([][]gocv.Point2f, 0, ds.FrameCount())
	for _, v := range ds.Views {
		obj := make([]gocv.Point3f, 0, len(v.IDs))
		img := make([]gocv.Point2f, 0, len(v.IDs))
		for i, id := range v.IDs {
			if id < 0 || id >= len(objAll) {
				return nil, fmt.Errorf("corner id %d outside board with %d corners", id, len(objAll))
			}
			obj = append(obj, objAll[id])
			img = append(img, v.Corners[i])
		}
		objViews = append(objViews, obj)
		imgViews = append(imgViews, img)
	}

	objectPoints := gocv.NewPoints3fVectorFromPoints(objViews)
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVectorFromPoints(imgViews)
	defer imagePoints.Close()

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	debugMsg("CALIB", fmt.Sprintf("solving over %d views at %dx%d (flags: %s)",
		ds.FrameCount(), ds.ImageSize.X, ds.ImageSize.Y, flags))

	rms := gocv.CalibrateCamera(objectPoints, imagePoints, ds.ImageSize,
		&cameraMatrix, &distCoeffs, &rvecs, &tvecs, gocv.CalibFlag(flags))

	res := &Result{
		RMS:        rms,
		FramesUsed: ds.FrameCount(),
		ImageSize:  ds.ImageSize,
		Flags:      flags,
	}
	if cameraMatrix.Rows() != 3 || cameraMatrix.Cols() != 3 {
		return nil, fmt.Errorf("solver returned %dx%d camera matrix", cameraMatrix.Rows(), cameraMatrix.Cols())
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			res.CameraMatrix[r][c] = cameraMatrix.GetDoubleAt(r, c)
		}
	}
	res.DistCoeffs = readCoeffMat(distCoeffs)

	s.attachDiagnostics(res, ds, objAll, rvecs, tvecs)

	debugMsg("CALIB", fmt.Sprintf("RMS reprojection error: %.4f px", rms))
	if res.PerViewErrors != nil {
		debugMsg("CALIB", fmt.Sprintf("per-view error mean %.4f max %.4f px",
			stat.Mean(res.PerViewErrors, nil), floats.Max(res.PerViewErrors)))
	}
	return res, nil
}

// attachDiagnostics recovers per-view extrinsics and reprojection errors from
// the solver output. Solver builds that return pose arrays in another shape
// leave the result in its reduced-diagnostics form; callers never see the
// difference beyond the nil slices.
func (s *SolverInvoker) attachDiagnostics(res *Result, ds *Dataset, objAll []gocv.Point3f, rvecs, tvecs gocv.Mat) {
	n := ds.FrameCount()
	if rvecs.Rows() != n || rvecs.Cols() != 3 || tvecs.Rows() != n || tvecs.Cols() != 3 {
		debugMsg("CALIB", "per-view extrinsics unavailable, reporting reduced diagnostics")
		return
	}
	if rvecs.Type() != gocv.MatTypeCV64F || tvecs.Type() != gocv.MatTypeCV64F {
		debugMsg("CALIB", "unexpected extrinsics element type, reporting reduced diagnostics")
		return
	}

	in := &intrinsics{
		fx: res.CameraMatrix[0][0], fy: res.CameraMatrix[1][1],
		cx: res.CameraMatrix[0][2], cy: res.CameraMatrix[1][2],
		dist: res.DistCoeffs,
	}
	res.PerViewErrors = make([]float64, n)
	res.Rotations = make([][3]float64, n)
	res.Translations = make([][3]float64, n)
	for i := 0; i < n; i++ {
		var rvec, tvec [3]float64
		for j := 0; j < 3; j++ {
			rvec[j] = rvecs.GetDoubleAt(i, j)
			tvec[j] = tvecs.GetDoubleAt(i, j)
		}
		res.Rotations[i] = rvec
		res.Translations[i] = tvec
		res.PerViewErrors[i] = viewError(ds.Views[i], objAll, in, rvec, tvec)
	}
}

// readCoeffMat flattens the distortion coefficient matrix, which different
// solver builds shape as a row or a column vector.
func readCoeffMat(m gocv.Mat) []float64 {
	total := m.Rows() * m.Cols()
	out := make([]float64, 0, total)
	if m.Rows() == 1 {
		for c := 0; c < m.Cols(); c++ {
			out = append(out, m.GetDoubleAt(0, c))
		}
		return out
	}
	for r := 0; r < m.Rows(); r++ {
		out = append(out, m.GetDoubleAt(r, 0))
	}
	return out
}

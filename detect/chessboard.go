package detect

import (
	"image"

	"gocv.io/x/gocv"

	"calibcam/board"
)

// chessboardBackend is the degraded detector generation: it locates the plain
// interior chessboard grid without decoding any markers, for builds or boards
// where marker decoding is unusable. Corner ids are assigned by grid position,
// so the board orientation must stay consistent within one run.
type chessboardBackend struct {
	board  *board.Descriptor
	params Params
}

func newChessboardBackend(b *board.Descriptor, p Params) *chessboardBackend {
	return &chessboardBackend{board: b, params: p}
}

func (c *chessboardBackend) Name() string { return "chessboard-grid" }

func (c *chessboardBackend) Close() error { return nil }

// Detect finds the full interior corner grid. The chessboard finder is
// all-or-nothing: a partially visible board yields an empty Result.
func (c *chessboardBackend) Detect(frame gocv.Mat) (*Result, error) {
	gray := grayscale(frame)
	defer gray.Close()

	pattern := image.Pt(c.board.CornerCols(), c.board.CornerRows())
	corners := gocv.NewMat()
	defer corners.Close()

	found := gocv.FindChessboardCorners(gray, pattern, &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	if !found || corners.Rows() == 0 {
		return &Result{}, nil
	}

	win := c.params.CornerRefinementWinSize
	criteria := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS,
		c.params.CornerRefinementMaxIterations, c.params.CornerRefinementMinAccuracy)
	gocv.CornerSubPix(gray, &corners, image.Pt(win, win), image.Pt(-1, -1), criteria)

	n := corners.Rows()
	res := &Result{
		Corners: make([]gocv.Point2f, n),
		IDs:     make([]int, n),
	}
	for i := 0; i < n; i++ {
		res.Corners[i] = gocv.Point2f{X: corners.GetFloatAt(i, 0), Y: corners.GetFloatAt(i, 1)}
		res.IDs[i] = i
	}
	return res, nil
}

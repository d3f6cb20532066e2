package artifact

import (
	"compress/gzip"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibcam/board"
	"calibcam/calib"
)

func testResult() *calib.Result {
	return &calib.Result{
		CameraMatrix: [3][3]float64{
			{500, 0, 160},
			{0, 500, 120},
			{0, 0, 1},
		},
		DistCoeffs:    []float64{0.1, -0.05, 0, 0, 0.01},
		RMS:           0.42,
		PerViewErrors: []float64{0.3, 0.5},
		FramesUsed:    2,
		ImageSize:     image.Pt(320, 240),
		Flags:         calib.DefaultFlags,
	}
}

func testBoard(t *testing.T) *board.Descriptor {
	b, err := board.New(4, 6, 40, 0.8, board.Dict4x4_100, false)
	require.NoError(t, err)
	return b
}

func fixedWriter(dir string) *Writer {
	w := NewWriter(dir)
	w.now = func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return w
}

func TestPathsForNaming(t *testing.T) {
	w := NewWriter("/out")
	p := w.pathsFor("20240102_030405")
	assert.Equal(t, filepath.Join("/out", "calib_20240102_030405.json.gz"), p.Bundle)
	assert.Equal(t, filepath.Join("/out", "calib_20240102_030405.json"), p.Metadata)
	assert.Equal(t, filepath.Join("/out", "calib_20240102_030405.xml"), p.Matrix)
	assert.Equal(t, filepath.Join("/out", "undistort_preview_20240102_030405.jpg"), p.Preview)
}

func TestWriteProducesArtifactSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session", "calib")
	w := fixedWriter(dir)

	paths, err := w.Write(testResult(), testBoard(t), "video:sample.mp4")
	require.NoError(t, err)

	for _, p := range []string{paths.Bundle, paths.Metadata, paths.Matrix, paths.Preview} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestWriteBundleRoundTrip(t *testing.T) {
	w := fixedWriter(t.TempDir())
	paths, err := w.Write(testResult(), testBoard(t), "")
	require.NoError(t, err)

	f, err := os.Open(paths.Bundle)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var got bundle
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Equal(t, 500.0, got.CameraMatrix[0][0])
	assert.Equal(t, []float64{0.1, -0.05, 0, 0, 0.01}, got.DistCoeffs)
	assert.Equal(t, [2]int{320, 240}, got.ImageSize)
	assert.Equal(t, [2]int{4, 6}, got.Squares)
	assert.Equal(t, 40.0, got.SquareMM)
	assert.Equal(t, 2, got.FramesUsed)
	assert.Equal(t, int64(calib.DefaultFlags), got.Flags)
	assert.Equal(t, []float64{0.3, 0.5}, got.PerViewErrors)
}

func TestWriteMetadataContents(t *testing.T) {
	w := fixedWriter(t.TempDir())
	paths, err := w.Write(testResult(), testBoard(t), "camera:0")
	require.NoError(t, err)

	data, err := os.ReadFile(paths.Metadata)
	require.NoError(t, err)

	var meta metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.NotEmpty(t, meta.RunID)
	assert.Equal(t, "2024-01-02T03:04:05Z", meta.Timestamp)
	assert.Equal(t, "camera:0", meta.Source)
	assert.Equal(t, 0.42, meta.RMS)
	assert.Equal(t, calib.DefaultFlags.String(), meta.Flags)
	assert.Equal(t, 4, meta.Board.Columns)
	assert.Equal(t, "DICT_4X4_100", meta.Board.Dictionary)
	require.NotNil(t, meta.PerViewStats)
	assert.Equal(t, []float64{0.3, 0.5}, meta.PerViewStats.Values)
}

func TestWriteMetadataOmitsMissingDiagnostics(t *testing.T) {
	res := testResult()
	res.PerViewErrors = nil
	w := fixedWriter(t.TempDir())
	paths, err := w.Write(res, testBoard(t), "")
	require.NoError(t, err)

	data, err := os.ReadFile(paths.Metadata)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "per_view_errors")
}

func TestWriteOpenCVMatrixLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calib.xml")
	require.NoError(t, writeOpenCVMatrix(path, testResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "<opencv_storage>")
	assert.Contains(t, text, "<camera_matrix type_id=\"opencv-matrix\">")
	assert.Contains(t, text, "<dist_coeffs type_id=\"opencv-matrix\">")
	assert.Contains(t, text, "<rows>3</rows>")
	assert.Contains(t, text, "<cols>5</cols>")
	assert.Contains(t, text, "<dt>d</dt>")

	// Nine camera entries plus five coefficients land in the two data blocks.
	assert.Equal(t, 14, strings.Count(text, "e+")+strings.Count(text, "e-"))
}

func TestFlattenCameraMatrix(t *testing.T) {
	flat := flattenCameraMatrix([3][3]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, flat)
}

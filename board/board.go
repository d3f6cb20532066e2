package board

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Dictionary identifies a predefined ArUco symbol dictionary.
type Dictionary int

const (
	Dict4x4_50 Dictionary = iota
	Dict4x4_100
	Dict4x4_250
	Dict4x4_1000
	Dict5x5_50
	Dict5x5_100
	Dict5x5_250
	Dict5x5_1000
	Dict6x6_50
	Dict6x6_100
	Dict6x6_250
	Dict6x6_1000
	Dict7x7_50
	Dict7x7_100
	Dict7x7_250
	Dict7x7_1000
	DictArucoOriginal
)

var dictionaryNames = map[string]Dictionary{
	"DICT_4X4_50":         Dict4x4_50,
	"DICT_4X4_100":        Dict4x4_100,
	"DICT_4X4_250":        Dict4x4_250,
	"DICT_4X4_1000":       Dict4x4_1000,
	"DICT_5X5_50":         Dict5x5_50,
	"DICT_5X5_100":        Dict5x5_100,
	"DICT_5X5_250":        Dict5x5_250,
	"DICT_5X5_1000":       Dict5x5_1000,
	"DICT_6X6_50":         Dict6x6_50,
	"DICT_6X6_100":        Dict6x6_100,
	"DICT_6X6_250":        Dict6x6_250,
	"DICT_6X6_1000":       Dict6x6_1000,
	"DICT_7X7_50":         Dict7x7_50,
	"DICT_7X7_100":        Dict7x7_100,
	"DICT_7X7_250":        Dict7x7_250,
	"DICT_7X7_1000":       Dict7x7_1000,
	"DICT_ARUCO_ORIGINAL": DictArucoOriginal,
}

var dictionaryCodes = map[Dictionary]gocv.ArucoDictionaryCode{
	Dict4x4_50:        gocv.ArucoDict4x4_50,
	Dict4x4_100:       gocv.ArucoDict4x4_100,
	Dict4x4_250:       gocv.ArucoDict4x4_250,
	Dict4x4_1000:      gocv.ArucoDict4x4_1000,
	Dict5x5_50:        gocv.ArucoDict5x5_50,
	Dict5x5_100:       gocv.ArucoDict5x5_100,
	Dict5x5_250:       gocv.ArucoDict5x5_250,
	Dict5x5_1000:      gocv.ArucoDict5x5_1000,
	Dict6x6_50:        gocv.ArucoDict6x6_50,
	Dict6x6_100:       gocv.ArucoDict6x6_100,
	Dict6x6_250:       gocv.ArucoDict6x6_250,
	Dict6x6_1000:      gocv.ArucoDict6x6_1000,
	Dict7x7_50:        gocv.ArucoDict7x7_50,
	Dict7x7_100:       gocv.ArucoDict7x7_100,
	Dict7x7_250:       gocv.ArucoDict7x7_250,
	Dict7x7_1000:      gocv.ArucoDict7x7_1000,
	DictArucoOriginal: gocv.ArucoDictArucoOriginal,
}

// ParseDictionary maps an OpenCV-style dictionary name (e.g. "DICT_6X6_1000")
// to its Dictionary value.
func ParseDictionary(name string) (Dictionary, error) {
	d, ok := dictionaryNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown ArUco dictionary %q", name)
	}
	return d, nil
}

// Code returns the gocv dictionary code for this dictionary.
func (d Dictionary) Code() gocv.ArucoDictionaryCode {
	return dictionaryCodes[d]
}

func (d Dictionary) String() string {
	for name, v := range dictionaryNames {
		if v == d {
			return name
		}
	}
	return fmt.Sprintf("Dictionary(%d)", int(d))
}

// Descriptor is an immutable description of a ChArUco fiducial board. It is
// built once from configuration and shared by read-only pointer across all
// components of a run.
type Descriptor struct {
	Columns        int     // squares across
	Rows           int     // squares down
	CellSizeMM     float64 // side of one chessboard square
	MarkerFraction float64 // marker side as a fraction of the cell side, (0,1]
	Dictionary     Dictionary
	LegacyLayout   bool // pre-4.6 OpenCV marker placement (parity flipped)
}

// New validates the geometry and returns a board descriptor.
func New(columns, rows int, cellSizeMM, markerFraction float64, dict Dictionary, legacy bool) (*Descriptor, error) {
	d := &Descriptor{
		Columns:        columns,
		Rows:           rows,
		CellSizeMM:     cellSizeMM,
		MarkerFraction: markerFraction,
		Dictionary:     dict,
		LegacyLayout:   legacy,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	if d.Columns < 1 || d.Rows < 1 {
		return fmt.Errorf("board must have at least 1 column and 1 row, got %dx%d", d.Columns, d.Rows)
	}
	if d.Columns*d.Rows < 2 {
		return fmt.Errorf("board needs at least 2 squares, got %dx%d", d.Columns, d.Rows)
	}
	if d.CellSizeMM <= 0 {
		return fmt.Errorf("cell size must be positive, got %.2f mm", d.CellSizeMM)
	}
	if d.MarkerFraction <= 0 || d.MarkerFraction > 1 {
		return fmt.Errorf("marker fraction must be in (0,1], got %.3f", d.MarkerFraction)
	}
	if _, ok := dictionaryCodes[d.Dictionary]; !ok {
		return fmt.Errorf("unknown dictionary id %d", int(d.Dictionary))
	}
	return nil
}

// MarkerSizeMM is the physical marker side length.
func (d *Descriptor) MarkerSizeMM() float64 {
	return d.CellSizeMM * d.MarkerFraction
}

// CornerCols and CornerRows give the interior corner grid dimensions.
func (d *Descriptor) CornerCols() int { return d.Columns - 1 }
func (d *Descriptor) CornerRows() int { return d.Rows - 1 }

// CornerCount is the number of interior chessboard corners on the board.
func (d *Descriptor) CornerCount() int {
	return d.CornerCols() * d.CornerRows()
}

// CornerObjectPoints returns the board-plane position of every interior
// corner in millimetres, indexed by corner id. Ids run row-major across the
// interior grid: id = row*(Columns-1) + col.
func (d *Descriptor) CornerObjectPoints() []gocv.Point3f {
	pts := make([]gocv.Point3f, 0, d.CornerCount())
	for r := 0; r < d.CornerRows(); r++ {
		for c := 0; c < d.CornerCols(); c++ {
			pts = append(pts, gocv.Point3f{
				X: float32(float64(c+1) * d.CellSizeMM),
				Y: float32(float64(r+1) * d.CellSizeMM),
				Z: 0,
			})
		}
	}
	return pts
}

// markerParity selects which chessboard squares carry markers. Markers sit in
// the light squares; the legacy layout flips which color comes first.
func (d *Descriptor) markerParity() int {
	if d.LegacyLayout {
		return 0
	}
	return 1
}

// MarkerCount is the number of ArUco markers on the board.
func (d *Descriptor) MarkerCount() int {
	n := 0
	parity := d.markerParity()
	for r := 0; r < d.Rows; r++ {
		for c := 0; c < d.Columns; c++ {
			if (c+r)%2 == parity {
				n++
			}
		}
	}
	return n
}

// MarkerQuad is the board-plane outline of one marker in millimetres, ordered
// to match the detector's corner order: top-left, top-right, bottom-right,
// bottom-left.
type MarkerQuad [4]gocv.Point2f

// MarkerObjectCorners returns the outline of every marker keyed by marker id.
// Marker ids are assigned sequentially scanning the marker-bearing squares
// row-major, matching how the dictionary symbols are laid onto the board.
func (d *Descriptor) MarkerObjectCorners() map[int]MarkerQuad {
	quads := make(map[int]MarkerQuad, d.MarkerCount())
	parity := d.markerParity()
	margin := (d.CellSizeMM - d.MarkerSizeMM()) / 2
	id := 0
	for r := 0; r < d.Rows; r++ {
		for c := 0; c < d.Columns; c++ {
			if (c+r)%2 != parity {
				continue
			}
			x0 := float64(c)*d.CellSizeMM + margin
			y0 := float64(r)*d.CellSizeMM + margin
			x1 := float64(c+1)*d.CellSizeMM - margin
			y1 := float64(r+1)*d.CellSizeMM - margin
			quads[id] = MarkerQuad{
				{X: float32(x0), Y: float32(y0)},
				{X: float32(x1), Y: float32(y0)},
				{X: float32(x1), Y: float32(y1)},
				{X: float32(x0), Y: float32(y1)},
			}
			id++
		}
	}
	return quads
}

// WidthMM and HeightMM give the physical board dimensions.
func (d *Descriptor) WidthMM() float64  { return float64(d.Columns) * d.CellSizeMM }
func (d *Descriptor) HeightMM() float64 { return float64(d.Rows) * d.CellSizeMM }

func (d *Descriptor) String() string {
	return fmt.Sprintf("%dx%d board, square %.1fmm, marker %.1fmm (%s, legacy=%v)",
		d.Columns, d.Rows, d.CellSizeMM, d.MarkerSizeMM(), d.Dictionary, d.LegacyLayout)
}

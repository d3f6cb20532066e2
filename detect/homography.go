package detect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// pointPair is one board-plane to image-plane correspondence.
type pointPair struct {
	srcX, srcY float64 // board plane, millimetres
	dstX, dstY float64 // image plane, pixels
}

// fitHomography estimates the 3x3 projective mapping from the board plane to
// the image plane with a normalized direct linear transform. Needs at least 4
// correspondences; marker quads supply 4 each.
func fitHomography(pairs []pointPair) (*mat.Dense, error) {
	if len(pairs) < 4 {
		return nil, fmt.Errorf("need at least 4 correspondences, got %d", len(pairs))
	}

	srcNorm, srcT := normalize(pairs, true)
	dstNorm, dstT := normalize(pairs, false)

	a := mat.NewDense(2*len(pairs), 9, nil)
	for i := range pairs {
		x, y := srcNorm[i][0], srcNorm[i][1]
		u, v := dstNorm[i][0], dstNorm[i][1]
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	// Full factorization: with the minimal 4 correspondences the system is
	// 8x9 and the null-space vector only appears among the full right
	// singular vectors.
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, fmt.Errorf("homography SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	// Solution is the right singular vector for the smallest singular value.
	h := mat.NewDense(3, 3, nil)
	col := v.RawMatrix().Cols - 1
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, v.At(3*i+j, col))
		}
	}

	// Denormalize: H = inv(Tdst) * Hn * Tsrc.
	var tdstInv mat.Dense
	if err := tdstInv.Inverse(dstT); err != nil {
		return nil, fmt.Errorf("degenerate normalization: %v", err)
	}
	var tmp, out mat.Dense
	tmp.Mul(h, srcT)
	out.Mul(&tdstInv, &tmp)

	if math.Abs(out.At(2, 2)) < 1e-12 {
		return nil, fmt.Errorf("degenerate homography")
	}
	out.Scale(1/out.At(2, 2), &out)
	return &out, nil
}

// normalize applies the Hartley conditioning: shift the centroid to the
// origin and scale the mean distance to sqrt(2). Returns the conditioned
// points and the similarity transform that produced them.
func normalize(pairs []pointPair, src bool) ([][2]float64, *mat.Dense) {
	n := float64(len(pairs))
	var cx, cy float64
	for _, p := range pairs {
		if src {
			cx += p.srcX
			cy += p.srcY
		} else {
			cx += p.dstX
			cy += p.dstY
		}
	}
	cx /= n
	cy /= n

	var meanDist float64
	for _, p := range pairs {
		x, y := p.dstX, p.dstY
		if src {
			x, y = p.srcX, p.srcY
		}
		meanDist += math.Hypot(x-cx, y-cy)
	}
	meanDist /= n
	scale := 1.0
	if meanDist > 1e-12 {
		scale = math.Sqrt2 / meanDist
	}

	out := make([][2]float64, len(pairs))
	for i, p := range pairs {
		x, y := p.dstX, p.dstY
		if src {
			x, y = p.srcX, p.srcY
		}
		out[i] = [2]float64{(x - cx) * scale, (y - cy) * scale}
	}
	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * cx,
		0, scale, -scale * cy,
		0, 0, 1,
	})
	return out, t
}

// projectPoint maps a board-plane point through a homography.
func projectPoint(h *mat.Dense, x, y float64) (float64, float64) {
	w := h.At(2, 0)*x + h.At(2, 1)*y + h.At(2, 2)
	if math.Abs(w) < 1e-12 {
		return math.NaN(), math.NaN()
	}
	u := (h.At(0, 0)*x + h.At(0, 1)*y + h.At(0, 2)) / w
	v := (h.At(1, 0)*x + h.At(1, 1)*y + h.At(1, 2)) / w
	return u, v
}

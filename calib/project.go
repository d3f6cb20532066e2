package calib

import (
	"math"

	"gocv.io/x/gocv"
)

// intrinsics bundles the estimated camera model for reprojection.
type intrinsics struct {
	fx, fy, cx, cy float64
	dist           []float64 // k1 k2 p1 p2 [k3 [k4 k5 k6]]
}

// rodrigues converts an axis-angle rotation vector to a rotation matrix.
func rodrigues(r [3]float64) [3][3]float64 {
	theta := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if theta < 1e-12 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return [3][3]float64{
		{c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s},
		{ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s},
		{kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v},
	}
}

// distortionCoeff returns the i-th distortion coefficient, treating missing
// tail terms as zero so 5- and 8-term models share one code path.
func (in *intrinsics) distortionCoeff(i int) float64 {
	if i < len(in.dist) {
		return in.dist[i]
	}
	return 0
}

// project maps one board-plane point through the full pinhole model with
// rational radial and tangential distortion.
func (in *intrinsics) project(obj gocv.Point3f, rot [3][3]float64, t [3]float64) (float64, float64) {
	ox, oy, oz := float64(obj.X), float64(obj.Y), float64(obj.Z)
	xc := rot[0][0]*ox + rot[0][1]*oy + rot[0][2]*oz + t[0]
	yc := rot[1][0]*ox + rot[1][1]*oy + rot[1][2]*oz + t[1]
	zc := rot[2][0]*ox + rot[2][1]*oy + rot[2][2]*oz + t[2]
	if math.Abs(zc) < 1e-12 {
		return math.NaN(), math.NaN()
	}
	x := xc / zc
	y := yc / zc

	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	k1, k2, p1, p2 := in.distortionCoeff(0), in.distortionCoeff(1), in.distortionCoeff(2), in.distortionCoeff(3)
	k3 := in.distortionCoeff(4)
	k4, k5, k6 := in.distortionCoeff(5), in.distortionCoeff(6), in.distortionCoeff(7)

	num := 1 + k1*r2 + k2*r4 + k3*r6
	den := 1 + k4*r2 + k5*r4 + k6*r6
	if math.Abs(den) < 1e-12 {
		return math.NaN(), math.NaN()
	}
	radial := num / den

	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y

	return in.fx*xd + in.cx, in.fy*yd + in.cy
}

// viewError computes the RMS pixel distance between the observed corners of
// one view and the board points projected through the estimated pose.
func viewError(v View, objAll []gocv.Point3f, in *intrinsics, rvec, tvec [3]float64) float64 {
	if len(v.Corners) == 0 {
		return 0
	}
	rot := rodrigues(rvec)
	var sum float64
	n := 0
	for i, id := range v.IDs {
		if id < 0 || id >= len(objAll) {
			continue
		}
		u, vv := in.project(objAll[id], rot, tvec)
		if math.IsNaN(u) {
			continue
		}
		du := u - float64(v.Corners[i].X)
		dv := vv - float64(v.Corners[i].Y)
		sum += du*du + dv*dv
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Package geomath holds the angular math shared by the calibration and
// point-computation code.
//
// Convention throughout: angles are degrees, azimuth 0° = North (+Y),
// 90° = East (+X), increasing clockwise. Vertical angles are elevation
// relative to horizontal, positive up. Coordinates are planar projected
// (Easting, Northing, Height).
package geomath

import "math"

// Below this magnitude a summed unit-vector component is considered zero
// when deciding whether a circular mean is defined.
const cancelEpsilon = 1e-12

func d2r(deg float64) float64 { return deg * math.Pi / 180 }
func r2d(rad float64) float64 { return rad * 180 / math.Pi }

// Wrap360 reduces a degree value into [0, 360). math.Mod keeps the sign of
// the dividend, so negative inputs need the extra add.
func Wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// Wrap180 reduces a degree value into the signed half-turn range via
// ((a+180) mod 360) - 180, i.e. the shortest signed rotation.
func Wrap180(a float64) float64 {
	return Wrap360(a+180) - 180
}

// MeanAngleDeg returns the circular mean of the given angles, wrapped to
// [0, 360). Each angle becomes a unit vector (sin first, cos second,
// because 0° points North rather than East) and the mean is the atan2 of
// the vector sum.
//
// When the vectors cancel (both summed components below 1e-12, e.g. two
// angles 180° apart) the mean is mathematically undefined and this returns
// 0. That fallback is deliberate policy inherited from the field tool this
// engine replaces; callers depend on it, do not "fix" it to an error.
func MeanAngleDeg(angles []float64) float64 {
	var s, c float64
	for _, a := range angles {
		r := d2r(a)
		s += math.Sin(r)
		c += math.Cos(r)
	}
	if math.Abs(s) < cancelEpsilon && math.Abs(c) < cancelEpsilon {
		return 0
	}
	return Wrap360(r2d(math.Atan2(s, c)))
}

// Azimuth returns the bearing in degrees from (sx, sy) to (px, py),
// measured clockwise from North. dx comes first in the atan2 because the
// reference axis is +Y, not the mathematical +X.
func Azimuth(sx, sy, px, py float64) float64 {
	return Wrap360(r2d(math.Atan2(px-sx, py-sy)))
}

// Inclination returns the elevation angle in degrees from (sx, sy, sz) to
// (px, py, pz). The result lies in (-90, 90).
func Inclination(sx, sy, sz, px, py, pz float64) float64 {
	dh := math.Hypot(px-sx, py-sy)
	return r2d(math.Atan2(pz-sz, dh))
}

// PolarOffset converts a corrected observation into a Cartesian offset from
// the station: dx East, dy North, dz up. A negative distance lands the
// offset behind the instrument along the same ray.
func PolarOffset(ahDeg, avDeg, dist float64) (dx, dy, dz float64) {
	dh := dist * math.Cos(d2r(avDeg))
	dz = dist * math.Sin(d2r(avDeg))
	dx = dh * math.Sin(d2r(ahDeg))
	dy = dh * math.Cos(d2r(ahDeg))
	return dx, dy, dz
}

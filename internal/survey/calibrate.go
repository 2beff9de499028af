package survey

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"collimator/internal/geomath"
)

// ErrNoReferencePoints is returned when Calibrate is given an empty set;
// the mean of nothing is undefined.
var ErrNoReferencePoints = errors.New("no reference points to calibrate from")

// Calibrate derives the station's systematic angular offset from a set of
// reference points with both known coordinates and observed angles.
//
// Validation of the reference set (at least two points, finite fields)
// belongs to the configuration layer; Calibrate runs on whatever non-empty
// set it receives, including a single point.
func Calibrate(st Station, pts []ReferencePoint) (CalibrationResult, error) {
	if len(pts) == 0 {
		return CalibrationResult{}, ErrNoReferencePoints
	}

	deltasAH := make([]float64, 0, len(pts))
	deltasAV := make([]float64, 0, len(pts))
	diags := make([]Diagnostic, 0, len(pts))

	for _, p := range pts {
		ahReal := geomath.Azimuth(st.X, st.Y, p.X, p.Y)
		avReal := geomath.Inclination(st.X, st.Y, st.Z, p.X, p.Y, p.Z)

		// Shortest signed discrepancy, so a pair straddling 0°/360°
		// does not blow up to nearly a full turn.
		dAH := geomath.Wrap180(ahReal - p.AHObs)
		dAV := avReal - p.AVObs

		dx := p.X - st.X
		dy := p.Y - st.Y
		dz := p.Z - st.Z
		distGeo := math.Sqrt(dx*dx + dy*dy + dz*dz)

		deltasAH = append(deltasAH, dAH)
		deltasAV = append(deltasAV, dAV)
		diags = append(diags, Diagnostic{
			Name:    p.Name,
			AHReal:  ahReal,
			AVReal:  avReal,
			AHObs:   p.AHObs,
			AVObs:   p.AVObs,
			DAH:     dAH,
			DAV:     dAV,
			DistGeo: distGeo,
			DistObs: p.DObs,
			DistRes: distGeo - p.DObs,
		})
	}

	// Azimuth deltas are angles and must be averaged circularly: deltas of
	// -179° and +179° mean the correction is near a half turn, not zero.
	wrapped := make([]float64, len(deltasAH))
	for i, d := range deltasAH {
		wrapped[i] = geomath.Wrap360(d)
	}
	ajusteAH := geomath.Wrap180(geomath.MeanAngleDeg(wrapped))

	// Inclination deltas never wrap; a plain mean is correct.
	ajusteAV := stat.Mean(deltasAV, nil)

	return CalibrationResult{
		AjusteAH:    ajusteAH,
		AjusteAV:    ajusteAV,
		Diagnostics: diags,
		NPoints:     len(pts),
	}, nil
}

// ResidualImprovement reports the mean absolute angular residual of the
// reference set before and after applying the calibration, averaged over
// both the azimuth and inclination channels. The correction is an average,
// so "after" is not necessarily zero, but it should not exceed "before".
func ResidualImprovement(cal CalibrationResult) (before, after float64) {
	if len(cal.Diagnostics) == 0 {
		return 0, 0
	}
	raw := make([]float64, 0, 2*len(cal.Diagnostics))
	corrected := make([]float64, 0, 2*len(cal.Diagnostics))
	for _, d := range cal.Diagnostics {
		raw = append(raw, math.Abs(d.DAH), math.Abs(d.DAV))
		corrected = append(corrected,
			math.Abs(geomath.Wrap180(d.DAH-cal.AjusteAH)),
			math.Abs(d.DAV-cal.AjusteAV))
	}
	return stat.Mean(raw, nil), stat.Mean(corrected, nil)
}

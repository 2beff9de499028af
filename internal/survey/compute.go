package survey

import "collimator/internal/geomath"

// ComputePoint applies the calibration to a raw shot and returns the
// resulting coordinate together with the corrected angles and the original
// observation.
//
// The corrected azimuth is normalized to [0, 360); the corrected
// inclination is left as-is, since the physical range is bounded and
// corrections are small (an extreme correction pushing past ±90° is
// accepted, not clamped). A negative distance is accepted and places the
// point behind the instrument along the same ray. Non-finite inputs
// propagate; rejecting them is the caller's job.
func ComputePoint(st Station, cal CalibrationResult, shot ObservedShot) ComputedPoint {
	ahCorr := geomath.Wrap360(shot.AHObs + cal.AjusteAH)
	avCorr := shot.AVObs + cal.AjusteAV

	dx, dy, dz := geomath.PolarOffset(ahCorr, avCorr, shot.DObs)

	return ComputedPoint{
		X:      st.X + dx,
		Y:      st.Y + dy,
		Z:      st.Z + dz,
		AHObs:  shot.AHObs,
		AVObs:  shot.AVObs,
		DObs:   shot.DObs,
		AHCorr: ahCorr,
		AVCorr: avCorr,
	}
}

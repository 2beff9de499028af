// Package survey implements the collimation core: calibrating a station's
// angular offsets against known reference points and computing coordinates
// for new observations. Everything in here is a pure function of its
// inputs; results are values, never caches.
package survey

// Station is the calibrated instrument (or camera) position in a planar
// projected coordinate system: X easting, Y northing, Z height. It is never
// mutated once calibration begins.
type Station struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

// ReferencePoint pairs known real-world coordinates with the raw angles
// observed when sighting the point from the station. DObs of 0 means the
// slope distance was not checked.
type ReferencePoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"X"`
	Y     float64 `json:"Y"`
	Z     float64 `json:"Z"`
	AHObs float64 `json:"AH_obs"`
	AVObs float64 `json:"AV_obs"`
	DObs  float64 `json:"D_obs"`
}

// Diagnostic is the per-reference-point residual row produced by Calibrate.
// DistRes is reported against DObs as entered, so points without a measured
// distance show the full geometric distance.
type Diagnostic struct {
	Name    string  `json:"name"`
	AHReal  float64 `json:"AH_real"`
	AVReal  float64 `json:"AV_real"`
	AHObs   float64 `json:"AH_obs"`
	AVObs   float64 `json:"AV_obs"`
	DAH     float64 `json:"dAH"`
	DAV     float64 `json:"dAV"`
	DistGeo float64 `json:"Dist_geom"`
	DistObs float64 `json:"Dist_obs"`
	DistRes float64 `json:"Dist_res"`
}

// CalibrationResult carries the aggregate angular correction and the
// per-point diagnostics it was derived from. Diagnostics keep the input
// order. Recompute it whenever the station or reference set changes; there
// is no incremental update rule.
type CalibrationResult struct {
	AjusteAH    float64      `json:"ajuste_ah"`
	AjusteAV    float64      `json:"ajuste_av"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	NPoints     int          `json:"n_points"`
}

// ObservedShot is a raw user-entered observation of a new, unknown point.
type ObservedShot struct {
	AHObs float64 `json:"AH_obs"`
	AVObs float64 `json:"AV_obs"`
	DObs  float64 `json:"D_obs"`
}

// ComputedPoint is the output of the point solver: corrected angles, the
// resulting coordinate, and the raw observation kept for audit and export.
// Owned by the caller once returned.
type ComputedPoint struct {
	ID     string  `json:"ID,omitempty"`
	X      float64 `json:"X"`
	Y      float64 `json:"Y"`
	Z      float64 `json:"Z"`
	AHObs  float64 `json:"AH_obs"`
	AVObs  float64 `json:"AV_obs"`
	DObs   float64 `json:"D_obs"`
	AHCorr float64 `json:"AH_corr"`
	AVCorr float64 `json:"AV_corr"`
}

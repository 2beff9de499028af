// Package config reads, validates and writes the survey configuration: the
// station position and the collimation (reference) point list. The on-disk
// shape round-trips through JSON; numeric fields tolerate locale-formatted
// strings on the way in and are written back as plain numbers.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"collimator/internal/survey"
)

// Camera is the wire form of the station position. Required fields are
// pointers so a missing coordinate is distinguishable from zero.
type Camera struct {
	X *Num `json:"X"`
	Y *Num `json:"Y"`
	Z *Num `json:"Z"`
}

// Point is the wire form of one collimation point.
type Point struct {
	Name  string `json:"name,omitempty"`
	X     *Num   `json:"X"`
	Y     *Num   `json:"Y"`
	Z     *Num   `json:"Z"`
	AHObs *Num   `json:"AH_obs"`
	AVObs *Num   `json:"AV_obs"`
	DObs  Num    `json:"D_obs,omitempty"`
}

// Config is the full survey configuration as stored on disk and exchanged
// over the API.
type Config struct {
	Camera            Camera  `json:"camera"`
	CollimationPoints []Point `json:"collimation_points"`
}

// MinReferencePoints is the smallest reference set that can separate a
// systematic offset from observation error.
const MinReferencePoints = 2

// Load reads and parses a configuration file. The result is not yet
// validated; call Normalize before handing it to the calibrator.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save validates the configuration and writes it back in canonical form:
// names filled in, numbers unquoted, two-space indent.
func Save(path string, cfg *Config) error {
	st, pts, err := cfg.Normalize()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(FromSurvey(st, pts), "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FromSurvey builds the canonical wire form from normalized survey values.
func FromSurvey(st survey.Station, pts []survey.ReferencePoint) *Config {
	num := func(v float64) *Num { n := Num(v); return &n }
	cfg := &Config{
		Camera: Camera{X: num(st.X), Y: num(st.Y), Z: num(st.Z)},
	}
	for _, p := range pts {
		cfg.CollimationPoints = append(cfg.CollimationPoints, Point{
			Name:  p.Name,
			X:     num(p.X),
			Y:     num(p.Y),
			Z:     num(p.Z),
			AHObs: num(p.AHObs),
			AVObs: num(p.AVObs),
			DObs:  Num(p.DObs),
		})
	}
	return cfg
}

// Normalize validates the configuration and converts it into the survey
// types the calibrator consumes:
//
//   - station coordinates must be present and finite;
//   - at least MinReferencePoints collimation points are required;
//   - every point's X/Y/Z/AH_obs/AV_obs must be present and finite,
//     errors name the offending point;
//   - a missing name defaults to PT<n> (1-based);
//   - a missing or non-finite D_obs becomes 0 ("distance not checked").
func (c *Config) Normalize() (survey.Station, []survey.ReferencePoint, error) {
	var st survey.Station

	camFields := []struct {
		name string
		val  *Num
		dst  *float64
	}{
		{"X", c.Camera.X, &st.X},
		{"Y", c.Camera.Y, &st.Y},
		{"Z", c.Camera.Z, &st.Z},
	}
	for _, f := range camFields {
		v, err := requireFinite(f.val)
		if err != nil {
			return survey.Station{}, nil, fmt.Errorf("camera: %s %w", f.name, err)
		}
		*f.dst = v
	}

	if len(c.CollimationPoints) < MinReferencePoints {
		return survey.Station{}, nil, fmt.Errorf(
			"at least %d collimation points are required, got %d",
			MinReferencePoints, len(c.CollimationPoints))
	}

	pts := make([]survey.ReferencePoint, 0, len(c.CollimationPoints))
	for i, p := range c.CollimationPoints {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("PT%d", i+1)
		}

		rp := survey.ReferencePoint{Name: name}
		ptFields := []struct {
			name string
			val  *Num
			dst  *float64
		}{
			{"X", p.X, &rp.X},
			{"Y", p.Y, &rp.Y},
			{"Z", p.Z, &rp.Z},
			{"AH_obs", p.AHObs, &rp.AHObs},
			{"AV_obs", p.AVObs, &rp.AVObs},
		}
		for _, f := range ptFields {
			v, err := requireFinite(f.val)
			if err != nil {
				return survey.Station{}, nil, fmt.Errorf(
					"collimation point %q: %s %w", name, f.name, err)
			}
			*f.dst = v
		}

		// Non-finite distances are treated as "not checked", never an error.
		if d := float64(p.DObs); !math.IsNaN(d) && !math.IsInf(d, 0) {
			rp.DObs = d
		}

		pts = append(pts, rp)
	}

	return st, pts, nil
}

func requireFinite(n *Num) (float64, error) {
	if n == nil {
		return 0, fmt.Errorf("is missing")
	}
	v := float64(*n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return v, nil
}

package export

import (
	"encoding/json"
	"fmt"
	"io"

	"collimator/internal/survey"
)

// Reprojector converts projected planar coordinates into the coordinate
// system the GeoJSON consumer expects (normally lon/lat). Reprojection is
// deliberately external to this tool; wire in a PROJ binding or similar. A
// nil Reprojector leaves coordinates in the survey CRS.
type Reprojector interface {
	Reproject(x, y float64) (float64, float64, error)
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds a point geometry with [x, y, z] coordinates.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// WriteGeoJSON writes the points as a GeoJSON FeatureCollection. The
// corrected angles and raw observation ride along as feature properties.
// crsName labels the collection when the coordinates are not reprojected.
func WriteGeoJSON(w io.Writer, points []survey.ComputedPoint, crsName string, reproj Reprojector) error {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(points)),
	}
	if reproj == nil {
		fc.Name = crsName
	}

	for _, p := range points {
		x, y := p.X, p.Y
		if reproj != nil {
			var err error
			x, y, err = reproj.Reproject(p.X, p.Y)
			if err != nil {
				return fmt.Errorf("reproject point %s: %w", p.ID, err)
			}
		}
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: []float64{x, y, p.Z}},
			Properties: map[string]any{
				"ID":      p.ID,
				"AH_obs":  p.AHObs,
				"AV_obs":  p.AVObs,
				"D_obs":   p.DObs,
				"AH_corr": p.AHCorr,
				"AV_corr": p.AVCorr,
			},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return nil
}

package export

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"

	"collimator/internal/survey"
)

// WriteShapefile writes the points as a PointZ shapefile at basePath
// (".shp" and its companion files are created next to it). Attribute
// columns mirror the delimited-text export.
func WriteShapefile(basePath string, points []survey.ComputedPoint) error {
	w, err := shp.Create(basePath, shp.POINTZ)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", basePath, err)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.StringField("ID", 32),
		shp.FloatField("AH_OBS", 12, 4),
		shp.FloatField("AV_OBS", 12, 4),
		shp.FloatField("D_OBS", 12, 3),
		shp.FloatField("AH_CORR", 12, 4),
		shp.FloatField("AV_CORR", 12, 4),
	}
	w.SetFields(fields)

	for n, p := range points {
		w.Write(&shp.PointZ{X: p.X, Y: p.Y, Z: p.Z})
		w.WriteAttribute(n, 0, p.ID)
		w.WriteAttribute(n, 1, p.AHObs)
		w.WriteAttribute(n, 2, p.AVObs)
		w.WriteAttribute(n, 3, p.DObs)
		w.WriteAttribute(n, 4, p.AHCorr)
		w.WriteAttribute(n, 5, p.AVCorr)
	}
	return nil
}

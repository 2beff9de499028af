package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collimator/internal/survey"
)

func testPoints() []survey.ComputedPoint {
	return []survey.ComputedPoint{
		{ID: "P1", X: 17.365, Y: 98.481, Z: 0, AHObs: 0, AVObs: 0, DObs: 100, AHCorr: 10, AVCorr: 0},
		{ID: "P2", X: -12.5, Y: 0.125, Z: 3.75, AHObs: 270.5, AVObs: 2.25, DObs: 12.5, AHCorr: 280.5, AVCorr: 2.25},
	}
}

func TestWriteDelimitedDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteDelimited(&buf, testPoints(), Options{}))

	want := "ID;X;Y;Z;AH_obs;AV_obs;D_obs;AH_corr;AV_corr\n" +
		"P1;17.365;98.481;0.000;0.0000;0.0000;100.000;10.0000;0.0000\n" +
		"P2;-12.500;0.125;3.750;270.5000;2.2500;12.500;280.5000;2.2500\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteDelimitedCommaDecimal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteDelimited(&buf, testPoints(), Options{Sep: "\t", Decimal: ","}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "P1\t17,365\t98,481\t0,000\t0,0000\t0,0000\t100,000\t10,0000\t0,0000", lines[1])
	assert.NotContains(t, lines[1], ".")
}

func TestWriteDelimitedEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteDelimited(&buf, nil, Options{}))
	assert.Equal(t, "ID;X;Y;Z;AH_obs;AV_obs;D_obs;AH_corr;AV_corr\n", buf.String())
}

func TestWriteGeoJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testPoints(), "EPSG:25830", nil))

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, "EPSG:25830", fc.Name)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 3)
	assert.InDelta(t, 17.365, f.Geometry.Coordinates[0], 1e-9)
	assert.InDelta(t, 98.481, f.Geometry.Coordinates[1], 1e-9)
	assert.InDelta(t, 0, f.Geometry.Coordinates[2], 1e-9)
	assert.Equal(t, "P1", f.Properties["ID"])
	assert.InDelta(t, 10.0, f.Properties["AH_corr"].(float64), 1e-9)
}

type shiftReprojector struct{ dx, dy float64 }

func (r shiftReprojector) Reproject(x, y float64) (float64, float64, error) {
	return x + r.dx, y + r.dy, nil
}

type failingReprojector struct{}

func (failingReprojector) Reproject(x, y float64) (float64, float64, error) {
	return 0, 0, errors.New("outside grid")
}

func TestWriteGeoJSONReprojected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testPoints(), "EPSG:25830", shiftReprojector{dx: 1000, dy: 2000}))

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	// reprojected output is no longer in the survey CRS, so it is unlabeled
	assert.Empty(t, fc.Name)
	assert.InDelta(t, 1017.365, fc.Features[0].Geometry.Coordinates[0], 1e-9)
	assert.InDelta(t, 2098.481, fc.Features[0].Geometry.Coordinates[1], 1e-9)
}

func TestWriteGeoJSONReprojectError(t *testing.T) {
	t.Parallel()

	err := WriteGeoJSON(&bytes.Buffer{}, testPoints(), "", failingReprojector{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "P1")
}

func TestWriteShapefileRoundTrip(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "points.shp")
	pts := testPoints()
	require.NoError(t, WriteShapefile(base, pts))

	r, err := shp.Open(base)
	require.NoError(t, err)
	defer r.Close()

	fields := r.Fields()
	require.NotEmpty(t, fields)

	var got []shp.PointZ
	var ids []string
	for r.Next() {
		idx, shape := r.Shape()
		pz, ok := shape.(*shp.PointZ)
		require.True(t, ok)
		got = append(got, *pz)
		ids = append(ids, strings.TrimSpace(r.ReadAttribute(idx, 0)))
	}

	require.Len(t, got, len(pts))
	for i, p := range pts {
		assert.InDelta(t, p.X, got[i].X, 1e-6)
		assert.InDelta(t, p.Y, got[i].Y, 1e-6)
		assert.InDelta(t, p.Z, got[i].Z, 1e-6)
		assert.Equal(t, p.ID, ids[i])
	}
}

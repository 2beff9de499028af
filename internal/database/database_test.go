package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collimator/internal/survey"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReferenceSet() (survey.Station, []survey.ReferencePoint) {
	st := survey.Station{X: 100, Y: 200, Z: 10}
	pts := []survey.ReferencePoint{
		{Name: "BASE", X: 100, Y: 300, Z: 10, AHObs: 0.5, AVObs: 0, DObs: 100},
		{Name: "REF2", X: 200, Y: 200, Z: 12, AHObs: 90.25, AVObs: 1.1},
	}
	return st, pts
}

func TestSaveAndGetSurvey(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	st, pts := testReferenceSet()
	id, err := db.SaveSurvey("yard", st, pts)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, gotPts, err := db.GetSurvey(id)
	require.NoError(t, err)
	assert.Equal(t, "yard", rec.Name)
	assert.Equal(t, st, rec.Station)
	assert.Equal(t, pts, gotPts)

	byName, _, err := db.GetSurveyByName("yard")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
}

func TestGetSurveyNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	_, _, err := db.GetSurvey("no-such-id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSurveyReplacesReferenceSet(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	st, pts := testReferenceSet()
	id, err := db.SaveSurvey("yard", st, pts)
	require.NoError(t, err)

	newSt := survey.Station{X: 101, Y: 201, Z: 11}
	newPts := []survey.ReferencePoint{
		{Name: "ONLY", X: 0, Y: 50, Z: 0, AHObs: 180, AVObs: -2, DObs: 50},
	}
	require.NoError(t, db.UpdateSurvey(id, newSt, newPts))

	rec, gotPts, err := db.GetSurvey(id)
	require.NoError(t, err)
	assert.Equal(t, newSt, rec.Station)
	assert.Equal(t, newPts, gotPts)

	assert.ErrorIs(t, db.UpdateSurvey("missing", newSt, newPts), ErrNotFound)
}

func TestEnsureSurvey(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	st, pts := testReferenceSet()
	id1, err := db.EnsureSurvey("field-a", st, pts)
	require.NoError(t, err)
	id2, err := db.EnsureSurvey("field-a", st, pts)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	recs, err := db.ListSurveys()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestComputedPointsRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	st, pts := testReferenceSet()
	id, err := db.SaveSurvey("yard", st, pts)
	require.NoError(t, err)

	want := []survey.ComputedPoint{
		{ID: "P1", X: 1, Y: 2, Z: 3, AHObs: 10, AVObs: 1, DObs: 50, AHCorr: 10.5, AVCorr: 1.1},
		{ID: "P2", X: 4, Y: 5, Z: 6, AHObs: 20, AVObs: -1, DObs: -30, AHCorr: 20.5, AVCorr: -0.9},
		{ID: "P3", X: 7, Y: 8, Z: 9, AHObs: 359.9, AVObs: 0, DObs: 75, AHCorr: 0.4, AVCorr: 0.1},
	}
	for _, p := range want {
		require.NoError(t, db.AppendComputedPoint(id, p))
	}

	got, err := db.ComputedPoints(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	n, err := db.CountComputedPoints(id)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteSurvey(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	st, pts := testReferenceSet()
	id, err := db.SaveSurvey("gone", st, pts)
	require.NoError(t, err)
	require.NoError(t, db.AppendComputedPoint(id, survey.ComputedPoint{ID: "P1"}))

	require.NoError(t, db.DeleteSurvey(id))

	_, _, err = db.GetSurvey(id)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := db.ComputedPoints(id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

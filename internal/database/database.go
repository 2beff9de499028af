// Package database persists named surveys (station plus reference points)
// and their computed-point lists in a local SQLite file. The computation
// core never touches this layer; it stores and returns plain survey values.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"collimator/internal/survey"
)

// ErrNotFound is returned when a survey id or name has no row.
var ErrNotFound = errors.New("survey not found")

// Database wraps the SQLite connection.
type Database struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS surveys (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	station_x  DOUBLE NOT NULL,
	station_y  DOUBLE NOT NULL,
	station_z  DOUBLE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS reference_points (
	survey_id  TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	x          DOUBLE NOT NULL,
	y          DOUBLE NOT NULL,
	z          DOUBLE NOT NULL,
	ah_obs     DOUBLE NOT NULL,
	av_obs     DOUBLE NOT NULL,
	d_obs      DOUBLE NOT NULL,
	PRIMARY KEY (survey_id, seq),
	FOREIGN KEY (survey_id) REFERENCES surveys(id)
);
CREATE TABLE IF NOT EXISTS computed_points (
	survey_id  TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	point_id   TEXT NOT NULL,
	x          DOUBLE NOT NULL,
	y          DOUBLE NOT NULL,
	z          DOUBLE NOT NULL,
	ah_obs     DOUBLE NOT NULL,
	av_obs     DOUBLE NOT NULL,
	d_obs      DOUBLE NOT NULL,
	ah_corr    DOUBLE NOT NULL,
	av_corr    DOUBLE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (survey_id, seq),
	FOREIGN KEY (survey_id) REFERENCES surveys(id)
);
`

// NewDatabase opens (creating if needed) the SQLite file at path and
// ensures the schema exists.
func NewDatabase(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// SurveyRecord is a stored survey header.
type SurveyRecord struct {
	ID        string
	Name      string
	Station   survey.Station
	CreatedAt time.Time
}

// SaveSurvey creates a new survey with the given reference set and returns
// its id.
func (d *Database) SaveSurvey(name string, st survey.Station, pts []survey.ReferencePoint) (string, error) {
	id := uuid.NewString()

	tx, err := d.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO surveys (id, name, station_x, station_y, station_z) VALUES (?, ?, ?, ?, ?)`,
		id, name, st.X, st.Y, st.Z)
	if err != nil {
		return "", fmt.Errorf("failed to insert survey: %w", err)
	}
	if err := insertReferencePoints(tx, id, pts); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit survey: %w", err)
	}
	return id, nil
}

// UpdateSurvey replaces the station and reference set of an existing survey
// atomically. The stored computed points are left alone; callers are
// expected to recalibrate before computing further points.
func (d *Database) UpdateSurvey(id string, st survey.Station, pts []survey.ReferencePoint) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE surveys SET station_x = ?, station_y = ?, station_z = ? WHERE id = ?`,
		st.X, st.Y, st.Z, id)
	if err != nil {
		return fmt.Errorf("failed to update survey: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM reference_points WHERE survey_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear reference points: %w", err)
	}
	if err := insertReferencePoints(tx, id, pts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit survey update: %w", err)
	}
	return nil
}

func insertReferencePoints(tx *sql.Tx, surveyID string, pts []survey.ReferencePoint) error {
	for i, p := range pts {
		_, err := tx.Exec(
			`INSERT INTO reference_points (survey_id, seq, name, x, y, z, ah_obs, av_obs, d_obs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			surveyID, i+1, p.Name, p.X, p.Y, p.Z, p.AHObs, p.AVObs, p.DObs)
		if err != nil {
			return fmt.Errorf("failed to insert reference point %q: %w", p.Name, err)
		}
	}
	return nil
}

// GetSurvey returns a survey header and its reference points by id.
func (d *Database) GetSurvey(id string) (SurveyRecord, []survey.ReferencePoint, error) {
	return d.getSurvey(`SELECT id, name, station_x, station_y, station_z, created_at FROM surveys WHERE id = ?`, id)
}

// GetSurveyByName returns a survey header and its reference points by name.
func (d *Database) GetSurveyByName(name string) (SurveyRecord, []survey.ReferencePoint, error) {
	return d.getSurvey(`SELECT id, name, station_x, station_y, station_z, created_at FROM surveys WHERE name = ?`, name)
}

func (d *Database) getSurvey(query, arg string) (SurveyRecord, []survey.ReferencePoint, error) {
	var rec SurveyRecord
	err := d.db.QueryRow(query, arg).Scan(
		&rec.ID, &rec.Name, &rec.Station.X, &rec.Station.Y, &rec.Station.Z, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SurveyRecord{}, nil, ErrNotFound
		}
		return SurveyRecord{}, nil, fmt.Errorf("failed to query survey: %w", err)
	}

	rows, err := d.db.Query(
		`SELECT name, x, y, z, ah_obs, av_obs, d_obs FROM reference_points WHERE survey_id = ? ORDER BY seq`,
		rec.ID)
	if err != nil {
		return SurveyRecord{}, nil, fmt.Errorf("failed to query reference points: %w", err)
	}
	defer rows.Close()

	var pts []survey.ReferencePoint
	for rows.Next() {
		var p survey.ReferencePoint
		if err := rows.Scan(&p.Name, &p.X, &p.Y, &p.Z, &p.AHObs, &p.AVObs, &p.DObs); err != nil {
			return SurveyRecord{}, nil, fmt.Errorf("failed to scan reference point: %w", err)
		}
		pts = append(pts, p)
	}
	if err := rows.Err(); err != nil {
		return SurveyRecord{}, nil, fmt.Errorf("failed to read reference points: %w", err)
	}
	return rec, pts, nil
}

// EnsureSurvey returns the id of the survey with the given name, creating
// it from the provided station and reference set when absent.
func (d *Database) EnsureSurvey(name string, st survey.Station, pts []survey.ReferencePoint) (string, error) {
	rec, _, err := d.GetSurveyByName(name)
	if err == nil {
		return rec.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return d.SaveSurvey(name, st, pts)
}

// ListSurveys returns all survey headers, newest first.
func (d *Database) ListSurveys() ([]SurveyRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, name, station_x, station_y, station_z, created_at FROM surveys ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var recs []SurveyRecord
	for rows.Next() {
		var rec SurveyRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Station.X, &rec.Station.Y, &rec.Station.Z, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteSurvey removes a survey and everything hanging off it.
func (d *Database) DeleteSurvey(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM computed_points WHERE survey_id = ?`,
		`DELETE FROM reference_points WHERE survey_id = ?`,
		`DELETE FROM surveys WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete survey: %w", err)
		}
	}
	return tx.Commit()
}

// AppendComputedPoint stores a computed point at the end of the survey's
// point list.
func (d *Database) AppendComputedPoint(surveyID string, p survey.ComputedPoint) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM computed_points WHERE survey_id = ?`, surveyID).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to allocate point sequence: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO computed_points (survey_id, seq, point_id, x, y, z, ah_obs, av_obs, d_obs, ah_corr, av_corr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		surveyID, next, p.ID, p.X, p.Y, p.Z, p.AHObs, p.AVObs, p.DObs, p.AHCorr, p.AVCorr)
	if err != nil {
		return fmt.Errorf("failed to insert computed point: %w", err)
	}
	return tx.Commit()
}

// ComputedPoints returns the survey's computed points in insertion order.
func (d *Database) ComputedPoints(surveyID string) ([]survey.ComputedPoint, error) {
	rows, err := d.db.Query(
		`SELECT point_id, x, y, z, ah_obs, av_obs, d_obs, ah_corr, av_corr
		 FROM computed_points WHERE survey_id = ? ORDER BY seq`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query computed points: %w", err)
	}
	defer rows.Close()

	var pts []survey.ComputedPoint
	for rows.Next() {
		var p survey.ComputedPoint
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Z, &p.AHObs, &p.AVObs, &p.DObs, &p.AHCorr, &p.AVCorr); err != nil {
			return nil, fmt.Errorf("failed to scan computed point: %w", err)
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// CountComputedPoints returns how many points the survey has stored.
func (d *Database) CountComputedPoints(surveyID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM computed_points WHERE survey_id = ?`, surveyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count computed points: %w", err)
	}
	return n, nil
}

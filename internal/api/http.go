// Package api exposes the survey engine over HTTP as a small JSON API.
// Calibration is recomputed from the stored configuration on every request
// that needs it; it is a value derived from the config, never a cache that
// can go stale.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"collimator/internal/config"
	"collimator/internal/database"
	"collimator/internal/export"
	"collimator/internal/survey"
)

// Server serves the survey API from a configuration file and, optionally,
// a database holding the computed-point list.
type Server struct {
	configPath string
	db         *database.Database // nil disables persistence
	surveyID   string
	mux        *http.ServeMux

	mu sync.Mutex // serializes config writes and point appends
}

// NewServer builds a server over the given config file. db may be nil; when
// set, computed points are appended to the survey identified by surveyID.
func NewServer(configPath string, db *database.Database, surveyID string) *Server {
	s := &Server{configPath: configPath, db: db, surveyID: surveyID, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/api/config", s.configHandler)
	s.mux.HandleFunc("/api/calibrate", s.calibrate)
	s.mux.HandleFunc("/api/compute", s.compute)
	s.mux.HandleFunc("/api/export", s.exportText)
	s.mux.HandleFunc("/api/points", s.points)
}

// calibrated loads the config file, validates it and recomputes the
// calibration from scratch.
func (s *Server) calibrated() (survey.Station, []survey.ReferencePoint, survey.CalibrationResult, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return survey.Station{}, nil, survey.CalibrationResult{}, err
	}
	st, pts, err := cfg.Normalize()
	if err != nil {
		return survey.Station{}, nil, survey.CalibrationResult{}, err
	}
	cal, err := survey.Calibrate(st, pts)
	if err != nil {
		return survey.Station{}, nil, survey.CalibrationResult{}, err
	}
	return st, pts, cal, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getConfig(w, r)
	case http.MethodPost:
		s.setConfig(w, r)
	default:
		http.Error(w, "GET or POST only", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	st, pts, cal, err := s.calibrated()
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, map[string]any{
		"ok":          true,
		"config":      config.FromSurvey(st, pts),
		"calibration": cal,
	})
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Errorf("invalid config json: %w", err))
		return
	}
	st, pts, err := cfg.Normalize()
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	err = config.Save(s.configPath, &cfg)
	s.mu.Unlock()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err)
		return
	}

	// The reference set changed, so the calibration must be rebuilt.
	cal, err := survey.Calibrate(st, pts)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, map[string]any{
		"ok":          true,
		"message":     "configuration saved and recalibrated",
		"calibration": cal,
	})
}

func (s *Server) calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	_, _, cal, err := s.calibrated()
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "calibration": cal})
}

func (s *Server) compute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ID    string      `json:"ID"`
		AHObs *config.Num `json:"AH_obs"`
		AVObs *config.Num `json:"AV_obs"`
		DObs  *config.Num `json:"D_obs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	for name, v := range map[string]*config.Num{"AH_obs": body.AHObs, "AV_obs": body.AVObs, "D_obs": body.DObs} {
		if v == nil {
			errorJSON(w, http.StatusBadRequest, fmt.Errorf("%s is missing", name))
			return
		}
	}

	st, _, cal, err := s.calibrated()
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err)
		return
	}

	shot := survey.ObservedShot{
		AHObs: float64(*body.AHObs),
		AVObs: float64(*body.AVObs),
		DObs:  float64(*body.DObs),
	}
	pt := survey.ComputePoint(st, cal, shot)
	pt.ID = body.ID

	if s.db != nil {
		s.mu.Lock()
		if pt.ID == "" {
			if n, err := s.db.CountComputedPoints(s.surveyID); err == nil {
				pt.ID = fmt.Sprintf("P%d", n+1)
			}
		}
		err = s.db.AppendComputedPoint(s.surveyID, pt)
		s.mu.Unlock()
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, err)
			return
		}
	}

	writeJSON(w, map[string]any{
		"ok":     true,
		"result": pt,
		"calibration": map[string]float64{
			"ajuste_ah": cal.AjusteAH,
			"ajuste_av": cal.AjusteAV,
		},
	})
}

func (s *Server) points(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		errorJSON(w, http.StatusNotFound, errors.New("no point store attached"))
		return
	}
	pts, err := s.db.ComputedPoints(s.surveyID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err)
		return
	}
	if pts == nil {
		pts = []survey.ComputedPoint{}
	}
	writeJSON(w, map[string]any{"ok": true, "points": pts})
}

func (s *Server) exportText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Points   []survey.ComputedPoint `json:"points"`
		Sep      string                 `json:"sep"`
		Decimal  string                 `json:"decimal"`
		Filename string                 `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	pts := body.Points
	if pts == nil && s.db != nil {
		var err error
		pts, err = s.db.ComputedPoints(s.surveyID)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, err)
			return
		}
	}

	filename := body.Filename
	if filename == "" {
		filename = "computed_points.txt"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".txt") {
		filename += ".txt"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteDelimited(w, pts, export.Options{Sep: body.Sep, Decimal: body.Decimal}); err != nil {
		// headers are gone already; nothing better to do than log-by-status
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error()})
}

// Command server exposes the collimation survey engine as an HTTP JSON
// API over a configuration file, optionally persisting computed points to
// a local SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"collimator/internal/api"
	"collimator/internal/config"
	"collimator/internal/database"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:5000", "address to listen on")
	configPath := flag.String("config", "config.json", "path to the survey configuration file")
	dbPath := flag.String("db", "", "path to the SQLite point store (empty disables persistence)")
	surveyName := flag.String("survey", "default", "survey name within the point store")
	flag.Parse()

	// Validate and calibrate once at startup so a broken config fails
	// loudly here instead of on the first request.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	st, pts, err := cfg.Normalize()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var db *database.Database
	var surveyID string
	if *dbPath != "" {
		db, err = database.NewDatabase(*dbPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		surveyID, err = db.EnsureSurvey(*surveyName, st, pts)
		if err != nil {
			log.Fatalf("prepare survey %q: %v", *surveyName, err)
		}
		log.Printf("point store %s, survey %q (%s)", *dbPath, *surveyName, surveyID)
	}

	srv := &http.Server{
		Addr:    *listen,
		Handler: api.NewServer(*configPath, db, surveyID).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on http://%s (%d reference points)", *listen, len(pts))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

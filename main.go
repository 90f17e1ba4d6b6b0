package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gaitspec/adapters/postgres"
	"gaitspec/adapters/specdoc"
	"gaitspec/adapters/tables"
	"gaitspec/api"
	"gaitspec/internal"
	"gaitspec/internal/comparator"
	"gaitspec/internal/config"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/internal/specstore"
	"gaitspec/internal/tuner"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.DefaultLogger

	// Durable spec history is optional; without a database the store keeps
	// version history in memory for the process lifetime.
	var repo ports.SpecRepository
	var results ports.ResultRepository
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		repo = postgres.NewSpecRepository(db)
		results = postgres.NewResultRepository(db)
		logger.Info("spec version history and validation results persisted to postgres")
	} else {
		logger.Warn("DATABASE_URL not set, spec version history is in-memory only")
	}

	// Seed the first committed version from the literature document.
	loader := specdoc.NewLoader()
	doc, err := loader.LoadSeed(cfg.Paths.SpecSeedFile)
	if err != nil {
		log.Fatalf("Failed to load seed specification: %v", err)
	}
	ranges, err := specdoc.ToRanges(doc)
	if err != nil {
		log.Fatalf("Seed specification is invalid: %v", err)
	}
	store, err := specstore.New(ranges, doc.Rationale, repo, logger)
	if err != nil {
		log.Fatalf("Failed to initialize specification store: %v", err)
	}

	seg := segmenter.NewSegmenter(cfg.Engine.ForceThresholdN, logger)
	res := resampler.NewResampler(cfg.Engine.ResamplePoints)
	val := validator.NewValidator(seg, res, cfg.Engine.WorkerCapacity, logger)
	tun := tuner.NewTuner(store, val, cfg.Engine.MinSampleSize, logger)
	comp := comparator.NewComparator(val, logger)
	reader := tables.NewReader(cfg.Engine.ResamplePoints, logger)

	app := api.NewApp(api.Deps{
		Store:      store,
		Validator:  val,
		Tuner:      tun,
		Comparator: comp,
		Reader:     reader,
		Results:    results,
		Logger:     logger,
	})

	logger.Info("starting gaitspec server on port %s (spec version %s)", cfg.Server.Port, store.LiveVersion())
	log.Fatal(app.Serve(api.Config{Port: cfg.Server.Port}))
}

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gaitspec/internal"
	"gaitspec/internal/comparator"
	"gaitspec/internal/specstore"
	"gaitspec/internal/tuner"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

// App is the HTTP surface over the validation engine. It owns no domain
// state; every handler delegates to the engine components it is wired with.
type App struct {
	router     *chi.Mux
	store      *specstore.Store
	validator  *validator.Validator
	tuner      *tuner.Tuner
	comparator *comparator.Comparator
	reader     ports.DatasetReader
	results    ports.ResultRepository // optional audit trail
	logger     *internal.Logger
}

// Config holds HTTP application configuration
type Config struct {
	Port string
}

// Deps bundles the engine components the API exposes
type Deps struct {
	Store      *specstore.Store
	Validator  *validator.Validator
	Tuner      *tuner.Tuner
	Comparator *comparator.Comparator
	Reader     ports.DatasetReader
	Results    ports.ResultRepository
	Logger     *internal.Logger
}

// NewApp creates the HTTP application
func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	app := &App{
		router:     chi.NewRouter(),
		store:      deps.Store,
		validator:  deps.Validator,
		tuner:      deps.Tuner,
		comparator: deps.Comparator,
		reader:     deps.Reader,
		results:    deps.Results,
		logger:     logger.Named("api"),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	// Validation endpoints
	a.router.Post("/api/validate", a.handleValidate)
	a.router.Post("/api/validate/batch", a.handleValidateBatch)
	a.router.Get("/api/results/{datasetID}", a.handleResults)

	// Specification endpoints
	a.router.Get("/api/spec/current", a.handleSpecCurrent)
	a.router.Get("/api/spec/versions", a.handleSpecVersions)
	a.router.Post("/api/spec/propose/manual", a.handleProposeManual)
	a.router.Post("/api/spec/propose/auto", a.handleProposeAuto)
	a.router.Post("/api/spec/preview", a.handlePreview)
	a.router.Post("/api/spec/commit", a.handleCommit)
	a.router.Post("/api/spec/rollback", a.handleRollback)

	// Cross-dataset comparison
	a.router.Post("/api/compare", a.handleCompare)
}

// Router exposes the configured handler for serving and tests
func (a *App) Router() http.Handler {
	return a.router
}

// Serve blocks serving HTTP on the configured port
func (a *App) Serve(cfg Config) error {
	addr := fmt.Sprintf(":%s", cfg.Port)
	a.logger.Info("listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

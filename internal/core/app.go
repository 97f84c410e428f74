package core

import (
	"fmt"
	"log"
	"sync"

	"github.com/vrsandeep/readme-console/internal/backend"
	"github.com/vrsandeep/readme-console/internal/config"
	"github.com/vrsandeep/readme-console/internal/console"
	"github.com/vrsandeep/readme-console/internal/jobs"
	"github.com/vrsandeep/readme-console/internal/metrics"
	"github.com/vrsandeep/readme-console/internal/websocket"
)

// Version is reported by the server and CLI. Release builds set it with
// -ldflags "-X github.com/vrsandeep/readme-console/internal/core.Version=...".
var Version = "dev"

// App holds the core components shared between the server and the CLI.
type App struct {
	Version string

	mu     sync.RWMutex
	config *config.Config
	loader *config.Loader

	backend    *backend.Client
	metrics    *metrics.SubmissionMetrics
	wsHub      *websocket.Hub
	consoles   *console.Registry
	jobManager *jobs.JobManager
}

// New loads config.yml and the environment and sets up an App.
func New() (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	app, err := NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	app.loader = loader
	return app, nil
}

// NewWithConfig sets up an App around an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*App, error) {
	m, err := metrics.NewSubmissionMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &App{
		Version: Version,
		config:  cfg,
		backend: backend.NewClient(cfg),
		metrics: m,
		wsHub:   websocket.NewHub(),
	}
	go app.wsHub.Run()

	app.consoles = console.NewRegistry(app.newConsole)
	app.jobManager = jobs.NewManager(app)
	jobs.RegisterJobs(app.jobManager)

	log.Printf("Core application setup complete. Backend: %s", app.backend.BaseURL())
	return app, nil
}

// newConsole builds a browser console whose changes are pushed to the
// browsers watching it.
func (a *App) newConsole(id string) *console.Console {
	return console.New(id, a.backend,
		console.WithMetrics(a.metrics),
		console.WithOnChange(func(s console.Snapshot) {
			a.wsHub.BroadcastJSON(s.ConsoleID, console.Update(s))
		}),
	)
}

// NewConsole builds a console that is not tracked by the registry, for
// one-shot use such as the CLI.
func (a *App) NewConsole(id string, opts ...console.Option) *console.Console {
	opts = append([]console.Option{console.WithMetrics(a.metrics)}, opts...)
	return console.New(id, a.backend, opts...)
}

// WatchConfig applies config file changes while the app runs. Only the
// backend address is picked up; other settings need a restart.
func (a *App) WatchConfig() {
	if a.loader == nil {
		return
	}
	a.loader.Watch(a.applyConfig)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()

	if cfg.Backend.BaseURL != a.backend.BaseURL() {
		log.Printf("Backend address changed to %s", cfg.Backend.BaseURL)
		a.backend.SetBaseURL(cfg.Backend.BaseURL)
	}
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) Backend() *backend.Client            { return a.backend }
func (a *App) Metrics() *metrics.SubmissionMetrics { return a.metrics }
func (a *App) WsHub() *websocket.Hub               { return a.wsHub }
func (a *App) Consoles() *console.Registry         { return a.consoles }
func (a *App) JobManager() *jobs.JobManager        { return a.jobManager }

// Close cancels every in-flight submission.
func (a *App) Close() {
	a.consoles.CloseAll()
}

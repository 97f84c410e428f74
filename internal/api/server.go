// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/readme-console/internal/assets"
	"github.com/vrsandeep/readme-console/internal/core"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	index *template.Template
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	index := template.Must(template.ParseFS(assets.WebFS, "web/index.html", "web/panel.html"))
	return &Server{
		app:   app,
		index: index,
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/version", s.handleGetVersion)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"consoles": s.app.Consoles().Len(),
		})
	})

	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/status", s.handleGetJobsStatus)
		r.Post("/run", s.handleRunJob)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.ConsoleMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/api/generate", s.handleGenerate)

		r.Route("/api/console", func(r chi.Router) {
			r.Get("/", s.handleGetConsole)
			r.Get("/panel", s.handleGetPanel)
			r.Get("/download", s.handleDownload)
		})

		// WebSocket route
		r.Get("/ws/console", s.handleConsoleWs)
	})

	// Frontend Routes
	webSubFS, err := fs.Sub(assets.WebFS, "web")
	if err != nil {
		log.Fatalf("Failed to create web sub-filesystem: %v", err)
	}

	// Create a file server for the static assets within the embedded FS.
	staticFS, err := fs.Sub(webSubFS, "dist")
	if err != nil {
		log.Fatalf("Failed to create static sub-filesystem: %v", err)
	}
	FileServer(r, "/static/", http.FS(staticFS))

	return r
}

// FileServer conveniently sets up a static file server that doesn't list directories.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	fs := http.StripPrefix(path, http.FileServer(root))
	r.Get(path+"*", func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 0 && r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

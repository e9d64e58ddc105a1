package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/docstore"
	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/navstate"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/sse"
)

// Server is the HTTP API server for docdeck.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	site         *manifest.Manifest
	store        *docstore.Store
	renderer     *render.Renderer
	stats        *pipeline.RenderStats
	broker       *sse.Broker
	nav          navstate.Config
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, store *docstore.Store, renderer *render.Renderer, stats *pipeline.RenderStats, broker *sse.Broker, log *slog.Logger, cfg config.Config) *Server {
	nav := navstate.DefaultConfig()
	nav.Band.TopMargin = cfg.BandTopMargin
	nav.Band.BottomMargin = cfg.BandBottomMargin
	nav.ScrollThreshold = cfg.ScrollThreshold
	nav.CollapseWidth = cfg.CollapseWidth

	s := &Server{
		orchestrator: orch,
		site:         orch.Site(),
		store:        store,
		renderer:     renderer,
		stats:        stats,
		broker:       broker,
		nav:          nav,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/site", s.handleSite)
	r.Get("/api/documents", s.handleListDocuments)
	r.Get("/api/documents/{docID}", s.handleGetDocument)
	r.Get("/api/documents/{docID}/outline", s.handleGetOutline)
	r.Get("/api/documents/{docID}/headings", s.handleGetHeadings)
	r.Get("/api/builds/{jobID}/status", s.handleBuildStatus)
	r.Get("/api/stats/render", s.handleRenderStats)
	r.Handle("/api/events", s.broker)
	r.Get("/ws/session", s.handleSession)

	// Mutating endpoints; authenticated when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents/{docID}/rebuild", s.handleRebuild)
		r.Post("/api/render", s.handleRender)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

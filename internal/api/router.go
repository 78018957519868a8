package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/polymath/internal/api/handlers"
	mw "github.com/Harshitk-cp/polymath/internal/api/middleware"
	"github.com/Harshitk-cp/polymath/internal/buildconfig"
	"github.com/Harshitk-cp/polymath/internal/config"
	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/embedding"
	"github.com/Harshitk-cp/polymath/internal/llm"
	"github.com/Harshitk-cp/polymath/internal/question"
	"github.com/Harshitk-cp/polymath/internal/retrieval"
	"github.com/Harshitk-cp/polymath/internal/service"
	"github.com/Harshitk-cp/polymath/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and shared state for lifecycle management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	conceptStore := store.NewConceptStore(db)
	sessionStore := store.NewSessionStore(db)

	var graphStore domain.GraphStore
	if config.GraphEnabled() {
		graphStore = store.NewGraphStore(db)
	} else {
		logger.Info("graph backend disabled, retrieval runs vector-only")
	}

	// External clients via provider factory
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed, falling back to templates",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("Embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Question generation: LLM-backed with template fallback
	var generator domain.QuestionGenerator = question.NewTemplateGenerator()
	if llmClient != nil {
		generator = question.NewLLMGenerator(llmClient, logger)
	}

	// Lexicons, optionally merged from a YAML file
	lexicons := service.DefaultLexicons()
	if path := config.LexiconPath(); path != "" {
		merged, lexErr := service.LoadLexicons(path)
		if lexErr != nil {
			logger.Warn("lexicon file load failed, using defaults",
				zap.String("path", path), zap.Error(lexErr))
		} else {
			lexicons = merged
		}
	}

	// Services
	pipeline := retrieval.NewPipeline(conceptStore, graphStore, embeddingClient, logger)
	difficultySvc := service.NewDifficultyEngine(lexicons, config.LexiconLanguage(), logger)
	sessionSvc := service.NewSessionManager(sessionStore, logger)
	socraticSvc := service.NewSocraticService(sessionSvc, difficultySvc, pipeline, generator, logger)
	fusionSvc := service.NewFusionService(pipeline, logger)

	// Handlers
	searchHandler := handlers.NewSearchHandler(pipeline)
	conceptHandler := handlers.NewConceptHandler(pipeline)
	dialogueHandler := handlers.NewDialogueHandler(socraticSvc)
	sessionHandler := handlers.NewSessionHandler(sessionSvc, difficultySvc)
	fusionHandler := handlers.NewFusionHandler(fusionSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Post("/search", searchHandler.Search)

		r.Get("/domains", conceptHandler.Domains)

		r.Route("/concepts/{name}", func(r chi.Router) {
			r.Get("/", conceptHandler.GetByName)
			r.Get("/lineage", conceptHandler.Lineage)
		})

		r.Route("/dialogue", func(r chi.Router) {
			r.Post("/start", dialogueHandler.Start)
			r.Route("/{session}", func(r chi.Router) {
				r.Post("/respond", dialogueHandler.Respond)
				r.Post("/challenge", dialogueHandler.Challenge)
				r.Post("/synthesize", dialogueHandler.Synthesize)
				r.Post("/hint", dialogueHandler.Hint)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetByID)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/pause", sessionHandler.Pause)
				r.Post("/resume", sessionHandler.Resume)
				r.Get("/export", sessionHandler.Export)
			})
		})

		r.Get("/users/{id}/progress", sessionHandler.Progress)

		r.Post("/fusion/suggest", fusionHandler.Suggest)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that don't need the App.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.ConceptStore      = (*store.ConceptStore)(nil)
	_ domain.GraphStore        = (*store.GraphStore)(nil)
	_ domain.SessionStore      = (*store.SessionStore)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.LLMClient         = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient         = (*llm.MockClient)(nil)
	_ domain.QuestionGenerator = (*question.TemplateGenerator)(nil)
	_ domain.QuestionGenerator = (*question.LLMGenerator)(nil)
	_ service.Retriever        = (*retrieval.Pipeline)(nil)
)

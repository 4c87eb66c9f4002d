package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/satish1373/ag-devops/internal/jira"
	"github.com/satish1373/ag-devops/internal/logging"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", jira.SignatureHeader, jira.DeliveryHeader},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.registerHandler)
			r.Post("/login", s.loginHandler)
			r.Get("/verify", s.verifyHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/todos", func(r chi.Router) {
				r.Post("/", s.createTodoHandler)
				r.Get("/", s.getAllTodosHandler)
				r.Get("/stats", s.todoStatsHandler)
				r.Get("/export", s.exportTodosHandler)
				r.Get("/{id}", s.getTodoByIDHandler)
				r.Put("/{id}", s.updateTodoHandler)
				r.Patch("/{id}", s.updateTodoHandler)
				r.Patch("/{id}/toggle", s.toggleTodoHandler)
				r.Delete("/{id}", s.deleteTodoHandler)
			})

			r.Get("/stats", s.statsHandler)
			r.Get("/ws", s.wsHandler)
		})
	})

	r.Post("/webhook/jira", s.jiraWebhookHandler)
	r.Get("/status", s.statusHandler)
	r.Get("/status/{traceID}", s.runStatusHandler)
	r.Get("/results/{traceID}", s.resultHandler)
	r.Get("/reports/{traceID}", s.reportHandler)
	r.Get("/test/export", s.testExportHandler)
	r.Get("/dashboard", s.dashboardHandler)

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"service":            "ag-devops",
		"version":            Version,
		"status":             "running",
		"pipeline_available": s.webhooks.Available(),
		"endpoints": map[string]string{
			"health":    "/health",
			"todos":     "/api/todos",
			"auth":      "/api/auth",
			"webhook":   "/webhook/jira",
			"status":    "/status",
			"results":   "/results/{trace_id}",
			"reports":   "/reports/{trace_id}",
			"test":      "/test/export",
			"stats":     "/api/stats",
			"dashboard": "/dashboard",
			"events":    "/api/ws",
		},
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health(r.Context())
	healthStats["pipeline_available"] = strconv.FormatBool(s.webhooks.Available())
	healthStats["timestamp"] = s.now().UTC().Format(time.RFC3339)
	if s.hub != nil {
		healthStats["websocket_clients"] = strconv.Itoa(s.hub.ClientCount())
	}

	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

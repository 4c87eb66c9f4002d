package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satish1373/ag-devops/internal/config"
	"github.com/satish1373/ag-devops/internal/database"
	"github.com/satish1373/ag-devops/internal/events"
	"github.com/satish1373/ag-devops/internal/service"
)

// Version is reported by the root endpoint. Overridden at build time with
// -ldflags "-X github.com/satish1373/ag-devops/internal/server.Version=...".
var Version = "2.0.0"

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	DB       database.Service
	Todos    service.TodoService
	Auth     service.AuthService
	Webhooks service.WebhookService
	Hub      *events.Hub
	Logger   *zap.Logger
}

type Server struct {
	cfg      *config.Config
	db       database.Service
	todos    service.TodoService
	auth     service.AuthService
	webhooks service.WebhookService
	hub      *events.Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func New(cfg *config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		db:       deps.DB,
		todos:    deps.Todos,
		auth:     deps.Auth,
		webhooks: deps.Webhooks,
		hub:      deps.Hub,
		log:      log.Named("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are already filtered by the CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// NewServer wires the router into an http.Server listening on cfg.Addr().
func NewServer(cfg *config.Config, deps Deps) *http.Server {
	appServer := New(cfg, deps)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

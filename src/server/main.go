package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"call-session-service/src/config"
	"call-session-service/src/db"
	"call-session-service/src/provider"
	"call-session-service/src/rabbitmq"
	"call-session-service/src/realtime"
	"call-session-service/src/repository"
	"call-session-service/src/router"
	"call-session-service/src/service"
)

// Server represents the HTTP server and its long-lived components.
type Server struct {
	config          *config.GlobalConfig
	database        *db.DB
	hub             *realtime.Hub
	ops             *rabbitmq.OpsNotifier
	http            *http.Server
	shutdownHandler ShutdownHandlerInterface
}

// NewServer creates a new server instance. Storage and the ops publisher are
// both optional: without DATABASE_URL sessions live in memory, without
// AMQP_URL transitions are only pushed over the websocket hub.
func NewServer(cfg *config.GlobalConfig) (*Server, error) {
	server := &Server{
		config: cfg,
		hub:    realtime.NewHub(),
	}

	if cfg.DatabaseURL != "" {
		database, err := db.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		server.database = database
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory session store")
	}

	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		server.ops = rabbitmq.NewOpsNotifier(publisher)
	}

	server.shutdownHandler = NewShutdownHandler(server)

	return server, nil
}

// Run starts the server with graceful shutdown using ShutdownHandler.
func (s *Server) Run() error {
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	serverDone := s.startServerGoroutine()

	return s.shutdownHandler.HandleShutdown(serverDone, osSignals)
}

// startServerGoroutine starts the HTTP server in a goroutine and returns a
// channel for errors.
func (s *Server) startServerGoroutine() chan error {
	serverDone := make(chan error, 1)

	go func() {
		var repo repository.SessionRepository
		if s.database != nil {
			repo = repository.NewPostgresSessionRepository(s.database)
		} else {
			repo = repository.NewMemorySessionRepository()
		}

		adapter := provider.NewOmnidimAdapter(provider.Config{
			APIKey:  s.config.OmnidimAPIKey,
			AgentID: s.config.OmnidimAgentID,
			BaseURL: s.config.OmnidimBaseURL,
			Timeout: s.config.OmnidimTimeout,
		})

		notifier := realtime.Fanout{s.hub}
		if s.ops != nil {
			notifier = append(notifier, s.ops)
		}

		svc := service.NewSessionService(repo, adapter, notifier)
		r := router.NewRouter(s.config, svc, s.hub, s.database)

		httpServer := &http.Server{
			Addr:    fmt.Sprintf("%s:%s", s.config.GetHost(), s.config.GetPort()),
			Handler: r,
		}
		s.http = httpServer

		slog.Info("Starting call session service",
			"host", s.config.GetHost(),
			"port", s.config.GetPort())

		serverDone <- s.startServer()
	}()

	return serverDone
}

// startServer starts the HTTP server and handles errors.
func (s *Server) startServer() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

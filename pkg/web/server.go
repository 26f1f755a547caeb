// Package web exposes the voice assistant over HTTP: session
// management, turn submission (audio upload or text), cancellation,
// stats, and a websocket event feed.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/kisansathi/go-vani/pkg/hub"
	"github.com/kisansathi/go-vani/pkg/registry"
)

// HealthCheck probes one upstream dependency.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP and websocket front end.
type Server struct {
	app      *fiber.App
	port     string
	registry *registry.Registry
	events   *hub.Hub
	logger   *slog.Logger

	// Health checks by dependency name (stt, tts, inference).
	checks map[string]HealthCheck
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHealthCheck registers an upstream dependency probe surfaced on
// /api/health.
func WithHealthCheck(name string, check HealthCheck) ServerOption {
	return func(s *Server) { s.checks[name] = check }
}

// WithServerLogger sets the structured logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer wires the routes over a session registry and an event hub.
func NewServer(port string, reg *registry.Registry, events *hub.Hub, opts ...ServerOption) *Server {
	s := &Server{
		port:     port,
		registry: reg,
		events:   events,
		checks:   make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "web")

	app := fiber.New(fiber.Config{
		AppName:               "vani",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024, // audio uploads
	})

	// CORS for the mobile and browser clients
	app.Use(cors.New())

	app.Get("/api/health", s.handleHealth)

	voice := app.Group("/api/voice")
	voice.Post("/sessions", s.handleCreateSession)
	voice.Post("/sessions/:id/turns", s.handleTurn)
	voice.Post("/sessions/:id/cancel", s.handleCancel)
	voice.Delete("/sessions/:id", s.handleEndSession)
	voice.Get("/stats", s.handleStats)
	voice.Get("/languages", s.handleLanguages)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the event hub and blocks serving HTTP.
func (s *Server) Start() error {
	go s.events.Run()
	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleEventsWS streams session lifecycle events to the client.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	client.Run()
}

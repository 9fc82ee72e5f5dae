// Package web exposes the tasting session over HTTP: photo upload, review
// generation, narration, restaurant lookup, and a websocket feed of session
// snapshots.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/tastetalk/go-tastetalk/pkg/hub"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/session"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
)

// defaultMaxUpload is the upload ceiling when none is configured.
const defaultMaxUpload = 10 << 20

// Server is the HTTP front of the review pipeline.
type Server struct {
	app  *fiber.App
	port string

	controller *session.Controller
	synth      voice.Synthesizer
	searcher   places.Searcher

	maxUpload int64
	statusHub *hub.Hub
	logger    *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithPort sets the listen port.
func WithPort(port string) Option {
	return func(s *Server) { s.port = port }
}

// WithMaxUploadSize sets the upload ceiling in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates the server and mounts all routes.
func NewServer(controller *session.Controller, synth voice.Synthesizer, searcher places.Searcher, opts ...Option) *Server {
	s := &Server{
		port:       "3001",
		controller: controller,
		synth:      synth,
		searcher:   searcher,
		maxUpload:  defaultMaxUpload,
		statusHub:  hub.New("status"),
		logger:     slog.Default().With("component", "web"),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "TasteTalk",
		DisableStartupMessage: true,
		BodyLimit:             int(s.maxUpload) + 1<<20,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/upload", s.handleUpload)
	api.Post("/review", s.handleReview)
	api.Post("/voice", s.handleVoice)
	api.Get("/voice/speakers", s.handleSpeakers)
	api.Get("/places", s.handlePlaces)
	api.Get("/places/:placeId", s.handlePlaceDetails)
	api.Post("/places/:placeId/select", s.handleSelectPlace)
	api.Get("/session", s.handleSession)
	api.Post("/session/reset", s.handleSessionReset)
	api.Get("/health", s.handleHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// PublishState broadcasts a session snapshot to websocket subscribers.
// Wire it to the controller's change hook.
func (s *Server) PublishState(st session.State) {
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("broadcast failed", "error", err)
	}
}

// Start runs the status hub and blocks serving HTTP.
func (s *Server) Start() error {
	go s.statusHub.Run()
	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

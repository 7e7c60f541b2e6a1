// Package web exposes the caregiver-facing REST API and the live
// dashboard WebSocket streams.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/hub"
	"github.com/carebot-oss/carebot/pkg/protocol"
)

const version = "1.0.0"

// Config carries the listen address and mode flags shown to clients.
type Config struct {
	Addr       string
	Simulation bool
}

// Server is the caregiver API server. It owns the WebSocket hubs;
// callers push engine output through the Broadcast methods.
type Server struct {
	app  *fiber.App
	addr string
	log  *zap.Logger

	eng        *engine.Engine
	cal        *bed.Calibration
	recent     *audit.MemoryLog
	simulation bool

	// Hubs for websocket broadcast (thread-safe!)
	eventsHub *hub.Hub
	statusHub *hub.Hub
}

// NewServer wires the API routes for the given engine.
func NewServer(cfg Config, eng *engine.Engine, cal *bed.Calibration, recent *audit.MemoryLog, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		addr:       cfg.Addr,
		log:        log,
		eng:        eng,
		cal:        cal,
		recent:     recent,
		simulation: cfg.Simulation,
		eventsHub:  hub.New("events", log),
		statusHub:  hub.New("status", log),
	}

	app := fiber.New(fiber.Config{
		AppName:               "CareBot API",
		DisableStartupMessage: true,
	})

	// CORS for the dashboard dev server
	app.Use(cors.New())

	app.Get("/", s.handleRoot)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/positions", s.handlePositions)
	api.Post("/position/rotate", s.handleRotate)
	api.Post("/emergency-stop", s.handleEmergencyStop)
	api.Post("/emergency-stop/resume", s.handleEmergencyResume)
	api.Post("/scheduler/pause", s.handleSchedulerPause)
	api.Post("/scheduler/resume", s.handleSchedulerResume)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hubs and listens on the configured address. It blocks
// until Shutdown is called.
func (s *Server) Start() error {
	go s.eventsHub.Run()
	go s.statusHub.Run()

	s.log.Info("caregiver api listening", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// BroadcastStatus pushes a status snapshot to dashboard clients.
func (s *Server) BroadcastStatus(st engine.Status) {
	msg, err := protocol.NewStatusMessage(st)
	if err != nil {
		s.log.Warn("encode status broadcast", zap.Error(err))
		return
	}
	if err := s.statusHub.BroadcastEnvelope(msg); err != nil {
		s.log.Warn("broadcast status", zap.Error(err))
	}
}

// BroadcastEvent pushes one engine event to dashboard clients.
func (s *Server) BroadcastEvent(ev engine.Event) {
	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		s.log.Warn("encode event broadcast", zap.Error(err))
		return
	}
	if err := s.eventsHub.BroadcastEnvelope(msg); err != nil {
		s.log.Warn("broadcast event", zap.Error(err))
	}
}

// BroadcastAudit pushes a finished attempt record to dashboard
// clients. Records ride the events stream.
func (s *Server) BroadcastAudit(rec audit.Record) {
	msg, err := protocol.NewAuditMessage(rec)
	if err != nil {
		s.log.Warn("encode audit broadcast", zap.Error(err))
		return
	}
	if err := s.eventsHub.BroadcastEnvelope(msg); err != nil {
		s.log.Warn("broadcast audit", zap.Error(err))
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

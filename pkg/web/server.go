// Package web exposes the rover to remote clients: an HTTP API for the
// parameterized command protocol and status queries, plus websocket
// channels for wrapped tank commands, camera frames and telemetry.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/rovercam/go-rover/internal/log"
	"github.com/rovercam/go-rover/pkg/camera"
	"github.com/rovercam/go-rover/pkg/hub"
	"github.com/rovercam/go-rover/pkg/rover"
)

// Server is the rover's network surface.
type Server struct {
	app  *fiber.App
	addr string

	rover    *rover.TwoWheelRover
	sessions *SessionRegistry

	frames        camera.FrameSource
	frameInterval time.Duration

	streamHub    *hub.Hub
	telemetryHub *hub.Hub

	stop chan struct{}
}

// NewServer creates the server for the given rover. frames may be nil when
// no camera is present; the stream channel then stays silent.
func NewServer(addr string, rv *rover.TwoWheelRover, frames camera.FrameSource, frameInterval time.Duration) *Server {
	s := &Server{
		addr:          addr,
		rover:         rv,
		sessions:      NewSessionRegistry(),
		frames:        frames,
		frameInterval: frameInterval,
		streamHub:     hub.New("stream"),
		telemetryHub:  hub.New("telemetry"),
		stop:          make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-rover",
		DisableStartupMessage: true,
	})

	// CORS so a browser-hosted driving UI can reach the rover directly
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)
	app.Get("/rover", s.handleRover)
	app.Get("/status", s.handleStatus)
	app.Post("/pid", s.handlePid)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/command", websocket.New(s.handleCommandWS))
	app.Get("/ws/stream", websocket.New(s.handleStreamWS))
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// Start runs the hubs, the frame streaming loop and the listener.
// Blocks until Shutdown.
func (s *Server) Start() error {
	go s.streamHub.Run()
	go s.telemetryHub.Run()
	if s.frames != nil {
		go s.streamLoop()
	}

	log.Info("web server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// PublishTelemetry broadcasts a rover state snapshot on the telemetry
// channel. Safe to call from the control-loop context; the hub drops
// messages rather than blocking.
func (s *Server) PublishTelemetry(state rover.State) {
	s.telemetryHub.BroadcastJSON(state)
}

// streamLoop captures and broadcasts camera frames while stream clients
// are connected.
func (s *Server) streamLoop() {
	interval := s.frameInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.streamHub.ClientCount() == 0 {
				continue
			}
			frame, err := s.frames.Capture()
			if err != nil {
				log.Error("frame capture failed", "error", err)
				continue
			}
			s.streamHub.BroadcastBinary(frame)
		}
	}
}

// Shutdown stops the streaming loop and the listener.
func (s *Server) Shutdown() error {
	close(s.stop)
	return s.app.Shutdown()
}

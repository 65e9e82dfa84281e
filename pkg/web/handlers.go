package web

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/rovercam/go-rover/internal/log"
	"github.com/rovercam/go-rover/pkg/hub"
	"github.com/rovercam/go-rover/pkg/rover"
)

// handleHealth reports process liveness and whether wheels are attached.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"health":   "ok",
		"attached": s.rover.Attached(),
	})
}

// handleRover accepts the parameterized command protocol:
// /rover?direction=<forward|reverse|left|right|stop>&speed=<n>[&closedLoop=true]
// On success the response echoes "direction,speed".
func (s *Server) handleRover(c *fiber.Ctx) error {
	direction := c.Query("direction")
	speed := c.Query("speed")
	closedLoop := c.Query("closedLoop") == "true"

	if err := s.rover.SubmitTurtleCommand(closedLoop, direction, speed); err != nil {
		log.Warn("rover command rejected",
			"direction", direction, "speed", speed, "error", err)
		if errors.Is(err, rover.ErrQueueFull) {
			return c.Status(fiber.StatusServiceUnavailable).SendString("queue_full")
		}
		return c.Status(fiber.StatusBadRequest).SendString("bad_request")
	}
	return c.SendString(direction + "," + speed)
}

// handleStatus returns a rover state snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.rover.State())
}

// handlePid updates the speed controller tuning:
// /pid?maxSpeed=<n>&kp=<n>&ki=<n>&kd=<n>
func (s *Server) handlePid(c *fiber.Ctx) error {
	maxSpeed, err1 := strconv.ParseFloat(c.Query("maxSpeed"), 64)
	kp, err2 := strconv.ParseFloat(c.Query("kp"), 64)
	ki, err3 := strconv.ParseFloat(c.Query("ki"), 64)
	kd, err4 := strconv.ParseFloat(c.Query("kd"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return c.Status(fiber.StatusBadRequest).SendString("bad_request")
	}

	if err := s.rover.SetSpeedControl(maxSpeed, kp, ki, kd); err != nil {
		return c.Status(fiber.StatusConflict).SendString("not_attached")
	}
	return c.SendString("ok")
}

// handleCommandWS serves the wrapped tank command channel. Each text frame
// is submitted to the rover; accepted commands are acknowledged by echoing
// the frame, rejected ones get nack(<status>). Only the session holding
// command authority may drive.
func (s *Server) handleCommandWS(conn *websocket.Conn) {
	session := s.sessions.Register(conn.RemoteAddr().String())
	defer s.sessions.Unregister(session.ID)
	logger := log.With("session", session.ID.String(), "remote", session.RemoteAddr)
	logger.Info("command client connected")
	defer logger.Info("command client disconnected")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if !s.sessions.IsHolder(session.ID) {
			logger.Warn("command from non-holder session rejected")
			s.writeNack(conn, rover.StatusFailure)
			continue
		}

		result := s.rover.SubmitTankCommand(string(payload), 0)
		if result.Status == rover.StatusSuccess {
			// Ack the command by sending it back
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			continue
		}
		logger.Warn("tank command rejected", "status", result.Status)
		if err := s.writeNack(conn, result.Status); err != nil {
			return
		}
	}
}

func (s *Server) writeNack(conn *websocket.Conn, status int) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("nack(%d)", status)))
}

// handleStreamWS attaches a client to the camera frame broadcast.
func (s *Server) handleStreamWS(conn *websocket.Conn) {
	hub.NewClient(s.streamHub, conn).Run()
}

// handleTelemetryWS attaches a client to the telemetry broadcast.
func (s *Server) handleTelemetryWS(conn *websocket.Conn) {
	hub.NewClient(s.telemetryHub, conn).Run()
}

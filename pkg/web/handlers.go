package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/hub"
	"github.com/carebot-oss/carebot/pkg/motion"
	"github.com/carebot-oss/carebot/pkg/protocol"
)

// RotateRequest is the body for POST /api/position/rotate. An empty
// position means the next posture in the rotation cycle.
type RotateRequest struct {
	Position string `json:"position"`
	Reason   string `json:"reason"`
}

// PauseRequest is the body for POST /api/scheduler/pause. Zero
// duration pauses until an explicit resume.
type PauseRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

// statusFor maps engine refusals onto HTTP codes. Requests refused to
// protect the patient are conflicts, not client mistakes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bed.ErrUnknownPosition),
		errors.Is(err, motion.ErrInvalidTarget),
		errors.Is(err, motion.ErrInvalidStepCount):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrRejected),
		errors.Is(err, engine.ErrEmergencyStopped),
		errors.Is(err, engine.ErrNotStopped),
		errors.Is(err, engine.ErrStillUnsafe):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrStopped):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

// handleRoot returns service identity and mode
func (s *Server) handleRoot(c *fiber.Ctx) error {
	mode := "hardware"
	if s.simulation {
		mode = "simulation"
	}
	return c.JSON(fiber.Map{
		"service": "CareBot API",
		"version": version,
		"mode":    mode,
		"ws_clients": fiber.Map{
			"events": s.eventsHub.ClientCount(),
			"status": s.statusHub.ClientCount(),
		},
	})
}

// handleStatus returns the current engine snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      s.eng.Status(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePositions returns the named postures and their calibrated
// actuator targets
func (s *Server) handlePositions(c *fiber.Ctx) error {
	positions := make([]fiber.Map, 0, len(bed.Positions()))
	for _, pos := range bed.Positions() {
		target, err := s.cal.Vector(pos)
		if err != nil {
			return s.fail(c, err)
		}
		extents := make(map[string]float64, bed.NumActuators)
		for _, id := range bed.Actuators() {
			extents[id.String()] = target[id]
		}
		positions = append(positions, fiber.Map{
			"name":    string(pos),
			"targets": extents,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    positions,
	})
}

// handleRotate triggers a repositioning. The response is sent once the
// movement has clearance and has started; it does not wait for the bed
// to finish.
func (s *Server) handleRotate(c *fiber.Ctx) error {
	var req RotateRequest
	if err := c.BodyParser(&req); err != nil {
		req = RotateRequest{} // no body means rotate to the next posture
	}

	target := s.eng.Status().NextPosition
	if req.Position != "" {
		pos, err := bed.ParsePosition(req.Position)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
				"valid":   bed.Positions(),
			})
		}
		target = pos
	}

	reason := req.Reason
	if reason == "" {
		reason = engine.ReasonManual
	}

	if err := s.eng.RequestRotation(target, reason); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"message":         fmt.Sprintf("position change initiated: %s", target),
		"target_position": string(target),
		"reason":          reason,
	})
}

// handleEmergencyStop latches the stop and halts the actuators
func (s *Server) handleEmergencyStop(c *fiber.Ctx) error {
	s.eng.TriggerEmergencyStop("api request")
	return c.JSON(fiber.Map{
		"success": true,
		"message": "emergency stop engaged; resume requires manual confirmation",
	})
}

// handleEmergencyResume releases the stop latch after the monitor
// verifies the interlock is clear
func (s *Server) handleEmergencyResume(c *fiber.Ctx) error {
	if err := s.eng.ManualResume(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "emergency stop released; rotation schedule re-armed",
	})
}

// handleSchedulerPause suspends automatic rotation, optionally with a
// deadline after which it resumes on its own
func (s *Server) handleSchedulerPause(c *fiber.Ctx) error {
	var req PauseRequest
	if err := c.BodyParser(&req); err != nil {
		req = PauseRequest{} // no body means pause until resumed
	}
	if req.DurationMinutes < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "duration_minutes must not be negative",
		})
	}

	if err := s.eng.PauseSchedule(time.Duration(req.DurationMinutes) * time.Minute); err != nil {
		return s.fail(c, err)
	}

	message := "schedule paused; manual resume required"
	if req.DurationMinutes > 0 {
		message = fmt.Sprintf("schedule paused for %d minutes", req.DurationMinutes)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// handleSchedulerResume re-arms automatic rotation
func (s *Server) handleSchedulerResume(c *fiber.Ctx) error {
	if err := s.eng.ResumeSchedule(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "automatic rotation schedule resumed",
	})
}

// handleGetLogs returns recent attempt records, newest first
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 {
		limit = 50
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   s.recent.Len(),
		"data":    s.recent.Recent(limit),
	})
}

// handleEventsWS attaches a dashboard client to the live event feed
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventsHub, c)
	client.Run()
}

// handleStatusWS sends the current snapshot, then streams updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if msg, err := protocol.NewStatusMessage(s.eng.Status()); err == nil {
		if raw, err := msg.Bytes(); err == nil {
			c.WriteMessage(websocket.TextMessage, raw)
		}
	}

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

package engine

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
	"github.com/carebot-oss/carebot/pkg/motion"
	"github.com/carebot-oss/carebot/pkg/safety"
)

// PWM duty band in percent. The H-bridge stalls below 20; above 80
// the surface moves faster than a patient should be tilted.
const (
	minDuty = 20
	maxDuty = 80
)

// performAttempt runs one repositioning attempt start to finish on
// the worker goroutine. reply, when non-nil, receives the acceptance
// result as soon as the movement starts, or the refusal. The return
// value reports whether engine shutdown interrupted the attempt.
func (e *Engine) performAttempt(pos bed.Position, reason string, reply chan<- error) (stopped bool) {
	started := e.now()
	rec := audit.New(pos, reason, started)
	scheduled := reason == ReasonScheduled

	verdict := e.monitor.Check(safety.PhaseStart)
	if !verdict.Clear() {
		if scheduled {
			// A refused automatic attempt waits out a full interval
			// instead of retrying every tick.
			e.sched.MarkStarted(started)
		}
		e.mu.Lock()
		e.syncScheduleLocked()
		e.mu.Unlock()

		e.finishRecord(&rec, audit.OutcomeRejected, verdict.String(), 0, 0, started)
		e.log.Warn("repositioning refused",
			zap.String("position", string(pos)),
			zap.String("trigger", reason),
			zap.String("verdict", verdict.String()))
		e.event(LevelWarning, fmt.Sprintf("repositioning refused: %s", verdict), true)
		if reply != nil {
			reply <- fmt.Errorf("%w: %s", ErrRejected, verdict)
		}
		return false
	}

	plan, err := e.planner.Plan(e.extents, pos, e.cfg.StepCount)
	if err != nil {
		e.log.Warn("rotation request invalid",
			zap.String("position", string(pos)),
			zap.Error(err))
		if reply != nil {
			reply <- err
		}
		return false
	}

	// Any movement restarts the countdown; only scheduled movements
	// walk the cycle forward.
	e.sched.MarkStarted(started)
	if scheduled {
		e.sched.Advance()
	}

	e.mu.Lock()
	e.state = StateMoving
	e.target = pos
	e.stepIdx = 0
	e.stepCnt = plan.Steps()
	e.moveReason = reason
	e.syncScheduleLocked()
	e.mu.Unlock()
	e.setIndicator(drive.IndicatorMoving)

	e.log.Info("repositioning started",
		zap.String("position", string(pos)),
		zap.String("trigger", reason),
		zap.Int("steps", plan.Steps()))
	e.event(LevelInfo, fmt.Sprintf("repositioning started: %s (%s)", pos, reason), false)
	if reply != nil {
		reply <- nil
	}

	return e.executePlan(&rec, plan, started)
}

func (e *Engine) executePlan(rec *audit.Record, plan *motion.Plan, started time.Time) (stopped bool) {
	for i := 1; i <= plan.Steps(); i++ {
		verdict := e.monitor.Check(safety.PhaseInFlight)
		if !verdict.Clear() {
			e.abortMovement(rec, verdict.String(), i-1, plan.Steps(), started,
				verdict.Code == safety.CodeEmergencyStopped)
			return false
		}

		if err := e.applyStep(plan.Step(i-1), plan.Step(i)); err != nil {
			// A channel that ignores commands cannot be trusted to
			// stop either; latch and require inspection.
			e.monitor.TriggerStop("drive fault")
			e.abortMovement(rec, fmt.Sprintf("drive fault: %v", err), i-1, plan.Steps(), started, true)
			return false
		}

		e.mu.Lock()
		e.extents = plan.Step(i)
		e.stepIdx = i
		e.mu.Unlock()

		if e.stepWait() {
			e.abortMovement(rec, "engine shutdown", i, plan.Steps(), started, false)
			return true
		}
	}

	e.completeMovement(rec, plan, started)
	return false
}

func (e *Engine) completeMovement(rec *audit.Record, plan *motion.Plan, started time.Time) {
	if err := e.rig.StopAll(); err != nil {
		e.monitor.TriggerStop("drive fault")
		e.abortMovement(rec, fmt.Sprintf("hold confirm failed: %v", err),
			plan.Steps(), plan.Steps(), started, true)
		return
	}

	now := e.now()
	e.mu.Lock()
	e.extents = plan.Final()
	e.pos = plan.Target()
	e.target = ""
	e.stepIdx = 0
	e.stepCnt = 0
	e.moveReason = ""
	e.state = e.armedState()
	e.rotationsToday++
	e.totalRotations++
	e.lastRotation = now
	e.syncScheduleLocked()
	e.mu.Unlock()
	e.setIndicator(drive.IndicatorNormal)

	e.finishRecord(rec, audit.OutcomeCompleted, "", plan.Steps(), plan.Steps(), started)
	e.log.Info("repositioning complete",
		zap.String("position", string(plan.Target())),
		zap.Int64("duration_ms", rec.DurationMS))
	e.event(LevelInfo, fmt.Sprintf("repositioning complete: %s", plan.Target()), false)
}

func (e *Engine) abortMovement(rec *audit.Record, detail string, done, planned int, started time.Time, toEmergency bool) {
	if err := e.rig.StopAll(); err != nil {
		e.log.Error("stop all actuators", zap.Error(err))
		e.monitor.TriggerStop("drive fault")
		toEmergency = true
	}

	e.mu.Lock()
	e.target = ""
	e.stepIdx = 0
	e.stepCnt = 0
	e.moveReason = ""
	if toEmergency {
		e.state = StateEmergencyStopped
	} else {
		e.state = e.armedState()
	}
	e.syncScheduleLocked()
	e.mu.Unlock()
	if toEmergency {
		e.setIndicator(drive.IndicatorFault)
	} else {
		e.setIndicator(drive.IndicatorNormal)
	}

	e.finishRecord(rec, audit.OutcomeAborted, detail, done, planned, started)
	e.log.Error("repositioning aborted",
		zap.String("position", string(rec.Position)),
		zap.Int("steps_completed", done),
		zap.Int("steps_planned", planned),
		zap.String("detail", detail))
	e.event(LevelCritical,
		fmt.Sprintf("repositioning aborted at step %d/%d: %s", done, planned, detail), true)
}

// stepWait dwells between steps while keeping the command queue
// responsive. Requests that cannot run mid-movement are refused here,
// never queued; a stop notification cuts the dwell short so the next
// safety check runs immediately.
func (e *Engine) stepWait() (stopped bool) {
	timer := time.NewTimer(e.cfg.StepInterval)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return false
		case cmd := <-e.commands:
			if interrupt := e.refuseWhileMoving(cmd); interrupt {
				return false
			}
		case <-e.stop:
			return true
		}
	}
}

func (e *Engine) refuseWhileMoving(cmd command) (interrupt bool) {
	switch cmd.kind {
	case cmdRotate, cmdPause, cmdResumeSchedule:
		cmd.reply <- ErrBusy
	case cmdResume:
		cmd.reply <- ErrNotStopped
	case cmdStopNotify:
		return true
	}
	return false
}

// applyStep commands every actuator from its extent at the previous
// step toward its extent at the next one. Direction comes from the
// delta's sign; speed maps the delta onto the PWM duty band.
func (e *Engine) applyStep(from, to bed.Vector) error {
	for _, id := range bed.Actuators() {
		delta := to[id] - from[id]
		if math.Abs(delta) < 1e-12 {
			if err := e.rig.Stop(id); err != nil {
				return fmt.Errorf("stop %s: %w", id, err)
			}
			continue
		}
		if delta > 0 {
			if err := e.rig.Extend(id); err != nil {
				return fmt.Errorf("extend %s: %w", id, err)
			}
		} else {
			if err := e.rig.Retract(id); err != nil {
				return fmt.Errorf("retract %s: %w", id, err)
			}
		}
		if err := e.rig.SetDuty(id, dutyFor(delta)); err != nil {
			return fmt.Errorf("set duty %s: %w", id, err)
		}
	}
	return nil
}

func dutyFor(delta float64) float64 {
	duty := math.Abs(delta) * 100
	if duty < minDuty {
		return minDuty
	}
	if duty > maxDuty {
		return maxDuty
	}
	return duty
}

func (e *Engine) finishRecord(rec *audit.Record, outcome audit.Outcome, detail string, done, planned int, started time.Time) {
	rec.Outcome = outcome
	rec.Detail = detail
	rec.StepsCompleted = done
	rec.StepsPlanned = planned
	rec.DurationMS = e.now().Sub(started).Milliseconds()
	e.sink.Record(*rec)

	cp := *rec
	e.mu.Lock()
	e.lastRecord = &cp
	e.mu.Unlock()
}

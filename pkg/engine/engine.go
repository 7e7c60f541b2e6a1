// Package engine orchestrates the repositioning bed: it owns the
// control state machine and drives the scheduler, safety monitor,
// motion planner, and actuator channels from a single worker
// goroutine.
//
// All mutation flows through a command channel into the worker; the
// worker is the only goroutine that touches the hardware or the
// control state. Status reads come from a mirrored snapshot and never
// wait on the queue, so a status poll during a 9 second repositioning
// returns immediately.
package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
	"github.com/carebot-oss/carebot/pkg/motion"
	"github.com/carebot-oss/carebot/pkg/safety"
	"github.com/carebot-oss/carebot/pkg/schedule"
)

// Defaults for Config fields left zero.
const (
	DefaultStepInterval = 300 * time.Millisecond
	DefaultTickInterval = time.Second
)

// Config carries the engine's tunables.
type Config struct {
	// RotationInterval is the time between automatic repositionings.
	// Zero takes the default; a negative value disables automatic
	// rotation entirely and the engine idles between manual requests.
	RotationInterval time.Duration

	// StepCount is the number of interpolation steps per movement.
	StepCount int

	// StepInterval is the dwell between steps. Together with
	// StepCount it sets the total transition time.
	StepInterval time.Duration

	// TickInterval is the worker's housekeeping cadence: due-time
	// checks, pause expiry, and daily counter rollover.
	TickInterval time.Duration

	// HomeOnStart runs a normal, safety-gated move to Supine when the
	// engine starts, bringing the believed and physical extents
	// together on a known posture.
	HomeOnStart bool
}

func (c Config) withDefaults() Config {
	if c.RotationInterval == 0 {
		c.RotationInterval = schedule.DefaultInterval
	}
	if c.StepCount <= 0 {
		c.StepCount = motion.DefaultSteps
	}
	if c.StepInterval <= 0 {
		c.StepInterval = DefaultStepInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

type commandKind int

const (
	cmdRotate commandKind = iota
	cmdStopNotify
	cmdResume
	cmdPause
	cmdResumeSchedule
)

type command struct {
	kind     commandKind
	position bed.Position
	reason   string
	duration time.Duration
	source   string
	reply    chan error
}

// Engine is the control core. Create one with New, start its worker
// with Run, and stop it with Stop.
type Engine struct {
	rig     drive.Rig
	monitor *safety.Monitor
	planner *motion.Planner
	sink    audit.Sink
	log     *zap.Logger
	cfg     Config

	// sched is worker-owned; its timing is mirrored into the
	// snapshot fields below after every change.
	sched *schedule.Rotation

	commands chan command
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	subMu      sync.Mutex
	subs       map[*Subscription]struct{}
	subsClosed bool

	// Snapshot fields. Written only by the worker under mu; read by
	// Status under RLock.
	mu             sync.RWMutex
	state          State
	pos            bed.Position
	extents        bed.Vector
	target         bed.Position
	stepIdx        int
	stepCnt        int
	moveReason     string
	schedPaused    bool
	pausedUntil    time.Time
	nextDue        time.Time
	nextPos        bed.Position
	rotationsToday int
	totalRotations int
	lastRotation   time.Time
	lastRecord     *audit.Record

	countY int
	countM time.Month
	countD int

	now func() time.Time
}

// New assembles an engine. Run must be called exactly once to start
// the worker.
func New(rig drive.Rig, monitor *safety.Monitor, planner *motion.Planner, sink audit.Sink, cfg Config, log *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	now := time.Now
	e := &Engine{
		rig:      rig,
		monitor:  monitor,
		planner:  planner,
		sink:     sink,
		log:      log,
		cfg:      cfg,
		sched:    schedule.New(cfg.RotationInterval, now()),
		commands: make(chan command, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     make(map[*Subscription]struct{}),
		state:    StateIdle,
		pos:      bed.Supine,
		now:      now,
	}
	e.countY, e.countM, e.countD = now().Local().Date()
	return e
}

// Run executes the worker loop. It blocks until Stop is called and
// leaves every actuator stopped on the way out.
func (e *Engine) Run() {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	defer close(e.done)
	defer e.closeSubscribers()
	defer e.haltActuators("shutdown")

	e.mu.Lock()
	e.state = e.armedState()
	e.syncScheduleLocked()
	e.mu.Unlock()
	e.setIndicator(drive.IndicatorNormal)

	e.log.Info("control engine started",
		zap.Duration("rotation_interval", e.sched.Interval()),
		zap.Int("step_count", e.cfg.StepCount),
		zap.Duration("step_interval", e.cfg.StepInterval))

	if e.cfg.HomeOnStart {
		if stopped := e.performAttempt(bed.Supine, ReasonStartup, nil); stopped {
			return
		}
	}

	for {
		select {
		case <-e.stop:
			return
		case cmd := <-e.commands:
			if stopped := e.handle(cmd); stopped {
				return
			}
		case <-ticker.C:
			if stopped := e.tick(); stopped {
				return
			}
		}
	}
}

// Stop shuts the worker down and waits for it to exit. An in-flight
// movement is halted and recorded as aborted.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
}

// RequestRotation asks for a repositioning to pos. It returns once
// the movement has been accepted and started, or with the refusal:
// ErrBusy while another movement runs, ErrRejected when clearance
// fails, or a planning error for invalid input. The movement itself
// continues after return; watch events or status for the outcome.
func (e *Engine) RequestRotation(pos bed.Position, reason string) error {
	if reason == "" {
		reason = ReasonManual
	}
	return e.send(command{kind: cmdRotate, position: pos, reason: reason, reply: make(chan error, 1)})
}

// TriggerEmergencyStop latches the stop immediately, before the
// request joins the command queue, so an in-flight movement aborts at
// its next step boundary no matter how busy the engine is.
func (e *Engine) TriggerEmergencyStop(source string) {
	if source == "" {
		source = "operator"
	}
	e.monitor.TriggerStop(source)
	select {
	case e.commands <- command{kind: cmdStopNotify, source: source}:
	default:
		// Queue full: the latch is already set and the worker
		// converges on its next tick.
	}
}

// ManualResume releases the emergency stop after the operator has
// cleared the cause. It fails with ErrNotStopped outside the
// emergency stopped state and ErrStillUnsafe while the physical
// circuit has not read clear for the debounce window.
func (e *Engine) ManualResume() error {
	return e.send(command{kind: cmdResume, reply: make(chan error, 1)})
}

// PauseSchedule suspends automatic rotation. A positive duration
// re-arms the schedule automatically once it expires; zero pauses
// until ResumeSchedule. Fails with ErrBusy during a movement.
func (e *Engine) PauseSchedule(duration time.Duration) error {
	return e.send(command{kind: cmdPause, duration: duration, reply: make(chan error, 1)})
}

// ResumeSchedule re-arms automatic rotation a full interval out.
// Resuming an unpaused schedule is a no-op.
func (e *Engine) ResumeSchedule() error {
	return e.send(command{kind: cmdResumeSchedule, reply: make(chan error, 1)})
}

func (e *Engine) send(cmd command) error {
	select {
	case e.commands <- cmd:
	case <-e.done:
		return ErrStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-e.done:
		return ErrStopped
	}
}

// Status returns a snapshot. Safe from any goroutine; never blocks on
// the worker.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		State:           e.state,
		CurrentPosition: e.pos,
		Extents:         e.extents,
		SchedulePaused:  e.schedPaused,
		NextPosition:    e.nextPos,
		IntervalMinutes: int(e.sched.Interval().Minutes()),
		RotationsToday:  e.rotationsToday,
		TotalRotations:  e.totalRotations,
	}
	if e.state == StateMoving {
		st.Target = e.target
		st.StepIndex = e.stepIdx
		st.StepCount = e.stepCnt
		st.Reason = e.moveReason
	}
	if !e.pausedUntil.IsZero() {
		t := e.pausedUntil
		st.PausedUntil = &t
	}
	if !e.nextDue.IsZero() {
		t := e.nextDue
		st.NextDueAt = &t
	}
	if !e.lastRotation.IsZero() {
		t := e.lastRotation
		st.LastRotationAt = &t
	}
	st.EmergencyLatched = e.monitor.Latched()
	st.LatchSource = e.monitor.LatchSource()
	if e.lastRecord != nil {
		rec := *e.lastRecord
		st.LastRecord = &rec
	}
	return st
}

func (e *Engine) handle(cmd command) (stopped bool) {
	switch cmd.kind {
	case cmdRotate:
		if e.state == StateMoving {
			cmd.reply <- ErrBusy
			return false
		}
		return e.performAttempt(cmd.position, cmd.reason, cmd.reply)
	case cmdStopNotify:
		e.formalizeStop(cmd.source)
	case cmdResume:
		cmd.reply <- e.handleResume()
	case cmdPause:
		cmd.reply <- e.handlePause(cmd.duration)
	case cmdResumeSchedule:
		cmd.reply <- e.handleResumeSchedule()
	}
	return false
}

func (e *Engine) tick() (stopped bool) {
	now := e.now()
	e.rolloverDailyCount(now)

	// Poll the sensor bank so a physical stop press latches even
	// while no movement is running per-step checks.
	if e.state != StateEmergencyStopped {
		e.monitor.Check(safety.PhaseInFlight)
	}

	// Convergence guard: a latch set while the formalization command
	// was dropped still lands the engine in EmergencyStopped.
	if e.monitor.Latched() && e.state != StateEmergencyStopped {
		e.formalizeStop(e.monitor.LatchSource())
		return false
	}

	if e.state == StatePaused && !e.pausedUntil.IsZero() && !now.Before(e.pausedUntil) {
		e.sched.Resume(now)
		e.mu.Lock()
		e.pausedUntil = time.Time{}
		e.state = e.armedState()
		e.syncScheduleLocked()
		e.mu.Unlock()
		e.log.Info("schedule pause expired")
		e.event(LevelInfo, "schedule resumed (pause expired)", false)
	}

	if e.state == StateScheduled && e.sched.Due(now) {
		return e.performAttempt(e.sched.NextPosition(), ReasonScheduled, nil)
	}
	return false
}

func (e *Engine) handleResume() error {
	if e.state != StateEmergencyStopped {
		return ErrNotStopped
	}
	if err := e.monitor.Resume(); err != nil {
		e.log.Warn("manual resume refused", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStillUnsafe, err)
	}

	e.sched.MarkStarted(e.now())
	e.mu.Lock()
	e.state = e.armedState()
	e.syncScheduleLocked()
	e.mu.Unlock()
	e.setIndicator(drive.IndicatorNormal)
	e.log.Info("manual resume accepted", zap.String("state", string(e.state)))
	e.event(LevelInfo, "emergency stop released, schedule re-armed", false)
	return nil
}

func (e *Engine) handlePause(duration time.Duration) error {
	switch e.state {
	case StateMoving:
		return ErrBusy
	case StateEmergencyStopped:
		return ErrEmergencyStopped
	}

	e.sched.Pause()
	e.mu.Lock()
	e.state = StatePaused
	if duration > 0 {
		e.pausedUntil = e.now().Add(duration)
	} else {
		e.pausedUntil = time.Time{}
	}
	until := e.pausedUntil
	e.syncScheduleLocked()
	e.mu.Unlock()

	if until.IsZero() {
		e.log.Info("schedule paused")
		e.event(LevelInfo, "schedule paused", false)
	} else {
		e.log.Info("schedule paused", zap.Time("until", until))
		e.event(LevelInfo, fmt.Sprintf("schedule paused until %s", until.Format(time.RFC3339)), false)
	}
	return nil
}

func (e *Engine) handleResumeSchedule() error {
	switch e.state {
	case StateMoving:
		return ErrBusy
	case StateEmergencyStopped:
		return ErrEmergencyStopped
	}
	if e.state != StatePaused {
		return nil
	}

	e.sched.Resume(e.now())
	e.mu.Lock()
	e.pausedUntil = time.Time{}
	e.state = e.armedState()
	e.syncScheduleLocked()
	e.mu.Unlock()
	e.log.Info("schedule resumed")
	e.event(LevelInfo, "schedule resumed", false)
	return nil
}

// formalizeStop moves an idle engine into EmergencyStopped after the
// latch was set. Movement aborts reach EmergencyStopped through the
// per-step check instead.
func (e *Engine) formalizeStop(source string) {
	if e.state == StateEmergencyStopped || e.state == StateMoving {
		return
	}
	if err := e.rig.StopAll(); err != nil {
		e.log.Error("stop all actuators", zap.Error(err))
	}
	e.mu.Lock()
	e.state = StateEmergencyStopped
	e.mu.Unlock()
	e.setIndicator(drive.IndicatorFault)
	e.log.Warn("emergency stop engaged", zap.String("source", source))
	e.event(LevelCritical, fmt.Sprintf("emergency stop triggered (%s)", source), true)
}

// armedState is where the engine rests between movements.
func (e *Engine) armedState() State {
	switch {
	case e.sched.Paused():
		return StatePaused
	case e.sched.Enabled():
		return StateScheduled
	default:
		return StateIdle
	}
}

// syncScheduleLocked mirrors scheduler timing into the snapshot.
// Callers hold e.mu.
func (e *Engine) syncScheduleLocked() {
	e.schedPaused = e.sched.Paused()
	e.nextDue = e.sched.NextDue()
	e.nextPos = e.sched.NextPosition()
}

func (e *Engine) rolloverDailyCount(now time.Time) {
	y, m, d := now.Local().Date()
	if y == e.countY && m == e.countM && d == e.countD {
		return
	}
	e.mu.Lock()
	e.countY, e.countM, e.countD = y, m, d
	e.rotationsToday = 0
	e.mu.Unlock()
}

func (e *Engine) currentState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setIndicator(mode drive.IndicatorMode) {
	if err := e.rig.SetMode(mode); err != nil {
		e.log.Debug("status indicator", zap.Error(err))
	}
}

func (e *Engine) haltActuators(why string) {
	if err := e.rig.StopAll(); err != nil {
		e.log.Error("stop all actuators", zap.String("why", why), zap.Error(err))
	}
}

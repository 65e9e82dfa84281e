package rover

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a TwoWheelRover.
type Options struct {
	// Logger receives structured control-loop logs. Defaults to slog.Default.
	Logger *slog.Logger

	// CommandTimeout halts the rover when no command has been accepted for
	// this long while the wheels are in motion. A client that disconnects
	// mid-drive would otherwise leave the rover running until an explicit
	// stop arrives. Zero disables the watchdog.
	CommandTimeout time.Duration
}

// WheelState is a per-wheel telemetry snapshot.
type WheelState struct {
	EncoderCount  uint32  `json:"encoder_count"`
	MeasuredSpeed float64 `json:"measured_speed"`
	LastOutput    float64 `json:"last_output"`
}

// State is a snapshot of the rover for status queries and telemetry.
type State struct {
	Attached   bool       `json:"attached"`
	Moving     bool       `json:"moving"`
	QueueDepth int        `json:"queue_depth"`
	Pid        PidCommand `json:"pid"`
	Left       WheelState `json:"left"`
	Right      WheelState `json:"right"`
}

// TwoWheelRover orchestrates the drive wheels: it owns the command queue,
// dequeues one command per poll tick, applies it open or closed loop, and
// polls the encoders for telemetry. Submit methods are safe to call from
// request-handling goroutines; everything else belongs to the control loop.
type TwoWheelRover struct {
	mu     sync.Mutex
	logger *slog.Logger

	left  DriveWheel
	right DriveWheel

	queue commandQueue

	nextID        atomic.Int64
	lastCommandAt atomic.Int64 // UnixNano of the last accepted command

	commandTimeout time.Duration
	moving         bool
	pidTuning      PidCommand

	lastLeftCount  uint32
	lastRightCount uint32
	lastPoll       time.Time

	onTelemetry func(State)
}

// New creates a detached rover.
func New(opts Options) *TwoWheelRover {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoWheelRover{
		logger:         logger,
		commandTimeout: opts.CommandTimeout,
	}
}

// Attach binds the drive wheel adapters and moves the rover to the
// attached-idle state.
func (r *TwoWheelRover) Attach(left, right DriveWheel) error {
	if left == nil || right == nil {
		return fmt.Errorf("%w: both wheels are required", ErrBadInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = left
	r.right = right
	r.logger.Info("rover attached")
	return nil
}

// Detach stops the wheels, releases the adapter handles and drains the
// queue. Idempotent.
func (r *TwoWheelRover) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.left == nil && r.right == nil {
		return
	}
	r.haltLocked()
	r.left = nil
	r.right = nil
	r.logger.Info("rover detached")
}

// Attached reports whether drive wheels are bound.
func (r *TwoWheelRover) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.left != nil && r.right != nil
}

// OnTelemetry registers a callback invoked from the control loop whenever
// an encoder count changed during a poll. Must be set before the loop runs.
func (r *TwoWheelRover) OnTelemetry(fn func(State)) {
	r.onTelemetry = fn
}

// SubmitTurtleCommand validates the parameterized protocol fields, builds
// the command and queues it. "stop" halts synchronously instead of queueing.
// Safe to call from request-handling goroutines.
func (r *TwoWheelRover) SubmitTurtleCommand(useSpeedControl bool, direction, speed string) error {
	cmd, err := parseTurtleCommand(useSpeedControl, direction, speed)
	if err != nil {
		return err
	}
	if cmd.Kind == Halt {
		r.Halt()
		return nil
	}
	if err := r.EnqueueCommand(cmd.Tank); err != nil {
		return err
	}
	r.noteCommand()
	return nil
}

// SubmitTankCommand parses a wrapped tank command starting at offset and
// queues it. The result carries a distinct negative status for bad input,
// parse failure and backpressure so the transport can answer each
// differently. Safe to call from request-handling goroutines.
func (r *TwoWheelRover) SubmitTankCommand(text string, offset int) SubmitResult {
	tank, _, err := ParseTankCommand(text, offset)
	if err != nil {
		return SubmitResult{Status: StatusOf(err)}
	}
	if err := r.EnqueueCommand(tank); err != nil {
		return SubmitResult{Status: StatusOf(err)}
	}
	r.noteCommand()
	return SubmitResult{
		Status:  StatusSuccess,
		ID:      int(r.nextID.Add(1)),
		Command: NewTankCommand(tank),
	}
}

// EnqueueCommand appends a tank command to the queue, copying it into the
// queue's own storage. Returns ErrQueueFull when the buffer is full.
func (r *TwoWheelRover) EnqueueCommand(tank TankCommand) error {
	return r.queue.enqueue(tank)
}

// DequeueCommand removes and returns the oldest pending command.
// Returns ErrQueueEmpty when none is pending.
func (r *TwoWheelRover) DequeueCommand() (TankCommand, error) {
	return r.queue.dequeue()
}

// QueueDepth returns the number of pending commands.
func (r *TwoWheelRover) QueueDepth() int {
	return r.queue.depth()
}

// Poll runs one control-loop tick: update the wheels and encoder
// telemetry, execute at most one pending command, and check the command
// watchdog. Called only from the control-loop context.
func (r *TwoWheelRover) Poll(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.left == nil || r.right == nil {
		return
	}

	r.pollWheelsLocked(now)

	if tank, err := r.queue.dequeue(); err == nil {
		r.logger.Debug("executing rover command",
			"left_forward", tank.Left.Forward, "left_value", tank.Left.Value,
			"right_forward", tank.Right.Forward, "right_value", tank.Right.Value,
			"closed_loop", tank.UseSpeedControl)
		r.executeTankLocked(tank)
	}

	r.checkWatchdogLocked(now)
}

// pollWheelsLocked advances both wheels a tick and records encoder counts,
// logging only when a count changed since the previous tick.
func (r *TwoWheelRover) pollWheelsLocked(now time.Time) {
	r.left.Update(now)
	r.right.Update(now)
	r.lastPoll = now

	leftCount := r.left.ReadEncoder()
	rightCount := r.right.ReadEncoder()
	changed := false
	if leftCount != r.lastLeftCount {
		r.logger.Debug("left wheel encoder", "count", leftCount)
		r.lastLeftCount = leftCount
		changed = true
	}
	if rightCount != r.lastRightCount {
		r.logger.Debug("right wheel encoder", "count", rightCount)
		r.lastRightCount = rightCount
		changed = true
	}
	if changed && r.onTelemetry != nil {
		r.onTelemetry(r.stateLocked())
	}
}

// ExecuteCommand applies a command to the hardware. Executing while
// detached reports failure without side effects.
func (r *TwoWheelRover) ExecuteCommand(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch cmd.Kind {
	case NoOp:
		return nil
	case Halt:
		if r.left == nil || r.right == nil {
			return ErrNotAttached
		}
		r.haltLocked()
		return nil
	case Tank:
		if r.left == nil || r.right == nil {
			return ErrNotAttached
		}
		return r.executeTankLocked(cmd.Tank)
	case Pid:
		if r.left == nil || r.right == nil {
			return ErrNotAttached
		}
		r.setSpeedControlLocked(cmd.Pid)
		return nil
	default:
		return fmt.Errorf("%w: unknown command kind %v", ErrBadInput, cmd.Kind)
	}
}

// executeTankLocked applies one wheel command per side, open or closed loop.
func (r *TwoWheelRover) executeTankLocked(tank TankCommand) error {
	var err error
	if tank.UseSpeedControl {
		if e := r.left.SetSpeed(tank.Left.Forward, tank.Left.Value); e != nil {
			err = e
		}
		if e := r.right.SetSpeed(tank.Right.Forward, tank.Right.Value); e != nil {
			err = e
		}
	} else {
		if e := r.left.SetPower(tank.Left.Forward, tank.Left.Value); e != nil {
			err = e
		}
		if e := r.right.SetPower(tank.Right.Forward, tank.Right.Value); e != nil {
			err = e
		}
	}
	r.moving = tank.Left.Value != 0 || tank.Right.Value != 0
	if err != nil {
		r.logger.Warn("wheel command failed", "error", err)
	}
	return err
}

// Halt immediately stops the rover: zero both wheel outputs, reset the
// speed controllers and discard every pending command. This is the only
// operation besides normal dequeue that removes queue entries, and it
// removes all of them.
func (r *TwoWheelRover) Halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.haltLocked()
}

func (r *TwoWheelRover) haltLocked() {
	if r.left != nil {
		r.left.Stop()
	}
	if r.right != nil {
		r.right.Stop()
	}
	r.queue.drain()
	r.moving = false
	r.logger.Info("rover halted")
}

// SetSpeedControl updates the speed controller tuning on both wheels.
// Accumulated controller state is kept so tuning can be adjusted while
// driving. Serialized with Poll, so callers may invoke it from request
// context.
func (r *TwoWheelRover) SetSpeedControl(maxSpeed, kp, ki, kd float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.left == nil || r.right == nil {
		return ErrNotAttached
	}
	r.setSpeedControlLocked(PidCommand{MaxSpeed: maxSpeed, Kp: kp, Ki: ki, Kd: kd})
	return nil
}

func (r *TwoWheelRover) setSpeedControlLocked(pid PidCommand) {
	r.left.SetTuning(pid.MaxSpeed, pid.Kp, pid.Ki, pid.Kd)
	r.right.SetTuning(pid.MaxSpeed, pid.Kp, pid.Ki, pid.Kd)
	r.pidTuning = pid
	r.logger.Info("speed control updated",
		"max_speed", pid.MaxSpeed, "kp", pid.Kp, "ki", pid.Ki, "kd", pid.Kd)
}

// State returns a snapshot for status queries and telemetry.
func (r *TwoWheelRover) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *TwoWheelRover) stateLocked() State {
	st := State{
		Attached:   r.left != nil && r.right != nil,
		Moving:     r.moving,
		QueueDepth: r.queue.depth(),
		Pid:        r.pidTuning,
	}
	if st.Attached {
		st.Left = WheelState{
			EncoderCount:  r.lastLeftCount,
			MeasuredSpeed: r.left.MeasuredSpeed(),
			LastOutput:    r.left.LastOutput(),
		}
		st.Right = WheelState{
			EncoderCount:  r.lastRightCount,
			MeasuredSpeed: r.right.MeasuredSpeed(),
			LastOutput:    r.right.LastOutput(),
		}
	}
	return st
}

// noteCommand records command activity for the watchdog.
func (r *TwoWheelRover) noteCommand() {
	r.lastCommandAt.Store(time.Now().UnixNano())
}

// checkWatchdogLocked halts the rover when it is moving but no command has
// been accepted within the configured timeout.
func (r *TwoWheelRover) checkWatchdogLocked(now time.Time) {
	if r.commandTimeout <= 0 || !r.moving {
		return
	}
	last := r.lastCommandAt.Load()
	if last == 0 {
		return
	}
	if now.Sub(time.Unix(0, last)) > r.commandTimeout {
		r.logger.Warn("command watchdog expired, halting",
			"timeout", r.commandTimeout)
		r.haltLocked()
	}
}

// Run drives the control loop at the given tick interval until the stop
// channel is closed. Poll is the only consumer of the command queue.
func (r *TwoWheelRover) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			r.Halt()
			return
		case now := <-ticker.C:
			r.Poll(now)
		}
	}
}

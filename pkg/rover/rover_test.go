package rover

import (
	"errors"
	"testing"
	"time"
)

// mockWheel records every call for assertions.
type mockWheel struct {
	powerCalls []struct {
		forward bool
		level   float64
	}
	speedCalls []struct {
		forward bool
		speed   float64
	}
	tuningCalls []PidCommand
	stopCalls   int
	updates     int
	count       uint32
	measured    float64
	lastOutput  float64
}

func (m *mockWheel) SetPower(forward bool, level float64) error {
	m.powerCalls = append(m.powerCalls, struct {
		forward bool
		level   float64
	}{forward, level})
	m.lastOutput = level
	return nil
}

func (m *mockWheel) SetSpeed(forward bool, speed float64) error {
	m.speedCalls = append(m.speedCalls, struct {
		forward bool
		speed   float64
	}{forward, speed})
	return nil
}

func (m *mockWheel) ReadEncoder() uint32    { return m.count }
func (m *mockWheel) Update(now time.Time)   { m.updates++ }
func (m *mockWheel) Stop()                  { m.stopCalls++; m.lastOutput = 0 }
func (m *mockWheel) LastOutput() float64    { return m.lastOutput }
func (m *mockWheel) MeasuredSpeed() float64 { return m.measured }

func (m *mockWheel) SetTuning(maxSpeed, kp, ki, kd float64) {
	m.tuningCalls = append(m.tuningCalls, PidCommand{MaxSpeed: maxSpeed, Kp: kp, Ki: ki, Kd: kd})
}

func (m *mockWheel) lastPower() (bool, float64) {
	if len(m.powerCalls) == 0 {
		return false, -1
	}
	last := m.powerCalls[len(m.powerCalls)-1]
	return last.forward, last.level
}

func attachedRover(t *testing.T) (*TwoWheelRover, *mockWheel, *mockWheel) {
	t.Helper()
	r := New(Options{})
	left := &mockWheel{}
	right := &mockWheel{}
	if err := r.Attach(left, right); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return r, left, right
}

func TestAttach_RequiresBothWheels(t *testing.T) {
	r := New(Options{})
	if err := r.Attach(&mockWheel{}, nil); !errors.Is(err, ErrBadInput) {
		t.Errorf("attach with nil wheel: got %v, want ErrBadInput", err)
	}
	if r.Attached() {
		t.Error("rover attached after failed attach")
	}
}

func TestExecute_WhileDetached(t *testing.T) {
	r := New(Options{})
	err := r.ExecuteCommand(NewTankCommand(tankAt(100)))
	if !errors.Is(err, ErrNotAttached) {
		t.Errorf("execute detached: got %v, want ErrNotAttached", err)
	}
}

func TestSubmitTurtle_LeftExampleScenario(t *testing.T) {
	// direction=left, speed=120, open loop: left wheel reverse at 120,
	// right wheel forward at 120, applied on the next poll.
	r, left, right := attachedRover(t)

	if err := r.SubmitTurtleCommand(false, "left", "120"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.QueueDepth() != 1 {
		t.Fatalf("queue depth: got %d, want 1", r.QueueDepth())
	}

	r.Poll(time.Now())

	if fwd, level := left.lastPower(); fwd != false || level != 120 {
		t.Errorf("left wheel: got forward=%v level=%v, want reverse at 120", fwd, level)
	}
	if fwd, level := right.lastPower(); fwd != true || level != 120 {
		t.Errorf("right wheel: got forward=%v level=%v, want forward at 120", fwd, level)
	}
}

func TestPoll_ExecutesOneCommandPerTick(t *testing.T) {
	r, left, _ := attachedRover(t)

	for i := 1; i <= 3; i++ {
		if err := r.EnqueueCommand(tankAt(float64(i * 10))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := 1; i <= 3; i++ {
		r.Poll(time.Now())
		if _, level := left.lastPower(); level != float64(i*10) {
			t.Errorf("tick %d: level %v, want %v", i, level, i*10)
		}
	}
	if len(left.powerCalls) != 3 {
		t.Errorf("power calls: got %d, want 3", len(left.powerCalls))
	}
}

func TestPoll_ClosedLoopUsesSetSpeed(t *testing.T) {
	r, left, right := attachedRover(t)

	cmd := TankCommand{
		UseSpeedControl: true,
		Left:            WheelCommand{Forward: true, Value: 40},
		Right:           WheelCommand{Forward: true, Value: 40},
	}
	if err := r.EnqueueCommand(cmd); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	r.Poll(time.Now())

	if len(left.speedCalls) != 1 || len(right.speedCalls) != 1 {
		t.Fatalf("speed calls: left %d right %d, want 1 each", len(left.speedCalls), len(right.speedCalls))
	}
	if len(left.powerCalls) != 0 {
		t.Errorf("open-loop calls on closed-loop command: %d", len(left.powerCalls))
	}
	if left.speedCalls[0].speed != 40 {
		t.Errorf("target speed: got %v, want 40", left.speedCalls[0].speed)
	}
}

func TestHalt_DrainsQueueAndZeroes(t *testing.T) {
	r, left, right := attachedRover(t)

	for i := 0; i < QueueCapacity; i++ {
		if err := r.EnqueueCommand(tankAt(50)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	r.Halt()

	if r.QueueDepth() != 0 {
		t.Errorf("queue depth after halt: got %d, want 0", r.QueueDepth())
	}
	if left.stopCalls != 1 || right.stopCalls != 1 {
		t.Errorf("stop calls: left %d right %d, want 1 each", left.stopCalls, right.stopCalls)
	}

	// Idempotent from any state.
	r.Halt()
	if r.QueueDepth() != 0 {
		t.Error("queue depth after second halt")
	}
}

func TestSubmitTank_StatusCodes(t *testing.T) {
	r, _, _ := attachedRover(t)

	if res := r.SubmitTankCommand("", 0); res.Status != StatusBadCommand {
		t.Errorf("empty input: status %d, want %d", res.Status, StatusBadCommand)
	}
	if res := r.SubmitTankCommand("tank(nonsense)", 0); res.Status != StatusParseFailure {
		t.Errorf("malformed: status %d, want %d", res.Status, StatusParseFailure)
	}

	// Fill the queue, then overflow.
	for i := 0; i < QueueCapacity; i++ {
		res := r.SubmitTankCommand("tank(left(forward,10), right(forward,10))", 0)
		if res.Status != StatusSuccess {
			t.Fatalf("submit %d: status %d", i, res.Status)
		}
	}
	res := r.SubmitTankCommand("tank(left(forward,10), right(forward,10))", 0)
	if res.Status != StatusEnqueueFailure {
		t.Errorf("overflow: status %d, want %d", res.Status, StatusEnqueueFailure)
	}
}

func TestSubmitTank_AssignsSequenceIDs(t *testing.T) {
	r, _, _ := attachedRover(t)

	first := r.SubmitTankCommand("tank(left(forward,10), right(forward,10))", 0)
	second := r.SubmitTankCommand("tank(left(forward,20), right(forward,20))", 0)
	if first.Status != StatusSuccess || second.Status != StatusSuccess {
		t.Fatalf("statuses: %d, %d", first.Status, second.Status)
	}
	if second.ID <= first.ID {
		t.Errorf("sequence ids not increasing: %d then %d", first.ID, second.ID)
	}
	if second.Command.Kind != Tank || second.Command.Tank.Left.Value != 20 {
		t.Errorf("parsed command not returned: %+v", second.Command)
	}
}

func TestSubmitTurtle_StopHaltsImmediately(t *testing.T) {
	r, left, _ := attachedRover(t)

	if err := r.EnqueueCommand(tankAt(50)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := r.SubmitTurtleCommand(false, "stop", "0"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.QueueDepth() != 0 {
		t.Errorf("queue depth after stop: got %d, want 0", r.QueueDepth())
	}
	if left.stopCalls != 1 {
		t.Errorf("stop calls: got %d, want 1", left.stopCalls)
	}
}

func TestSetSpeedControl_ForwardsToBothWheels(t *testing.T) {
	r, left, right := attachedRover(t)

	if err := r.SetSpeedControl(120, 0.5, 0.05, 0.1); err != nil {
		t.Fatalf("set speed control: %v", err)
	}
	want := PidCommand{MaxSpeed: 120, Kp: 0.5, Ki: 0.05, Kd: 0.1}
	if len(left.tuningCalls) != 1 || left.tuningCalls[0] != want {
		t.Errorf("left tuning: %+v", left.tuningCalls)
	}
	if len(right.tuningCalls) != 1 || right.tuningCalls[0] != want {
		t.Errorf("right tuning: %+v", right.tuningCalls)
	}
	if got := r.State().Pid; got != want {
		t.Errorf("state tuning: got %+v, want %+v", got, want)
	}

	r.Detach()
	if err := r.SetSpeedControl(120, 0.5, 0.05, 0.1); !errors.Is(err, ErrNotAttached) {
		t.Errorf("detached tuning: got %v, want ErrNotAttached", err)
	}
}

func TestDetach_StopsAndIsIdempotent(t *testing.T) {
	r, left, _ := attachedRover(t)

	r.Detach()
	if r.Attached() {
		t.Error("still attached after detach")
	}
	if left.stopCalls != 1 {
		t.Errorf("stop calls on detach: got %d, want 1", left.stopCalls)
	}

	r.Detach() // no panic, no extra stops
	if left.stopCalls != 1 {
		t.Errorf("stop calls after second detach: got %d, want 1", left.stopCalls)
	}
}

func TestWatchdog_HaltsStaleMotion(t *testing.T) {
	r, left, _ := attachedRover(t)
	r.commandTimeout = 50 * time.Millisecond

	if err := r.SubmitTurtleCommand(false, "forward", "100"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	now := time.Now()
	r.Poll(now)
	if _, level := left.lastPower(); level != 100 {
		t.Fatalf("command not applied: level %v", level)
	}

	// Within the timeout the rover keeps driving.
	r.Poll(now.Add(20 * time.Millisecond))
	if left.stopCalls != 0 {
		t.Fatal("watchdog fired early")
	}

	// Past the timeout with no new commands it halts.
	r.Poll(now.Add(200 * time.Millisecond))
	if left.stopCalls != 1 {
		t.Errorf("watchdog stop calls: got %d, want 1", left.stopCalls)
	}
}

func TestTelemetry_FiresOnEncoderChange(t *testing.T) {
	r, left, _ := attachedRover(t)

	var states []State
	r.OnTelemetry(func(st State) { states = append(states, st) })

	r.Poll(time.Now())
	if len(states) != 0 {
		t.Fatalf("telemetry without encoder change: %d calls", len(states))
	}

	left.count = 42
	r.Poll(time.Now())
	if len(states) != 1 {
		t.Fatalf("telemetry calls: got %d, want 1", len(states))
	}
	if states[0].Left.EncoderCount != 42 {
		t.Errorf("telemetry count: got %d, want 42", states[0].Left.EncoderCount)
	}

	// Unchanged counts stay quiet.
	r.Poll(time.Now())
	if len(states) != 1 {
		t.Errorf("telemetry on unchanged counts: %d calls", len(states))
	}
}

func TestExecute_NoOpAndPid(t *testing.T) {
	r, left, _ := attachedRover(t)

	if err := r.ExecuteCommand(Command{}); err != nil {
		t.Errorf("noop: %v", err)
	}
	if len(left.powerCalls)+len(left.speedCalls)+left.stopCalls != 0 {
		t.Error("noop had observable effect")
	}

	err := r.ExecuteCommand(NewPidCommand(PidCommand{MaxSpeed: 90, Kp: 1, Ki: 0, Kd: 0}))
	if err != nil {
		t.Errorf("pid command: %v", err)
	}
	if len(left.tuningCalls) != 1 {
		t.Errorf("pid tuning calls: got %d, want 1", len(left.tuningCalls))
	}
}

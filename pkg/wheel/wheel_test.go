package wheel

import (
	"testing"
	"time"

	"github.com/rovercam/go-rover/pkg/pid"
)

// fakeMotor records drive levels.
type fakeMotor struct {
	forward bool
	level   float64
	calls   int
}

func (m *fakeMotor) SetPower(forward bool, level float64) error {
	m.forward = forward
	m.level = level
	m.calls++
	return nil
}

// fakeEncoder returns a settable count.
type fakeEncoder struct {
	count uint32
}

func (e *fakeEncoder) Count() uint32 { return e.count }

func testTuning() pid.Tuning {
	return pid.Tuning{MaxSpeed: 200, Kp: 1, Ki: 0.1, Kd: 0}
}

func TestSetPower_PassesThroughClamped(t *testing.T) {
	motor := &fakeMotor{}
	w := New(motor, &fakeEncoder{}, testTuning())

	if err := w.SetPower(true, 120); err != nil {
		t.Fatalf("set power: %v", err)
	}
	if !motor.forward || motor.level != 120 {
		t.Errorf("motor: forward=%v level=%v, want forward at 120", motor.forward, motor.level)
	}

	w.SetPower(false, 999)
	if motor.level != 255 {
		t.Errorf("clamped level: got %v, want 255", motor.level)
	}
	if w.LastOutput() != 255 {
		t.Errorf("last output: got %v, want 255", w.LastOutput())
	}
}

func TestUpdate_MeasuresSpeedFromEncoderDelta(t *testing.T) {
	enc := &fakeEncoder{}
	w := New(&fakeMotor{}, enc, testTuning())

	start := time.Now()
	w.Update(start) // primes lastCount/lastTime

	enc.count = 50
	w.Update(start.Add(500 * time.Millisecond))

	// 50 counts over 0.5s = 100 counts/s.
	if got := w.MeasuredSpeed(); got != 100 {
		t.Errorf("measured speed: got %v, want 100", got)
	}
}

func TestClosedLoop_DrivesMotorOnUpdate(t *testing.T) {
	motor := &fakeMotor{}
	enc := &fakeEncoder{}
	w := New(motor, enc, testTuning())

	if err := w.SetSpeed(true, 50); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	if motor.calls != 0 {
		t.Fatal("SetSpeed touched the motor before Update")
	}

	start := time.Now()
	w.Update(start)
	w.Update(start.Add(20 * time.Millisecond))

	if motor.calls == 0 {
		t.Fatal("Update did not drive the motor")
	}
	if !motor.forward {
		t.Error("wrong direction")
	}
	if motor.level <= 0 || motor.level > 255 {
		t.Errorf("drive level %v outside range", motor.level)
	}
}

func TestClosedLoop_ConvergesOnSimPlant(t *testing.T) {
	sim := NewSimWheel(200, 100*time.Millisecond)
	w := New(sim, sim, pid.Tuning{MaxSpeed: 200, Kp: 1.5, Ki: 0.8, Kd: 0.1})

	const target = 80.0
	if err := w.SetSpeed(true, target); err != nil {
		t.Fatalf("set speed: %v", err)
	}

	now := time.Now()
	for i := 0; i < 400; i++ {
		now = now.Add(20 * time.Millisecond)
		sim.Step(now)
		w.Update(now)
	}

	speed := sim.Speed()
	if speed < target*0.85 || speed > target*1.15 {
		t.Errorf("simulated speed after settling: got %v, want ~%v", speed, target)
	}
}

func TestSetPowerDisengagesController(t *testing.T) {
	motor := &fakeMotor{}
	enc := &fakeEncoder{}
	w := New(motor, enc, testTuning())

	w.SetSpeed(true, 50)
	start := time.Now()
	w.Update(start)
	w.Update(start.Add(20 * time.Millisecond))

	w.SetPower(true, 10)
	calls := motor.calls

	// With the controller disengaged, Update only tracks the encoder.
	enc.count = 100
	w.Update(start.Add(40 * time.Millisecond))
	if motor.calls != calls {
		t.Errorf("motor driven while disengaged: %d calls, want %d", motor.calls, calls)
	}
}

func TestStop_ZeroesAndResets(t *testing.T) {
	motor := &fakeMotor{}
	w := New(motor, &fakeEncoder{}, testTuning())

	w.SetSpeed(true, 50)
	start := time.Now()
	w.Update(start)
	w.Update(start.Add(20 * time.Millisecond))

	w.Stop()
	if motor.level != 0 {
		t.Errorf("motor level after stop: got %v, want 0", motor.level)
	}
	if motor.forward {
		t.Error("direction after stop: got forward, want reverse (zeroed)")
	}
	if w.LastOutput() != 0 {
		t.Errorf("last output after stop: got %v", w.LastOutput())
	}

	// Stop also resets the controller: re-engaging starts clean.
	w.SetSpeed(true, 50)
	w.Update(start.Add(40 * time.Millisecond))
	if out := w.LastOutput(); out < 0 || out > 255 {
		t.Errorf("output after restart: %v", out)
	}
}

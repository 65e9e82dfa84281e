// Package wheel bridges the rover core to the wheel hardware. The
// pulse-width output and encoder pulse counting stay behind the Motor and
// Encoder interfaces; Wheel composes them with a speed controller and
// satisfies the rover.DriveWheel surface.
package wheel

import (
	"time"

	"github.com/rovercam/go-rover/pkg/pid"
)

// Motor is the pulse-width drive output for one wheel.
type Motor interface {
	// SetPower applies a drive level in [0, 255] in the given direction.
	SetPower(forward bool, level float64) error
}

// Encoder counts wheel rotation pulses.
type Encoder interface {
	// Count returns the cumulative pulse count since startup.
	Count() uint32
}

// Wheel drives a single wheel open loop or through its speed controller.
// It is owned by the control loop: no method is safe for concurrent use.
type Wheel struct {
	motor   Motor
	encoder Encoder
	control *pid.Controller

	engaged       bool
	targetForward bool
	targetSpeed   float64

	lastCount   uint32
	lastTime    time.Time
	measured    float64
	lastOutput  float64
	lastForward bool
}

// New creates a wheel around the given hardware with the given controller
// tuning.
func New(motor Motor, encoder Encoder, tuning pid.Tuning) *Wheel {
	return &Wheel{
		motor:   motor,
		encoder: encoder,
		control: pid.New(tuning),
	}
}

// SetPower drives the wheel open loop, bypassing and disengaging the speed
// controller.
func (w *Wheel) SetPower(forward bool, level float64) error {
	if w.engaged {
		w.engaged = false
		w.control.Reset()
	}
	if level < pid.OutputMin {
		level = pid.OutputMin
	}
	if level > pid.OutputMax {
		level = pid.OutputMax
	}
	return w.apply(forward, level)
}

// SetSpeed engages the speed controller toward the target speed. The next
// Update applies the first computed output. Re-engaging after an open-loop
// command starts from clean controller state.
func (w *Wheel) SetSpeed(forward bool, speed float64) error {
	if speed < 0 {
		speed = 0
	}
	if !w.engaged {
		w.control.Reset()
		w.engaged = true
	}
	w.targetForward = forward
	w.targetSpeed = speed
	return nil
}

// ReadEncoder returns the cumulative encoder pulse count.
func (w *Wheel) ReadEncoder() uint32 {
	return w.encoder.Count()
}

// Update advances one control tick: derive the measured speed from the
// encoder delta and, when engaged, apply the next controller output.
func (w *Wheel) Update(now time.Time) {
	count := w.encoder.Count()
	if w.lastTime.IsZero() {
		w.lastTime = now
		w.lastCount = count
		return
	}
	dt := now.Sub(w.lastTime).Seconds()
	if dt <= 0 {
		return
	}
	w.measured = float64(count-w.lastCount) / dt
	w.lastCount = count
	w.lastTime = now

	if !w.engaged {
		return
	}
	out := w.control.Update(w.targetSpeed, w.measured, dt)
	if err := w.apply(w.targetForward, out); err != nil {
		return
	}
}

// Stop zeroes the drive output and resets the controller state.
func (w *Wheel) Stop() {
	w.engaged = false
	w.targetSpeed = 0
	w.control.Reset()
	_ = w.apply(false, 0)
}

// SetTuning updates the speed controller parameters, keeping accumulated
// state.
func (w *Wheel) SetTuning(maxSpeed, kp, ki, kd float64) {
	w.control.SetTuning(pid.Tuning{MaxSpeed: maxSpeed, Kp: kp, Ki: ki, Kd: kd}, false)
}

// LastOutput returns the drive level most recently sent to the motor.
func (w *Wheel) LastOutput() float64 {
	return w.lastOutput
}

// MeasuredSpeed returns the speed observed on the last Update.
func (w *Wheel) MeasuredSpeed() float64 {
	return w.measured
}

func (w *Wheel) apply(forward bool, level float64) error {
	if err := w.motor.SetPower(forward, level); err != nil {
		return err
	}
	w.lastOutput = level
	w.lastForward = forward
	return nil
}

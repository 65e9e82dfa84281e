// Package pid implements the per-wheel closed-loop speed controller.
//
// The controller converts a target speed and a measured speed (derived from
// encoder counts by the wheel layer) into a drive output level suitable for
// the pulse-width motor driver. Output is always clamped to the valid drive
// range in the same step that computes it, so a divergent loop can never
// reach the hardware.
package pid

// Drive output range accepted by the motor drivers.
const (
	OutputMin = 0
	OutputMax = 255
)

// Tuning holds the controller gains and the speed ceiling.
type Tuning struct {
	MaxSpeed float64 // maximum achievable measured speed, caps targets
	Kp       float64 // proportional gain
	Ki       float64 // integral gain
	Kd       float64 // derivative gain
}

// Controller is a discrete PID speed controller for a single wheel.
// It is not internally synchronized; the owning control loop is the only
// caller.
type Controller struct {
	tuning Tuning

	integral   float64
	prevError  float64
	lastOutput float64
	engaged    bool
}

// New creates a controller with the given tuning.
func New(tuning Tuning) *Controller {
	return &Controller{tuning: tuning}
}

// Tuning returns the current tuning parameters.
func (c *Controller) Tuning() Tuning {
	return c.tuning
}

// SetTuning replaces the gains. Accumulated state is kept unless reset is
// true, so tuning can be adjusted while the wheel is in motion.
func (c *Controller) SetTuning(tuning Tuning, reset bool) {
	c.tuning = tuning
	if reset {
		c.Reset()
	}
}

// Reset clears the accumulated state. Called on halt, detach and when the
// loop is re-engaged after an open-loop command.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevError = 0
	c.lastOutput = 0
	c.engaged = false
}

// Update advances the controller one tick and returns the drive output,
// clamped to [OutputMin, OutputMax]. target and measured are speeds in
// encoder counts per second; dt is the elapsed tick duration in seconds.
func (c *Controller) Update(target, measured, dt float64) float64 {
	if dt <= 0 {
		return c.lastOutput
	}
	if c.tuning.MaxSpeed > 0 && target > c.tuning.MaxSpeed {
		target = c.tuning.MaxSpeed
	}

	err := target - measured

	// First engaged tick has no meaningful previous error.
	if !c.engaged {
		c.prevError = err
		c.engaged = true
	}

	c.integral += err
	// Anti-windup: the integral term alone may never exceed the output
	// range, no matter how long the loop saturates.
	if c.tuning.Ki > 0 {
		limit := OutputMax / c.tuning.Ki
		c.integral = clamp(c.integral, -limit, limit)
	}

	derivative := err - c.prevError
	c.prevError = err

	out := c.tuning.Kp*err + c.tuning.Ki*c.integral + c.tuning.Kd*derivative
	out = clamp(out, OutputMin, OutputMax)
	c.lastOutput = out
	return out
}

// LastOutput returns the most recently computed drive output.
func (c *Controller) LastOutput() float64 {
	return c.lastOutput
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

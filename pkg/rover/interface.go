package rover

import "time"

// DriveWheel is the narrow adapter surface the rover needs from a wheel.
// Implementations bridge to the pulse-width motor driver and the encoder
// pulse counter, and run their own speed controller when engaged via
// SetSpeed. All methods are called only from the control-loop context once
// the wheel is attached.
type DriveWheel interface {
	// SetPower drives the wheel open loop at a raw level in [0, 255],
	// disengaging the speed controller.
	SetPower(forward bool, level float64) error

	// SetSpeed drives the wheel closed loop toward a target speed in
	// encoder counts per second, engaging the speed controller.
	SetSpeed(forward bool, speed float64) error

	// ReadEncoder returns the cumulative encoder pulse count.
	ReadEncoder() uint32

	// Update advances the wheel one control tick: when the speed
	// controller is engaged it computes and applies the next drive output.
	Update(now time.Time)

	// Stop zeroes the drive output and resets the speed controller state.
	Stop()

	// SetTuning updates the speed controller parameters without resetting
	// accumulated state.
	SetTuning(maxSpeed, kp, ki, kd float64)

	// LastOutput returns the drive level most recently sent to the motor.
	LastOutput() float64

	// MeasuredSpeed returns the speed observed on the last Update, in
	// encoder counts per second.
	MeasuredSpeed() float64
}

package rover

import "errors"

// Sentinel errors for the command submission and execution paths. All of
// these are expected runtime conditions; the control loop keeps running
// regardless of any single command's rejection.
var (
	// ErrBadInput reports a null, empty or missing command field.
	ErrBadInput = errors.New("rover: bad input")
	// ErrParse reports a malformed number or command grammar.
	ErrParse = errors.New("rover: parse error")
	// ErrQueueFull reports backpressure; the producer may retry or drop.
	ErrQueueFull = errors.New("rover: command queue full")
	// ErrQueueEmpty reports that no command is pending.
	ErrQueueEmpty = errors.New("rover: command queue empty")
	// ErrNotAttached reports that no drive wheels are bound.
	ErrNotAttached = errors.New("rover: not attached")
)

// Wire status codes exposed to the transport layer.
const (
	StatusSuccess = 0
	StatusFailure = -1

	// Distinct codes for the wrapped-command submission path, so the
	// transport can differentiate reject vs. backpressure responses.
	StatusBadCommand     = -1
	StatusParseFailure   = -2
	StatusEnqueueFailure = -3
)

// StatusOf maps an error from the submission path to its wire status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrBadInput):
		return StatusBadCommand
	case errors.Is(err, ErrParse):
		return StatusParseFailure
	case errors.Is(err, ErrQueueFull):
		return StatusEnqueueFailure
	default:
		return StatusFailure
	}
}

// Package rover implements the motion-control core for a two-wheeled,
// remotely operated rover: command parsing, a bounded command queue between
// the transport layer and the control loop, and the orchestration that
// applies commands to the drive wheels.
package rover

import "fmt"

// Drive output limits for open-loop (pulse-width) commands.
const MaxSpeedCommand = 255

// CommandKind discriminates the command variants.
type CommandKind int

const (
	NoOp CommandKind = iota
	Halt
	Tank
	Pid
)

func (k CommandKind) String() string {
	switch k {
	case NoOp:
		return "noop"
	case Halt:
		return "halt"
	case Tank:
		return "tank"
	case Pid:
		return "pid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WheelCommand is the direction and magnitude for a single wheel.
// For open-loop commands Value is a raw drive level in [0, 255]; for
// closed-loop commands it is a target speed in encoder counts per second.
type WheelCommand struct {
	Forward bool
	Value   float64
}

// TankCommand changes speed and direction for both wheels at once.
type TankCommand struct {
	// UseSpeedControl selects the closed-loop path: true drives each wheel
	// through its speed controller, false sends the raw level directly.
	UseSpeedControl bool
	Left            WheelCommand
	Right           WheelCommand
}

// PidCommand carries speed controller tuning parameters.
type PidCommand struct {
	MaxSpeed float64 `json:"max_speed"`
	Kp       float64 `json:"kp"`
	Ki       float64 `json:"ki"`
	Kd       float64 `json:"kd"`
}

// Command is a tagged variant over the rover command set. Exactly one
// payload is meaningful, selected by Kind; the zero value is a NoOp.
type Command struct {
	Kind CommandKind
	Tank TankCommand
	Pid  PidCommand
}

// NewTankCommand builds a Tank command.
func NewTankCommand(tank TankCommand) Command {
	return Command{Kind: Tank, Tank: tank}
}

// NewPidCommand builds a Pid tuning command.
func NewPidCommand(pid PidCommand) Command {
	return Command{Kind: Pid, Pid: pid}
}

// NewHaltCommand builds a Halt command.
func NewHaltCommand() Command {
	return Command{Kind: Halt}
}

// SubmitResult is returned by the wrapped-protocol submission path so the
// transport layer can acknowledge, reject or report backpressure.
type SubmitResult struct {
	// Status is StatusSuccess or one of the negative status codes.
	Status int
	// ID is the sequence id assigned to an accepted command.
	ID int
	// Command is the parsed command when Status is StatusSuccess.
	Command Command
}

package rover

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction tokens accepted by the parameterized (turtle) protocol.
const (
	DirectionForward = "forward"
	DirectionReverse = "reverse"
	DirectionLeft    = "left"
	DirectionRight   = "right"
	DirectionStop    = "stop"
)

// parseTurtleCommand converts the parameterized protocol fields into a
// command. direction selects the wheel pattern, speed is a non-negative
// decimal string. "stop" yields a Halt command regardless of speed.
func parseTurtleCommand(useSpeedControl bool, direction, speed string) (Command, error) {
	if direction == "" || speed == "" {
		return Command{}, fmt.Errorf("%w: direction and speed are required", ErrBadInput)
	}
	if direction == DirectionStop {
		return NewHaltCommand(), nil
	}

	value, err := parseSpeedValue(useSpeedControl, speed)
	if err != nil {
		return Command{}, err
	}

	tank := TankCommand{UseSpeedControl: useSpeedControl}
	switch direction {
	case DirectionForward:
		tank.Left = WheelCommand{Forward: true, Value: value}
		tank.Right = WheelCommand{Forward: true, Value: value}
	case DirectionReverse:
		tank.Left = WheelCommand{Forward: false, Value: value}
		tank.Right = WheelCommand{Forward: false, Value: value}
	case DirectionLeft:
		// Differential turn: left wheel backward, right wheel forward.
		tank.Left = WheelCommand{Forward: false, Value: value}
		tank.Right = WheelCommand{Forward: true, Value: value}
	case DirectionRight:
		tank.Left = WheelCommand{Forward: true, Value: value}
		tank.Right = WheelCommand{Forward: false, Value: value}
	default:
		return Command{}, fmt.Errorf("%w: unknown direction %q", ErrParse, direction)
	}
	return NewTankCommand(tank), nil
}

// parseSpeedValue validates a speed string for the given control mode.
// Closed loop accepts any non-negative speed; open loop is bounded by the
// raw drive range.
func parseSpeedValue(useSpeedControl bool, speed string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(speed), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: speed %q is not a number", ErrParse, speed)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: speed %v is negative", ErrParse, value)
	}
	if !useSpeedControl && value > MaxSpeedCommand {
		return 0, fmt.Errorf("%w: drive level %v exceeds %d", ErrParse, value, MaxSpeedCommand)
	}
	return value, nil
}

// ParseTankCommand parses the wrapped protocol form
//
//	tank(left(<forward|reverse>,<speed>), right(<forward|reverse>,<speed>))
//
// beginning at offset within text, which allows the transport to hand over
// a larger frame with an outer envelope. It returns the parsed command and
// the index just past the closing parenthesis.
func ParseTankCommand(text string, offset int) (TankCommand, int, error) {
	if text == "" || offset < 0 || offset >= len(text) {
		return TankCommand{}, offset, fmt.Errorf("%w: empty command", ErrBadInput)
	}

	s := scanner{text: text, pos: offset}
	if err := s.expect("tank"); err != nil {
		return TankCommand{}, s.pos, err
	}
	if err := s.expect("("); err != nil {
		return TankCommand{}, s.pos, err
	}
	left, err := s.wheel("left")
	if err != nil {
		return TankCommand{}, s.pos, err
	}
	if err := s.expect(","); err != nil {
		return TankCommand{}, s.pos, err
	}
	right, err := s.wheel("right")
	if err != nil {
		return TankCommand{}, s.pos, err
	}
	if err := s.expect(")"); err != nil {
		return TankCommand{}, s.pos, err
	}

	return TankCommand{Left: left, Right: right}, s.pos, nil
}

// FormatTankCommand renders a tank command in the wrapped protocol form.
// Parsing the result reproduces the command.
func FormatTankCommand(tank TankCommand) string {
	return fmt.Sprintf("tank(left(%s,%s), right(%s,%s))",
		directionToken(tank.Left.Forward), formatSpeed(tank.Left.Value),
		directionToken(tank.Right.Forward), formatSpeed(tank.Right.Value))
}

func directionToken(forward bool) string {
	if forward {
		return DirectionForward
	}
	return DirectionReverse
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// scanner walks the wrapped command grammar token by token. Any deviation
// from the expected layout is a parse error carrying the position.
type scanner struct {
	text string
	pos  int
}

func (s *scanner) skipSpaces() {
	for s.pos < len(s.text) && (s.text[s.pos] == ' ' || s.text[s.pos] == '\t') {
		s.pos++
	}
}

// expect consumes the literal token, ignoring leading whitespace.
func (s *scanner) expect(token string) error {
	s.skipSpaces()
	if !strings.HasPrefix(s.text[s.pos:], token) {
		return fmt.Errorf("%w: expected %q at offset %d", ErrParse, token, s.pos)
	}
	s.pos += len(token)
	return nil
}

// word consumes a run of lowercase letters.
func (s *scanner) word() string {
	s.skipSpaces()
	start := s.pos
	for s.pos < len(s.text) && s.text[s.pos] >= 'a' && s.text[s.pos] <= 'z' {
		s.pos++
	}
	return s.text[start:s.pos]
}

// number consumes a non-negative decimal number.
func (s *scanner) number() (float64, error) {
	s.skipSpaces()
	start := s.pos
	for s.pos < len(s.text) {
		ch := s.text[s.pos]
		if (ch < '0' || ch > '9') && ch != '.' {
			break
		}
		s.pos++
	}
	if start == s.pos {
		return 0, fmt.Errorf("%w: expected number at offset %d", ErrParse, start)
	}
	value, err := strconv.ParseFloat(s.text[start:s.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q at offset %d", ErrParse, s.text[start:s.pos], start)
	}
	return value, nil
}

// wheel consumes `<name>(<forward|reverse>,<speed>)`.
func (s *scanner) wheel(name string) (WheelCommand, error) {
	if err := s.expect(name); err != nil {
		return WheelCommand{}, err
	}
	if err := s.expect("("); err != nil {
		return WheelCommand{}, err
	}
	dir := s.word()
	var forward bool
	switch dir {
	case DirectionForward:
		forward = true
	case DirectionReverse:
		forward = false
	default:
		return WheelCommand{}, fmt.Errorf("%w: bad wheel direction %q", ErrParse, dir)
	}
	if err := s.expect(","); err != nil {
		return WheelCommand{}, err
	}
	value, err := s.number()
	if err != nil {
		return WheelCommand{}, err
	}
	if value > MaxSpeedCommand {
		return WheelCommand{}, fmt.Errorf("%w: speed %v exceeds %d", ErrParse, value, MaxSpeedCommand)
	}
	if err := s.expect(")"); err != nil {
		return WheelCommand{}, err
	}
	return WheelCommand{Forward: forward, Value: value}, nil
}

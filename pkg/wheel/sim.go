package wheel

import (
	"math"
	"sync"
	"time"
)

// SimWheel is a first-order simulated wheel plant for running the firmware
// off-hardware: drive level maps to a steady-state speed the wheel
// approaches with an exponential lag, and the encoder integrates that
// speed into pulse counts. It implements both Motor and Encoder.
type SimWheel struct {
	mu sync.Mutex

	// gain is the steady-state speed in counts per second at full drive.
	gain float64
	// tau is the time constant of the speed response.
	tau float64

	level    float64
	forward  bool
	speed    float64
	count    float64
	lastStep time.Time
}

// NewSimWheel creates a simulated wheel. gain is the steady-state speed in
// encoder counts per second at full drive (level 255); tau is the response
// time constant.
func NewSimWheel(gain float64, tau time.Duration) *SimWheel {
	return &SimWheel{gain: gain, tau: tau.Seconds()}
}

// SetPower implements Motor.
func (s *SimWheel) SetPower(forward bool, level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward = forward
	s.level = level
	return nil
}

// Count implements Encoder. Pulses accumulate regardless of direction,
// matching a single-channel LM393 style slot encoder.
func (s *SimWheel) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.count)
}

// Step advances the simulation to now. Call it once per control tick,
// before the wheel Update.
func (s *SimWheel) Step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStep.IsZero() {
		s.lastStep = now
		return
	}
	dt := now.Sub(s.lastStep).Seconds()
	if dt <= 0 {
		return
	}
	s.lastStep = now

	target := s.gain * s.level / 255.0
	if s.tau <= 0 {
		s.speed = target
	} else {
		alpha := 1 - math.Exp(-dt/s.tau)
		s.speed += (target - s.speed) * alpha
	}
	s.count += s.speed * dt
}

// Speed returns the current simulated speed in counts per second.
func (s *SimWheel) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

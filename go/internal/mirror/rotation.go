package mirror

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultSpinDuration matches the reference spin animation.
const DefaultSpinDuration = 5 * time.Second

// SpinCommand is an explicit instruction to the render layer: rotate to
// TargetDegrees over Duration.
type SpinCommand struct {
	TargetDegrees float64
	Duration      time.Duration
}

// RotationState is the wheel's current rotation, owned by the render layer
// and driven only by explicit spin commands — not an ambient mutable cell.
type RotationState struct {
	mu sync.Mutex

	current   float64
	target    float64
	spinning  bool
	clock     clockwork.Clock
	timer     clockwork.Timer
	onSettled func(degrees float64)
}

// NewRotationState creates a rotation state at angle zero.
func NewRotationState(clock clockwork.Clock) *RotationState {
	return &RotationState{clock: clock}
}

// OnSettled registers a callback fired when an animation completes.
func (s *RotationState) OnSettled(fn func(degrees float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettled = fn
}

// Animate starts rotating toward the command's target. A command issued
// mid-animation retargets the spin; the earlier completion never fires.
func (s *RotationState) Animate(cmd SpinCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.target = cmd.TargetDegrees
	s.spinning = true
	s.timer = s.clock.AfterFunc(cmd.Duration, s.settle)
}

func (s *RotationState) settle() {
	s.mu.Lock()
	s.current = s.target
	s.spinning = false
	fn := s.onSettled
	degrees := s.current
	s.mu.Unlock()

	if fn != nil {
		fn(degrees)
	}
}

// Current returns the resting angle and whether a spin is in progress.
func (s *RotationState) Current() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.spinning
}

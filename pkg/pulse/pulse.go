// Package pulse animates the selected coverage marker with a scale that
// oscillates between two bounds.
//
// The Animator owns its State outright. A frame source calls Step once per
// tick; Start and Stop hand out and revoke the run's generation, so a tick
// scheduled for an earlier run can be recognised and dropped with StepFor.
package pulse

import (
	"time"

	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/metrics"
)

// Defaults for the oscillation.
const (
	DefaultMin       = 1.0
	DefaultMax       = 1.25
	DefaultIncrement = 0.01
)

// Direction is the way the scale is currently moving.
type Direction int

const (
	Growing Direction = iota
	Shrinking
)

func (d Direction) String() string {
	if d == Shrinking {
		return "shrinking"
	}
	return "growing"
}

// State is a snapshot of the animator.
type State struct {
	TargetID   string
	Scale      float64
	Direction  Direction
	Running    bool
	Generation uint64
	Elapsed    time.Duration
	Steps      int
}

// Options configures an Animator. Zero fields take the defaults.
type Options struct {
	Min       float64
	Max       float64
	Increment float64
}

func (o Options) withDefaults() Options {
	if o.Min <= 0 {
		o.Min = DefaultMin
	}
	if o.Max <= o.Min {
		o.Max = o.Min + (DefaultMax - DefaultMin)
	}
	if o.Increment <= 0 {
		o.Increment = DefaultIncrement
	}
	return o
}

// Animator runs at most one pulse at a time. It is driven from a single
// goroutine and is not safe for concurrent use.
type Animator struct {
	opts  Options
	state State
}

// New returns a stopped Animator.
func New(opts Options) *Animator {
	opts = opts.withDefaults()
	return &Animator{opts: opts, state: State{Scale: opts.Min}}
}

// Start stops any current run, then begins a new one on targetID and
// returns its generation.
func (a *Animator) Start(targetID string) uint64 {
	a.Stop()
	gen := a.state.Generation + 1
	a.state = State{
		TargetID:   targetID,
		Scale:      a.opts.Min,
		Direction:  Growing,
		Running:    true,
		Generation: gen,
	}
	debug.Log("pulse: start %q (gen %d)", targetID, gen)
	return gen
}

// Stop ends the current run. Calling it while stopped does nothing.
func (a *Animator) Stop() {
	if !a.state.Running {
		return
	}
	debug.Log("pulse: stop %q (gen %d) after %d steps", a.state.TargetID, a.state.Generation, a.state.Steps)
	a.state.Running = false
	a.state.Scale = a.opts.Min
	a.state.Direction = Growing
}

// Step advances the running pulse by one increment and reports whether a
// step happened. The scale reverses at either bound.
func (a *Animator) Step(dt time.Duration) bool {
	if !a.state.Running {
		return false
	}
	defer metrics.Timer(metrics.PulseStep)()

	s := &a.state
	s.Steps++
	if dt > 0 {
		s.Elapsed += dt
	}
	switch s.Direction {
	case Growing:
		s.Scale += a.opts.Increment
		if s.Scale >= a.opts.Max {
			s.Scale = a.opts.Max
			s.Direction = Shrinking
		}
	case Shrinking:
		s.Scale -= a.opts.Increment
		if s.Scale <= a.opts.Min {
			s.Scale = a.opts.Min
			s.Direction = Growing
		}
	}
	return true
}

// StepFor steps only if gen is the generation of the live run. A scheduler
// holding a stale generation should stop rescheduling when it returns false.
func (a *Animator) StepFor(gen uint64, dt time.Duration) bool {
	if !a.Live(gen) {
		return false
	}
	return a.Step(dt)
}

// Live reports whether gen identifies the current running pulse.
func (a *Animator) Live(gen uint64) bool {
	return a.state.Running && a.state.Generation == gen
}

// State returns a snapshot of the animator.
func (a *Animator) State() State {
	return a.state
}

// Running reports whether a pulse is active.
func (a *Animator) Running() bool {
	return a.state.Running
}

// Bounds returns the scale range.
func (a *Animator) Bounds() (lo, hi float64) {
	return a.opts.Min, a.opts.Max
}

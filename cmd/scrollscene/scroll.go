package main

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ScrollConfig contains all tunable parameters for the scroll physics core.
//
// A ScrollConfig is a value: it is never mutated in place. Runtime tuning goes
// through WithOverrides, which returns a new config.
type ScrollConfig struct {
	// Input scaling
	WheelMultiplier float64 `json:"wheel_multiplier" yaml:"wheel_multiplier"` // velocity per wheel deltaY unit
	TouchMultiplier float64 `json:"touch_multiplier" yaml:"touch_multiplier"` // velocity per touch pixel

	// Dynamics
	VelocityDecay float64 `json:"velocity_decay" yaml:"velocity_decay"` // per-tick geometric decay, (0,1)
	Smoothing     float64 `json:"smoothing" yaml:"smoothing"`           // lerp factor displayed -> target, (0,1)
	MinVelocity   float64 `json:"min_velocity" yaml:"min_velocity"`     // |v| above this means "scrolling"

	// WrapThreshold is accepted and exposed but not used by StepScroll.
	// The short-path rule uses a fixed half-turn (shortPathThreshold).
	WrapThreshold float64 `json:"wrap_threshold" yaml:"wrap_threshold"`
}

// ScrollOverrides is a partial ScrollConfig. Nil fields are left untouched;
// non-nil fields are applied even when they hold a zero value.
type ScrollOverrides struct {
	WheelMultiplier *float64 `json:"wheel_multiplier,omitempty"`
	TouchMultiplier *float64 `json:"touch_multiplier,omitempty"`
	VelocityDecay   *float64 `json:"velocity_decay,omitempty"`
	Smoothing       *float64 `json:"smoothing,omitempty"`
	MinVelocity     *float64 `json:"min_velocity,omitempty"`
	WrapThreshold   *float64 `json:"wrap_threshold,omitempty"`
}

// IsEmpty reports whether no field is overridden.
func (o ScrollOverrides) IsEmpty() bool {
	return o.WheelMultiplier == nil && o.TouchMultiplier == nil &&
		o.VelocityDecay == nil && o.Smoothing == nil &&
		o.MinVelocity == nil && o.WrapThreshold == nil
}

// DefaultScrollConfig returns the stock tuning.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		WheelMultiplier: defaultWheelMultiplier,
		TouchMultiplier: defaultTouchMultiplier,
		VelocityDecay:   defaultVelocityDecay,
		Smoothing:       defaultSmoothing,
		MinVelocity:     defaultMinVelocity,
		WrapThreshold:   defaultWrapThreshold,
	}
}

// WithOverrides returns a copy of c with the non-nil fields of o applied.
// The receiver is not modified. Callers should Validate the result.
func (c ScrollConfig) WithOverrides(o ScrollOverrides) ScrollConfig {
	if o.WheelMultiplier != nil {
		c.WheelMultiplier = *o.WheelMultiplier
	}
	if o.TouchMultiplier != nil {
		c.TouchMultiplier = *o.TouchMultiplier
	}
	if o.VelocityDecay != nil {
		c.VelocityDecay = *o.VelocityDecay
	}
	if o.Smoothing != nil {
		c.Smoothing = *o.Smoothing
	}
	if o.MinVelocity != nil {
		c.MinVelocity = *o.MinVelocity
	}
	if o.WrapThreshold != nil {
		c.WrapThreshold = *o.WrapThreshold
	}
	return c
}

// Validate checks the config invariants.
func (c ScrollConfig) Validate() error {
	for name, v := range map[string]float64{
		"wheel_multiplier": c.WheelMultiplier,
		"touch_multiplier": c.TouchMultiplier,
		"velocity_decay":   c.VelocityDecay,
		"smoothing":        c.Smoothing,
		"min_velocity":     c.MinVelocity,
		"wrap_threshold":   c.WrapThreshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scroll.%s must be a finite number", name)
		}
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay >= 1 {
		return errors.New("scroll.velocity_decay must be in (0,1)")
	}
	if c.Smoothing <= 0 || c.Smoothing >= 1 {
		return errors.New("scroll.smoothing must be in (0,1)")
	}
	if c.MinVelocity < 0 {
		return errors.New("scroll.min_velocity must be >= 0")
	}
	if c.WrapThreshold < 0 || c.WrapThreshold >= 1 {
		return errors.New("scroll.wrap_threshold must be in [0,1)")
	}
	return nil
}

// ScrollState is the physics state advanced once per tick.
//
// Displayed and Target are always in [0,1). Velocity is the only driver of Target.
type ScrollState struct {
	Displayed  float64
	Target     float64
	Velocity   float64
	Scrolling  bool
	LastUpdate time.Time
}

// shortPathThreshold is the |target-displayed| distance beyond which the
// interpolation goes around the wrap point instead of across the range.
const shortPathThreshold = 0.5

// Wrap maps x into [0,1) by adding or subtracting whole units.
func Wrap(x float64) float64 {
	switch {
	case x > 1:
		x -= math.Floor(x)
	case x < 0:
		x = 1 + (x - math.Ceil(x))
	}
	// x == 1, and tiny negatives that round to 1 above, belong to 0.
	if x >= 1 {
		return 0
	}
	return x
}

func lerp(start, end, factor float64) float64 {
	return start + (end-start)*factor
}

// StepScroll advances the scroll state by one tick and returns the new state.
//
// Order matters: input accumulated since the last tick is already in Velocity,
// so it is applied to Target before this tick's decay.
func StepScroll(s ScrollState, cfg ScrollConfig, now time.Time) ScrollState {
	s.Target = Wrap(s.Target + s.Velocity)
	s.Velocity *= cfg.VelocityDecay

	from := s.Displayed
	if delta := s.Target - s.Displayed; math.Abs(delta) > shortPathThreshold {
		if s.Target > s.Displayed {
			from = s.Displayed + 1
		} else {
			from = s.Displayed - 1
		}
	}
	s.Displayed = Wrap(lerp(from, s.Target, cfg.Smoothing))

	s.Scrolling = math.Abs(s.Velocity) > cfg.MinVelocity
	s.LastUpdate = now
	return s
}

// ApplyWheel accumulates a wheel delta into velocity.
func (s ScrollState) ApplyWheel(deltaY float64, cfg ScrollConfig) ScrollState {
	s.Velocity += deltaY * cfg.WheelMultiplier
	return s
}

// TouchState tracks the reference coordinate of an in-progress touch drag.
type TouchState struct {
	Active bool
	LastY  float64
}

// ApplyTouchStart records the touch origin and stops any momentum. Any touch
// already in progress is replaced.
func (s ScrollState) ApplyTouchStart(y float64) (ScrollState, TouchState) {
	s.Velocity = 0
	return s, TouchState{Active: true, LastY: y}
}

// ApplyTouchMove replaces velocity with the drag distance since the previous
// touch sample, so a drag maps directly to speed.
func (s ScrollState) ApplyTouchMove(t TouchState, y float64, cfg ScrollConfig) (ScrollState, TouchState) {
	prev := t.LastY
	if !t.Active {
		prev = y
	}
	s.Velocity = (prev - y) * cfg.TouchMultiplier
	return s, TouchState{Active: true, LastY: y}
}

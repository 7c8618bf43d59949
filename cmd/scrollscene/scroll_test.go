package main

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_RangeAndIdempotence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.25, 0.25},
		{0.999, 0.999},
		{1, 0},
		{2, 0},
		{2.5, 0.5},
		{-1, 0},
		{-0.25, 0.75},
		{-3.75, 0.25},
		{-1e-18, 0},
	}
	for _, tc := range cases {
		got := Wrap(tc.in)
		assert.InDelta(t, tc.want, got, 1e-12, "Wrap(%v)", tc.in)
		assert.GreaterOrEqual(t, got, 0.0, "Wrap(%v)", tc.in)
		assert.Less(t, got, 1.0, "Wrap(%v)", tc.in)
		assert.Equal(t, got, Wrap(got), "Wrap not idempotent for %v", tc.in)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		x := (rng.Float64() - 0.5) * 1e4
		w := Wrap(x)
		require.GreaterOrEqual(t, w, 0.0, "Wrap(%v)", x)
		require.Less(t, w, 1.0, "Wrap(%v)", x)
		require.Equal(t, w, Wrap(w), "Wrap not idempotent for %v", x)
	}
}

func TestStepScroll_FixedPoint(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Displayed: 0.3, Target: 0.3}

	now := time.Unix(0, 0)
	for i := 0; i < 100; i++ {
		now = now.Add(16 * time.Millisecond)
		s = StepScroll(s, cfg, now)
		require.Equal(t, 0.3, s.Displayed, "tick %d", i)
		require.Equal(t, 0.3, s.Target, "tick %d", i)
		require.False(t, s.Scrolling, "tick %d", i)
	}
	assert.Equal(t, now, s.LastUpdate)
}

func TestStepScroll_WheelMomentumDecaysGeometrically(t *testing.T) {
	cfg := DefaultScrollConfig()
	cfg.WheelMultiplier = 1

	var s ScrollState
	for i := 0; i < 10; i++ {
		s = s.ApplyWheel(0.0000005, cfg)
	}
	v0 := s.Velocity
	require.InDelta(t, 0.000005, v0, 1e-15)

	prev := v0
	for i := 0; i < 500; i++ {
		s = StepScroll(s, cfg, time.Time{})
		require.Greater(t, s.Velocity, 0.0, "tick %d", i)
		require.Less(t, s.Velocity, prev, "velocity must decrease, tick %d", i)
		require.InDelta(t, prev*cfg.VelocityDecay, s.Velocity, 1e-18, "tick %d", i)
		prev = s.Velocity
	}
	assert.Less(t, s.Velocity, v0*1e-9)
}

func TestStepScroll_InputBeforeTickIsNotDropped(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{}.ApplyWheel(100, cfg)
	v := s.Velocity

	s = StepScroll(s, cfg, time.Time{})
	assert.InDelta(t, v, s.Target, 1e-15, "whole pre-tick velocity lands in target")
	assert.InDelta(t, v*cfg.VelocityDecay, s.Velocity, 1e-15)
}

func TestStepScroll_WrapCrossingTakesShortPath(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Displayed: 0.98, Target: 0.02}

	s = StepScroll(s, cfg, time.Time{})
	assert.Greater(t, s.Displayed, 0.98, "first step must move forward toward 1.0")

	for i := 0; i < 300; i++ {
		s = StepScroll(s, cfg, time.Time{})
		inShortArc := s.Displayed >= 0.98 || s.Displayed <= 0.02+1e-9
		require.True(t, inShortArc, "tick %d: displayed %.6f left the short arc", i, s.Displayed)
	}
	assert.InDelta(t, 0.02, s.Displayed, 1e-6)
}

func TestStepScroll_WrapCrossingBackward(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Displayed: 0.02, Target: 0.98}

	s = StepScroll(s, cfg, time.Time{})
	assert.Less(t, s.Displayed, 0.02, "first step must move backward toward 0")

	for i := 0; i < 300; i++ {
		s = StepScroll(s, cfg, time.Time{})
		inShortArc := s.Displayed <= 0.02 || s.Displayed >= 0.98-1e-9
		require.True(t, inShortArc, "tick %d: displayed %.6f left the short arc", i, s.Displayed)
	}
	assert.InDelta(t, 0.98, s.Displayed, 1e-6)
}

func TestStepScroll_NegativeVelocityWraps(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Velocity: -0.3}

	s = StepScroll(s, cfg, time.Time{})
	assert.InDelta(t, 0.7, s.Target, 1e-12)
	assert.GreaterOrEqual(t, s.Displayed, 0.0)
	assert.Less(t, s.Displayed, 1.0)
}

func TestTouchMove_ReplacesVelocity(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Velocity: 0.5}

	s, touch := s.ApplyTouchStart(100)
	assert.Equal(t, 0.0, s.Velocity, "touch start stops momentum")
	assert.True(t, touch.Active)

	s, touch = s.ApplyTouchMove(touch, 90, cfg)
	assert.InDelta(t, 10*cfg.TouchMultiplier, s.Velocity, 1e-15)

	s, touch = s.ApplyTouchMove(touch, 85, cfg)
	assert.InDelta(t, 5*cfg.TouchMultiplier, s.Velocity, 1e-15, "second move replaces, not accumulates")
	assert.Equal(t, 85.0, touch.LastY)
}

func TestTouchStart_RestartsDrag(t *testing.T) {
	cfg := DefaultScrollConfig()
	s, touch := ScrollState{}.ApplyTouchStart(100)
	s, touch = s.ApplyTouchMove(touch, 60, cfg)
	require.NotZero(t, s.Velocity)

	s, touch = s.ApplyTouchStart(20)
	assert.Equal(t, TouchState{Active: true, LastY: 20}, touch, "a new touch discards the old origin")
	assert.Equal(t, 0.0, s.Velocity)

	s, _ = s.ApplyTouchMove(touch, 18, cfg)
	assert.InDelta(t, 2*cfg.TouchMultiplier, s.Velocity, 1e-15)
}

func TestTouchMove_WithoutStartIsZeroDelta(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Velocity: 0.2}

	s, touch := s.ApplyTouchMove(TouchState{}, 42, cfg)
	assert.Equal(t, 0.0, s.Velocity)
	assert.Equal(t, TouchState{Active: true, LastY: 42}, touch)
}

func TestWheel_Accumulates(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{}.ApplyWheel(100, cfg).ApplyWheel(100, cfg)
	assert.InDelta(t, 200*cfg.WheelMultiplier, s.Velocity, 1e-15)
}

func TestScrollingFlag_TurnsOffAtThreshold(t *testing.T) {
	cfg := DefaultScrollConfig()
	s := ScrollState{Velocity: 0.01}

	s = StepScroll(s, cfg, time.Time{})
	require.True(t, s.Scrolling)

	ticks := 0
	for s.Scrolling {
		prevV := s.Velocity
		s = StepScroll(s, cfg, time.Time{})
		ticks++
		require.Less(t, ticks, 1000, "scrolling never stopped")
		if s.Scrolling {
			require.Greater(t, math.Abs(s.Velocity), cfg.MinVelocity)
		} else {
			require.LessOrEqual(t, math.Abs(s.Velocity), cfg.MinVelocity)
			require.Greater(t, math.Abs(prevV), cfg.MinVelocity)
		}
	}

	for i := 0; i < 100; i++ {
		s = StepScroll(s, cfg, time.Time{})
		require.False(t, s.Scrolling, "tick %d after stop", i)
	}
}

func TestScrollConfig_WithOverrides(t *testing.T) {
	base := DefaultScrollConfig()
	decay := 0.8
	zero := 0.0

	next := base.WithOverrides(ScrollOverrides{VelocityDecay: &decay, MinVelocity: &zero})

	assert.Equal(t, 0.8, next.VelocityDecay)
	assert.Equal(t, 0.0, next.MinVelocity, "explicit zero is applied")
	assert.Equal(t, base.WheelMultiplier, next.WheelMultiplier)
	assert.Equal(t, defaultVelocityDecay, base.VelocityDecay, "receiver is not modified")
	assert.True(t, ScrollOverrides{}.IsEmpty())
	assert.False(t, ScrollOverrides{MinVelocity: &zero}.IsEmpty())
}

func TestScrollConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultScrollConfig().Validate())

	cases := map[string]func(*ScrollConfig){
		"decay zero":          func(c *ScrollConfig) { c.VelocityDecay = 0 },
		"decay one":           func(c *ScrollConfig) { c.VelocityDecay = 1 },
		"smoothing zero":      func(c *ScrollConfig) { c.Smoothing = 0 },
		"smoothing above one": func(c *ScrollConfig) { c.Smoothing = 1.5 },
		"negative min vel":    func(c *ScrollConfig) { c.MinVelocity = -0.1 },
		"wrap threshold one":  func(c *ScrollConfig) { c.WrapThreshold = 1 },
		"nan multiplier":      func(c *ScrollConfig) { c.WheelMultiplier = math.NaN() },
		"inf multiplier":      func(c *ScrollConfig) { c.TouchMultiplier = math.Inf(1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultScrollConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScrollConfig_WrapThresholdDoesNotAffectPhysics(t *testing.T) {
	a := DefaultScrollConfig()
	b := a
	b.WrapThreshold = 0.4

	sa := ScrollState{Displayed: 0.9, Target: 0.1, Velocity: 0.02}
	sb := sa
	for i := 0; i < 50; i++ {
		sa = StepScroll(sa, a, time.Time{})
		sb = StepScroll(sb, b, time.Time{})
	}
	assert.Equal(t, sa, sb)
}

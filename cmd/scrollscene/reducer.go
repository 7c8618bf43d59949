package main

import (
	"fmt"
	"time"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (input actions, frame ticks, snapshot requests, effect failures)
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The daemon loop is responsible for executing Commands and forwarding Broadcasts.

// ==============================
// Events
// ==============================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// Tick is emitted once per animation frame by the daemon loop.
// Dt is wall-clock delta in seconds between ticks (informational; the physics
// step is per-frame).
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// TimedEvent wraps a payload event with the time the daemon received it.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// RequestStateSnapshot asks the reducer for a StateSnapshot delivered on Reply.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a reducer-emitted, client-facing state change.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastScrollChanged carries the displayed scroll rounded to broadcast precision.
type BroadcastScrollChanged struct {
	Scroll float64
	At     time.Time
}

func (BroadcastScrollChanged) broadcastMarker() {}

// BroadcastScrollingChanged reports an Idle <-> Scrolling transition.
type BroadcastScrollingChanged struct {
	Scrolling bool
	At        time.Time
}

func (BroadcastScrollingChanged) broadcastMarker() {}

// BroadcastConfigChanged reports an accepted config merge.
type BroadcastConfigChanged struct {
	Config ScrollConfig
	At     time.Time
}

func (BroadcastConfigChanged) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state plus Commands and Broadcasts.
//
// Err carries a non-fatal rejection (for example an invalid config override).
// The state is unchanged by a rejected event; the daemon loop logs Err.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
	Err        error
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DaemonState, e Event) ReduceResult {
	if s == nil {
		s = NewDaemonState(DefaultScrollConfig(), Binder{}, time.Time{})
	}

	rr := ReduceResult{State: s}

	switch ev := e.(type) {
	case Tick:
		s.Scroll = StepScroll(s.Scroll, s.Config, ev.Now)

		rr.Commands = append(rr.Commands, CmdPresentFrame{
			PlaybackTime: s.Binder.PlaybackTime(s.Scroll.Displayed),
			Scroll:       s.Scroll.Displayed,
			Scrolling:    s.Scroll.Scrolling,
		})

		rounded := roundScroll(s.Scroll.Displayed)
		if !s.Published.ScrollKnown || rounded != s.Published.Scroll {
			s.Published.Scroll = rounded
			s.Published.ScrollKnown = true
			rr.Broadcasts = append(rr.Broadcasts, BroadcastScrollChanged{Scroll: rounded, At: ev.Now})
		}
		if s.Scroll.Scrolling != s.Published.Scrolling {
			s.Published.Scrolling = s.Scroll.Scrolling
			rr.Broadcasts = append(rr.Broadcasts, BroadcastScrollingChanged{Scrolling: s.Scroll.Scrolling, At: ev.Now})
		}

	case TimedEvent:
		reduceAction(s, ev.Event, ev.At, &rr)

	case RequestStateSnapshot:
		rr.Commands = append(rr.Commands, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(s.Scroll.LastUpdate),
		})

	case CommandFailed:
		// Keep state as-is; the daemon loop already logged the failure.
		_ = ev

	default:
		// Bare actions (tests, internal callers) are reduced like timed ones.
		reduceAction(s, e, s.Scroll.LastUpdate, &rr)
	}

	return rr
}

// reduceAction applies one input action to s.
func reduceAction(s *DaemonState, e Event, at time.Time, rr *ReduceResult) {
	switch a := e.(type) {
	case WheelScrolled:
		s.Scroll = s.Scroll.ApplyWheel(a.DeltaY, s.Config)

	case TouchStarted:
		s.Scroll, s.Touch = s.Scroll.ApplyTouchStart(a.Y)

	case TouchMoved:
		s.Scroll, s.Touch = s.Scroll.ApplyTouchMove(s.Touch, a.Y, s.Config)

	case UpdateScrollConfig:
		if a.Overrides.IsEmpty() {
			return
		}
		next := s.Config.WithOverrides(a.Overrides)
		if err := next.Validate(); err != nil {
			rr.Err = fmt.Errorf("reject scroll config update: %w", err)
			return
		}
		s.Config = next
		rr.Broadcasts = append(rr.Broadcasts, BroadcastConfigChanged{Config: next, At: at})

	case ResetScroll:
		s.ResetScroll(at)

	default:
		// Unknown event type: no-op.
	}
}

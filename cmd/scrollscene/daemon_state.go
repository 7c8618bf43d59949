package main

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DaemonState is the top-level, daemon-owned state container.
//
// Goals:
//   - Keep all reducer-owned state in one place (pure reducer, no external mutation).
//   - Separate physics state from what has already been published to clients.
//   - Make it easy to publish a coherent snapshot to other clients (WS/IPC).
type DaemonState struct {
	// Scroll is the physics state advanced on every Tick.
	Scroll ScrollState

	// Touch holds the reference coordinate of the current touch drag.
	Touch TouchState

	// Config is the active scroll tuning. Replaced, never mutated, on UpdateScrollConfig.
	Config ScrollConfig

	// Binder maps the scroll scalar to clip playback time.
	Binder Binder

	// Published tracks what clients were last told, so broadcasts are only
	// emitted on visible change.
	Published PublishedState
}

// PublishedState is the last state broadcast to clients.
type PublishedState struct {
	Scroll      float64
	ScrollKnown bool
	Scrolling   bool
}

// StateSnapshot is a read-only copy of the externally visible state.
type StateSnapshot struct {
	Scroll       float64
	Scrolling    bool
	PlaybackTime float64
	SceneLoaded  bool
	Config       ScrollConfig
	At           time.Time
}

// NewDaemonState creates the start-up state: zero velocity, Displayed=0.
func NewDaemonState(cfg ScrollConfig, binder Binder, now time.Time) *DaemonState {
	return &DaemonState{
		Scroll: ScrollState{LastUpdate: now},
		Config: cfg,
		Binder: binder,
	}
}

// Snapshot returns the externally visible state.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) Snapshot(now time.Time) StateSnapshot {
	return StateSnapshot{
		Scroll:       s.Scroll.Displayed,
		Scrolling:    s.Scroll.Scrolling,
		PlaybackTime: s.Binder.PlaybackTime(s.Scroll.Displayed),
		SceneLoaded:  s.Binder.Active(),
		Config:       s.Config,
		At:           now,
	}
}

// ResetScroll discards momentum and position.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) ResetScroll(now time.Time) {
	s.Scroll = ScrollState{LastUpdate: now}
	s.Touch = TouchState{}
}

// roundScroll rounds a scroll value to the broadcast precision.
func roundScroll(v float64) float64 {
	p := math.Pow(10, scrollBroadcastDecimals)
	return Wrap(math.Round(v*p) / p)
}

// requestSnapshot asks the daemon loop for a StateSnapshot and waits for the
// reply. Other goroutines must use this instead of touching DaemonState.
func requestSnapshot(ctx context.Context, events chan<- Event, timeout time.Duration) (StateSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply := make(chan StateSnapshot, 1)
	select {
	case events <- RequestStateSnapshot{Reply: reply}:
	case <-ctx.Done():
		return StateSnapshot{}, fmt.Errorf("event queue full: %w", ctx.Err())
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return StateSnapshot{}, fmt.Errorf("state snapshot: %w", ctx.Err())
	}
}

package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven frame loop
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects (mixer seek, render).
//   - Effect failures are turned into Events and fed back into the reducer.
//   - Input arriving between ticks is reduced immediately; it lands in Velocity
//     and is integrated on the next Tick.
//
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from multiple sources
//   - Emits a Tick event for every tick of the TickSource
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and forwards broadcasts without blocking
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
//   - Stops the tick source on exit
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	ticks TickSource,
	state *DaemonState,
	deps effectDeps,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	// Guard: reducer-driven daemon expects a state container.
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	defer ticks.Stop()

	lastTick := time.Now()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}
	enqueueCommands := func(cmds []Command) {
		if len(cmds) == 0 {
			return
		}
		cmdQueue = append(cmdQueue, cmds...)
	}

	forwardBroadcasts := func(bs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast channel full; dropping state update")
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev)
			if rr.State != nil {
				state = rr.State
			}
			if rr.Err != nil {
				logger.Warn("event rejected", "error", rr.Err)
			}
			enqueueCommands(rr.Commands)
			forwardBroadcasts(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing failure events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(deps, cmd, logger, enqueueEvent)

			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			// Snapshot requests carry their own reply channel; everything else is input.
			if req, isReq := ev.(RequestStateSnapshot); isReq {
				enqueueEvent(req)
			} else {
				enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			}
			flushEvents()
			flushCommands()

		case now := <-ticks.C():
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			enqueueEvent(Tick{Now: now, Dt: dt})
			flushEvents()
			flushCommands()
		}
	}
}

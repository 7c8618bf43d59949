package main

import (
	"log/slog"
	"time"
)

// effectDeps are the external systems commands act on.
type effectDeps struct {
	Scene    *SceneBinding // may be inert
	Renderer Renderer
}

// runEffect executes a single reducer-emitted Command (side effect) and
// reports failures as CommandFailed events via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
// - The daemon loop is responsible for sequencing: Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	deps effectDeps,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		// No place to report observations/errors; nothing sensible to do.
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdPresentFrame:
		if deps.Scene != nil && deps.Scene.Mixer != nil {
			deps.Scene.Mixer.SetTime(c.PlaybackTime)
		}
		if deps.Renderer == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoRenderer{}, At: now})
			return
		}
		if err := deps.Renderer.Render(buildFrame(c, deps.Scene)); err != nil {
			logger.Error("render failed", "error", err, "scroll", c.Scroll)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
			return
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the effects worker indefinitely.
		select {
		case c.Reply <- c.Snapshot:
			// delivered
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		// Unknown command: record failure so reducer can react (if desired).
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{
			Command: cmd,
			Err:     errUnknownCommand{cmd: cmd},
			At:      now,
		})
	}
}

// errNoRenderer indicates the daemon was asked to present a frame without a renderer.
type errNoRenderer struct{}

func (errNoRenderer) Error() string { return "no renderer configured" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }

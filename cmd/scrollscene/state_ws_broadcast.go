package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// WS message types.
const (
	wsTypeStateInit        = "state_init"
	wsTypeScrollChanged    = "scroll_changed"
	wsTypeScrollingChanged = "scrolling_changed"
	wsTypeConfigChanged    = "config_changed"
)

// wsScrollCoalesceWindow is the most often scroll_changed is sent. Updates
// inside a window replace each other; only the latest is delivered.
const wsScrollCoalesceWindow = 50 * time.Millisecond

// wsMessageSnapshot is the data payload of state_init and of the IPC
// get_state response.
type wsMessageSnapshot struct {
	Scroll       float64      `json:"scroll"`
	Scrolling    bool         `json:"scrolling"`
	PlaybackTime float64      `json:"playback_time"`
	SceneLoaded  bool         `json:"scene_loaded"`
	Config       ScrollConfig `json:"config"`
}

type wsScrollChangedData struct {
	Scroll float64 `json:"scroll"`
}

type wsScrollingChangedData struct {
	Scrolling bool `json:"scrolling"`
}

type wsConfigChangedData struct {
	Config ScrollConfig `json:"config"`
}

func snapshotPayload(snap StateSnapshot) wsMessageSnapshot {
	return wsMessageSnapshot{
		Scroll:       roundScroll(snap.Scroll),
		Scrolling:    snap.Scrolling,
		PlaybackTime: snap.PlaybackTime,
		SceneLoaded:  snap.SceneLoaded,
		Config:       snap.Config,
	}
}

// envelope is the wire format of every WS frame.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// wsOutboundEvent is a typed frame before serialization. A zero At is
// stamped with the send time.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time
}

func (e wsOutboundEvent) marshal() ([]byte, error) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return json.Marshal(envelope{Type: e.Type, Ts: &ts, Data: e.Data})
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastScrollChanged:
		return wsOutboundEvent{Type: wsTypeScrollChanged, Data: wsScrollChangedData{Scroll: ev.Scroll}, At: ev.At}, true
	case BroadcastScrollingChanged:
		return wsOutboundEvent{Type: wsTypeScrollingChanged, Data: wsScrollingChangedData{Scrolling: ev.Scrolling}, At: ev.At}, true
	case BroadcastConfigChanged:
		return wsOutboundEvent{Type: wsTypeConfigChanged, Data: wsConfigChangedData{Config: ev.Config}, At: ev.At}, true
	default:
		return wsOutboundEvent{}, false
	}
}

// RunBroadcaster serializes reducer broadcasts and hands them to the hub.
// It returns when ctx is canceled or src is closed, flushing any pending
// scroll update first.
//
// scroll_changed can arrive every frame, so it is rate limited: the first
// update opens a window, later ones replace it, and the window's end sends
// the latest. The window is not extended by new updates. Any other broadcast
// flushes the pending scroll first so clients see changes in order.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	send := func(ev wsOutboundEvent) {
		msg, err := ev.marshal()
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	window := time.NewTimer(wsScrollCoalesceWindow)
	window.Stop()
	defer window.Stop()

	var pending *wsOutboundEvent
	armed := false

	flush := func() {
		if armed {
			window.Stop()
			armed = false
		}
		if pending != nil {
			send(*pending)
			pending = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case <-window.C:
			armed = false
			flush()

		case b, ok := <-src:
			if !ok {
				flush()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}
			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}
			if ev.Type == wsTypeScrollChanged {
				pending = &ev
				if !armed {
					window.Reset(wsScrollCoalesceWindow)
					armed = true
				}
				continue
			}
			flush()
			send(ev)
		}
	}
}

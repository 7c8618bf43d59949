package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Action Types
// ============================================================================
// Actions represent input intent from various sources (evdev, terminal, IPC,
// WebSocket clients). The central daemon loop consumes these and the reducer
// applies scroll policy.
// ============================================================================

// Action is a marker interface for all input actions.
//
// Actions also implement the reducer's Event marker so they can be reduced
// directly (the daemon wraps them in TimedEvent for timestamps).
type Action interface {
	eventMarker()
}

// WheelScrolled is one wheel event. DeltaY follows browser conventions:
// positive when scrolling down, in pixels.
type WheelScrolled struct {
	DeltaY float64 `json:"delta_y"`
}

func (WheelScrolled) eventMarker() {}

// TouchStarted begins a touch drag at vertical coordinate Y.
type TouchStarted struct {
	Y float64 `json:"y"`
}

func (TouchStarted) eventMarker() {}

// TouchMoved reports the current vertical coordinate of a touch drag.
type TouchMoved struct {
	Y float64 `json:"y"`
}

func (TouchMoved) eventMarker() {}

// UpdateScrollConfig merges a partial override into the running scroll config.
type UpdateScrollConfig struct {
	Overrides ScrollOverrides `json:"overrides"`
}

func (UpdateScrollConfig) eventMarker() {}

// ResetScroll returns the scroll state to its start-up value.
type ResetScroll struct{}

func (ResetScroll) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "wheel":
		var a WheelScrolled
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal WheelScrolled: %w", err)
		}
		return a, nil

	case "touch_start":
		var a TouchStarted
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal TouchStarted: %w", err)
		}
		return a, nil

	case "touch_move":
		var a TouchMoved
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal TouchMoved: %w", err)
		}
		return a, nil

	case "update_scroll_config":
		var a UpdateScrollConfig
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal UpdateScrollConfig: %w", err)
		}
		return a, nil

	case "reset_scroll":
		return ResetScroll{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case WheelScrolled:
		env.Type = "wheel"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal WheelScrolled: %w", err)
		}
		env.Data = data

	case TouchStarted:
		env.Type = "touch_start"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal TouchStarted: %w", err)
		}
		env.Data = data

	case TouchMoved:
		env.Type = "touch_move"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal TouchMoved: %w", err)
		}
		env.Data = data

	case UpdateScrollConfig:
		env.Type = "update_scroll_config"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal UpdateScrollConfig: %w", err)
		}
		env.Data = data

	case ResetScroll:
		env.Type = "reset_scroll"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Wire types (duplicated from the daemon package for this standalone binary)

// eventEnvelope wraps events for JSON
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wheelData struct {
	DeltaY float64 `json:"delta_y"`
}

type touchData struct {
	Y float64 `json:"y"`
}

// scrollOverrides mirrors the daemon's partial scroll config.
type scrollOverrides struct {
	WheelMultiplier *float64 `json:"wheel_multiplier,omitempty"`
	TouchMultiplier *float64 `json:"touch_multiplier,omitempty"`
	VelocityDecay   *float64 `json:"velocity_decay,omitempty"`
	Smoothing       *float64 `json:"smoothing,omitempty"`
	MinVelocity     *float64 `json:"min_velocity,omitempty"`
	WrapThreshold   *float64 `json:"wrap_threshold,omitempty"`
}

type updateScrollConfigData struct {
	Overrides scrollOverrides `json:"overrides"`
}

// scrollConfig is the full config reported by get_state.
type scrollConfig struct {
	WheelMultiplier float64 `json:"wheel_multiplier"`
	TouchMultiplier float64 `json:"touch_multiplier"`
	VelocityDecay   float64 `json:"velocity_decay"`
	Smoothing       float64 `json:"smoothing"`
	MinVelocity     float64 `json:"min_velocity"`
	WrapThreshold   float64 `json:"wrap_threshold"`
}

type stateSnapshot struct {
	Scroll       float64      `json:"scroll"`
	Scrolling    bool         `json:"scrolling"`
	PlaybackTime float64      `json:"playback_time"`
	SceneLoaded  bool         `json:"scene_loaded"`
	Config       scrollConfig `json:"config"`
}

// ipcResponse represents the daemon's response
type ipcResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *stateSnapshot `json:"state,omitempty"`
}

const ipcTimeout = 3 * time.Second

// sendRequest writes one line-delimited JSON request and reads one response.
func sendRequest(socketPath string, req eventEnvelope) (ipcResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	data, err := json.Marshal(req)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return ipcResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return ipcResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp, nil
}

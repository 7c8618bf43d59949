package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Line-delimited JSON, one request per line, one response line per request.
// A connection may carry any number of requests.
//
//   request:  {"type": "wheel", "data": {"delta_y": 120}}
//   response: {"status": "ok"} | {"status": "error", "error": "..."}
//
// "get_state" is not an Event; it is answered inline with
// {"status": "ok", "state": {...}} using the state_init payload.
// ============================================================================

// IPCResponse is one response line.
type IPCResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	State  *wsMessageSnapshot `json:"state,omitempty"`
}

const (
	ipcGetStateType    = "get_state"
	ipcSnapshotTimeout = time.Second
	ipcSocketMode      = 0o666
)

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// runIPCServer serves the control socket until ctx is canceled.
// A stale socket file from a previous run is replaced.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)
	defer ln.Close()

	if err := os.Chmod(socketPath, ipcSocketMode); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}
	logger.Info("IPC listening", "socket", socketPath)

	// Closing the listener is what unblocks Accept on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		switch {
		case err == nil:
			go serveIPCConn(ctx, conn, events, logger)
		case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			logger.Debug("IPC listener closed")
			return nil
		default:
			logger.Error("IPC accept error", "error", err)
		}
	}
}

func serveIPCConn(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()
	logger.Debug("IPC client connected")

	sc := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for sc.Scan() {
		resp := dispatchIPCLine(ctx, sc.Bytes(), events)
		if resp.Status != "ok" {
			logger.Debug("IPC request rejected", "line", sc.Text(), "error", resp.Error)
		}
		if err := enc.Encode(resp); err != nil {
			logger.Warn("IPC write failed", "error", err)
			return
		}
	}
	logger.Debug("IPC client disconnected")
}

// dispatchIPCLine turns one request line into its response.
// Input events are queued without blocking the connection; a full queue is
// reported to the client rather than stalling it.
func dispatchIPCLine(ctx context.Context, line []byte, events chan<- Event) IPCResponse {
	var env EventEnvelope
	if json.Unmarshal(line, &env) == nil && env.Type == ipcGetStateType {
		return requestIPCState(ctx, events)
	}

	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}

	select {
	case events <- ev:
		return ipcOK()
	default:
		return ipcError("event queue full")
	}
}

// requestIPCState answers get_state with the state_init payload.
func requestIPCState(ctx context.Context, events chan<- Event) IPCResponse {
	snap, err := requestSnapshot(ctx, events, ipcSnapshotTimeout)
	if err != nil {
		return ipcError("%v", err)
	}
	payload := snapshotPayload(snap)
	return IPCResponse{Status: "ok", State: &payload}
}

// SendIPCEvent delivers one event over a fresh connection and waits for the
// daemon's acknowledgement.
func SendIPCEvent(socketPath string, ev Action) error {
	line, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the scrollscene daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Input devices (evdev wheel/touch)
	Input InputConfig `yaml:"input"`

	// Scroll physics tuning
	Scroll ScrollConfig `yaml:"scroll"`

	// Scene asset and the clips/nodes bound to scroll
	Scene SceneConfig `yaml:"scene"`

	// Frame loop and presentation
	Render RenderConfig `yaml:"render"`

	// HTTP server hosting the state WebSocket
	HTTP HTTPConfig `yaml:"http"`

	// IPC configuration (used by scrollctl)
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	Devices         []string `yaml:"devices,omitempty"` // evdev devices to read; empty disables evdev input
	Grab            bool     `yaml:"grab"`              // take an exclusive EVIOCGRAB on each device
	WheelNotchDelta float64  `yaml:"wheel_notch_delta"` // deltaY pixels per wheel detent
}

type SceneConfig struct {
	Path       string `yaml:"path"` // .glb/.gltf; empty runs without a scene
	CameraClip string `yaml:"camera_clip"`
	LightClip  string `yaml:"light_clip"`
	CameraNode string `yaml:"camera_node"`
	LightNode  string `yaml:"light_node"`
}

type RenderConfig struct {
	Backend            string  `yaml:"backend"`   // "none" or "terminal"
	UpdateHz           int     `yaml:"update_hz"` // frames (ticks) per second
	TerminalNotchDelta float64 `yaml:"terminal_notch_delta"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	WSPath  string `yaml:"ws_path"`
}

type IPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`

	// File receives logs instead of stdout. With the terminal renderer, logs
	// would corrupt the screen, so they go here or are discarded.
	File string `yaml:"file,omitempty"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Grab:            false,
			WheelNotchDelta: defaultWheelNotchDelta,
		},
		Scroll: DefaultScrollConfig(),
		Scene: SceneConfig{
			CameraClip: defaultCameraClip,
			LightClip:  defaultLightClip,
			CameraNode: defaultCameraNode,
			LightNode:  defaultLightNode,
		},
		Render: RenderConfig{
			Backend:            RenderNone,
			UpdateHz:           defaultUpdateHz,
			TerminalNotchDelta: defaultTerminalNotchDY,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    "127.0.0.1:3001",
			WSPath:  "/ws/state",
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: "/tmp/scrollscene.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - Fields absent from the file keep their DefaultConfig values.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if non-nil.
// main.go decides which flags exist.
type FlagOverrides struct {
	InputDevice *string
	InputGrab   *bool

	Scroll ScrollOverrides

	ScenePath *string

	RenderBackend  *string
	RenderUpdateHz *int

	HTTPEnabled *bool
	HTTPAddr    *string

	IPCEnabled    *bool
	IPCSocketPath *string

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		// A single -device flag replaces the configured list; commas separate several.
		cfg.Input.Devices = splitList(*o.InputDevice)
	}
	if o.InputGrab != nil {
		cfg.Input.Grab = *o.InputGrab
	}

	cfg.Scroll = cfg.Scroll.WithOverrides(o.Scroll)

	if o.ScenePath != nil {
		cfg.Scene.Path = *o.ScenePath
	}

	if o.RenderBackend != nil {
		cfg.Render.Backend = *o.RenderBackend
	}
	if o.RenderUpdateHz != nil {
		cfg.Render.UpdateHz = *o.RenderUpdateHz
	}

	if o.HTTPEnabled != nil {
		cfg.HTTP.Enabled = *o.HTTPEnabled
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}

	if o.IPCEnabled != nil {
		cfg.IPC.Enabled = *o.IPCEnabled
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.WheelNotchDelta <= 0 {
		return errors.New("input.wheel_notch_delta must be > 0")
	}

	// Scroll
	if err := c.Scroll.Validate(); err != nil {
		return err
	}

	// Scene
	if c.Scene.Path != "" {
		if c.Scene.CameraClip == "" || c.Scene.LightClip == "" {
			return errors.New("scene.camera_clip and scene.light_clip must not be empty")
		}
		if c.Scene.CameraNode == "" || c.Scene.LightNode == "" {
			return errors.New("scene.camera_node and scene.light_node must not be empty")
		}
	}

	// Render
	switch c.Render.Backend {
	case RenderNone, RenderTerminal:
	default:
		return fmt.Errorf("render.backend must be %q or %q", RenderNone, RenderTerminal)
	}
	if c.Render.UpdateHz <= 0 || c.Render.UpdateHz > 1000 {
		return errors.New("render.update_hz must be between 1 and 1000")
	}
	if c.Render.TerminalNotchDelta <= 0 {
		return errors.New("render.terminal_notch_delta must be > 0")
	}

	// HTTP
	if c.HTTP.Enabled {
		if c.HTTP.Addr == "" {
			return errors.New("http.enabled is true but http.addr is empty")
		}
		if !strings.HasPrefix(c.HTTP.WSPath, "/") {
			return errors.New("http.ws_path must start with /")
		}
	}

	// IPC
	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return errors.New("ipc.enabled is true but ipc.socket_path is empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like scene.path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

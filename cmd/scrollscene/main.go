package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("scrollscene v%s\n", version)
	fmt.Println("Scroll-driven animated scene daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  scrollscene [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Plays a looping glTF scene whose camera/light animation timeline is")
	fmt.Println("  driven by a momentum-smoothed, wrap-around scroll position. Scroll")
	fmt.Println("  input comes from evdev wheel/touch devices, the terminal mouse wheel,")
	fmt.Println("  WebSocket clients and the IPC socket (see scrollctl).")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Terminal HUD, scene from a GLB file")
	fmt.Println("  scrollscene -scene ./scene.glb -render terminal -log-file /tmp/scrollscene.log")
	fmt.Println()
	fmt.Println("  # Headless, reading a mouse wheel exclusively")
	fmt.Println("  scrollscene -config ~/.config/scrollscene.yaml -device /dev/input/event5 -grab")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - evdev devices need read access (run as root or add user to 'input' group)")
	fmt.Println("  - A scene without the configured clips/nodes renders a static frame")
	fmt.Println("  - Edits to the scroll section of -config apply live; other sections need a restart")
	fmt.Println()
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		device      = flag.String("device", "", "evdev input device(s), comma separated (overrides input.devices)")
		grab        = flag.Bool("grab", false, "Grab evdev devices exclusively")
		scenePath   = flag.String("scene", "", "glTF/GLB scene file (overrides scene.path)")
		backend     = flag.String("render", RenderNone, "Renderer backend: none|terminal")
		updateHz    = flag.Int("update-hz", defaultUpdateHz, "Frame loop frequency in Hz")
		httpAddr    = flag.String("http-addr", "", "HTTP listen address for the state WebSocket")
		noHTTP      = flag.Bool("no-http", false, "Disable the HTTP/WebSocket server")
		ipcSocket   = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		noIPC       = flag.Bool("no-ipc", false, "Disable the IPC socket")
		wheelMult   = flag.Float64("wheel-multiplier", defaultWheelMultiplier, "Velocity per wheel deltaY pixel")
		touchMult   = flag.Float64("touch-multiplier", defaultTouchMultiplier, "Velocity per touch pixel")
		decay       = flag.Float64("velocity-decay", defaultVelocityDecay, "Per-frame velocity retention, (0,1)")
		smoothing   = flag.Float64("smoothing", defaultSmoothing, "Displayed->target lerp factor, (0,1)")
		minVelocity = flag.Float64("min-velocity", defaultMinVelocity, "Velocity above which the scene counts as scrolling")
		logLevelStr = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFile     = flag.String("log-file", "", "Write logs to this file instead of stdout")
		watchConfig = flag.Bool("watch-config", true, "Apply scroll.* edits to the config file while running")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Only flags given on the command line override the config file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			o.InputDevice = device
		case "grab":
			o.InputGrab = grab
		case "scene":
			o.ScenePath = scenePath
		case "render":
			o.RenderBackend = backend
		case "update-hz":
			o.RenderUpdateHz = updateHz
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "no-http":
			enabled := !*noHTTP
			o.HTTPEnabled = &enabled
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "no-ipc":
			enabled := !*noIPC
			o.IPCEnabled = &enabled
		case "wheel-multiplier":
			o.Scroll.WheelMultiplier = wheelMult
		case "touch-multiplier":
			o.Scroll.TouchMultiplier = touchMult
		case "velocity-decay":
			o.Scroll.VelocityDecay = decay
		case "smoothing":
			o.Scroll.Smoothing = smoothing
		case "min-velocity":
			o.Scroll.MinVelocity = minVelocity
		case "log-level":
			o.LogLevel = logLevelStr
		case "log-file":
			o.LogFile = logFile
		}
	})

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logOut, closeLog, err := openLogOutput(cfg.Logging, cfg.Render.Backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer closeLog()

	logger := setupLogger(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchPath := ""
	if *configPath != "" && *watchConfig {
		watchPath = *configPath
	}

	if err := run(ctx, cfg, watchPath, logger); err != nil {
		logger.Error("scrollscene stopped", "error", err)
		closeLog()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// loadSceneBinding loads and binds the configured scene. Every failure
// degrades to an inert binding; nothing here is fatal.
func loadSceneBinding(cfg SceneConfig, logger *slog.Logger) *SceneBinding {
	if cfg.Path == "" {
		logger.Info("no scene configured; rendering static frames")
		b, _ := BindScene(nil, cfg)
		return b
	}

	scene, err := LoadScene(ExpandPath(cfg.Path), logger)
	if err != nil {
		logger.Warn("scene failed to load; rendering static frames", "path", cfg.Path, "error", err)
		b, _ := BindScene(nil, cfg)
		return b
	}

	b, err := BindScene(scene, cfg)
	if err != nil {
		logger.Warn("scene has nothing to animate; rendering static frames",
			"path", cfg.Path, "error", err, "clips", scene.ClipNames())
		return b
	}

	logger.Info("scene bound",
		"path", cfg.Path,
		"clip", b.Binder.ClipName,
		"duration_s", strconv.FormatFloat(b.Binder.Duration, 'f', 3, 64),
		"camera_node", b.CameraNode,
		"light_node", b.LightNode)
	return b
}

// run wires every component and blocks until ctx is canceled, the terminal
// user quits, or a component fails. A non-empty watchPath enables live
// reload of the scroll section from that config file.
func run(ctx context.Context, cfg Config, watchPath string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	binding := loadSceneBinding(cfg.Scene, logger)

	var renderer Renderer = nullRenderer{}
	var term *TerminalRenderer
	if cfg.Render.Backend == RenderTerminal {
		r, err := NewTerminalRenderer(nil, cfg.Render.TerminalNotchDelta)
		if err != nil {
			return err
		}
		term = r
		renderer = r
	}
	defer renderer.Close()

	var devices []*os.File
	if len(cfg.Input.Devices) > 0 {
		files, err := openInputDevices(cfg.Input.Devices, cfg.Input.Grab)
		if err != nil {
			return err
		}
		devices = files
	}
	closeDevices := func() {
		for _, f := range devices {
			_ = f.Close()
		}
	}
	defer closeDevices()

	// Central event bus: every input source writes here, only the daemon reads.
	events := make(chan Event, defaultEventQueueSize)

	// Without a WebSocket server nobody consumes broadcasts; a nil channel
	// makes the daemon skip forwarding.
	var broadcasts chan StateBroadcast
	if cfg.HTTP.Enabled {
		broadcasts = make(chan StateBroadcast, defaultBroadcastBufSize)
	}

	state := NewDaemonState(cfg.Scroll, binding.Binder, time.Now())
	deps := effectDeps{Scene: binding, Renderer: renderer}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The frame loop is the heart of the process; when it stops, everything stops.
		defer cancel()
		runDaemon(gctx, events, NewTickerSource(cfg.Render.UpdateHz), state, deps, broadcasts, logger)
		return nil
	})

	if cfg.HTTP.Enabled {
		ws := NewServer(logger, events, ServerConfig{})
		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Addr, newHTTPMux(ws, cfg.HTTP.WSPath), logger)
		})
	}

	if cfg.IPC.Enabled {
		g.Go(func() error {
			return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
		})
	}

	if watchPath != "" {
		g.Go(func() error {
			return watchConfigFile(gctx, watchPath, cfg.Scroll, events, logger)
		})
	}

	if len(devices) > 0 {
		raw := make(chan inputEvent, 64)
		g.Go(func() error {
			defer close(raw)
			if err := readInputEventsEpoll(gctx, devices, raw); err != nil {
				return fmt.Errorf("input reader stopped: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return runEvdevTranslator(gctx, raw, events, cfg.Input.WheelNotchDelta, logger)
		})
	}

	if term != nil {
		g.Go(func() error {
			return term.RunInput(gctx, events, func() {
				logger.Info("quit requested from terminal")
				cancel()
			})
		})
		g.Go(func() error {
			// Finalizing the screen unblocks RunInput's PollEvent.
			<-gctx.Done()
			return term.Close()
		})
	}

	logger.Info("scrollscene running",
		"version", version,
		"render", cfg.Render.Backend,
		"update_hz", cfg.Render.UpdateHz,
		"scene_loaded", !binding.Inert(),
		"devices", cfg.Input.Devices,
		"http", cfg.HTTP.Enabled,
		"ipc", cfg.IPC.Enabled)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

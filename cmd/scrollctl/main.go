// scrollctl - Command-line IPC client for the scrollscene daemon.
//
// It injects wheel/touch input, tunes the scroll physics at runtime, reads the
// current scroll state, and inspects scene files for usable clips and nodes.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const defaultSocketPath = "/tmp/scrollscene.sock"

var socketPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scrollctl",
		Short: "Control the scrollscene daemon via IPC",
		Long: `scrollctl - Control the scrollscene daemon via IPC

Negative values must follow "--" so they are not parsed as flags:
  scrollctl wheel -- -300`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "Unix domain socket path")

	root.AddCommand(
		newWheelCmd(),
		newTouchCmd("touch-start", "Begin a touch drag at <y>", "touch_start"),
		newTouchCmd("touch-move", "Move the current touch drag to <y>", "touch_move"),
		newConfigCmd(),
		newResetCmd(),
		newStatusCmd(),
		newSceneInfoCmd(),
	)
	return root
}

func parseFloatArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func sendOK(cmd *cobra.Command, req eventEnvelope) error {
	if _, err := sendRequest(socketPath, req); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func newWheelCmd() *cobra.Command {
	var notches int
	cmd := &cobra.Command{
		Use:   "wheel <deltaY>",
		Short: "Send a wheel event (positive deltaY scrolls forward)",
		Example: `  scrollctl wheel 100
  scrollctl wheel --repeat 5 120
  scrollctl wheel -- -100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if notches < 1 {
				return fmt.Errorf("--repeat must be at least 1, got %d", notches)
			}
			dy, err := parseFloatArg(args[0])
			if err != nil {
				return err
			}
			for i := 0; i < notches; i++ {
				if _, err := sendRequest(socketPath, eventEnvelope{Type: "wheel", Data: wheelData{DeltaY: dy}}); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().IntVar(&notches, "repeat", 1, "Send the event this many times")
	return cmd
}

func newTouchCmd(use, short, eventType string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <y>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			y, err := parseFloatArg(args[0])
			if err != nil {
				return err
			}
			return sendOK(cmd, eventEnvelope{Type: eventType, Data: touchData{Y: y}})
		},
	}
}

func newConfigCmd() *cobra.Command {
	var o scrollOverrides
	var wheel, touch, decay, smoothing, minVel, wrap float64

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Merge scroll physics overrides into the running config",
		Example: `  scrollctl config --wheel-multiplier 0.000006
  scrollctl config --velocity-decay 0.9 --smoothing 0.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("wheel-multiplier") {
				o.WheelMultiplier = &wheel
			}
			if f.Changed("touch-multiplier") {
				o.TouchMultiplier = &touch
			}
			if f.Changed("velocity-decay") {
				o.VelocityDecay = &decay
			}
			if f.Changed("smoothing") {
				o.Smoothing = &smoothing
			}
			if f.Changed("min-velocity") {
				o.MinVelocity = &minVel
			}
			if f.Changed("wrap-threshold") {
				o.WrapThreshold = &wrap
			}
			if o == (scrollOverrides{}) {
				return fmt.Errorf("no overrides given")
			}
			return sendOK(cmd, eventEnvelope{Type: "update_scroll_config", Data: updateScrollConfigData{Overrides: o}})
		},
	}

	cmd.Flags().Float64Var(&wheel, "wheel-multiplier", 0, "Velocity per wheel deltaY pixel")
	cmd.Flags().Float64Var(&touch, "touch-multiplier", 0, "Velocity per touch pixel")
	cmd.Flags().Float64Var(&decay, "velocity-decay", 0, "Per-frame velocity retention, (0,1)")
	cmd.Flags().Float64Var(&smoothing, "smoothing", 0, "Displayed->target lerp factor, (0,1)")
	cmd.Flags().Float64Var(&minVel, "min-velocity", 0, "Velocity above which the scene counts as scrolling")
	cmd.Flags().Float64Var(&wrap, "wrap-threshold", 0, "Wrap threshold (accepted, not used by the physics)")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset scroll position and momentum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOK(cmd, eventEnvelope{Type: "reset_scroll"})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current scroll state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sendRequest(socketPath, eventEnvelope{Type: "get_state"})
			if err != nil {
				return err
			}
			if resp.State == nil {
				return fmt.Errorf("daemon returned no state")
			}
			printState(cmd, *resp.State)
			return nil
		},
	}
}

func printState(cmd *cobra.Command, s stateSnapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scroll:        %.4f\n", s.Scroll)
	fmt.Fprintf(out, "Scrolling:     %v\n", s.Scrolling)
	fmt.Fprintf(out, "Playback time: %.3fs\n", s.PlaybackTime)
	fmt.Fprintf(out, "Scene loaded:  %v\n", s.SceneLoaded)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "wheel_multiplier  %g\n", s.Config.WheelMultiplier)
	fmt.Fprintf(out, "touch_multiplier  %g\n", s.Config.TouchMultiplier)
	fmt.Fprintf(out, "velocity_decay    %g\n", s.Config.VelocityDecay)
	fmt.Fprintf(out, "smoothing         %g\n", s.Config.Smoothing)
	fmt.Fprintf(out, "min_velocity      %g\n", s.Config.MinVelocity)
	fmt.Fprintf(out, "wrap_threshold    %g\n", s.Config.WrapThreshold)
}

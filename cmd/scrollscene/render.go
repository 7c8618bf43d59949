package main

import "fmt"

// Frame is everything a renderer needs to draw one tick.
type Frame struct {
	Scroll       float64
	Scrolling    bool
	PlaybackTime float64
	ClipName     string
	SceneLoaded  bool

	Camera    Pose
	HasCamera bool
	Light     Pose
	HasLight  bool
}

// Renderer presents frames. Render is called from the daemon goroutine only.
type Renderer interface {
	Render(Frame) error
	Close() error
}

// Renderer backends
const (
	RenderNone     = "none"
	RenderTerminal = "terminal"
)

// nullRenderer discards frames (headless mode).
type nullRenderer struct{}

func (nullRenderer) Render(Frame) error { return nil }
func (nullRenderer) Close() error       { return nil }

// buildFrame assembles a Frame from a present command and the scene binding.
// An inert binding yields a static frame at the rest pose of whatever nodes exist.
func buildFrame(c CmdPresentFrame, b *SceneBinding) Frame {
	f := Frame{
		Scroll:       c.Scroll,
		Scrolling:    c.Scrolling,
		PlaybackTime: c.PlaybackTime,
	}
	if b == nil {
		return f
	}

	f.ClipName = b.Binder.ClipName
	f.SceneLoaded = !b.Inert()

	if b.Mixer != nil {
		f.Camera, f.HasCamera = b.Mixer.Pose(b.CameraNode)
		f.Light, f.HasLight = b.Mixer.Pose(b.LightNode)
		return f
	}
	if b.Scene != nil {
		if i, ok := b.Scene.NodeIndex(b.CameraNode); ok {
			f.Camera, f.HasCamera = b.Scene.Rest[i], true
		}
		if i, ok := b.Scene.NodeIndex(b.LightNode); ok {
			f.Light, f.HasLight = b.Scene.Rest[i], true
		}
	}
	return f
}

func formatVec3(p Pose) string {
	t := p.Translation
	return fmt.Sprintf("(%7.3f, %7.3f, %7.3f)", t[0], t[1], t[2])
}

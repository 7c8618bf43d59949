package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer is a test double for Renderer.
type recordingRenderer struct {
	mu     sync.Mutex
	frames []Frame
	err    error
	closed bool
}

func (r *recordingRenderer) Render(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return r.err
}

func (r *recordingRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingRenderer) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

type daemonHarness struct {
	events     chan Event
	ticks      *ManualTickSource
	broadcasts chan StateBroadcast
	renderer   *recordingRenderer
	binding    *SceneBinding
	cancel     context.CancelFunc
	done       chan struct{}
}

func startDaemon(t *testing.T) *daemonHarness {
	t.Helper()

	binding, err := BindScene(newTestScene(), DefaultConfig().Scene)
	require.NoError(t, err)

	h := &daemonHarness{
		events:     make(chan Event, 16),
		ticks:      NewManualTickSource(),
		broadcasts: make(chan StateBroadcast, 64),
		renderer:   &recordingRenderer{},
		binding:    binding,
		done:       make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	state := NewDaemonState(DefaultScrollConfig(), binding.Binder, time.Now())
	deps := effectDeps{Scene: binding, Renderer: h.renderer}
	go func() {
		defer close(h.done)
		runDaemon(ctx, h.events, h.ticks, state, deps, h.broadcasts, testLogger())
	}()

	t.Cleanup(h.stop)
	return h
}

func (h *daemonHarness) stop() {
	h.cancel()
	<-h.done
}

// snapshot round-trips through the daemon loop, which also proves every
// event queued before it has been reduced.
func (h *daemonHarness) snapshot(t *testing.T) StateSnapshot {
	t.Helper()
	reply := make(chan StateSnapshot, 1)
	h.events <- RequestStateSnapshot{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
		return StateSnapshot{}
	}
}

func TestDaemon_TickRendersFrameAndSeeksMixer(t *testing.T) {
	h := startDaemon(t)

	h.events <- WheelScrolled{DeltaY: 10000}
	h.snapshot(t)
	assert.Empty(t, h.renderer.Frames(), "input alone does not render")

	h.ticks.Fire(time.Now())
	waitUntil(t, time.Second, func() bool { return len(h.renderer.Frames()) == 1 }, "frame not rendered")

	snap := h.snapshot(t)
	f := h.renderer.Frames()[0]
	assert.Equal(t, snap.Scroll, f.Scroll)
	assert.True(t, f.Scrolling)
	assert.True(t, f.SceneLoaded)
	assert.InDelta(t, f.Scroll*4, f.PlaybackTime, 1e-12)
	assert.InDelta(t, f.PlaybackTime, h.binding.Mixer.Time(), 1e-12)
	assert.True(t, f.HasCamera)
	assert.InDelta(t, 2*f.PlaybackTime, f.Camera.Translation[0], 1e-9)
}

func TestDaemon_ForwardsBroadcasts(t *testing.T) {
	h := startDaemon(t)

	h.events <- WheelScrolled{DeltaY: 10000}
	// The tick must see the wheel input, or it has nothing to broadcast.
	h.snapshot(t)
	h.ticks.Fire(time.Now())

	var sawScroll, sawScrolling bool
	deadline := time.After(time.Second)
	for !(sawScroll && sawScrolling) {
		select {
		case b := <-h.broadcasts:
			switch b := b.(type) {
			case BroadcastScrollChanged:
				sawScroll = true
				assert.Greater(t, b.Scroll, 0.0)
			case BroadcastScrollingChanged:
				sawScrolling = true
				assert.True(t, b.Scrolling)
			}
		case <-deadline:
			t.Fatalf("missing broadcasts: scroll=%v scrolling=%v", sawScroll, sawScrolling)
		}
	}
}

func TestDaemon_RejectedConfigKeepsRunning(t *testing.T) {
	h := startDaemon(t)

	bad := 0.0
	h.events <- UpdateScrollConfig{Overrides: ScrollOverrides{VelocityDecay: &bad}}
	good := 0.5
	h.events <- UpdateScrollConfig{Overrides: ScrollOverrides{Smoothing: &good}}

	snap := h.snapshot(t)
	assert.Equal(t, defaultVelocityDecay, snap.Config.VelocityDecay)
	assert.Equal(t, 0.5, snap.Config.Smoothing)
}

func TestDaemon_RenderFailureIsNotFatal(t *testing.T) {
	h := startDaemon(t)
	h.renderer.mu.Lock()
	h.renderer.err = errors.New("display lost")
	h.renderer.mu.Unlock()

	h.ticks.Fire(time.Now())
	h.ticks.Fire(time.Now())
	waitUntil(t, time.Second, func() bool { return len(h.renderer.Frames()) == 2 }, "daemon stopped rendering after a failure")
	h.snapshot(t)
}

func TestDaemon_StopsTickSourceOnExit(t *testing.T) {
	h := startDaemon(t)
	h.stop()

	select {
	case <-h.ticks.Stopped():
	default:
		t.Fatal("tick source not stopped")
	}
}

func TestDaemon_ExitsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	ticks := NewManualTickSource()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), events, ticks, newTestState(), effectDeps{Renderer: nullRenderer{}}, nil, testLogger())
	}()

	ticks.Fire(time.Now())
	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not exit after events closed")
	}
}

func TestRunEffect(t *testing.T) {
	var got []Event
	onEvent := func(e Event) { got = append(got, e) }

	runEffect(effectDeps{}, CmdPresentFrame{Scroll: 0.1}, testLogger(), onEvent)
	require.Len(t, got, 1)
	failed, ok := got[0].(CommandFailed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, errNoRenderer{})

	got = nil
	r := &recordingRenderer{}
	runEffect(effectDeps{Renderer: r}, CmdPresentFrame{Scroll: 0.1}, testLogger(), onEvent)
	assert.Empty(t, got)
	require.Len(t, r.Frames(), 1)
	assert.False(t, r.Frames()[0].SceneLoaded)

	reply := make(chan StateSnapshot, 1)
	runEffect(effectDeps{}, CmdPublishStateSnapshot{Reply: reply, Snapshot: StateSnapshot{Scroll: 0.4}}, testLogger(), onEvent)
	assert.Equal(t, 0.4, (<-reply).Scroll)

	// A full reply channel drops the snapshot instead of blocking.
	full := make(chan StateSnapshot)
	runEffect(effectDeps{}, CmdPublishStateSnapshot{Reply: full}, testLogger(), onEvent)
	assert.Empty(t, got)
}

func TestNewTickerSource(t *testing.T) {
	src := NewTickerSource(1000)
	defer src.Stop()

	select {
	case <-src.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

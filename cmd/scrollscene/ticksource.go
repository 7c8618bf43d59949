package main

import "time"

// TickSource delivers one timestamp per animation frame.
//
// The daemon loop depends only on this interface so the physics can be driven
// by a wall-clock ticker in production and by hand in tests.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// tickerSource is a TickSource backed by time.Ticker.
type tickerSource struct {
	t *time.Ticker
}

// NewTickerSource returns a TickSource firing updateHz times per second.
// Non-positive rates fall back to defaultUpdateHz.
func NewTickerSource(updateHz int) TickSource {
	if updateHz <= 0 {
		updateHz = defaultUpdateHz
	}
	return &tickerSource{t: time.NewTicker(time.Second / time.Duration(updateHz))}
}

func (s *tickerSource) C() <-chan time.Time { return s.t.C }
func (s *tickerSource) Stop()               { s.t.Stop() }

// ManualTickSource is a TickSource fired explicitly via Fire.
type ManualTickSource struct {
	ch      chan time.Time
	stopped chan struct{}
}

// NewManualTickSource creates a manual tick source with a small buffer.
func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{
		ch:      make(chan time.Time, 16),
		stopped: make(chan struct{}),
	}
}

func (m *ManualTickSource) C() <-chan time.Time { return m.ch }

// Stop marks the source stopped. It is safe to call more than once.
func (m *ManualTickSource) Stop() {
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
	}
}

// Stopped is closed once Stop has been called.
func (m *ManualTickSource) Stopped() <-chan struct{} { return m.stopped }

// Fire delivers one tick at the given time. It blocks if the buffer is full.
func (m *ManualTickSource) Fire(now time.Time) {
	m.ch <- now
}

package main

import (
	"context"
	"log/slog"
)

// evdevTranslator turns raw evdev events into scroll actions.
//
// Events are accumulated per SYN_REPORT frame: a wheel-capable mouse may send
// several REL codes per frame and touchscreens report BTN_TOUCH and the Y axes
// in an unspecified order within one frame.
type evdevTranslator struct {
	notchDelta float64 // deltaY pixels per wheel detent

	// Once a device reports REL_WHEEL_HI_RES, the coarse REL_WHEEL duplicate
	// it sends alongside is ignored.
	hiRes bool

	// Per-frame accumulators.
	wheelDY   float64
	touchDown bool
	touchUp   bool
	yChanged  bool

	// Persistent touch state.
	touching     bool
	startPending bool // touch went down before any Y was known
	y            float64
	haveY        bool
}

func newEvdevTranslator(notchDelta float64) *evdevTranslator {
	if notchDelta <= 0 {
		notchDelta = defaultWheelNotchDelta
	}
	return &evdevTranslator{notchDelta: notchDelta}
}

// Feed consumes one raw event and returns the actions completed by it.
// Only EV_SYN/SYN_REPORT completes a frame; every other event returns nil.
func (t *evdevTranslator) Feed(ev inputEvent) []Action {
	switch ev.Type {
	case EV_REL:
		switch ev.Code {
		case REL_WHEEL_HI_RES:
			t.hiRes = true
			// REL_WHEEL is positive away from the user; browser deltaY is
			// positive when scrolling down.
			t.wheelDY += -float64(ev.Value) / hiResUnitsPerNotch * t.notchDelta
		case REL_WHEEL:
			if !t.hiRes {
				t.wheelDY += -float64(ev.Value) * t.notchDelta
			}
		}

	case EV_KEY:
		if ev.Code != BTN_TOUCH {
			return nil
		}
		switch ev.Value {
		case evValuePress:
			t.touchDown = true
		case evValueRelease:
			t.touchUp = true
		}

	case EV_ABS:
		if ev.Code == ABS_Y || ev.Code == ABS_MT_POSITION_Y {
			t.y = float64(ev.Value)
			t.haveY = true
			t.yChanged = true
		}

	case EV_SYN:
		if ev.Code == SYN_REPORT {
			return t.flush()
		}
	}
	return nil
}

func (t *evdevTranslator) flush() []Action {
	var out []Action

	if t.wheelDY != 0 {
		out = append(out, WheelScrolled{DeltaY: t.wheelDY})
	}

	if t.touchDown {
		t.touching = true
		t.startPending = true
	}
	if t.touching && t.haveY {
		switch {
		case t.startPending:
			t.startPending = false
			out = append(out, TouchStarted{Y: t.y})
		case t.yChanged:
			out = append(out, TouchMoved{Y: t.y})
		}
	}
	if t.touchUp {
		t.touching = false
		t.startPending = false
	}

	t.wheelDY = 0
	t.touchDown = false
	t.touchUp = false
	t.yChanged = false
	return out
}

// runEvdevTranslator forwards translated actions from raw to out until raw is
// closed or ctx is canceled.
func runEvdevTranslator(ctx context.Context, raw <-chan inputEvent, out chan<- Event, notchDelta float64, logger *slog.Logger) error {
	tr := newEvdevTranslator(notchDelta)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-raw:
			if !ok {
				return nil
			}
			for _, a := range tr.Feed(ev) {
				logger.Debug("evdev action", "action", a)
				select {
				case out <- a:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

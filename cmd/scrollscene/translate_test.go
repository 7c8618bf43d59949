package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syn() inputEvent { return inputEvent{Type: EV_SYN, Code: SYN_REPORT} }

func feedAll(tr *evdevTranslator, evs ...inputEvent) []Action {
	var out []Action
	for _, ev := range evs {
		out = append(out, tr.Feed(ev)...)
	}
	return out
}

func TestTranslator_WheelNotch(t *testing.T) {
	tr := newEvdevTranslator(100)

	got := feedAll(tr, inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: -1}, syn())
	assert.Equal(t, []Action{WheelScrolled{DeltaY: 100}}, got, "wheel toward user scrolls down")

	got = feedAll(tr, inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: 2}, syn())
	assert.Equal(t, []Action{WheelScrolled{DeltaY: -200}}, got)
}

func TestTranslator_HiResSuppressesCoarseWheel(t *testing.T) {
	tr := newEvdevTranslator(100)

	got := feedAll(tr,
		inputEvent{Type: EV_REL, Code: REL_WHEEL_HI_RES, Value: -60},
		syn(),
	)
	assert.Equal(t, []Action{WheelScrolled{DeltaY: 50}}, got, "half a notch")

	got = feedAll(tr,
		inputEvent{Type: EV_REL, Code: REL_WHEEL_HI_RES, Value: -120},
		inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: -1},
		syn(),
	)
	assert.Equal(t, []Action{WheelScrolled{DeltaY: 100}}, got, "coarse duplicate ignored")
}

func TestTranslator_NothingBeforeSyn(t *testing.T) {
	tr := newEvdevTranslator(100)
	assert.Nil(t, tr.Feed(inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: 1}))
	assert.Nil(t, tr.Feed(inputEvent{Type: EV_KEY, Code: 0x110, Value: 1}), "other keys are ignored")
	assert.Equal(t, []Action{WheelScrolled{DeltaY: -100}}, feedAll(tr, syn()))
}

func TestTranslator_TouchDrag(t *testing.T) {
	tr := newEvdevTranslator(100)

	got := feedAll(tr,
		inputEvent{Type: EV_KEY, Code: BTN_TOUCH, Value: evValuePress},
		inputEvent{Type: EV_ABS, Code: ABS_MT_POSITION_Y, Value: 500},
		inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 500},
		syn(),
	)
	assert.Equal(t, []Action{TouchStarted{Y: 500}}, got)

	got = feedAll(tr, inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 480}, syn())
	assert.Equal(t, []Action{TouchMoved{Y: 480}}, got)

	got = feedAll(tr, syn())
	assert.Empty(t, got, "no Y change, no move")

	got = feedAll(tr, inputEvent{Type: EV_KEY, Code: BTN_TOUCH, Value: evValueRelease}, syn())
	assert.Empty(t, got)

	got = feedAll(tr, inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 300}, syn())
	assert.Empty(t, got, "movement after release is ignored")
}

func TestTranslator_TouchDownBeforeY(t *testing.T) {
	tr := newEvdevTranslator(100)

	got := feedAll(tr, inputEvent{Type: EV_KEY, Code: BTN_TOUCH, Value: evValuePress}, syn())
	assert.Empty(t, got, "start waits for a coordinate")

	got = feedAll(tr, inputEvent{Type: EV_ABS, Code: ABS_Y, Value: 42}, syn())
	assert.Equal(t, []Action{TouchStarted{Y: 42}}, got)
}

func TestTranslator_DefaultNotch(t *testing.T) {
	tr := newEvdevTranslator(0)
	got := feedAll(tr, inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: -1}, syn())
	assert.Equal(t, []Action{WheelScrolled{DeltaY: defaultWheelNotchDelta}}, got)
}

func TestRunEvdevTranslator_ForwardsUntilClosed(t *testing.T) {
	raw := make(chan inputEvent, 8)
	out := make(chan Event, 8)

	raw <- inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: -3}
	raw <- syn()
	close(raw)

	err := runEvdevTranslator(context.Background(), raw, out, 100, testLogger())
	require.NoError(t, err)

	select {
	case ev := <-out:
		assert.Equal(t, WheelScrolled{DeltaY: 300}, ev)
	case <-time.After(time.Second):
		t.Fatal("no action forwarded")
	}
}

func TestDecodeInputEvent(t *testing.T) {
	var b bytes.Buffer
	want := inputEvent{Sec: 10, Usec: 20, Type: EV_REL, Code: REL_WHEEL, Value: -1}
	require.NoError(t, binary.Write(&b, binary.LittleEndian, want))
	require.Equal(t, 24, inputEventSize)

	got, err := decodeInputEvent(bytes.NewReader(nil), b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = decodeInputEvent(bytes.NewReader(nil), b.Bytes()[:10])
	assert.ErrorIs(t, err, errShortInputEvent)
}

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// inputEventSize is the wire size of one inputEvent on 64-bit Linux.
var inputEventSize = binary.Size(inputEvent{})

var errShortInputEvent = errors.New("short input event")

// decodeInputEvent parses one little-endian input_event record.
func decodeInputEvent(r *bytes.Reader, buf []byte) (inputEvent, error) {
	var ev inputEvent
	if len(buf) < inputEventSize {
		return ev, errShortInputEvent
	}
	r.Reset(buf[:inputEventSize])
	if err := binary.Read(r, binary.LittleEndian, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// openInputDevices opens every path read-only. With grab set, each device is
// grabbed exclusively so the desktop does not also act on its scroll events.
// On error, already-opened files are closed.
func openInputDevices(paths []string, grab bool) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		files = append(files, f)

		if grab {
			if err := grabInputDevice(f); err != nil {
				closeAll()
				return nil, fmt.Errorf("grab input device %s: %w", p, err)
			}
		}
	}
	return files, nil
}

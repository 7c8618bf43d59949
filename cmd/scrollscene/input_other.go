//go:build !linux

package main

import (
	"context"
	"errors"
	"os"
)

var errEvdevUnsupported = errors.New("evdev input is only supported on linux")

func grabInputDevice(*os.File) error { return errEvdevUnsupported }

func readInputEventsEpoll(context.Context, []*os.File, chan<- inputEvent) error {
	return errEvdevUnsupported
}

//go:build linux

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// EVIOCGRAB = _IOW('E', 0x90, int)
const eviocgrab = 0x40044590

// epollWaitTimeoutMs bounds how long the reader blocks before re-checking ctx.
const epollWaitTimeoutMs = 200

// grabInputDevice takes an exclusive grab on an evdev device.
func grabInputDevice(f *os.File) error {
	return unix.IoctlSetInt(int(f.Fd()), eviocgrab, 1)
}

// readInputEventsEpoll reads from multiple input devices using epoll
// This is more efficient than spawning a goroutine per device
//
// Instead of:
//   - N goroutines, each blocking on read()
//   - N OS threads potentially
//
// We use:
//   - 1 goroutine with epoll
//   - Kernel wakes us only when events are available
//
// Returns nil when ctx is canceled; any device error is fatal.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- inputEvent) error {
	if len(files) == 0 {
		return fmt.Errorf("no input devices provided")
	}

	// Create epoll instance
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	// Map file descriptors to files for later identification
	fdToFile := make(map[int]*os.File)

	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitTimeoutMs)
		if err != nil {
			// Handle interrupted system call (e.g., SIGINT)
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s (fd=%d)", f.Name(), fd)
			}

			if _, err := f.Read(buf); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}

			ev, err := decodeInputEvent(reader, buf)
			if err != nil {
				// Skip malformed events
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// In this codebase, those are mixer seeks, frame presentation and snapshot replies.
type Command interface {
	commandMarker()
	String() string
}

// CmdPresentFrame seeks the mixer to PlaybackTime and renders one frame.
type CmdPresentFrame struct {
	PlaybackTime float64
	Scroll       float64
	Scrolling    bool
}

func (CmdPresentFrame) commandMarker() {}
func (c CmdPresentFrame) String() string {
	return fmt.Sprintf("CmdPresentFrame(t=%.4f, scroll=%.4f, scrolling=%v)", c.PlaybackTime, c.Scroll, c.Scrolling)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

package main

// Binder maps the normalized scroll scalar onto a clip's timeline.
//
// Looping is produced entirely by the wraparound of the scalar; the clip's
// own loop mode is never consulted.
type Binder struct {
	ClipName string
	Duration float64 // seconds
}

// NewBinder binds to a clip. A missing clip yields an inactive binder.
func NewBinder(clip *Clip) Binder {
	if clip == nil || clip.Duration <= 0 {
		return Binder{}
	}
	return Binder{ClipName: clip.Name, Duration: clip.Duration}
}

// Active reports whether a clip with a positive duration is bound.
func (b Binder) Active() bool { return b.Duration > 0 }

// PlaybackTime returns s * Duration.
func (b Binder) PlaybackTime(s float64) float64 {
	return s * b.Duration
}

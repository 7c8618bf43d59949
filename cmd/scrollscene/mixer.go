package main

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Mixer is a time-seekable animation player.
//
// SetTime evaluates every playing clip at an absolute time; nothing advances
// on its own. Times outside a clip's range clamp to its first/last keyframe.
type Mixer struct {
	scene   *Scene
	playing []*Clip
	poses   []Pose
	time    float64
}

// NewMixer creates a mixer with all nodes at their rest pose.
func NewMixer(scene *Scene) *Mixer {
	poses := make([]Pose, len(scene.Rest))
	copy(poses, scene.Rest)
	return &Mixer{scene: scene, poses: poses}
}

// Play adds a clip to the evaluated set. Playing the same clip twice is a no-op.
func (m *Mixer) Play(c *Clip) {
	if c == nil {
		return
	}
	for _, p := range m.playing {
		if p == c {
			return
		}
	}
	m.playing = append(m.playing, c)
}

// Time returns the last time passed to SetTime.
func (m *Mixer) Time() float64 { return m.time }

// SetTime samples all playing clips at t.
func (m *Mixer) SetTime(t float64) {
	m.time = t
	for _, c := range m.playing {
		tc := min(max(t, 0), c.Duration)
		for i := range c.Tracks {
			tr := &c.Tracks[i]
			if tr.Node < 0 || tr.Node >= len(m.poses) {
				continue
			}
			v := tr.Sample(tc)
			p := &m.poses[tr.Node]
			switch tr.Path {
			case pathTranslation:
				p.Translation = mgl64.Vec3{v[0], v[1], v[2]}
			case pathRotation:
				p.Rotation = quatFromXYZW(v).Normalize()
			case pathScale:
				p.Scale = mgl64.Vec3{v[0], v[1], v[2]}
			}
		}
	}
}

// Pose returns the current pose of the first node with this name.
func (m *Mixer) Pose(name string) (Pose, bool) {
	i, ok := m.scene.NodeIndex(name)
	if !ok {
		return Pose{}, false
	}
	return m.poses[i], true
}

// Sample evaluates the track at t (seconds). Rotations come back as xyzw.
func (tr *Track) Sample(t float64) [4]float64 {
	n := len(tr.Times)
	if n == 0 {
		return [4]float64{}
	}
	if t <= tr.Times[0] {
		return tr.keyValue(0)
	}
	if t >= tr.Times[n-1] {
		return tr.keyValue(n - 1)
	}

	// Times[k] <= t < Times[k+1]
	k := sort.SearchFloat64s(tr.Times, t)
	if k < n && tr.Times[k] == t {
		return tr.keyValue(k)
	}
	k--

	t0, t1 := tr.Times[k], tr.Times[k+1]
	td := t1 - t0
	u := 0.0
	if td > 0 {
		u = (t - t0) / td
	}

	switch tr.Interp {
	case interpStep:
		return tr.keyValue(k)

	case interpCubicSpline:
		v0 := mgl64.Vec4(tr.Values[3*k+1])
		b0 := mgl64.Vec4(tr.Values[3*k+2])
		a1 := mgl64.Vec4(tr.Values[3*(k+1)])
		v1 := mgl64.Vec4(tr.Values[3*(k+1)+1])

		u2 := u * u
		u3 := u2 * u
		out := v0.Mul(2*u3 - 3*u2 + 1).
			Add(b0.Mul(td * (u3 - 2*u2 + u))).
			Add(v1.Mul(-2*u3 + 3*u2)).
			Add(a1.Mul(td * (u3 - u2)))
		return [4]float64(out)

	default:
		a, b := tr.keyValue(k), tr.keyValue(k+1)
		if tr.Path == pathRotation {
			q := mgl64.QuatSlerp(quatFromXYZW(a), quatFromXYZW(b), u)
			return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
		}
		return [4]float64(mgl64.Vec4(a).Add(mgl64.Vec4(b).Sub(mgl64.Vec4(a)).Mul(u)))
	}
}

// keyValue returns the value element of keyframe k.
func (tr *Track) keyValue(k int) [4]float64 {
	if tr.Interp == interpCubicSpline {
		return tr.Values[3*k+1]
	}
	return tr.Values[k]
}

func quatFromXYZW(v [4]float64) mgl64.Quat {
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

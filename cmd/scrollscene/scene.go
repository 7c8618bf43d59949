package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrSceneInert marks a scene that loaded (or failed to load) without the
// clips or nodes needed for animation. The daemon keeps running with a
// static frame.
var ErrSceneInert = errors.New("scene is inert")

// trsPath is the node property a track animates.
type trsPath int

const (
	pathTranslation trsPath = iota
	pathRotation
	pathScale
)

func (p trsPath) String() string {
	switch p {
	case pathTranslation:
		return "translation"
	case pathRotation:
		return "rotation"
	case pathScale:
		return "scale"
	default:
		return "unknown"
	}
}

// interpolation mirrors the glTF sampler interpolation modes.
type interpolation int

const (
	interpLinear interpolation = iota
	interpStep
	interpCubicSpline
)

// Track is one animated property of one node.
//
// For cubic-spline tracks Values holds three entries per keyframe
// (in-tangent, value, out-tangent); otherwise one.
type Track struct {
	Node   int
	Path   trsPath
	Interp interpolation
	Times  []float64
	Values [][4]float64
}

// Clip is a named set of tracks. Duration is the last keyframe time.
type Clip struct {
	Name     string
	Duration float64
	Tracks   []Track
}

// Pose is a node's local transform.
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityPose is the glTF default node transform.
func IdentityPose() Pose {
	return Pose{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Scene is a loaded asset reduced to what the animation binder needs.
type Scene struct {
	Path      string
	NodeNames []string
	Rest      []Pose
	Clips     []*Clip

	nodeIndex map[string]int
}

// LoadScene reads a .gltf or .glb file and compiles its animations.
//
// Channels that cannot be decoded are skipped (and logged), not fatal.
func LoadScene(path string, logger *slog.Logger) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene %s: %w", path, err)
	}
	return sceneFromDocument(path, doc, logger), nil
}

func sceneFromDocument(path string, doc *gltf.Document, logger *slog.Logger) *Scene {
	s := &Scene{
		Path:      path,
		NodeNames: make([]string, len(doc.Nodes)),
		Rest:      make([]Pose, len(doc.Nodes)),
		nodeIndex: make(map[string]int, len(doc.Nodes)),
	}

	for i, n := range doc.Nodes {
		s.NodeNames[i] = n.Name
		s.Rest[i] = restPose(n)
		if _, dup := s.nodeIndex[n.Name]; !dup && n.Name != "" {
			s.nodeIndex[n.Name] = i
		}
	}

	for ai, a := range doc.Animations {
		clip := &Clip{Name: a.Name}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("animation_%d", ai)
		}

		for ci, ch := range a.Channels {
			tr, ok, err := compileChannel(doc, a, ch)
			if err != nil {
				logger.Warn("skipping animation channel", "clip", clip.Name, "channel", ci, "error", err)
				continue
			}
			if !ok {
				continue
			}
			if n := len(tr.Times); n > 0 && tr.Times[n-1] > clip.Duration {
				clip.Duration = tr.Times[n-1]
			}
			clip.Tracks = append(clip.Tracks, tr)
		}

		s.Clips = append(s.Clips, clip)
	}

	return s
}

// restPose returns the node's local transform. glTF nodes carry either TRS
// or a matrix; a non-identity matrix is decomposed.
func restPose(n *gltf.Node) Pose {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return poseFromMatrix(mgl64.Mat4(m))
	}
	r := n.RotationOrDefault()
	return Pose{
		Translation: mgl64.Vec3(n.TranslationOrDefault()),
		Rotation:    quatFromXYZW(r).Normalize(),
		Scale:       mgl64.Vec3(n.ScaleOrDefault()),
	}
}

// poseFromMatrix decomposes a column-major affine TRS matrix without shear.
func poseFromMatrix(m mgl64.Mat4) Pose {
	x, y, z := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	p := Pose{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl64.QuatIdent(),
		Scale:       mgl64.Vec3{x.Len(), y.Len(), z.Len()},
	}
	// A collapsed axis leaves no rotation to recover.
	if p.Scale[0] == 0 || p.Scale[1] == 0 || p.Scale[2] == 0 {
		return p
	}

	x, y, z = x.Mul(1/p.Scale[0]), y.Mul(1/p.Scale[1]), z.Mul(1/p.Scale[2])
	rot := mgl64.Mat4{
		x[0], x[1], x[2], 0,
		y[0], y[1], y[2], 0,
		z[0], z[1], z[2], 0,
		0, 0, 0, 1,
	}
	p.Rotation = mgl64.Mat4ToQuat(rot).Normalize()
	return p
}

// compileChannel turns a glTF channel into a Track. ok is false for channels
// that target nothing we animate (morph weights, missing node).
func compileChannel(doc *gltf.Document, a *gltf.Animation, ch *gltf.AnimationChannel) (Track, bool, error) {
	if ch.Target.Node == nil {
		return Track{}, false, nil
	}

	var path trsPath
	switch ch.Target.Path {
	case gltf.TRSTranslation:
		path = pathTranslation
	case gltf.TRSRotation:
		path = pathRotation
	case gltf.TRSScale:
		path = pathScale
	default:
		return Track{}, false, nil
	}

	if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
		return Track{}, false, fmt.Errorf("sampler index %d out of range", ch.Sampler)
	}
	smp := a.Samplers[ch.Sampler]

	var interp interpolation
	switch smp.Interpolation {
	case gltf.InterpolationStep:
		interp = interpStep
	case gltf.InterpolationCubicSpline:
		interp = interpCubicSpline
	default:
		interp = interpLinear
	}

	times, err := readTimes(doc, smp.Input)
	if err != nil {
		return Track{}, false, fmt.Errorf("read input accessor: %w", err)
	}
	values, err := readValues(doc, smp.Output)
	if err != nil {
		return Track{}, false, fmt.Errorf("read output accessor: %w", err)
	}

	perKey := 1
	if interp == interpCubicSpline {
		perKey = 3
	}
	if len(times) == 0 || len(values) != len(times)*perKey {
		return Track{}, false, fmt.Errorf("keyframe count mismatch: %d times, %d values", len(times), len(values))
	}

	return Track{
		Node:   *ch.Target.Node,
		Path:   path,
		Interp: interp,
		Times:  times,
		Values: values,
	}, true, nil
}

func accessorAt(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

func readTimes(doc *gltf.Document, idx int) ([]float64, error) {
	acr, err := accessorAt(doc, idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}
	in, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("keyframe times must be float scalars, got %T", data)
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out, nil
}

// readValues decodes VEC3/VEC4 outputs, including normalized integer rotations.
func readValues(doc *gltf.Document, idx int) ([][4]float64, error) {
	acr, err := accessorAt(doc, idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}

	switch in := data.(type) {
	case [][3]float32:
		out := make([][4]float64, len(in))
		for i, v := range in {
			out[i] = [4]float64{float64(v[0]), float64(v[1]), float64(v[2]), 0}
		}
		return out, nil
	case [][4]float32:
		out := make([][4]float64, len(in))
		for i, v := range in {
			out[i] = [4]float64{float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])}
		}
		return out, nil
	case [][4]int16:
		out := make([][4]float64, len(in))
		for i, v := range in {
			for k := range v {
				out[i][k] = max(float64(v[k])/32767.0, -1)
			}
		}
		return out, nil
	case [][4]int8:
		out := make([][4]float64, len(in))
		for i, v := range in {
			for k := range v {
				out[i][k] = max(float64(v[k])/127.0, -1)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported keyframe value type %T", data)
	}
}

// ClipNames lists the clips in file order.
func (s *Scene) ClipNames() []string {
	names := make([]string, len(s.Clips))
	for i, c := range s.Clips {
		names[i] = c.Name
	}
	return names
}

// FindClip returns the first clip whose name contains substr.
func (s *Scene) FindClip(substr string) *Clip {
	if s == nil || substr == "" {
		return nil
	}
	for _, c := range s.Clips {
		if strings.Contains(c.Name, substr) {
			return c
		}
	}
	return nil
}

// NodeIndex returns the index of the first node with exactly this name.
func (s *Scene) NodeIndex(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.nodeIndex[name]
	return i, ok
}

// SceneBinding is a scene wired for scroll-driven playback.
//
// An inert binding has a nil Mixer and an inactive Binder; rendering still
// works and shows a static frame.
type SceneBinding struct {
	Scene      *Scene
	Mixer      *Mixer
	Binder     Binder
	CameraNode string
	LightNode  string
}

// Inert reports whether the binding has nothing to animate.
func (b *SceneBinding) Inert() bool {
	return b == nil || b.Mixer == nil
}

// BindScene locates the camera/light clips and nodes and creates a mixer
// playing both clips at time 0. Any missing piece yields an inert binding
// together with an error wrapping ErrSceneInert.
func BindScene(scene *Scene, cfg SceneConfig) (*SceneBinding, error) {
	b := &SceneBinding{
		Scene:      scene,
		CameraNode: cfg.CameraNode,
		LightNode:  cfg.LightNode,
	}
	if scene == nil {
		return b, fmt.Errorf("no scene loaded: %w", ErrSceneInert)
	}

	cameraClip := scene.FindClip(cfg.CameraClip)
	lightClip := scene.FindClip(cfg.LightClip)
	_, hasCamera := scene.NodeIndex(cfg.CameraNode)
	_, hasLight := scene.NodeIndex(cfg.LightNode)

	var missing []string
	if cameraClip == nil {
		missing = append(missing, "clip "+cfg.CameraClip)
	}
	if lightClip == nil {
		missing = append(missing, "clip "+cfg.LightClip)
	}
	if !hasCamera {
		missing = append(missing, "node "+cfg.CameraNode)
	}
	if !hasLight {
		missing = append(missing, "node "+cfg.LightNode)
	}
	if len(missing) > 0 {
		return b, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrSceneInert)
	}

	m := NewMixer(scene)
	m.Play(cameraClip)
	m.Play(lightClip)
	m.SetTime(0)

	b.Mixer = m
	b.Binder = NewBinder(cameraClip)
	return b, nil
}

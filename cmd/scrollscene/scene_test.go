package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDocument builds a glTF document the way an exporter would:
//
//	node 0 Camera  TRS translation (1,2,3)
//	node 1 Light   TRS, no transform
//	node 2 Prop    matrix T(5,0,0) * Rz(90) * S(2)
//
//	CameraAction.001
//	  LINEAR translation on Camera, keys 0,1,2 -> x = 0,2,4
//	  CUBICSPLINE translation on Prop, keys 0,4 -> y = 0,8 (zero tangents)
//	  translation on Light with 3 times and 2 values (malformed, skipped)
//	  morph weights on Camera (ignored)
//	LightAction.001
//	  LINEAR rotation on Light from normalized int16, identity -> 90deg about Z over 2s
func newTestDocument() *gltf.Document {
	doc := gltf.NewDocument()

	prop := mgl64.Translate3D(5, 0, 0).
		Mul4(mgl64.HomogRotate3DZ(math.Pi / 2)).
		Mul4(mgl64.Scale3D(2, 2, 2))
	doc.Nodes = []*gltf.Node{
		{Name: "Camera", Translation: [3]float64{1, 2, 3}},
		{Name: "Light"},
		{Name: "Prop", Matrix: [16]float64(prop)},
	}

	times3 := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1, 2})
	camPath := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {2, 0, 0}, {4, 0, 0}})

	cubicTimes := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 4})
	cubicValues := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{
		{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, // key 0: in, value, out
		{0, 0, 0}, {0, 8, 0}, {0, 0, 0}, // key 1
	})

	short := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {1, 1, 1}})

	lightTimes := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 2})
	q := int16(math.Round(math.Sin(math.Pi/4) * 32767))
	lightRot := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]int16{{0, 0, 0, 32767}, {0, 0, q, q}})
	doc.Accessors[lightRot].Normalized = true

	doc.Animations = []*gltf.Animation{
		{
			Name: "CameraAction.001",
			Samplers: []*gltf.AnimationSampler{
				{Input: times3, Output: camPath},
				{Input: cubicTimes, Output: cubicValues, Interpolation: gltf.InterpolationCubicSpline},
				{Input: times3, Output: short},
			},
			Channels: []*gltf.AnimationChannel{
				{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation}},
				{Sampler: 1, Target: gltf.AnimationChannelTarget{Node: gltf.Index(2), Path: gltf.TRSTranslation}},
				{Sampler: 2, Target: gltf.AnimationChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation}},
				{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: gltf.Index(0), Path: gltf.TRSWeights}},
			},
		},
		{
			Name: "LightAction.001",
			Samplers: []*gltf.AnimationSampler{
				{Input: lightTimes, Output: lightRot},
			},
			Channels: []*gltf.AnimationChannel{
				{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: gltf.Index(1), Path: gltf.TRSRotation}},
			},
		},
	}
	return doc
}

func assertTestDocumentScene(t *testing.T, s *Scene) {
	t.Helper()

	assert.Equal(t, []string{"Camera", "Light", "Prop"}, s.NodeNames)
	assert.Equal(t, []string{"CameraAction.001", "LightAction.001"}, s.ClipNames())

	cam := s.FindClip("CameraAction")
	require.NotNil(t, cam)
	require.Len(t, cam.Tracks, 2, "malformed and morph-weight channels are dropped")
	assert.Equal(t, 4.0, cam.Duration, "duration is the last keyframe of any track")

	lin := cam.Tracks[0]
	assert.Equal(t, 0, lin.Node)
	assert.Equal(t, pathTranslation, lin.Path)
	assert.Equal(t, interpLinear, lin.Interp)
	assert.Equal(t, []float64{0, 1, 2}, lin.Times)
	assert.InDelta(t, 1.0, lin.Sample(0.5)[0], 1e-6)

	cubic := cam.Tracks[1]
	assert.Equal(t, 2, cubic.Node)
	assert.Equal(t, interpCubicSpline, cubic.Interp)
	require.Len(t, cubic.Values, 6, "three values per cubic keyframe")
	assert.InDelta(t, 4.0, cubic.Sample(2)[1], 1e-6, "zero tangents give the midpoint")
	assert.InDelta(t, 8.0, cubic.Sample(4)[1], 1e-6)

	light := s.FindClip("LightAction")
	require.NotNil(t, light)
	require.Len(t, light.Tracks, 1)
	assert.Equal(t, 2.0, light.Duration)
	rot := light.Tracks[0]
	assert.Equal(t, pathRotation, rot.Path)
	assert.InDelta(t, math.Sin(math.Pi/4), rot.Values[1][2], 1e-4, "int16 rotations are normalized")
	assert.InDelta(t, 1.0, rot.Values[0][3], 1e-9)

	assert.Equal(t, mgl64.Vec3{1, 2, 3}, s.Rest[0].Translation)
	assert.Equal(t, IdentityPose(), s.Rest[1])
}

func TestSceneFromDocument(t *testing.T) {
	s := sceneFromDocument("test.gltf", newTestDocument(), testLogger())
	assertTestDocumentScene(t, s)
}

func TestLoadScene_GLBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.glb")
	require.NoError(t, gltf.SaveBinary(newTestDocument(), path))

	s, err := LoadScene(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, path, s.Path)
	assertTestDocumentScene(t, s)

	b, err := BindScene(s, DefaultConfig().Scene)
	require.NoError(t, err)
	assert.Equal(t, 4.0, b.Binder.Duration)

	b.Mixer.SetTime(b.Binder.PlaybackTime(0.25))

	cam, ok := b.Mixer.Pose("Camera")
	require.True(t, ok)
	assert.InDelta(t, 2.0, cam.Translation[0], 1e-6)

	light, ok := b.Mixer.Pose("Light")
	require.True(t, ok)
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	assert.True(t, light.Rotation.ApproxEqualThreshold(want, 1e-3), "light rotation %v, want %v", light.Rotation, want)
}

func TestRestPose_Matrix(t *testing.T) {
	doc := newTestDocument()
	p := restPose(doc.Nodes[2])

	assert.InDeltaSlice(t, []float64{5, 0, 0}, p.Translation[:], 1e-9)
	assert.InDeltaSlice(t, []float64{2, 2, 2}, p.Scale[:], 1e-9)
	want := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	assert.True(t, p.Rotation.ApproxEqualThreshold(want, 1e-9), "rotation %v, want %v", p.Rotation, want)

	// A node with neither TRS nor matrix gets the glTF default transform.
	assert.Equal(t, IdentityPose(), restPose(&gltf.Node{}))
}

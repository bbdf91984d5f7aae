package viewer

import (
	"math"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"preview-service/internal/models"
	"preview-service/internal/scene"
)

func f64(v float64) *float64 { return &v }

func assertVec(t *testing.T, want, got math32.Vector3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-3, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-3, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-3, "z")
}

func TestSphericalToCartesian(t *testing.T) {
	assertVec(t, math32.Vec3(0, 10, 0), SphericalToCartesian(10, 0, 0))
	assertVec(t, math32.Vec3(0, 0, 10), SphericalToCartesian(10, math.Pi/2, 0))
	assertVec(t, math32.Vec3(10, 0, 0), SphericalToCartesian(10, math.Pi/2, math.Pi/2))
}

func TestInitialFramingFromBounds(t *testing.T) {
	f := InitialFraming(math32.B3(0, 0, 0, 30, 40, 10), nil)
	assertVec(t, math32.Vec3(15, 20, 5), f.Target)

	r := float32(64)
	half := r * float32(math.Sqrt2) / 2
	assertVec(t, math32.Vec3(15+half*float32(math.Sqrt2)/2, 20+half, 5+half*float32(math.Sqrt2)/2), f.Position)
}

func TestInitialFramingEmptyBounds(t *testing.T) {
	f := InitialFraming(math32.B3Empty(), nil)
	assertVec(t, math32.Vec3(0, 0, 0), f.Target)
	assert.InDelta(t, 40, f.Position.Length(), 1e-3)
}

func TestInitialFramingHint(t *testing.T) {
	hint := &models.OrbitHint{Radius: f64(100), Theta: f64(0), Phi: f64(90), TargetY: f64(12)}
	f := InitialFraming(math32.B3(0, 0, 0, 10, 10, 10), hint)
	assertVec(t, math32.Vec3(5, 12, 5), f.Target)
	assertVec(t, math32.Vec3(5, 12, 105), f.Position)
}

func TestInitialFramingPartialHint(t *testing.T) {
	hint := &models.OrbitHint{Radius: f64(10)}
	f := InitialFraming(math32.B3(0, 0, 0, 2, 2, 2), hint)
	assertVec(t, math32.Vec3(1, 1, 1), f.Target)
	assert.InDelta(t, 10, f.Position.Sub(f.Target).Length(), 1e-3)
}

func TestFrameLayer(t *testing.T) {
	m := newMassing()
	ix := BuildIndex(m.root)
	def := InitialFraming(scene.SubtreeBounds(m.root), nil)
	var cam Camera
	var controls OrbitControls
	def.Apply(&cam, &controls)

	assert.True(t, FrameLayer("office", ix, &cam, &controls, def))
	assertVec(t, math32.Vec3(25, 20, 5), controls.Target)
	assertVec(t, math32.Vec3(89, 84, 69), cam.Position)

	assert.True(t, FrameLayer("retail", ix, &cam, &controls, def))
	assertVec(t, math32.Vec3(5, 3, 5), controls.Target)
	assertVec(t, math32.Vec3(21, 19, 21), cam.Position)

	assert.True(t, FrameLayer("", ix, &cam, &controls, def))
	assertVec(t, def.Position, cam.Position)
	assertVec(t, def.Target, controls.Target)
}

func TestFrameLayerUnknownLeavesCamera(t *testing.T) {
	m := newMassing()
	ix := BuildIndex(m.root)
	def := InitialFraming(scene.SubtreeBounds(m.root), nil)
	var cam Camera
	var controls OrbitControls
	def.Apply(&cam, &controls)
	updates := controls.Updates

	assert.False(t, FrameLayer("parking", ix, &cam, &controls, def))
	assert.Equal(t, updates, controls.Updates)
	assertVec(t, def.Position, cam.Position)
}

func TestFrameLayerDegenerateBounds(t *testing.T) {
	root := scene.NewGroup("root")
	scene.Add(root, scene.NewMesh("pin", math32.B3(5, 5, 5, 5, 5, 5), scene.NewMaterial("m", 1)))
	scene.Add(root, scene.NewMesh("void", math32.B3Empty(), scene.NewMaterial("m", 1)))
	ix := BuildIndex(root)
	var cam Camera
	var controls OrbitControls

	assert.True(t, FrameLayer("pin", ix, &cam, &controls, Framing{}))
	assertVec(t, math32.Vec3(35, 35, 35), cam.Position)

	assert.False(t, FrameLayer("void", ix, &cam, &controls, Framing{}))
	assertVec(t, math32.Vec3(35, 35, 35), cam.Position)
}

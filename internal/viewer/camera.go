package viewer

import (
	"cogentcore.org/core/math32"

	"preview-service/internal/models"
	"preview-service/internal/scene"
)

const (
	framingScale       = 1.6
	layerRadiusDefault = 30
	sceneRadiusDefault = 40
	defaultOrbitAngle  = 45
)

// Camera is the viewport camera.
type Camera struct {
	Position math32.Vector3 `json:"position"`
}

// OrbitControls orbit the camera around Target.
type OrbitControls struct {
	Target math32.Vector3 `json:"target"`
	// Updates counts Update calls; the renderer re-reads the controls on change.
	Updates int `json:"-"`
}

// Update marks the controls as changed.
func (oc *OrbitControls) Update() { oc.Updates++ }

// Framing is a camera position and orbit target pair.
type Framing struct {
	Position math32.Vector3 `json:"position"`
	Target   math32.Vector3 `json:"target"`
}

// Apply moves cam and controls to the framing.
func (f Framing) Apply(cam *Camera, controls *OrbitControls) {
	cam.Position = f.Position
	controls.Target = f.Target
	controls.Update()
}

// SphericalToCartesian converts a radius and polar/azimuth angles in radians
// to an offset, y up: x = r·sinφ·sinθ, y = r·cosφ, z = r·sinφ·cosθ.
func SphericalToCartesian(radius, phi, theta float32) math32.Vector3 {
	sinPhi := math32.Sin(phi)
	return math32.Vec3(
		radius*sinPhi*math32.Sin(theta),
		radius*math32.Cos(phi),
		radius*sinPhi*math32.Cos(theta),
	)
}

func maxComponent(v math32.Vector3) float32 {
	return max(v.X, v.Y, v.Z)
}

// InitialFraming picks the camera placement for a freshly loaded model. An
// orbit hint wins where it has values; everything else is derived from the
// model bounds (radius max(size)*1.6 or 40, 45° angles, target at the center).
func InitialFraming(bounds math32.Box3, hint *models.OrbitHint) Framing {
	radius := float32(sceneRadiusDefault)
	target := math32.Vec3(0, 0, 0)
	if !bounds.IsEmpty() {
		if r := maxComponent(bounds.Size()) * framingScale; r != 0 {
			radius = r
		}
		target = bounds.Center()
	}
	theta := float32(defaultOrbitAngle)
	phi := float32(defaultOrbitAngle)

	if hint != nil {
		if hint.Radius != nil {
			radius = float32(*hint.Radius)
		}
		if hint.Theta != nil {
			theta = float32(*hint.Theta)
		}
		if hint.Phi != nil {
			phi = float32(*hint.Phi)
		}
		if hint.TargetX != nil {
			target.X = float32(*hint.TargetX)
		}
		if hint.TargetY != nil {
			target.Y = float32(*hint.TargetY)
		}
		if hint.TargetZ != nil {
			target.Z = float32(*hint.TargetZ)
		}
	}

	offset := SphericalToCartesian(radius, math32.DegToRad(phi), math32.DegToRad(theta))
	return Framing{Position: target.Add(offset), Target: target}
}

// LayerBounds is the union bounding box of every mesh a layer owns, including
// meshes nested under them.
func LayerBounds(ix *LayerIndex, layerID string) math32.Box3 {
	box := math32.B3Empty()
	for _, obj := range ix.Objects(layerID) {
		sub := scene.SubtreeBounds(obj)
		if !sub.IsEmpty() {
			box.ExpandByBox(sub)
		}
	}
	return box
}

// FrameLayer points the camera at a layer. An empty layerID restores def.
// Unknown layers and layers without bounds leave the camera untouched; the
// return value reports whether the camera moved.
func FrameLayer(layerID string, ix *LayerIndex, cam *Camera, controls *OrbitControls, def Framing) bool {
	if layerID == "" {
		def.Apply(cam, controls)
		return true
	}
	if len(ix.Objects(layerID)) == 0 {
		return false
	}
	box := LayerBounds(ix, layerID)
	if box.IsEmpty() {
		return false
	}
	center := box.Center()
	radius := maxComponent(box.Size()) * framingScale
	if radius == 0 {
		radius = layerRadiusDefault
	}
	Framing{
		Position: center.Add(math32.Vec3(radius, radius, radius)),
		Target:   center,
	}.Apply(cam, controls)
	return true
}

package scene

import (
	"cogentcore.org/core/math32"
)

// Scene is a loaded model. It owns its graph and materials until Dispose.
type Scene struct {
	Root *Group

	materials []*Material
	disposed  bool
}

// New wraps root into a Scene, collecting the materials reachable from it.
func New(root *Group) *Scene {
	sc := &Scene{Root: root}
	seen := make(map[*Material]bool)
	WalkMeshes(root, func(m *Mesh) {
		for _, mat := range m.Materials {
			if mat != nil && !seen[mat] {
				seen[mat] = true
				sc.materials = append(sc.materials, mat)
			}
		}
	})
	return sc
}

// Materials returns every distinct material in the scene.
func (sc *Scene) Materials() []*Material { return sc.materials }

// Bounds is the bounding box of the whole model.
func (sc *Scene) Bounds() math32.Box3 {
	if sc.Root == nil {
		return math32.B3Empty()
	}
	return SubtreeBounds(sc.Root)
}

// Disposed reports whether Dispose has run.
func (sc *Scene) Disposed() bool { return sc.disposed }

// Dispose releases the materials and drops the graph. Safe to call twice.
func (sc *Scene) Dispose() {
	if sc == nil || sc.disposed {
		return
	}
	for _, m := range sc.materials {
		m.disposed = true
	}
	sc.materials = nil
	sc.Root = nil
	sc.disposed = true
}

package viewer

import (
	"strings"

	"preview-service/internal/scene"
)

// DefaultOpacity is applied to fully opaque materials when a model is indexed,
// and is the baseline fallback for materials without an opacity.
const DefaultOpacity = 0.94

// LayerIndex maps a layer id to the meshes that belong to it. It holds
// non-owning references into one loaded scene and is rebuilt on every load.
type LayerIndex struct {
	order   []string
	objects map[string][]*scene.Mesh
}

// ResolveLayerID returns the layer of a node: the explicit layer tag, else the
// trimmed display name, else "" (no layer).
func ResolveLayerID(n scene.Node) string {
	nb := n.AsNodeBase()
	if tag := strings.TrimSpace(nb.LayerTag); tag != "" {
		return tag
	}
	return strings.TrimSpace(nb.Name)
}

// BuildIndex walks every renderable mesh under root once, grouping meshes by
// layer in traversal order. As a one-time visual normalization it turns on
// shadows and makes fully opaque (or undefined) materials translucent at
// DefaultOpacity.
func BuildIndex(root scene.Node) *LayerIndex {
	ix := &LayerIndex{objects: make(map[string][]*scene.Mesh)}
	scene.WalkMeshes(root, func(m *scene.Mesh) {
		m.CastShadow = true
		m.ReceiveShadow = true
		for _, mat := range m.Materials {
			if mat == nil {
				continue
			}
			if mat.Opacity == nil || *mat.Opacity == 1 {
				mat.Transparent = true
				mat.SetOpacity(DefaultOpacity)
			}
		}

		id := ResolveLayerID(m)
		if id == "" {
			return
		}
		if _, ok := ix.objects[id]; !ok {
			ix.order = append(ix.order, id)
		}
		ix.objects[id] = append(ix.objects[id], m)
	})
	return ix
}

// Layers returns the layer ids in first-seen order.
func (ix *LayerIndex) Layers() []string {
	if ix == nil {
		return nil
	}
	return ix.order
}

// Objects returns the meshes of a layer, nil for an unknown layer.
func (ix *LayerIndex) Objects(layerID string) []*scene.Mesh {
	if ix == nil {
		return nil
	}
	return ix.objects[layerID]
}

// Len is the number of layers.
func (ix *LayerIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.order)
}

// Counts returns the number of meshes per layer.
func (ix *LayerIndex) Counts() map[string]int {
	out := make(map[string]int, ix.Len())
	for _, id := range ix.Layers() {
		out[id] = len(ix.objects[id])
	}
	return out
}

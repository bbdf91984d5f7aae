package viewer

import (
	"math"

	"preview-service/internal/scene"
)

const (
	// DimFactor scales the baseline opacity of layers outside the focus.
	DimFactor = 0.35
	// DimCeiling caps the opacity of a dimmed layer.
	DimCeiling = 0.5
)

// ApplyVisibility sets the visibility of every indexed mesh. Layers missing
// from visibility are visible; only an explicit false hides a layer.
func ApplyVisibility(ix *LayerIndex, visibility map[string]bool) {
	for _, id := range ix.Layers() {
		visible := true
		if v, ok := visibility[id]; ok && !v {
			visible = false
		}
		for _, m := range ix.Objects(id) {
			m.Visible = visible
		}
	}
}

// MaterialState is the opacity record the highlighter keeps per material.
type MaterialState struct {
	// Baseline is the opacity before any focus dimming. Captured once.
	Baseline float64
	// Current is the opacity the renderer should draw with.
	Current float64
	// Dirty is set when Current changed since the last Flush.
	Dirty bool
}

// Highlighter dims every layer outside the focused one. It owns the opacity
// state of the materials it has touched; renderers pull from it.
type Highlighter struct {
	states map[*scene.Material]*MaterialState
}

// NewHighlighter returns a highlighter with no captured baselines.
func NewHighlighter() *Highlighter {
	return &Highlighter{states: make(map[*scene.Material]*MaterialState)}
}

// Apply sets the opacity of every material under every indexed mesh. With an
// empty focus all layers render at their baseline. Dimming is always computed
// from the baseline, so repeated calls never compound.
func (h *Highlighter) Apply(ix *LayerIndex, focus string) {
	for _, id := range ix.Layers() {
		focused := focus == "" || id == focus
		for _, obj := range ix.Objects(id) {
			scene.WalkMeshes(obj, func(m *scene.Mesh) {
				for _, mat := range m.Materials {
					if mat != nil {
						h.set(mat, focused)
					}
				}
			})
		}
	}
}

func (h *Highlighter) set(mat *scene.Material, focused bool) {
	st, ok := h.states[mat]
	if !ok {
		base := mat.OpacityOr(DefaultOpacity)
		st = &MaterialState{Baseline: base, Current: base}
		h.states[mat] = st
	}
	target := st.Baseline
	if !focused {
		target = math.Min(st.Baseline*DimFactor, DimCeiling)
	}
	st.Current = target
	st.Dirty = true
}

// Opacity returns the opacity to draw mat with.
func (h *Highlighter) Opacity(mat *scene.Material) float64 {
	if st, ok := h.states[mat]; ok {
		return st.Current
	}
	return mat.OpacityOr(DefaultOpacity)
}

// State returns the record for mat, if the highlighter has touched it.
func (h *Highlighter) State(mat *scene.Material) (MaterialState, bool) {
	st, ok := h.states[mat]
	if !ok {
		return MaterialState{}, false
	}
	return *st, true
}

// Flush calls fn for every material whose opacity changed since the last
// Flush and clears the dirty marks. It returns the number of materials flushed.
func (h *Highlighter) Flush(fn func(mat *scene.Material, opacity float64)) int {
	n := 0
	for mat, st := range h.states {
		if !st.Dirty {
			continue
		}
		if fn != nil {
			fn(mat, st.Current)
		}
		st.Dirty = false
		n++
	}
	return n
}

package viewer

import (
	"preview-service/internal/models"
)

// ObjectState is the render state of one indexed mesh.
type ObjectState struct {
	Name      string    `json:"name"`
	LayerID   string    `json:"layerId"`
	Visible   bool      `json:"visible"`
	Opacities []float64 `json:"opacities"`
}

// Snapshot is a copy of everything a caller may display about a session.
type Snapshot struct {
	State       State                  `json:"state"`
	PreviewURL  string                 `json:"previewUrl"`
	MetadataURL string                 `json:"metadataUrl,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Warning     string                 `json:"warning,omitempty"`
	Layers      []models.LayerMetadata `json:"layers"`
	Legend      []models.LegendEntry   `json:"legend"`

	DroppedLayers        int `json:"droppedLayers"`
	DroppedLegendEntries int `json:"droppedLegendEntries"`

	IndexedLayers map[string]int  `json:"indexedLayers"`
	Objects       []ObjectState   `json:"objects"`
	Visibility    map[string]bool `json:"visibility"`
	FocusLayerID  string          `json:"focusLayerId,omitempty"`
	Camera        Framing         `json:"camera"`
	DefaultCamera Framing         `json:"defaultCamera"`
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		PreviewURL:    s.previewURL,
		MetadataURL:   s.metadataURL,
		Error:         s.errMsg,
		Warning:       s.warning,
		Layers:        []models.LayerMetadata{},
		Legend:        []models.LegendEntry{},
		IndexedLayers: s.index.Counts(),
		Objects:       []ObjectState{},
		Visibility:    make(map[string]bool, len(s.visibility)),
		FocusLayerID:  s.focus,
		Camera:        Framing{Position: s.camera.Position, Target: s.controls.Target},
		DefaultCamera: s.defaultView,
	}
	for k, v := range s.visibility {
		snap.Visibility[k] = v
	}
	if s.metadata != nil {
		snap.Layers = append(snap.Layers, s.metadata.Layers...)
		snap.Legend = append(snap.Legend, s.metadata.Legend...)
		snap.DroppedLayers = s.metadata.DroppedLayers
		snap.DroppedLegendEntries = s.metadata.DroppedLegendEntries
	}
	for _, id := range s.index.Layers() {
		for _, m := range s.index.Objects(id) {
			obj := ObjectState{Name: m.Name, LayerID: id, Visible: m.Visible}
			for _, mat := range m.Materials {
				if mat != nil {
					obj.Opacities = append(obj.Opacities, s.highlighter.Opacity(mat))
				}
			}
			snap.Objects = append(snap.Objects, obj)
		}
	}
	return snap
}

// Layers returns the indexed layer ids of the loaded model.
func (s *Session) Layers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.index.Layers()...)
}

// State returns the lifecycle state of the current load.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

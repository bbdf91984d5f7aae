package scene

// Material is the part of a surface material the viewer cares about.
type Material struct {
	Name string
	// Opacity as loaded from the asset; nil means the asset left it undefined.
	Opacity *float64
	// Transparent selects the translucent render path.
	Transparent bool

	disposed bool
}

// NewMaterial returns a material with the given opacity.
func NewMaterial(name string, opacity float64) *Material {
	return &Material{Name: name, Opacity: &opacity}
}

// OpacityOr returns the material opacity, or def when it is undefined.
func (m *Material) OpacityOr(def float64) float64 {
	if m.Opacity == nil {
		return def
	}
	return *m.Opacity
}

// SetOpacity sets a defined opacity.
func (m *Material) SetOpacity(v float64) {
	m.Opacity = &v
}

// Disposed reports whether the material was released with its scene.
func (m *Material) Disposed() bool { return m.disposed }

package viewer

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preview-service/internal/scene"
)

type massing struct {
	root     *scene.Group
	retail   *scene.Mesh
	office   *scene.Mesh
	stray    *scene.Mesh
	opaque   *scene.Material
	glass    *scene.Material
	undef    *scene.Material
	retailUp *scene.Mesh
}

// newMassing builds a small scene: a tagged retail podium with a child mesh,
// an office tower identified by name only and one mesh with no layer.
func newMassing() massing {
	m := massing{
		root:   scene.NewGroup("massing"),
		opaque: scene.NewMaterial("concrete", 1),
		glass:  scene.NewMaterial("glass", 0.5),
		undef:  &scene.Material{Name: "untextured"},
	}
	m.retail = scene.Add(m.root, scene.NewMesh("Podium", math32.B3(0, 0, 0, 10, 4, 10), m.opaque))
	m.retail.LayerTag = "retail"
	m.retailUp = scene.Add(m.retail, scene.NewMesh("Podium roof", math32.B3(0, 4, 0, 10, 6, 10), m.undef))
	m.retailUp.LayerTag = "retail"
	m.office = scene.Add(m.root, scene.NewMesh("  office ", math32.B3(20, 0, 0, 30, 40, 10), m.glass))
	m.stray = scene.Add(m.root, scene.NewMesh("   ", math32.B3(0, 0, 50, 1, 1, 51), m.opaque))
	scene.Add(m.root, &scene.Light{NodeBase: scene.NodeBase{Name: "sun", Visible: true}})
	return m
}

func TestResolveLayerID(t *testing.T) {
	tagged := scene.NewMesh("Name", math32.B3Empty())
	tagged.LayerTag = " tag "
	assert.Equal(t, "tag", ResolveLayerID(tagged))

	named := scene.NewMesh("  Tower A ", math32.B3Empty())
	assert.Equal(t, "Tower A", ResolveLayerID(named))

	blank := scene.NewMesh(" ", math32.B3Empty())
	blank.LayerTag = "  "
	assert.Equal(t, "", ResolveLayerID(blank))
}

func TestBuildIndex(t *testing.T) {
	m := newMassing()
	ix := BuildIndex(m.root)

	assert.Equal(t, []string{"retail", "office"}, ix.Layers())
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, map[string]int{"retail": 2, "office": 1}, ix.Counts())
	assert.Equal(t, []*scene.Mesh{m.retail, m.retailUp}, ix.Objects("retail"))
	assert.Nil(t, ix.Objects("missing"))
}

func TestBuildIndexNormalizesMaterials(t *testing.T) {
	m := newMassing()
	BuildIndex(m.root)

	assert.True(t, m.opaque.Transparent)
	assert.Equal(t, DefaultOpacity, m.opaque.OpacityOr(-1))
	assert.True(t, m.undef.Transparent)
	assert.Equal(t, DefaultOpacity, m.undef.OpacityOr(-1))

	assert.False(t, m.glass.Transparent)
	assert.Equal(t, 0.5, m.glass.OpacityOr(-1))

	for _, mesh := range []*scene.Mesh{m.retail, m.retailUp, m.office, m.stray} {
		assert.True(t, mesh.CastShadow, mesh.Name)
		assert.True(t, mesh.ReceiveShadow, mesh.Name)
	}
}

func TestNilIndex(t *testing.T) {
	var ix *LayerIndex
	assert.Nil(t, ix.Layers())
	assert.Nil(t, ix.Objects("retail"))
	assert.Zero(t, ix.Len())
	assert.Empty(t, ix.Counts())
}

func TestEmptyScene(t *testing.T) {
	ix := BuildIndex(scene.NewGroup("empty"))
	require.NotNil(t, ix)
	assert.Empty(t, ix.Layers())
}

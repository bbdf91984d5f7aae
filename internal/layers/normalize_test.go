package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLayerRequiresIDAndName(t *testing.T) {
	assert.Nil(t, NormalizeLayer(map[string]any{"name": "Tower A"}))
	assert.Nil(t, NormalizeLayer(map[string]any{"id": "a"}))
	assert.Nil(t, NormalizeLayer(map[string]any{"id": "   ", "name": "Tower A"}))
	assert.Nil(t, NormalizeLayer(map[string]any{"id": 7.0, "name": "Tower A"}))
	assert.Nil(t, NormalizeLayer(nil))

	layer := NormalizeLayer(map[string]any{"id": " a ", "name": "Tower A"})
	require.NotNil(t, layer)
	assert.Equal(t, "a", layer.ID)
	assert.Equal(t, "Tower A", layer.Name)
	assert.Equal(t, DefaultColor, layer.Color)
	assert.Nil(t, layer.Geometry)
	assert.Nil(t, layer.Metrics.GfaSqm)
}

func TestNormalizeLayerMetricIsolation(t *testing.T) {
	layer := NormalizeLayer(map[string]any{
		"id":   "a",
		"name": "n",
		"metrics": map[string]any{
			"gfa_sqm":          "not-a-number",
			"nia_sqm":          500.0,
			"allocationPct":    "42.5",
			"estimated_floors": true,
		},
	})
	require.NotNil(t, layer)
	assert.Nil(t, layer.Metrics.GfaSqm)
	require.NotNil(t, layer.Metrics.NiaSqm)
	assert.Equal(t, 500.0, *layer.Metrics.NiaSqm)
	require.NotNil(t, layer.Metrics.AllocationPct)
	assert.Equal(t, 42.5, *layer.Metrics.AllocationPct)
	assert.Nil(t, layer.Metrics.EstimatedFloors)
	assert.Nil(t, layer.Metrics.EstimatedHeightM)
}

func TestNormalizeLayerGeometry(t *testing.T) {
	layer := NormalizeLayer(map[string]any{
		"id":    "office",
		"name":  "Office",
		"color": "#123456",
		"geometry": map[string]any{
			"detailLevel":    "massing",
			"base_elevation": 4.0,
			"preview_height": "36",
			"footprint": map[string]any{
				"type":        "Polygon",
				"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{20.0, 0.0}, []any{20.0, 10.0}, []any{0.0, 10.0}}},
			},
			"top_footprint": map[string]any{
				"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{5.0, 5.0}}},
			},
			"floor_lines": []any{4.0, "8", "bad", 12.0},
		},
	})
	require.NotNil(t, layer)
	assert.Equal(t, "#123456", layer.Color)

	g := layer.Geometry
	require.NotNil(t, g)
	assert.Equal(t, "massing", g.DetailLevel)
	require.NotNil(t, g.TopElevation)
	assert.Equal(t, 40.0, *g.TopElevation)
	require.NotNil(t, g.FootprintArea)
	assert.Equal(t, 200.0, *g.FootprintArea)
	require.NotNil(t, g.FootprintPerimeter)
	assert.Equal(t, 60.0, *g.FootprintPerimeter)
	assert.NotNil(t, g.Footprint)

	// two points is not a ring
	assert.Nil(t, g.TopFootprint)
	assert.Nil(t, g.TopFootprintArea)
	assert.Nil(t, g.TopFootprintPerimeter)

	assert.Equal(t, []float64{4, 8, 12}, g.FloorLines)
}

func TestNormalizeLayerTopElevationNeedsBoth(t *testing.T) {
	layer := NormalizeLayer(map[string]any{
		"id":       "a",
		"name":     "A",
		"geometry": map[string]any{"base_elevation": 3.0},
	})
	require.NotNil(t, layer)
	require.NotNil(t, layer.Geometry)
	assert.Nil(t, layer.Geometry.TopElevation)
	assert.Nil(t, layer.Geometry.FootprintArea)
}

func TestNormalizeLegendEntry(t *testing.T) {
	entry := NormalizeLegendEntry(map[string]any{"asset_type": "build_to_rent"})
	require.NotNil(t, entry)
	assert.Equal(t, "build to rent", entry.Label)
	assert.Equal(t, DefaultColor, entry.Color)

	entry = NormalizeLegendEntry(map[string]any{
		"assetType":   "retail",
		"label":       "Retail podium",
		"color":       "#ff0000",
		"description": "Ground floor retail",
	})
	require.NotNil(t, entry)
	assert.Equal(t, "retail", entry.AssetType)
	assert.Equal(t, "Retail podium", entry.Label)
	assert.Equal(t, "Ground floor retail", entry.Description)

	assert.Nil(t, NormalizeLegendEntry(map[string]any{"label": "orphan"}))
}

func TestNormalizeOrbitHint(t *testing.T) {
	hint := NormalizeOrbitHint(map[string]any{
		"camera_orbit": map[string]any{"radius": 120.0, "theta": "30", "phi": 60.0, "targetY": 5.0},
	})
	require.NotNil(t, hint)
	assert.Equal(t, 120.0, *hint.Radius)
	assert.Equal(t, 30.0, *hint.Theta)
	assert.Equal(t, 5.0, *hint.TargetY)
	assert.Nil(t, hint.TargetX)

	hint = NormalizeOrbitHint(map[string]any{"radius": 50.0, "target_x": 1.0})
	require.NotNil(t, hint)
	assert.Equal(t, 50.0, *hint.Radius)
	assert.Equal(t, 1.0, *hint.TargetX)

	assert.Nil(t, NormalizeOrbitHint(map[string]any{"layers": []any{}}))
}

func TestParseMetadata(t *testing.T) {
	doc := []byte(`{
		"layers": [
			{"id": "retail", "name": "Retail", "color": "#f59e0b", "metrics": {"gfa_sqm": 1200, "nia_sqm": "950"}},
			{"id": "office", "name": "Office"},
			{"name": "orphan"},
			"garbage"
		],
		"color_legend": [
			{"asset_type": "retail"},
			{"label": "no key"}
		],
		"orbit_hint": {"radius": 80, "theta": 45, "phi": 60}
	}`)

	meta, err := ParseMetadata(doc)
	require.NoError(t, err)
	require.Len(t, meta.Layers, 2)
	assert.Equal(t, "retail", meta.Layers[0].ID)
	require.NotNil(t, meta.Layers[0].Metrics.GfaSqm)
	assert.Equal(t, 1200.0, *meta.Layers[0].Metrics.GfaSqm)
	assert.Equal(t, 950.0, *meta.Layers[0].Metrics.NiaSqm)
	assert.Equal(t, 2, meta.DroppedLayers)

	require.Len(t, meta.Legend, 1)
	assert.Equal(t, "retail", meta.Legend[0].Label)
	assert.Equal(t, 1, meta.DroppedLegendEntries)

	require.NotNil(t, meta.Orbit)
	assert.Equal(t, 80.0, *meta.Orbit.Radius)
}

func TestParseMetadataErrors(t *testing.T) {
	_, err := ParseMetadata([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseMetadata([]byte(`null`))
	assert.Error(t, err)

	meta, err := ParseMetadata([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, meta.Layers)
	assert.Empty(t, meta.Legend)
	assert.Nil(t, meta.Orbit)
}

// Package layers turns the loosely typed layer metadata returned by the
// feasibility backend into strict models.
//
// Every field has an ordered list of accepted key spellings. The first key
// present in the record wins, even when its value is unusable.
package layers

import (
	"math"
	"strconv"
	"strings"

	"preview-service/internal/geometry"
	"preview-service/internal/models"
)

// DefaultColor is used for layers and legend entries without a color.
const DefaultColor = "#8c9aa8"

// Accepted key spellings, snake_case first.
var (
	keyID    = []string{"id"}
	keyName  = []string{"name"}
	keyColor = []string{"color", "colour"}

	keyMetrics          = []string{"metrics"}
	keyAllocationPct    = []string{"allocation_pct", "allocationPct"}
	keyGfaSqm           = []string{"gfa_sqm", "gfaSqm"}
	keyNiaSqm           = []string{"nia_sqm", "niaSqm"}
	keyEstimatedHeightM = []string{"estimated_height_m", "estimatedHeightM"}
	keyEstimatedFloors  = []string{"estimated_floors", "estimatedFloors"}

	keyGeometry      = []string{"geometry"}
	keyDetailLevel   = []string{"detail_level", "detailLevel"}
	keyBaseElevation = []string{"base_elevation", "baseElevation"}
	keyPreviewHeight = []string{"preview_height", "previewHeight"}
	keyFootprint     = []string{"footprint"}
	keyTopFootprint  = []string{"top_footprint", "topFootprint"}
	keyFloorLines    = []string{"floor_lines", "floorLines"}

	keyAssetType   = []string{"asset_type", "assetType"}
	keyLabel       = []string{"label"}
	keyDescription = []string{"description"}

	keyOrbitContainer = []string{"camera_orbit", "cameraOrbit", "orbit_hint", "orbitHint", "camera"}
	keyRadius         = []string{"radius"}
	keyTheta          = []string{"theta"}
	keyPhi            = []string{"phi"}
	keyTargetX        = []string{"target_x", "targetX"}
	keyTargetY        = []string{"target_y", "targetY"}
	keyTargetZ        = []string{"target_z", "targetZ"}
)

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// trimmedString returns the trimmed value when it is a string, "" otherwise.
func trimmedString(raw map[string]any, keys []string) string {
	v, _ := lookup(raw, keys)
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func object(raw map[string]any, keys []string) map[string]any {
	v, _ := lookup(raw, keys)
	m, _ := v.(map[string]any)
	return m
}

// CoerceNumber accepts a finite number or a numeric string. Anything else,
// including booleans, yields nil.
func CoerceNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func number(raw map[string]any, keys []string) *float64 {
	v, _ := lookup(raw, keys)
	return CoerceNumber(v)
}

// NormalizeLayer converts one raw layer record. It returns nil when the
// record has no usable id or name; callers skip such entries.
func NormalizeLayer(raw map[string]any) *models.LayerMetadata {
	if raw == nil {
		return nil
	}
	id := trimmedString(raw, keyID)
	name := trimmedString(raw, keyName)
	if id == "" || name == "" {
		return nil
	}
	color := trimmedString(raw, keyColor)
	if color == "" {
		color = DefaultColor
	}

	layer := &models.LayerMetadata{
		ID:    id,
		Name:  name,
		Color: color,
	}
	if m := object(raw, keyMetrics); m != nil {
		layer.Metrics = models.LayerMetrics{
			AllocationPct:    number(m, keyAllocationPct),
			GfaSqm:           number(m, keyGfaSqm),
			NiaSqm:           number(m, keyNiaSqm),
			EstimatedHeightM: number(m, keyEstimatedHeightM),
			EstimatedFloors:  number(m, keyEstimatedFloors),
		}
	}
	if g := object(raw, keyGeometry); g != nil {
		layer.Geometry = normalizeGeometry(g)
	}
	return layer
}

func normalizeGeometry(raw map[string]any) *models.LayerGeometry {
	g := &models.LayerGeometry{
		DetailLevel:   trimmedString(raw, keyDetailLevel),
		BaseElevation: number(raw, keyBaseElevation),
		PreviewHeight: number(raw, keyPreviewHeight),
		FloorLines:    []float64{},
	}
	if g.BaseElevation != nil && g.PreviewHeight != nil {
		top := *g.BaseElevation + *g.PreviewHeight
		g.TopElevation = &top
	}

	if v, ok := lookup(raw, keyFootprint); ok {
		ring := geometry.ExtractPolygonRing(v)
		g.Footprint = ring.Geometry()
		g.FootprintArea = geometry.PolygonArea(ring)
		g.FootprintPerimeter = geometry.PolygonPerimeter(ring)
	}
	if v, ok := lookup(raw, keyTopFootprint); ok {
		ring := geometry.ExtractPolygonRing(v)
		g.TopFootprint = ring.Geometry()
		g.TopFootprintArea = geometry.PolygonArea(ring)
		g.TopFootprintPerimeter = geometry.PolygonPerimeter(ring)
	}

	if v, ok := lookup(raw, keyFloorLines); ok {
		if lines, ok := v.([]any); ok {
			for _, line := range lines {
				if h := CoerceNumber(line); h != nil {
					g.FloorLines = append(g.FloorLines, *h)
				}
			}
		}
	}
	return g
}

// NormalizeLegendEntry converts one raw legend record. It returns nil when no
// asset type key is present.
func NormalizeLegendEntry(raw map[string]any) *models.LegendEntry {
	if raw == nil {
		return nil
	}
	assetType := trimmedString(raw, keyAssetType)
	if assetType == "" {
		return nil
	}
	label := trimmedString(raw, keyLabel)
	if label == "" {
		label = Humanize(assetType)
	}
	color := trimmedString(raw, keyColor)
	if color == "" {
		color = DefaultColor
	}
	return &models.LegendEntry{
		AssetType:   assetType,
		Label:       label,
		Color:       color,
		Description: trimmedString(raw, keyDescription),
	}
}

// Humanize replaces the separators of an asset type key with spaces.
func Humanize(assetType string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(assetType)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeOrbitHint reads a camera orbit hint, nested under one of the known
// container keys or spread over the top level. It returns nil when no hint
// field carries a usable number.
func NormalizeOrbitHint(raw map[string]any) *models.OrbitHint {
	if raw == nil {
		return nil
	}
	src := object(raw, keyOrbitContainer)
	if src == nil {
		src = raw
	}
	hint := &models.OrbitHint{
		Radius:  number(src, keyRadius),
		Theta:   number(src, keyTheta),
		Phi:     number(src, keyPhi),
		TargetX: number(src, keyTargetX),
		TargetY: number(src, keyTargetY),
		TargetZ: number(src, keyTargetZ),
	}
	if hint.Radius == nil && hint.Theta == nil && hint.Phi == nil &&
		hint.TargetX == nil && hint.TargetY == nil && hint.TargetZ == nil {
		return nil
	}
	return hint
}

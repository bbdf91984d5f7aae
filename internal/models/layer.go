package models

import (
	geojson "github.com/paulmach/go.geojson"
)

// LayerMetrics are the per-layer figures reported by the feasibility backend.
// Every field is independently nullable.
type LayerMetrics struct {
	AllocationPct    *float64 `json:"allocationPct"`
	GfaSqm           *float64 `json:"gfaSqm"`
	NiaSqm           *float64 `json:"niaSqm"`
	EstimatedHeightM *float64 `json:"estimatedHeightM"`
	EstimatedFloors  *float64 `json:"estimatedFloors"`
}

// LayerGeometry describes the massing envelope of a layer. Footprint areas and
// perimeters are always derived from the rings, never read from the payload.
type LayerGeometry struct {
	DetailLevel   string   `json:"detailLevel,omitempty"`
	BaseElevation *float64 `json:"baseElevation"`
	PreviewHeight *float64 `json:"previewHeight"`
	TopElevation  *float64 `json:"topElevation"`

	Footprint          *geojson.Geometry `json:"footprint,omitempty"`
	FootprintArea      *float64          `json:"footprintArea"`
	FootprintPerimeter *float64          `json:"footprintPerimeter"`

	TopFootprint          *geojson.Geometry `json:"topFootprint,omitempty"`
	TopFootprintArea      *float64          `json:"topFootprintArea"`
	TopFootprintPerimeter *float64          `json:"topFootprintPerimeter"`

	FloorLines []float64 `json:"floorLines"`
}

// LayerMetadata is the normalized, read-only description of one massing layer.
type LayerMetadata struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Color    string         `json:"color"`
	Metrics  LayerMetrics   `json:"metrics"`
	Geometry *LayerGeometry `json:"geometry,omitempty"`
}

// LegendEntry is static display metadata for an asset type.
type LegendEntry struct {
	AssetType   string `json:"assetType"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// OrbitHint is a backend-suggested spherical camera placement. Angles are in degrees.
type OrbitHint struct {
	Radius  *float64 `json:"radius"`
	Theta   *float64 `json:"theta"`
	Phi     *float64 `json:"phi"`
	TargetX *float64 `json:"targetX"`
	TargetY *float64 `json:"targetY"`
	TargetZ *float64 `json:"targetZ"`
}

// PreviewMetadata is the result of one metadata fetch. A new fetch replaces it
// entirely.
type PreviewMetadata struct {
	Layers               []LayerMetadata `json:"layers"`
	Legend               []LegendEntry   `json:"legend"`
	Orbit                *OrbitHint      `json:"orbit,omitempty"`
	DroppedLayers        int             `json:"droppedLayers"`
	DroppedLegendEntries int             `json:"droppedLegendEntries"`
}

package geometry

import (
	"math"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
)

// Point is a 2D vertex on the ground plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is a polygon boundary in ring order. The closing vertex may or may not
// be repeated.
type Ring []Point

// PolygonArea returns the shoelace area of the ring, or nil when the ring has
// fewer than 3 points. The result is never negative.
func PolygonArea(ring Ring) *float64 {
	n := len(ring)
	if n < 3 {
		return nil
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	area := math.Abs(sum) / 2
	return &area
}

// PolygonPerimeter sums the edge lengths of the ring, adding the closing edge
// when the first and last points differ. It returns nil for fewer than 2 points.
func PolygonPerimeter(ring Ring) *float64 {
	n := len(ring)
	if n < 2 {
		return nil
	}
	var perimeter float64
	for i := 1; i < n; i++ {
		perimeter += distance(ring[i-1], ring[i])
	}
	if ring[0] != ring[n-1] {
		perimeter += distance(ring[n-1], ring[0])
	}
	return &perimeter
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ExtractPolygonRing reads the outer ring of a GeoJSON-like polygon
// ({"coordinates": [[[x, y], ...], ...]}). Points without two finite numeric
// components are skipped. It returns nil when fewer than 3 points survive.
func ExtractPolygonRing(raw any) Ring {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	rings, ok := obj["coordinates"].([]any)
	if !ok || len(rings) == 0 {
		return nil
	}
	outer, ok := rings[0].([]any)
	if !ok {
		return nil
	}
	ring := make(Ring, 0, len(outer))
	for _, entry := range outer {
		pair, ok := entry.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		x, okX := finite(pair[0])
		y, okY := finite(pair[1])
		if !okX || !okY {
			continue
		}
		ring = append(ring, Point{X: x, Y: y})
	}
	if len(ring) < 3 {
		return nil
	}
	return ring
}

// finite accepts JSON numbers only; numeric strings are not coordinates.
func finite(v any) (float64, bool) {
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
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Geometry converts the ring into a GeoJSON polygon with a single outer ring.
func (r Ring) Geometry() *geojson.Geometry {
	if len(r) == 0 {
		return nil
	}
	coords := make([][]float64, 0, len(r))
	for _, p := range r {
		coords = append(coords, []float64{p.X, p.Y})
	}
	return geojson.NewPolygonGeometry([][][]float64{coords})
}

// String renders the ring as "x y, x y, ..." for log lines.
func (r Ring) String() string {
	parts := make([]string, len(r))
	for i, p := range r {
		parts[i] = strconv.FormatFloat(p.X, 'f', -1, 64) + " " + strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

package layers

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"preview-service/internal/models"
)

var (
	keyLayers = []string{"layers"}
	keyLegend = []string{"color_legend", "colorLegend"}
)

// ParseMetadata decodes a metadata document and normalizes its layers, legend
// and orbit hint. Malformed entries are dropped and counted; only a document
// that is not a JSON object is an error.
func ParseMetadata(data []byte) (*models.PreviewMetadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode metadata")
	}
	if raw == nil {
		return nil, errors.New("metadata document is not an object")
	}
	return Normalize(raw), nil
}

// Normalize builds PreviewMetadata from an already decoded document.
func Normalize(raw map[string]any) *models.PreviewMetadata {
	meta := &models.PreviewMetadata{
		Layers: []models.LayerMetadata{},
		Legend: []models.LegendEntry{},
		Orbit:  NormalizeOrbitHint(raw),
	}

	if v, ok := lookup(raw, keyLayers); ok {
		entries, _ := v.([]any)
		for _, entry := range entries {
			rec, _ := entry.(map[string]any)
			layer := NormalizeLayer(rec)
			if layer == nil {
				meta.DroppedLayers++
				continue
			}
			meta.Layers = append(meta.Layers, *layer)
		}
	}

	if v, ok := lookup(raw, keyLegend); ok {
		entries, _ := v.([]any)
		for _, entry := range entries {
			rec, _ := entry.(map[string]any)
			legend := NormalizeLegendEntry(rec)
			if legend == nil {
				meta.DroppedLegendEntries++
				continue
			}
			meta.Legend = append(meta.Legend, *legend)
		}
	}
	return meta
}

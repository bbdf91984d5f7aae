package conversion

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Converter turns non-GLB models into GLB with the assimp CLI.
type Converter struct {
	AssimpPath string
}

// OutputPath is inputPath with its extension replaced by .glb.
func OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".glb"
}

// ConvertToGLB converts a 3D model file to GLB format and returns the path to the new file.
func (c Converter) ConvertToGLB(ctx context.Context, inputPath string) (string, error) {
	bin := c.AssimpPath
	if bin == "" {
		bin = "assimp"
	}
	outputPath := OutputPath(inputPath)
	cmd := exec.CommandContext(ctx, bin, "export", inputPath, outputPath, "-fglb2", "-embtex")
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "assimp export %s: %s", filepath.Base(inputPath), strings.TrimSpace(string(out)))
	}
	return outputPath, nil
}

package extraction

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// ErrNoModel is returned when a bundle contains no model file.
var ErrNoModel = errors.New("no 3d model file found in bundle")

var (
	modelExts   = map[string]bool{".glb": true, ".gltf": true, ".fbx": true, ".obj": true, ".dae": true, ".stl": true}
	archiveExts = map[string]bool{".zip": true, ".rar": true, ".7z": true}
	// metadataNames are accepted spellings of the layer metadata file.
	metadataNames = map[string]bool{"metadata.json": true, "layers.json": true, "preview.json": true}
)

// IsModelFile reports whether name has a supported model extension.
func IsModelFile(name string) bool {
	return modelExts[strings.ToLower(filepath.Ext(name))]
}

// IsArchive reports whether name is a bundle archive.
func IsArchive(name string) bool {
	return archiveExts[strings.ToLower(filepath.Ext(name))]
}

// ShouldIgnore skips hidden files, macOS resource forks and Windows thumbnails.
func ShouldIgnore(name string) bool {
	base := filepath.Base(name)
	switch {
	case base == "" || strings.HasSuffix(name, "/"):
		return true
	case strings.HasPrefix(base, "."):
		return true
	case strings.EqualFold(base, "thumbs.db"):
		return true
	case strings.Contains(filepath.ToSlash(name), "__MACOSX/"):
		return true
	}
	return false
}

// Bundle is the model and optional metadata file found in an archive.
type Bundle struct {
	ModelPath    string
	MetadataPath string
}

// FindBundleParts picks the single model file and the metadata file out of
// an extracted file list. Resource files (textures, .bin) are left alone.
func FindBundleParts(files []string) (Bundle, error) {
	var b Bundle
	var models []string
	for _, path := range files {
		if ShouldIgnore(path) {
			continue
		}
		base := strings.ToLower(filepath.Base(path))
		switch {
		case IsModelFile(base):
			models = append(models, filepath.Base(path))
			b.ModelPath = path
		case metadataNames[base] || strings.HasSuffix(base, ".metadata.json"):
			if b.MetadataPath == "" {
				b.MetadataPath = path
			}
		}
	}
	switch len(models) {
	case 0:
		return Bundle{}, ErrNoModel
	case 1:
		return b, nil
	default:
		return Bundle{}, fmt.Errorf("multiple model files found in bundle: %v", models)
	}
}

// ExtractArchive extracts a zip, rar or 7z archive into a new temporary
// directory and returns the extracted file paths. The caller removes destDir.
func ExtractArchive(ctx context.Context, archivePath string) (files []string, destDir string, err error) {
	destDir, err = os.MkdirTemp("", "preview-bundle-*")
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(destDir)
		}
	}()

	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "open archive")
	}
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		destPath := filepath.Join(destDir, filepath.FromSlash(path))
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", path)
		}
		if err := copyEntry(fsys, path, destPath); err != nil {
			return err
		}
		files = append(files, destPath)
		return nil
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "extract archive")
	}
	return files, destDir, nil
}

func copyEntry(fsys fs.FS, path, destPath string) error {
	reader, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	outFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, reader)
	return err
}

// ExtractBundle extracts an archive and locates its model and metadata.
func ExtractBundle(ctx context.Context, archivePath string) (Bundle, string, error) {
	files, destDir, err := ExtractArchive(ctx, archivePath)
	if err != nil {
		return Bundle{}, "", err
	}
	b, err := FindBundleParts(files)
	if err != nil {
		os.RemoveAll(destDir)
		return Bundle{}, "", err
	}
	return b, destDir, nil
}

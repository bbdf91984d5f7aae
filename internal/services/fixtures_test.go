package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"

	"preview-service/internal/conversion"
	"preview-service/internal/repository"
	"preview-service/internal/storage"
)

const towerGLTF = `{
	"asset": {"version": "2.0"},
	"scenes": [{"nodes": [0, 1]}],
	"scene": 0,
	"nodes": [
		{"name": "Podium", "mesh": 0, "extras": {"layer_id": "retail"}},
		{"name": "office", "mesh": 0, "translation": [0, 4, 0]}
	],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
	"materials": [{"name": "massing"}],
	"accessors": [{"componentType": 5126, "count": 8, "type": "VEC3", "min": [0, 0, 0], "max": [10, 4, 10]}]
}`

const towerMetadata = `{
	"layers": [
		{"id": "retail", "name": "Retail", "metrics": {"gfa_sqm": 800}},
		{"id": "office", "name": "Office", "metrics": {"gfa_sqm": "2400"}},
		{"id": "", "name": "blank"}
	],
	"color_legend": [{"asset_type": "retail_podium"}]
}`

// glb wraps a glTF JSON document into a binary container with no BIN chunk.
func glb(doc string) []byte {
	payload := []byte(doc)
	for len(payload)%4 != 0 {
		payload = append(payload, ' ')
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0x46546C67))
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	binary.Write(&buf, binary.LittleEndian, uint32(12+8+len(payload)))
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	binary.Write(&buf, binary.LittleEndian, uint32(0x4E4F534A))
	buf.Write(payload)
	return buf.Bytes()
}

func zipBundle(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.Wrapf(storage.ErrObjectNotFound, "%s/%s", bucket, key)
	}
	return data, nil
}

func (m *memStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// copyConverter stands in for assimp: it copies the input to the .glb path.
type copyConverter struct{ calls int }

func (c *copyConverter) ConvertToGLB(_ context.Context, inputPath string) (string, error) {
	c.calls++
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", err
	}
	out := conversion.OutputPath(inputPath)
	return out, os.WriteFile(out, data, 0o600)
}

func newTestRepo(t *testing.T) *repository.PreviewRepositoryImpl {
	t.Helper()
	db, err := gorm.Open(gormlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewPreviewRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"preview-service/internal/models"
	"preview-service/internal/repository"
	"preview-service/internal/services"
	"preview-service/internal/services/caches"
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
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"componentType": 5126, "count": 8, "type": "VEC3", "min": [0, 0, 0], "max": [10, 4, 10]}]
}`

const towerMetadata = `{"layers": [{"id": "retail", "name": "Retail"}, {"id": "office", "name": "Office"}]}`

func glb(doc string) []byte {
	payload := []byte(doc)
	for len(payload)%4 != 0 {
		payload = append(payload, ' ')
	}
	var buf bytes.Buffer
	for _, v := range []uint32{0x46546C67, 2, uint32(20 + len(payload)), uint32(len(payload)), 0x4E4F534A} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(payload)
	return buf.Bytes()
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

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
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.Wrap(storage.ErrObjectNotFound, key)
	}
	return data, nil
}

func (m *memStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := gorm.Open(gormlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	repo := repository.NewPreviewRepository(db)
	require.NoError(t, repo.Migrate())

	store := &memStore{objects: map[string][]byte{}}
	assets := services.NewAssetCache(caches.NewMemoryCache(1<<20, time.Minute, 0), nil, 1<<20, nil)
	previews := services.NewPreviewService(repo, store, "previews", nil, assets, nil)
	fetcher := storage.NewFetcher(store, "previews", assets, time.Second)
	sessions := services.NewSessionService(fetcher, previews, nil, 0)
	t.Cleanup(sessions.CloseAll)

	app := fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal})
	api := app.Group("/api/preview")
	NewPreviewHandler(previews).Register(api)
	NewSessionHandler(sessions).Register(api)
	NewCacheHandler(assets, previews).Register(api)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp := do(t, app, req)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func uploadRequest(t *testing.T, files map[string][]byte, names map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, data := range files {
		w, err := mw.CreateFormFile(field, names[field])
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/preview/previews", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func createPreview(t *testing.T, app *fiber.App) models.Preview {
	t.Helper()
	req := uploadRequest(t,
		map[string][]byte{"model": glb(towerGLTF), "metadata": []byte(towerMetadata)},
		map[string]string{"model": "tower.glb", "metadata": "metadata.json"},
		map[string]string{"title": "Tower"},
	)
	resp := do(t, app, req)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var p models.Preview
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func TestPreviewEndpoints(t *testing.T) {
	app := newTestApp(t)
	p := createPreview(t, app)
	assert.Equal(t, "Tower", p.Title)

	var list []models.Preview
	assert.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/previews", nil, &list))
	assert.Len(t, list, 1)

	var got models.Preview
	assert.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/previews/"+p.ID.String(), nil, &got))
	assert.Equal(t, p.ID, got.ID)

	var md models.PreviewMetadata
	assert.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/previews/"+p.ID.String()+"/metadata", nil, &md))
	assert.Len(t, md.Layers, 2)

	assert.Equal(t, fiber.StatusBadRequest, doJSON(t, app, http.MethodGet, "/api/preview/previews/not-a-uuid", nil, nil))
	assert.Equal(t, fiber.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/preview/previews/"+newID(), nil, nil))

	assert.Equal(t, fiber.StatusNoContent, doJSON(t, app, http.MethodDelete, "/api/preview/previews/"+p.ID.String(), nil, nil))
	assert.Equal(t, fiber.StatusNotFound, doJSON(t, app, http.MethodDelete, "/api/preview/previews/"+p.ID.String(), nil, nil))
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	app := newTestApp(t)

	req := uploadRequest(t, map[string][]byte{"model": []byte("x")}, map[string]string{"model": "notes.txt"}, nil)
	resp := do(t, app, req)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["error"])
	assert.Contains(t, body["message"], "unsupported file format")

	req = uploadRequest(t, nil, nil, map[string]string{"title": "no file"})
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, req).StatusCode)
}

func TestDownloadModelHeaders(t *testing.T) {
	app := newTestApp(t)
	p := createPreview(t, app)
	path := "/api/preview/previews/" + p.ID.String() + "/model"

	resp := do(t, app, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, glb(towerGLTF), body)
	assert.Equal(t, "model/gltf-binary", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))
	assert.NotEmpty(t, resp.Header.Get("X-Latency-Total-Ms"))
	assert.NotEmpty(t, resp.Header.Get("X-Latency-Fetch-Ms"))

	resp = do(t, app, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "true", resp.Header.Get("X-Cache-Hit"))
	assert.Equal(t, "MEMORY", resp.Header.Get("X-Cache-Layer-Used"))
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t)
	p := createPreview(t, app)

	var opened struct {
		Session services.SessionView `json:"session"`
		Load    LoadResponse         `json:"load"`
	}
	status := doJSON(t, app, http.MethodPost, "/api/preview/sessions", fiber.Map{"previewId": p.ID}, &opened)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "ready", string(opened.Load.State))
	assert.Len(t, opened.Session.Viewer.Layers, 2)
	base := "/api/preview/sessions/" + opened.Session.ID.String()

	var view services.SessionView
	status = doJSON(t, app, http.MethodPut, base+"/visibility", fiber.Map{"visibility": fiber.Map{"office": false}}, &view)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]bool{"office": false}, view.Viewer.Visibility)

	status = doJSON(t, app, http.MethodPut, base+"/focus", fiber.Map{"layerId": "retail"}, &view)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "retail", view.Viewer.FocusLayerID)

	var saved models.ViewState
	require.Equal(t, fiber.StatusCreated, doJSON(t, app, http.MethodPost, base+"/views", fiber.Map{"name": "retail"}, &saved))
	assert.Equal(t, "retail", saved.Name)

	var cleared services.SessionView
	require.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodPut, base+"/focus", fiber.Map{"layerId": ""}, &cleared))
	assert.Empty(t, cleared.Viewer.FocusLayerID)
	assert.Equal(t, map[string]bool{"office": false}, cleared.Viewer.Visibility)

	var applied services.SessionView
	require.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodPost, base+"/views/"+saved.ID.String()+"/apply", nil, &applied))
	assert.Equal(t, "retail", applied.Viewer.FocusLayerID)

	var views []models.ViewState
	require.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/previews/"+p.ID.String()+"/views", nil, &views))
	assert.Len(t, views, 1)

	var ids []string
	require.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/sessions", nil, &ids))
	assert.Equal(t, []string{opened.Session.ID.String()}, ids)

	assert.Equal(t, fiber.StatusNoContent, doJSON(t, app, http.MethodDelete, base, nil, nil))
	assert.Equal(t, fiber.StatusNotFound, doJSON(t, app, http.MethodGet, base, nil, nil))
}

func TestSessionSourceFromURLs(t *testing.T) {
	app := newTestApp(t)
	p := createPreview(t, app)

	assert.Equal(t, fiber.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/preview/sessions", fiber.Map{}, nil))

	var opened struct {
		Session services.SessionView `json:"session"`
		Load    LoadResponse         `json:"load"`
	}
	status := doJSON(t, app, http.MethodPost, "/api/preview/sessions", fiber.Map{"previewUrl": "minio://missing.glb"}, &opened)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "error", string(opened.Load.State))
	assert.NotEmpty(t, opened.Load.Error)
	base := "/api/preview/sessions/" + opened.Session.ID.String()

	assert.Equal(t, fiber.StatusConflict, doJSON(t, app, http.MethodPost, base+"/views", nil, nil))

	status = doJSON(t, app, http.MethodPut, base+"/source", fiber.Map{
		"previewUrl":  "minio://" + p.ModelKey,
		"metadataUrl": "minio://" + strings.Replace(p.MetadataKey, "metadata", "absent", 1),
	}, &opened)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", string(opened.Load.State))
	assert.NotEmpty(t, opened.Load.Warning)
}

func TestCacheEndpoints(t *testing.T) {
	app := newTestApp(t)
	p := createPreview(t, app)

	var preload map[string]any
	status := doJSON(t, app, http.MethodPost, "/api/preview/cache/preload", PreloadRequest{IDs: []string{p.ID.String() + ".glb", newID()}}, &preload)
	assert.Equal(t, fiber.StatusMultiStatus, status)
	assert.EqualValues(t, 1, preload["preloaded"])

	var stats services.CacheStats
	require.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodGet, "/api/preview/cache/stats", nil, &stats))
	require.Len(t, stats.Layers, 1)
	assert.Equal(t, 1, stats.Layers[0].Objects)

	assert.Equal(t, fiber.StatusNoContent, doJSON(t, app, http.MethodDelete, "/api/preview/cache/previews/"+p.ID.String(), nil, nil))
	assert.Equal(t, fiber.StatusNotFound, doJSON(t, app, http.MethodDelete, "/api/preview/cache/previews/"+newID(), nil, nil))
	assert.Equal(t, fiber.StatusOK, doJSON(t, app, http.MethodPost, "/api/preview/cache/clear", nil, nil))
	assert.Equal(t, fiber.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/preview/cache/preload", PreloadRequest{IDs: []string{"nope"}}, nil))
}

func newID() string { return uuid.NewString() }

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"preview-service/internal/extraction"
	"preview-service/internal/layers"
	"preview-service/internal/metrics"
	"preview-service/internal/models"
	"preview-service/internal/repository"
	"preview-service/internal/scene"
	"preview-service/internal/storage"
)

const (
	modelContentType    = "model/gltf-binary"
	metadataContentType = "application/json"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoMetadata        = errors.New("preview has no layer metadata")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidModel      = errors.New("model could not be parsed")
	ErrInvalidMetadata   = errors.New("metadata could not be parsed")
)

// Converter produces a GLB file next to inputPath.
type Converter interface {
	ConvertToGLB(ctx context.Context, inputPath string) (string, error)
}

// Upload is one uploaded file.
type Upload struct {
	Filename string
	Body     io.Reader
}

// CreatePreviewInput is a model upload with optional metadata.
type CreatePreviewInput struct {
	Title    string
	Model    Upload
	Metadata *Upload
}

// PreviewService stores previews in the object store and their records in the database.
type PreviewService struct {
	Repo       repository.PreviewRepository
	Store      storage.ObjectStore
	BucketName string
	Converter  Converter
	Cache      *AssetCache
	Metrics    *metrics.Metrics
}

func NewPreviewService(repo repository.PreviewRepository, store storage.ObjectStore, bucket string, conv Converter, cache *AssetCache, m *metrics.Metrics) *PreviewService {
	return &PreviewService{
		Repo:       repo,
		Store:      store,
		BucketName: bucket,
		Converter:  conv,
		Cache:      cache,
		Metrics:    m,
	}
}

// ModelURL is the fetcher url of a preview's model.
func ModelURL(p *models.Preview) string {
	return "minio://" + p.ModelKey
}

// MetadataURL is the fetcher url of a preview's metadata, "" without metadata.
func MetadataURL(p *models.Preview) string {
	if p.MetadataKey == "" {
		return ""
	}
	return "minio://" + p.MetadataKey
}

// CreatePreview accepts a GLB/glTF model, a model assimp can convert, or a
// zip/rar/7z bundle holding one model and optionally a metadata.json. An
// explicit metadata upload wins over the bundled one. Model and metadata are
// both parsed before anything is stored.
func (s *PreviewService) CreatePreview(ctx context.Context, in CreatePreviewInput) (p *models.Preview, err error) {
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Upload(err == nil)
		}
	}()

	name := filepath.Base(in.Model.Filename)
	if !extraction.IsArchive(name) && !extraction.IsModelFile(name) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Ext(name))
	}

	workDir, err := os.MkdirTemp("", "preview-upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "could not create temporary directory")
	}
	defer os.RemoveAll(workDir)

	uploadPath, err := saveTemp(workDir, name, in.Model.Body)
	if err != nil {
		return nil, err
	}

	modelPath := uploadPath
	var bundledMetadata string
	if extraction.IsArchive(name) {
		bundle, dir, err := extraction.ExtractBundle(ctx, uploadPath)
		if err != nil {
			if errors.Is(err, extraction.ErrNoModel) {
				return nil, errors.Wrap(ErrUnsupportedFormat, err.Error())
			}
			return nil, errors.Wrap(err, "failed to extract bundle")
		}
		defer os.RemoveAll(dir)
		modelPath, bundledMetadata = bundle.ModelPath, bundle.MetadataPath
	}

	glbPath := modelPath
	if !strings.EqualFold(filepath.Ext(modelPath), ".glb") {
		if s.Converter == nil {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "%q needs conversion", filepath.Ext(modelPath))
		}
		glbPath, err = s.Converter.ConvertToGLB(ctx, modelPath)
		if err != nil {
			return nil, errors.Wrap(err, "conversion to glb failed")
		}
	}
	model, err := os.ReadFile(glbPath)
	if err != nil {
		return nil, errors.Wrap(err, "could not read glb file")
	}
	sc, err := scene.LoadGLTF(bytes.NewReader(model))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidModel, err.Error())
	}
	sc.Dispose()

	var metadata []byte
	switch {
	case in.Metadata != nil:
		if metadata, err = io.ReadAll(in.Metadata.Body); err != nil {
			return nil, errors.Wrap(err, "failed to read metadata upload")
		}
	case bundledMetadata != "":
		if metadata, err = os.ReadFile(bundledMetadata); err != nil {
			return nil, errors.Wrap(err, "failed to read bundled metadata")
		}
	}
	if metadata != nil {
		if _, err := layers.ParseMetadata(metadata); err != nil {
			return nil, errors.Wrap(ErrInvalidMetadata, err.Error())
		}
	}

	id := uuid.New()
	p = &models.Preview{
		ID:               id,
		Title:            strings.TrimSpace(in.Title),
		OriginalFilename: name,
		ContentType:      modelContentType,
		Size:             int64(len(model)),
		ModelKey:         id.String() + "/model.glb",
		UploadedAt:       time.Now().UTC(),
	}
	if p.Title == "" {
		p.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if err := s.Store.Put(ctx, s.BucketName, p.ModelKey, bytes.NewReader(model), p.Size, modelContentType); err != nil {
		return nil, errors.Wrap(err, "failed to upload model")
	}
	if metadata != nil {
		p.MetadataKey = id.String() + "/metadata.json"
		if err := s.Store.Put(ctx, s.BucketName, p.MetadataKey, bytes.NewReader(metadata), int64(len(metadata)), metadataContentType); err != nil {
			s.removeObjects(ctx, p)
			return nil, errors.Wrap(err, "failed to upload metadata")
		}
	}
	if err := s.Repo.Create(p); err != nil {
		// do not leave orphaned objects behind
		s.removeObjects(ctx, p)
		return nil, errors.Wrap(err, "failed to save preview to database")
	}
	log.Infof("Stored preview %s (%s, %d bytes, metadata: %t)", p.ID, p.OriginalFilename, p.Size, p.MetadataKey != "")
	return p, nil
}

func saveTemp(dir, name string, body io.Reader) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "could not create temporary file")
	}
	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to write uploaded file")
	}
	return path, nil
}

func (s *PreviewService) removeObjects(ctx context.Context, p *models.Preview) {
	for _, key := range []string{p.ModelKey, p.MetadataKey} {
		if key == "" {
			continue
		}
		if err := s.Store.Remove(ctx, s.BucketName, key); err != nil {
			log.Warnf("Failed to remove %s: %v", key, err)
		}
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *PreviewService) GetPreview(id uuid.UUID) (*models.Preview, error) {
	p, err := s.Repo.GetByID(id)
	return p, notFound(err)
}

func (s *PreviewService) ListPreviews() ([]models.Preview, error) {
	return s.Repo.List()
}

// DeletePreview removes the record, its saved views, stored objects and cached bytes.
func (s *PreviewService) DeletePreview(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetPreview(id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(id); err != nil {
		return notFound(err)
	}
	s.removeObjects(ctx, p)
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ModelURL(p)); err != nil {
			log.Warnf("Failed to invalidate cached model of %s: %v", id, err)
		}
	}
	return nil
}

// ModelData returns the GLB bytes of a preview and the cache layer that
// served them ("" when loaded from the store).
func (s *PreviewService) ModelData(ctx context.Context, id uuid.UUID) ([]byte, string, *models.Preview, error) {
	p, err := s.GetPreview(id)
	if err != nil {
		return nil, "", nil, err
	}
	load := func(ctx context.Context) ([]byte, error) {
		return s.Store.Get(ctx, s.BucketName, p.ModelKey)
	}
	if s.Cache == nil {
		data, err := load(ctx)
		return data, "", p, err
	}
	data, layer, err := s.Cache.Get(ctx, ModelURL(p), load)
	return data, layer, p, err
}

// InvalidateModel drops the cached model bytes of a preview.
func (s *PreviewService) InvalidateModel(id uuid.UUID) error {
	p, err := s.GetPreview(id)
	if err != nil {
		return err
	}
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ModelURL(p))
}

// Metadata returns the normalized layer metadata of a preview.
func (s *PreviewService) Metadata(ctx context.Context, id uuid.UUID) (*models.PreviewMetadata, error) {
	p, err := s.GetPreview(id)
	if err != nil {
		return nil, err
	}
	if p.MetadataKey == "" {
		return nil, ErrNoMetadata
	}
	data, err := s.Store.Get(ctx, s.BucketName, p.MetadataKey)
	if err != nil {
		return nil, err
	}
	return layers.ParseMetadata(data)
}

// Source returns the fetcher urls of a preview.
func (s *PreviewService) Source(id uuid.UUID) (string, string, error) {
	p, err := s.GetPreview(id)
	if err != nil {
		return "", "", err
	}
	return ModelURL(p), MetadataURL(p), nil
}

func (s *PreviewService) SaveView(previewID uuid.UUID, name string, visibility map[string]bool, focus string) (*models.ViewState, error) {
	if _, err := s.GetPreview(previewID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("view %s", time.Now().UTC().Format(time.RFC3339))
	}
	view := &models.ViewState{
		PreviewID:    previewID,
		Name:         name,
		Visibility:   visibility,
		FocusLayerID: focus,
	}
	if err := s.Repo.CreateView(view); err != nil {
		return nil, errors.Wrap(err, "failed to save view")
	}
	return view, nil
}

func (s *PreviewService) GetView(previewID, viewID uuid.UUID) (*models.ViewState, error) {
	v, err := s.Repo.GetView(previewID, viewID)
	return v, notFound(err)
}

func (s *PreviewService) ListViews(previewID uuid.UUID) ([]models.ViewState, error) {
	if _, err := s.GetPreview(previewID); err != nil {
		return nil, err
	}
	return s.Repo.ListViews(previewID)
}

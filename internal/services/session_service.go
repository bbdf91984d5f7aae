package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"preview-service/internal/metrics"
	"preview-service/internal/models"
	"preview-service/internal/scene"
	"preview-service/internal/viewer"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoPreview is returned for preview-bound operations on a session that
	// was opened from raw urls.
	ErrNoPreview = errors.New("session is not bound to a stored preview")
)

// Source names what a session should load: either a stored preview or a
// pair of urls.
type Source struct {
	PreviewID   *uuid.UUID `json:"previewId,omitempty"`
	PreviewURL  string     `json:"previewUrl,omitempty"`
	MetadataURL string     `json:"metadataUrl,omitempty"`
}

// ManagedSession is a viewer session owned by the service.
type ManagedSession struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Viewer    *viewer.Session

	mu        sync.Mutex
	previewID *uuid.UUID
	frames    atomic.Int64
}

// PreviewID is the stored preview the session shows, nil for raw urls.
func (ms *ManagedSession) PreviewID() *uuid.UUID {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.previewID
}

// Frames is the number of frames the session's frame loop has produced.
func (ms *ManagedSession) Frames() int64 { return ms.frames.Load() }

// SessionView is what the API returns for a session.
type SessionView struct {
	ID        uuid.UUID       `json:"id"`
	PreviewID *uuid.UUID      `json:"previewId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Frames    int64           `json:"frames"`
	Viewer    viewer.Snapshot `json:"viewer"`
}

// SessionService keeps the open viewer sessions.
type SessionService struct {
	fetcher       viewer.Fetcher
	previews      *PreviewService
	metrics       *metrics.Metrics
	frameInterval time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*ManagedSession
}

// NewSessionService returns a service whose sessions fetch through fetcher.
// previews and m may be nil; a zero frameInterval disables frame loops.
func NewSessionService(fetcher viewer.Fetcher, previews *PreviewService, m *metrics.Metrics, frameInterval time.Duration) *SessionService {
	return &SessionService{
		fetcher:       fetcher,
		previews:      previews,
		metrics:       m,
		frameInterval: frameInterval,
		sessions:      make(map[uuid.UUID]*ManagedSession),
	}
}

func (s *SessionService) observe(r viewer.LoadResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveLoad(string(r.State), map[string]time.Duration{
		"metadata": r.Timings.Metadata,
		"asset":    r.Timings.Asset,
		"index":    r.Timings.Index,
		"total":    r.Timings.Total,
	})
	if r.Warning != "" {
		s.metrics.IncMetadataWarning()
	}
	if r.Metadata != nil {
		s.metrics.AddDropped("layer", r.Metadata.DroppedLayers)
		s.metrics.AddDropped("legend", r.Metadata.DroppedLegendEntries)
	}
}

// resolve turns a source into urls.
func (s *SessionService) resolve(src Source) (string, string, error) {
	if src.PreviewID == nil {
		return src.PreviewURL, src.MetadataURL, nil
	}
	if s.previews == nil {
		return "", "", ErrNoPreview
	}
	return s.previews.Source(*src.PreviewID)
}

// Open creates a session and performs its first load. A load that fails on
// the model still yields a session in the error state.
func (s *SessionService) Open(ctx context.Context, src Source) (*ManagedSession, viewer.LoadResult, error) {
	previewURL, metadataURL, err := s.resolve(src)
	if err != nil {
		return nil, viewer.LoadResult{}, err
	}
	if previewURL == "" {
		return nil, viewer.LoadResult{}, viewer.ErrNoPreviewURL
	}

	ms := &ManagedSession{ID: uuid.New(), CreatedAt: time.Now().UTC(), previewID: src.PreviewID}
	opts := []viewer.Option{viewer.WithObserver(s.observe)}
	if s.frameInterval > 0 {
		opts = append(opts, viewer.WithFrameSink(s.frameInterval, func(frame int, changed map[*scene.Material]float64) {
			ms.frames.Store(int64(frame))
			if len(changed) > 0 {
				log.Debugf("Session %s frame %d: %d material updates", ms.ID, frame, len(changed))
			}
		}))
	}
	ms.Viewer = viewer.NewSession(s.fetcher, opts...)

	s.mu.Lock()
	s.sessions[ms.ID] = ms
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	log.Infof("Opened session %s for %s", ms.ID, previewURL)

	res, err := ms.Viewer.Load(ctx, previewURL, metadataURL)
	if err != nil && res.State != viewer.StateFailed {
		s.Close(ms.ID)
		return nil, res, err
	}
	return ms, res, nil
}

func (s *SessionService) Get(id uuid.UUID) (*ManagedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms, nil
}

// List returns the ids of the open sessions.
func (s *SessionService) List() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *SessionService) View(id uuid.UUID) (*SessionView, error) {
	ms, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return &SessionView{
		ID:        ms.ID,
		PreviewID: ms.PreviewID(),
		CreatedAt: ms.CreatedAt,
		Frames:    ms.Frames(),
		Viewer:    ms.Viewer.Snapshot(),
	}, nil
}

// SetSource loads a different model into an existing session. A request
// superseded by a newer one returns viewer.ErrSuperseded.
func (s *SessionService) SetSource(ctx context.Context, id uuid.UUID, src Source) (viewer.LoadResult, error) {
	ms, err := s.Get(id)
	if err != nil {
		return viewer.LoadResult{}, err
	}
	previewURL, metadataURL, err := s.resolve(src)
	if err != nil {
		return viewer.LoadResult{}, err
	}
	if previewURL == "" {
		return viewer.LoadResult{}, viewer.ErrNoPreviewURL
	}
	ms.mu.Lock()
	ms.previewID = src.PreviewID
	ms.mu.Unlock()

	res, err := ms.Viewer.Load(ctx, previewURL, metadataURL)
	if err != nil && res.State == viewer.StateFailed {
		return res, nil
	}
	return res, err
}

func (s *SessionService) SetVisibility(id uuid.UUID, visibility map[string]bool) error {
	ms, err := s.Get(id)
	if err != nil {
		return err
	}
	return ms.Viewer.SetVisibility(visibility)
}

func (s *SessionService) SetFocus(id uuid.UUID, layerID string) error {
	ms, err := s.Get(id)
	if err != nil {
		return err
	}
	return ms.Viewer.SetFocus(layerID)
}

// SaveView stores the session's current visibility and focus against its preview.
func (s *SessionService) SaveView(id uuid.UUID, name string) (*models.ViewState, error) {
	ms, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	previewID := ms.PreviewID()
	if previewID == nil || s.previews == nil {
		return nil, ErrNoPreview
	}
	snap := ms.Viewer.Snapshot()
	return s.previews.SaveView(*previewID, name, snap.Visibility, snap.FocusLayerID)
}

// ApplyView restores a saved view into the session.
func (s *SessionService) ApplyView(id, viewID uuid.UUID) (*models.ViewState, error) {
	ms, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	previewID := ms.PreviewID()
	if previewID == nil || s.previews == nil {
		return nil, ErrNoPreview
	}
	view, err := s.previews.GetView(*previewID, viewID)
	if err != nil {
		return nil, err
	}
	if err := ms.Viewer.SetVisibility(view.Visibility); err != nil {
		return nil, err
	}
	if err := ms.Viewer.SetFocus(view.FocusLayerID); err != nil {
		return nil, err
	}
	return view, nil
}

// Close tears a session down.
func (s *SessionService) Close(id uuid.UUID) error {
	s.mu.Lock()
	ms, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	ms.Viewer.Close()
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
	log.Infof("Closed session %s", id)
	return nil
}

// CloseAll tears every session down, for shutdown.
func (s *SessionService) CloseAll() {
	for _, id := range s.List() {
		s.Close(id)
	}
}

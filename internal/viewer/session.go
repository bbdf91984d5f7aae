// Package viewer is the headless massing preview viewer: layer index,
// visibility and focus highlighting, camera framing, and the session that ties
// them to one loaded model at a time.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"preview-service/internal/layers"
	"preview-service/internal/models"
	"preview-service/internal/scene"
)

var (
	// ErrSuperseded is returned by a load that a newer load replaced before it finished.
	ErrSuperseded = errors.New("load superseded by a newer preview url")
	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("viewer session closed")
	// ErrNoPreviewURL is returned when Load is called without a model url.
	ErrNoPreviewURL = errors.New("preview url is required")
)

// State is the lifecycle state of the current load.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "error"
)

// Fetcher retrieves model and metadata bytes by url.
type Fetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, error)
	FetchMetadata(ctx context.Context, url string) ([]byte, error)
}

// LoadTimings breaks down the duration of one completed load.
type LoadTimings struct {
	Metadata time.Duration
	Asset    time.Duration
	Index    time.Duration
	Total    time.Duration
}

// LoadResult describes a load that reached Ready or Failed.
type LoadResult struct {
	State    State
	Warning  string
	Err      error
	Metadata *models.PreviewMetadata
	Timings  LoadTimings
}

// FrameFunc receives the opacities that changed since the previous frame.
type FrameFunc func(frame int, changed map[*scene.Material]float64)

// Option configures a Session.
type Option func(*Session)

// WithFrameSink starts a frame loop that pulls changed material opacities
// every interval and hands them to fn. The loop stops on Close.
func WithFrameSink(interval time.Duration, fn FrameFunc) Option {
	return func(s *Session) {
		s.frameInterval = interval
		s.frameSink = fn
	}
}

// WithObserver registers a callback invoked after every settled load.
func WithObserver(fn func(LoadResult)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// Session owns one viewer: the loaded scene, its layer index, the highlighter,
// camera and controls. Visibility and focus are caller snapshots; the session
// copies them and never hands its copies back out for mutation.
type Session struct {
	fetcher  Fetcher
	observer func(LoadResult)

	mu          sync.Mutex
	generation  uint64
	cancelMeta  context.CancelFunc
	closed      bool
	state       State
	previewURL  string
	metadataURL string
	errMsg      string
	warning     string

	scene       *scene.Scene
	index       *LayerIndex
	highlighter *Highlighter
	metadata    *models.PreviewMetadata
	camera      Camera
	controls    OrbitControls
	defaultView Framing

	visibility map[string]bool
	focus      string

	frameInterval time.Duration
	frameSink     FrameFunc
	frames        int
	stopFrames    chan struct{}
	framesDone    chan struct{}
}

// NewSession returns an idle session.
func NewSession(fetcher Fetcher, opts ...Option) *Session {
	s := &Session{
		fetcher:     fetcher,
		state:       StateIdle,
		highlighter: NewHighlighter(),
		visibility:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.frameSink != nil && s.frameInterval > 0 {
		s.stopFrames = make(chan struct{})
		s.framesDone = make(chan struct{})
		go s.frameLoop()
	}
	return s
}

// Load replaces the current model with the one at previewURL. Metadata and
// asset are fetched concurrently. A metadata failure only produces a warning;
// an asset failure fails the load. If another Load starts before this one
// settles, this one returns ErrSuperseded and leaves no trace.
func (s *Session) Load(ctx context.Context, previewURL, metadataURL string) (LoadResult, error) {
	if previewURL == "" {
		return LoadResult{}, ErrNoPreviewURL
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return LoadResult{}, ErrClosed
	}
	s.generation++
	gen := s.generation
	if s.cancelMeta != nil {
		s.cancelMeta()
	}
	metaCtx, cancel := context.WithCancel(ctx)
	s.cancelMeta = cancel
	s.discardLocked()
	s.state = StateLoading
	s.previewURL = previewURL
	s.metadataURL = metadataURL
	s.mu.Unlock()
	defer cancel()

	log.Debugf("Loading preview %s (metadata %q, generation %d)", previewURL, metadataURL, gen)
	start := time.Now()

	var (
		loaded  *scene.Scene
		meta    *models.PreviewMetadata
		metaErr error
		timings LoadTimings
		group   errgroup.Group
	)
	if metadataURL != "" {
		group.Go(func() error {
			t0 := time.Now()
			meta, metaErr = s.fetchMetadata(metaCtx, metadataURL)
			timings.Metadata = time.Since(t0)
			return nil
		})
	}
	group.Go(func() error {
		t0 := time.Now()
		defer func() { timings.Asset = time.Since(t0) }()
		data, err := s.fetcher.FetchAsset(ctx, previewURL)
		if err != nil {
			return pkgerrors.Wrap(err, "fetch model")
		}
		sc, err := scene.LoadGLTF(bytes.NewReader(data))
		if err != nil {
			return pkgerrors.Wrap(err, "parse model")
		}
		loaded = sc
		return nil
	})
	assetErr := group.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		loaded.Dispose()
		if s.closed {
			return LoadResult{}, ErrClosed
		}
		log.Debugf("Discarding stale load of %s (generation %d, current %d)", previewURL, gen, s.generation)
		return LoadResult{}, ErrSuperseded
	}
	s.cancelMeta = nil

	result := LoadResult{Metadata: meta}
	if metaErr != nil {
		s.warning = "layer metadata unavailable: " + metaErr.Error()
		result.Warning = s.warning
		log.Warnf("Preview %s: %s", previewURL, s.warning)
	}
	if assetErr != nil {
		loaded.Dispose()
		s.state = StateFailed
		s.errMsg = assetErr.Error()
		result.State = StateFailed
		result.Err = assetErr
		timings.Total = time.Since(start)
		result.Timings = timings
		log.Errorf("Preview %s failed to load: %v", previewURL, assetErr)
		s.notify(result)
		return result, assetErr
	}

	t0 := time.Now()
	s.scene = loaded
	s.metadata = meta
	s.index = BuildIndex(loaded.Root)
	s.highlighter = NewHighlighter()
	var hint *models.OrbitHint
	if meta != nil {
		hint = meta.Orbit
	}
	s.defaultView = InitialFraming(loaded.Bounds(), hint)
	s.defaultView.Apply(&s.camera, &s.controls)
	s.applyLocked()
	timings.Index = time.Since(t0)
	timings.Total = time.Since(start)

	s.state = StateReady
	result.State = StateReady
	result.Timings = timings
	log.Infof("Preview %s ready: %d layers indexed in %s", previewURL, s.index.Len(), timings.Total)
	s.notify(result)
	return result, nil
}

func (s *Session) fetchMetadata(ctx context.Context, url string) (*models.PreviewMetadata, error) {
	data, err := s.fetcher.FetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	return layers.ParseMetadata(data)
}

func (s *Session) notify(result LoadResult) {
	if s.observer != nil {
		s.observer(result)
	}
}

// discardLocked drops everything tied to the current model.
func (s *Session) discardLocked() {
	s.scene.Dispose()
	s.scene = nil
	s.index = nil
	s.metadata = nil
	s.highlighter = NewHighlighter()
	s.errMsg = ""
	s.warning = ""
	s.camera = Camera{}
	s.controls = OrbitControls{}
	s.defaultView = Framing{}
}

// applyLocked pushes the current visibility and focus into the loaded scene.
func (s *Session) applyLocked() {
	if s.index == nil {
		return
	}
	ApplyVisibility(s.index, s.visibility)
	s.highlighter.Apply(s.index, s.focus)
	FrameLayer(s.focus, s.index, &s.camera, &s.controls, s.defaultView)
}

// SetVisibility replaces the layer visibility snapshot and re-applies it
// without reloading.
func (s *Session) SetVisibility(visibility map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.visibility = make(map[string]bool, len(visibility))
	for k, v := range visibility {
		s.visibility[k] = v
	}
	if s.index != nil {
		ApplyVisibility(s.index, s.visibility)
	}
	return nil
}

// SetFocus focuses a layer, or clears the focus with "". Highlighting and
// camera framing follow immediately.
func (s *Session) SetFocus(layerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.focus = layerID
	if s.index != nil {
		s.highlighter.Apply(s.index, s.focus)
		FrameLayer(s.focus, s.index, &s.camera, &s.controls, s.defaultView)
	}
	return nil
}

// Close tears the session down: pending loads are cancelled, the frame loop
// stops and the scene is released. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	if s.cancelMeta != nil {
		s.cancelMeta()
		s.cancelMeta = nil
	}
	s.discardLocked()
	s.state = StateIdle
	stop := s.stopFrames
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-s.framesDone
	}
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) frameLoop() {
	defer close(s.framesDone)
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopFrames:
			return
		case <-ticker.C:
			s.renderFrame()
		}
	}
}

func (s *Session) renderFrame() {
	s.mu.Lock()
	if s.closed || s.state != StateReady {
		s.mu.Unlock()
		return
	}
	changed := make(map[*scene.Material]float64)
	s.highlighter.Flush(func(mat *scene.Material, opacity float64) {
		changed[mat] = opacity
	})
	s.frames++
	frame := s.frames
	sink := s.frameSink
	s.mu.Unlock()

	sink(frame, changed)
}

package overlay

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neferent/streamlabs-obs/compositor"
	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/state"
	"github.com/neferent/streamlabs-obs/theming"
)

// The production bridge and the test double must both satisfy the full
// bridge contract, frame submission included.
var (
	_ Bridge = (*compositor.Bridge)(nil)
	_ Bridge = (*fakeBridge)(nil)
)

type fakeSource struct {
	mu       sync.Mutex
	key      state.WindowKey
	bounds   display.Rect
	url      string
	ready    chan struct{}
	handle   uint64
	sink     FrameSink
	visible  bool
	closed   bool
	closeErr error
}

func (w *fakeSource) SetBounds(b display.Rect) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds = b
	return nil
}

func (w *fakeSource) Bounds() (display.Rect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds, nil
}

func (w *fakeSource) Show() error { w.mu.Lock(); defer w.mu.Unlock(); w.visible = true; return nil }
func (w *fakeSource) Hide() error { w.mu.Lock(); defer w.mu.Unlock(); w.visible = false; return nil }

func (w *fakeSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.closeErr
}

func (w *fakeSource) LoadURL(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
	return nil
}

func (w *fakeSource) Ready() <-chan struct{} { return w.ready }
func (w *fakeSource) Handle() uint64         { return w.handle }

func (w *fakeSource) SetFrameSink(sink FrameSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
}

func (w *fakeSource) markReady() {
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

type fakePreview struct {
	mu      sync.Mutex
	key     state.WindowKey
	bounds  display.Rect
	visible bool
	closed  bool
}

func (w *fakePreview) SetBounds(b display.Rect) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds = b
	return nil
}

func (w *fakePreview) Bounds() (display.Rect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds, nil
}

func (w *fakePreview) Show() error { w.mu.Lock(); defer w.mu.Unlock(); w.visible = true; return nil }
func (w *fakePreview) Hide() error { w.mu.Lock(); defer w.mu.Unlock(); w.visible = false; return nil }
func (w *fakePreview) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// drag simulates the user moving the preview window.
func (w *fakePreview) drag(x, y int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds.X = x
	w.bounds.Y = y
}

type fakeFactory struct {
	mu         sync.Mutex
	autoReady  bool
	nextHandle uint64
	sources    map[state.WindowKey]*fakeSource
	previews   map[state.WindowKey]*fakePreview
}

func newFakeFactory(autoReady bool) *fakeFactory {
	return &fakeFactory{
		autoReady: autoReady,
		sources:   make(map[state.WindowKey]*fakeSource),
		previews:  make(map[state.WindowKey]*fakePreview),
	}
}

func (f *fakeFactory) NewSourceWindow(opts SourceOptions) (SourceWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHandle++
	w := &fakeSource{
		key:    opts.Key,
		ready:  make(chan struct{}),
		handle: f.nextHandle,
		bounds: display.Rect{Width: opts.Width, Height: opts.Height},
	}
	if f.autoReady {
		close(w.ready)
	}
	f.sources[opts.Key] = w
	return w, nil
}

func (f *fakeFactory) NewPreviewWindow(opts PreviewOptions) (PreviewWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakePreview{
		key:    opts.Key,
		bounds: display.Rect{Width: opts.Width, Height: opts.Height},
	}
	f.previews[opts.Key] = w
	return w, nil
}

func (f *fakeFactory) source(key state.WindowKey) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[key]
}

func (f *fakeFactory) preview(key state.WindowKey) *fakePreview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previews[key]
}

type geometryCall struct {
	surfaceID  int64
	x, y, w, h int
}

type opacityCall struct {
	surfaceID int64
	opacity   uint8
}

type frameCall struct {
	surfaceID int64
	w, h      int
}

type fakeBridge struct {
	mu        sync.Mutex
	status    compositor.Status
	nextID    int64
	rejectAll bool
	startErr  error

	starts     int
	stops      int
	registered []uint64
	geometry   []geometryCall
	opacity    []opacityCall
	frames     []frameCall
	shows      int
	hides      int
}

func (b *fakeBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	b.starts++
	b.status = compositor.StatusRunning
	return nil
}

func (b *fakeBridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.status = compositor.StatusStopped
	return nil
}

func (b *fakeBridge) Status() compositor.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *fakeBridge) Register(handle uint64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, handle)
	if b.rejectAll {
		return compositor.InvalidSurfaceID, fmt.Errorf("%w: handle %d", compositor.ErrInvalidSurface, handle)
	}
	b.nextID++
	return b.nextID, nil
}

func (b *fakeBridge) SetGeometry(surfaceID int64, x, y, w, h int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.geometry = append(b.geometry, geometryCall{surfaceID, x, y, w, h})
	return nil
}

func (b *fakeBridge) SetOpacity(surfaceID int64, opacity uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opacity = append(b.opacity, opacityCall{surfaceID, opacity})
	return nil
}

func (b *fakeBridge) SubmitFrame(surfaceID int64, w, h int, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, frameCall{surfaceID, w, h})
	return nil
}

func (b *fakeBridge) Show() error { b.mu.Lock(); defer b.mu.Unlock(); b.shows++; return nil }
func (b *fakeBridge) Hide() error { b.mu.Lock(); defer b.mu.Unlock(); b.hides++; return nil }

func (b *fakeBridge) registerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registered)
}

func (b *fakeBridge) geometryCalls() []geometryCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]geometryCall, len(b.geometry))
	copy(out, b.geometry)
	return out
}

func (b *fakeBridge) opacityCalls() []opacityCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]opacityCall, len(b.opacity))
	copy(out, b.opacity)
	return out
}

type fakePlatform struct{}

func (fakePlatform) ChatURL(ctx context.Context, platformID string, dark bool) (string, error) {
	if dark {
		return "https://chat.example/" + platformID + "?darkpopout", nil
	}
	return "https://chat.example/" + platformID, nil
}

func (fakePlatform) RecentEventsURL() string {
	return "https://events.example/feed"
}

type fixture struct {
	store   *state.Store
	factory *fakeFactory
	bridge  *fakeBridge
	manager *Manager
}

func newFixture(t *testing.T, autoReady bool, settle time.Duration) *fixture {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "overlay.db"), "gameOverlay")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	primary := display.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}
	provider := &display.StaticProvider{Areas: []display.Rect{primary}, Primary: primary}
	factory := newFakeFactory(autoReady)
	bridge := &fakeBridge{}

	manager := NewManager(ManagerConfig{
		Store:       store,
		Resolver:    display.NewResolver(provider, store),
		Factory:     factory,
		Bridge:      bridge,
		Theme:       theming.Static{Theme: theming.Theme{Background: "#17242d", Dark: true}},
		Platform:    fakePlatform{},
		PlatformID:  "twitch",
		SettleDelay: settle,
	})
	return &fixture{store: store, factory: factory, bridge: bridge, manager: manager}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v", timeout)
}

// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: overlay/manager.go
// Summary: Creates, places, and destroys the source/preview window pairs.

package overlay

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/platform"
	"github.com/neferent/streamlabs-obs/state"
	"github.com/neferent/streamlabs-obs/theming"
)

// DefaultSettleDelay is how long the manager waits after every source window
// reports its first content load before registering any surface. Animated
// content needs the drain so the compositor never sees a blank first frame.
const DefaultSettleDelay = 5 * time.Second

// ManagerConfig wires the pair manager's collaborators.
type ManagerConfig struct {
	Store    *state.Store
	Resolver *display.Resolver
	Factory  WindowFactory
	Bridge   Bridge
	Theme    theming.Provider
	Platform platform.Resolver
	// PlatformID selects which streaming platform's chat is loaded.
	PlatformID string
	// SettleDelay overrides DefaultSettleDelay when > 0.
	SettleDelay time.Duration
}

type pair struct {
	key     state.WindowKey
	source  SourceWindow
	preview PreviewWindow
}

// Manager owns one source/preview window pair per key and keeps their bounds,
// content, and visibility synchronized.
type Manager struct {
	store       *state.Store
	resolver    *display.Resolver
	factory     WindowFactory
	bridge      Bridge
	theme       theming.Provider
	platform    platform.Resolver
	platformID  string
	settleDelay time.Duration

	// mu guards pairs: the readiness pipeline iterates it from its own
	// goroutine while teardown deletes from it.
	mu    sync.Mutex
	pairs map[state.WindowKey]*pair
}

func NewManager(cfg ManagerConfig) *Manager {
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Manager{
		store:       cfg.Store,
		resolver:    cfg.Resolver,
		factory:     cfg.Factory,
		bridge:      cfg.Bridge,
		theme:       cfg.Theme,
		platform:    cfg.Platform,
		platformID:  cfg.PlatformID,
		settleDelay: settle,
		pairs:       make(map[state.WindowKey]*pair),
	}
}

// CreateWindows builds the source and preview window for every key. Source
// windows take their background from the active theme and stay hidden until
// the compositor shows their surfaces.
func (m *Manager) CreateWindows() error {
	theme := m.theme.Current()
	for _, key := range state.WindowKeys() {
		w, h := display.SizeFor(key)
		source, err := m.factory.NewSourceWindow(SourceOptions{
			Key:        key,
			Width:      w,
			Height:     h,
			Background: theme.Background,
		})
		if err != nil {
			return fmt.Errorf("overlay: create source window %s: %w", key, err)
		}
		preview, err := m.factory.NewPreviewWindow(PreviewOptions{Key: key, Width: w, Height: h})
		if err != nil {
			_ = source.Close()
			return fmt.Errorf("overlay: create preview window %s: %w", key, err)
		}
		m.mu.Lock()
		m.pairs[key] = &pair{key: key, source: source, preview: preview}
		m.mu.Unlock()
	}
	return nil
}

func (m *Manager) pairFor(key state.WindowKey) (*pair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pairs[key]
	return p, ok
}

// PlaceAll resolves every key's position against the current display
// topology, applies identical bounds to both windows of each pair, and loads
// the source windows' content. Chat URL lookups may touch the network and
// run concurrently.
func (m *Manager) PlaceAll(ctx context.Context) error {
	saved := m.store.Get().Windows
	dark := m.theme.Current().Dark

	group, ctx := errgroup.WithContext(ctx)
	for _, key := range state.WindowKeys() {
		p, ok := m.pairFor(key)
		if !ok {
			continue
		}
		pos := m.resolver.Resolve(key, saved[key].Position)
		w, h := display.SizeFor(key)
		bounds := display.Rect{X: pos.X, Y: pos.Y, Width: w, Height: h}
		if err := p.source.SetBounds(bounds); err != nil {
			return fmt.Errorf("overlay: place source %s: %w", key, err)
		}
		if err := p.preview.SetBounds(bounds); err != nil {
			return fmt.Errorf("overlay: place preview %s: %w", key, err)
		}

		group.Go(func() error {
			url, err := m.contentURL(ctx, key, dark)
			if err != nil {
				return fmt.Errorf("overlay: content url %s: %w", key, err)
			}
			return p.source.LoadURL(url)
		})
	}
	return group.Wait()
}

func (m *Manager) contentURL(ctx context.Context, key state.WindowKey, dark bool) (string, error) {
	if key == state.WindowRecentEvents {
		return m.platform.RecentEventsURL(), nil
	}
	return m.platform.ChatURL(ctx, m.platformID, dark)
}

// WaitReady blocks until every source window has signalled its first content
// load, then waits the settling delay. Registration must never run before it
// returns nil.
func (m *Manager) WaitReady(ctx context.Context) error {
	for _, key := range state.WindowKeys() {
		p, ok := m.pairFor(key)
		if !ok {
			continue
		}
		select {
		case <-p.source.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(m.settleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateWindowOverlays registers every source window with the compositor,
// stores the assigned surface ids, wires the frame pipeline, and forwards
// initial geometry and opacity. A registration refusal is fatal: the pass
// stops and no further surfaces are registered.
func (m *Manager) CreateWindowOverlays() error {
	opacity := scaleOpacity(m.store.Get().Opacity)
	for _, key := range state.WindowKeys() {
		p, ok := m.pairFor(key)
		if !ok {
			continue
		}
		surfaceID, err := m.bridge.Register(p.source.Handle())
		if err != nil {
			return fmt.Errorf("overlay: register %s: %w", key, err)
		}
		if err := m.store.SetWindowSurfaceID(key, &surfaceID); err != nil {
			return err
		}

		id := surfaceID
		p.source.SetFrameSink(func(w, h int, pixels []byte) {
			if err := m.bridge.SubmitFrame(id, w, h, pixels); err != nil {
				log.Printf("overlay: frame submit %s: %v", key, err)
			}
		})

		bounds, err := p.source.Bounds()
		if err == nil {
			if err := m.bridge.SetGeometry(id, bounds.X, bounds.Y, bounds.Width, bounds.Height); err != nil {
				log.Printf("overlay: initial geometry %s: %v", key, err)
			}
		}
		if err := m.bridge.SetOpacity(id, opacity); err != nil {
			log.Printf("overlay: initial opacity %s: %v", key, err)
		}
	}
	return nil
}

// ResetPosition clears every stored position, recomputes defaults, re-applies
// bounds to both windows of each pair, and re-communicates geometry for any
// key with a registered surface.
func (m *Manager) ResetPosition() error {
	for _, key := range state.WindowKeys() {
		if err := m.store.SetWindowPosition(key, nil); err != nil {
			return err
		}
		pos := m.resolver.Resolve(key, nil)
		w, h := display.SizeFor(key)
		bounds := display.Rect{X: pos.X, Y: pos.Y, Width: w, Height: h}

		p, ok := m.pairFor(key)
		if !ok {
			continue
		}
		if err := p.source.SetBounds(bounds); err != nil {
			return fmt.Errorf("overlay: reset source %s: %w", key, err)
		}
		if err := p.preview.SetBounds(bounds); err != nil {
			return fmt.Errorf("overlay: reset preview %s: %w", key, err)
		}

		if props := m.store.Get().Windows[key]; props.SurfaceID != nil {
			if err := m.bridge.SetGeometry(*props.SurfaceID, bounds.X, bounds.Y, bounds.Width, bounds.Height); err != nil {
				log.Printf("overlay: reset geometry %s: %v", key, err)
			}
		}
	}
	return nil
}

// ShowPreviews makes every preview window visible for drag-to-place.
func (m *Manager) ShowPreviews() {
	for _, key := range state.WindowKeys() {
		if p, ok := m.pairFor(key); ok {
			if err := p.preview.Show(); err != nil {
				log.Printf("overlay: show preview %s: %v", key, err)
			}
		}
	}
}

// HidePreviews hides every preview window.
func (m *Manager) HidePreviews() {
	for _, key := range state.WindowKeys() {
		if p, ok := m.pairFor(key); ok {
			if err := p.preview.Hide(); err != nil {
				log.Printf("overlay: hide preview %s: %v", key, err)
			}
		}
	}
}

// CommitPreviewBounds reads each preview window's current on-screen bounds,
// persists the position, re-synchronizes the source window, and forwards the
// geometry to the compositor exactly once per registered surface. This is the
// only path by which user-dragged placement becomes durable.
func (m *Manager) CommitPreviewBounds() error {
	props := m.store.Get().Windows
	for _, key := range state.WindowKeys() {
		p, ok := m.pairFor(key)
		if !ok {
			continue
		}
		bounds, err := p.preview.Bounds()
		if err != nil {
			return fmt.Errorf("overlay: read preview bounds %s: %w", key, err)
		}
		if err := m.store.SetWindowPosition(key, &state.Point{X: bounds.X, Y: bounds.Y}); err != nil {
			return err
		}
		if err := p.source.SetBounds(bounds); err != nil {
			return fmt.Errorf("overlay: sync source bounds %s: %w", key, err)
		}
		if prop := props[key]; prop.SurfaceID != nil {
			if err := m.bridge.SetGeometry(*prop.SurfaceID, bounds.X, bounds.Y, bounds.Width, bounds.Height); err != nil {
				log.Printf("overlay: commit geometry %s: %v", key, err)
			}
		}
	}
	return nil
}

// DestroyWindows tears down every pair best-effort: one window failing to
// close does not block the rest. Surface ids are cleared so the next session
// always registers fresh. Safe when some windows were never created.
func (m *Manager) DestroyWindows() {
	for _, key := range state.WindowKeys() {
		m.mu.Lock()
		p, ok := m.pairs[key]
		delete(m.pairs, key)
		m.mu.Unlock()
		if err := m.store.SetWindowSurfaceID(key, nil); err != nil {
			log.Printf("overlay: clear surface id %s: %v", key, err)
		}
		if !ok {
			continue
		}
		if p.source != nil {
			if err := p.source.Close(); err != nil {
				log.Printf("overlay: destroy source %s: %v", key, err)
			}
		}
		if p.preview != nil {
			if err := p.preview.Close(); err != nil {
				log.Printf("overlay: destroy preview %s: %v", key, err)
			}
		}
	}
}

// PairCount reports how many window pairs currently exist.
func (m *Manager) PairCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pairs)
}

// scaleOpacity maps the persisted 0-100 percentage onto the compositor's
// 0-255 alpha range.
func scaleOpacity(percent int) uint8 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return uint8(math.Round(float64(percent) * 2.55))
}

// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: overlay/controller.go
// Summary: Session-gated lifecycle state machine for the overlay subsystem.

package overlay

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/neferent/streamlabs-obs/compositor"
	"github.com/neferent/streamlabs-obs/session"
	"github.com/neferent/streamlabs-obs/state"
)

// ErrAlreadyRunning reports an InitializeOverlay call while the subsystem is
// already running. That is a programming error, not a recoverable condition.
var ErrAlreadyRunning = errors.New("overlay: subsystem already initialized")

// Controller drives the subsystem lifecycle: it binds init/destroy to the
// session bus and exposes enable/disable, preview mode, show/hide, and
// opacity as idempotent state transitions.
type Controller struct {
	store   *state.Store
	bridge  Bridge
	manager *Manager
	bus     *session.Bus

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewController(store *state.Store, bridge Bridge, manager *Manager, bus *session.Bus) *Controller {
	return &Controller{store: store, bridge: bridge, manager: manager, bus: bus}
}

// Initialize binds the controller to the session lifecycle so session-start
// triggers InitializeOverlay and session-end triggers DestroyOverlay. A no-op
// while the subsystem is disabled.
func (c *Controller) Initialize() {
	if !c.store.Get().IsEnabled {
		return
	}
	c.bus.Subscribe(c)
}

// OnLogin implements session.Listener.
func (c *Controller) OnLogin() {
	if err := c.InitializeOverlay(); err != nil {
		// Fatal initialization failure leaves the subsystem disabled rather
		// than half-initialized.
		log.Printf("overlay: initialization failed: %v", err)
		c.DestroyOverlay()
		if err := c.store.SetEnabled(false); err != nil {
			log.Printf("overlay: persist disabled flag: %v", err)
		}
	}
}

// OnLogout implements session.Listener.
func (c *Controller) OnLogout() {
	c.DestroyOverlay()
}

// InitializeOverlay starts the compositor connection, builds both window
// pairs, applies geometry, loads content, and wires the readiness pipeline
// so surfaces register only after every source window has loaded and the
// settling delay has elapsed.
func (c *Controller) InitializeOverlay() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}

	if err := c.bridge.Start(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.manager.CreateWindows(); err != nil {
		c.manager.DestroyWindows()
		_ = c.bridge.Stop()
		c.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	if err := c.manager.PlaceAll(ctx); err != nil {
		c.DestroyOverlay()
		return err
	}

	go c.readinessPipeline(ctx)
	return nil
}

// readinessPipeline waits for every source window plus the settling delay,
// then registers the surfaces. Cancelled on destroy so a delayed ready can
// never register a dead window.
func (c *Controller) readinessPipeline(ctx context.Context) {
	if err := c.manager.WaitReady(ctx); err != nil {
		return
	}
	select {
	case <-ctx.Done():
		return
	default:
	}

	if err := c.manager.CreateWindowOverlays(); err != nil {
		log.Printf("overlay: surface registration failed: %v", err)
		c.DestroyOverlay()
		if err := c.store.SetEnabled(false); err != nil {
			log.Printf("overlay: persist disabled flag: %v", err)
		}
		return
	}

	if c.store.Get().IsShowing {
		if err := c.bridge.Show(); err != nil {
			log.Printf("overlay: initial show: %v", err)
		}
	}
}

// DestroyOverlay stops the compositor before destroying windows so no paint
// event can race a closed handle, tears down every pair best-effort, and
// forces preview mode and showing off. Safe to call when not running.
func (c *Controller) DestroyOverlay() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if err := c.bridge.Stop(); err != nil {
		log.Printf("overlay: compositor stop: %v", err)
	}
	c.manager.DestroyWindows()

	if err := c.store.SetPreviewMode(false); err != nil {
		log.Printf("overlay: clear preview mode: %v", err)
	}
	if err := c.store.SetShowing(false); err != nil {
		log.Printf("overlay: clear showing: %v", err)
	}
}

// SetEnabled transitions enabled/disabled, invoking initialize/destroy as
// needed, then persists the flag. Starting while started and stopping while
// stopped are no-ops.
func (c *Controller) SetEnabled(enabled bool) error {
	if enabled {
		if !c.isRunning() {
			if err := c.InitializeOverlay(); err != nil {
				return err
			}
		}
		return c.store.SetEnabled(true)
	}
	if c.isRunning() {
		c.DestroyOverlay()
	}
	return c.store.SetEnabled(false)
}

// ShowOverlay makes the live overlay visible. Leaves preview mode first:
// preview and showing are mutually exclusive. Refused silently unless the
// subsystem is enabled and the compositor is running.
func (c *Controller) ShowOverlay() error {
	if !c.canToggle() {
		return nil
	}
	if c.store.Get().PreviewMode {
		if err := c.SetPreviewMode(false); err != nil {
			return err
		}
	}
	if err := c.store.SetShowing(true); err != nil {
		return err
	}
	return c.bridge.Show()
}

// HideOverlay hides the live overlay. Refused silently unless the subsystem
// is enabled and the compositor is running.
func (c *Controller) HideOverlay() error {
	if !c.canToggle() {
		return nil
	}
	if err := c.store.SetShowing(false); err != nil {
		return err
	}
	return c.bridge.Hide()
}

// ToggleOverlay flips visibility. A no-op when the compositor is not running
// or the subsystem is disabled; those are normal UI races, not errors.
func (c *Controller) ToggleOverlay() error {
	if !c.canToggle() {
		return nil
	}
	if c.store.Get().IsShowing {
		return c.HideOverlay()
	}
	return c.ShowOverlay()
}

// SetPreviewMode enters or leaves drag-to-place mode. Entering hides the live
// overlay and shows every preview window. Leaving persists each preview
// window's dragged bounds, forwards them to the compositor, and hides the
// previews; this is the only path by which user placement becomes durable.
func (c *Controller) SetPreviewMode(preview bool) error {
	if preview == c.store.Get().PreviewMode {
		return nil
	}
	if err := c.store.SetPreviewMode(preview); err != nil {
		return err
	}
	if !c.isRunning() {
		return nil
	}

	if preview {
		if err := c.bridge.Hide(); err != nil {
			log.Printf("overlay: hide for preview: %v", err)
		}
		c.manager.ShowPreviews()
		return nil
	}

	if err := c.manager.CommitPreviewBounds(); err != nil {
		return err
	}
	c.manager.HidePreviews()
	return nil
}

// SetOpacity clamps and persists the opacity percentage, then forwards the
// scaled value to every currently-registered surface. Surfaces not yet
// registered are skipped; that is not an error.
func (c *Controller) SetOpacity(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := c.store.SetOpacity(percent); err != nil {
		return err
	}
	if !c.isRunning() || !c.store.Get().IsEnabled {
		return nil
	}

	scaled := scaleOpacity(percent)
	for key, props := range c.store.Get().Windows {
		if props.SurfaceID == nil {
			continue
		}
		if err := c.bridge.SetOpacity(*props.SurfaceID, scaled); err != nil {
			log.Printf("overlay: set opacity %s: %v", key, err)
		}
	}
	return nil
}

// ResetPosition restores default placement for every window pair.
func (c *Controller) ResetPosition() error {
	return c.manager.ResetPosition()
}

// State reports the persisted record plus the live compositor status.
func (c *Controller) State() (state.OverlayState, compositor.Status) {
	return c.store.Get(), c.bridge.Status()
}

func (c *Controller) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) canToggle() bool {
	return c.bridge.Status() == compositor.StatusRunning && c.store.Get().IsEnabled
}

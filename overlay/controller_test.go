// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: overlay/controller_test.go
// Summary: Exercises the lifecycle state machine and its invariants.

package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/neferent/streamlabs-obs/session"
	"github.com/neferent/streamlabs-obs/state"
)

func newController(t *testing.T, autoReady bool, settle time.Duration) (*Controller, *fixture) {
	t.Helper()
	f := newFixture(t, autoReady, settle)
	c := NewController(f.store, f.bridge, f.manager, session.NewBus())
	return c, f
}

func TestSetEnabledInitializesOnce(t *testing.T) {
	c, f := newController(t, false, 20*time.Millisecond)

	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("repeat enable failed: %v", err)
	}

	f.bridge.mu.Lock()
	starts := f.bridge.starts
	f.bridge.mu.Unlock()
	if starts != 1 {
		t.Fatalf("expected exactly one compositor start, got %d", starts)
	}
	if f.manager.PairCount() != 2 {
		t.Fatalf("expected two window pairs, got %d", f.manager.PairCount())
	}
	if !f.store.Get().IsEnabled {
		t.Fatalf("enabled flag not persisted")
	}

	// No registration until every source window is ready and the settling
	// delay has elapsed.
	if got := f.bridge.registerCount(); got != 0 {
		t.Fatalf("registered %d surfaces before readiness", got)
	}
	for _, key := range state.WindowKeys() {
		f.factory.source(key).markReady()
	}
	waitUntil(t, 2*time.Second, func() bool {
		return f.bridge.registerCount() == len(state.WindowKeys())
	})
}

func TestInitializeOverlayWhileRunningIsError(t *testing.T) {
	c, _ := newController(t, true, 10*time.Millisecond)

	if err := c.InitializeOverlay(); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := c.InitializeOverlay(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestToggleNoopWhenCompositorStopped(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := f.store.SetEnabled(true); err != nil {
		t.Fatalf("seed enabled: %v", err)
	}

	// Compositor never started: toggle must leave state untouched.
	if err := c.ToggleOverlay(); err != nil {
		t.Fatalf("toggle returned error: %v", err)
	}
	got := f.store.Get()
	if got.IsShowing {
		t.Fatalf("toggle changed state while compositor stopped")
	}
	f.bridge.mu.Lock()
	shows, hides := f.bridge.shows, f.bridge.hides
	f.bridge.mu.Unlock()
	if shows != 0 || hides != 0 {
		t.Fatalf("bridge touched while stopped: shows=%d hides=%d", shows, hides)
	}
}

func TestToggleNoopWhenDisabled(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := f.bridge.Start(); err != nil {
		t.Fatalf("bridge start: %v", err)
	}

	if err := c.ToggleOverlay(); err != nil {
		t.Fatalf("toggle returned error: %v", err)
	}
	if f.store.Get().IsShowing {
		t.Fatalf("toggle changed state while disabled")
	}
}

func TestToggleFlipsVisibility(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	if err := c.ToggleOverlay(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !f.store.Get().IsShowing {
		t.Fatalf("expected showing after first toggle")
	}
	if err := c.ToggleOverlay(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if f.store.Get().IsShowing {
		t.Fatalf("expected hidden after second toggle")
	}
}

func TestPreviewModeMutualExclusion(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := c.ShowOverlay(); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !f.store.Get().IsShowing {
		t.Fatalf("overlay not showing")
	}

	if err := c.SetPreviewMode(true); err != nil {
		t.Fatalf("enter preview failed: %v", err)
	}
	got := f.store.Get()
	if !got.PreviewMode {
		t.Fatalf("preview mode not entered")
	}
	if got.IsShowing {
		t.Fatalf("previewMode and isShowing must never both be true")
	}
	for _, key := range state.WindowKeys() {
		if !f.factory.preview(key).visible {
			t.Fatalf("%s: preview window not shown", key)
		}
	}
}

func TestLeavePreviewPersistsAndForwardsOnce(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	// The initial opacity call is the last step of each registration, so this
	// also guarantees the initial geometry calls have landed.
	waitUntil(t, 2*time.Second, func() bool {
		return len(f.bridge.opacityCalls()) == len(state.WindowKeys())
	})

	if err := c.SetPreviewMode(true); err != nil {
		t.Fatalf("enter preview failed: %v", err)
	}
	f.factory.preview(state.WindowChat).drag(640, 360)
	f.factory.preview(state.WindowRecentEvents).drag(100, 100)
	before := len(f.bridge.geometryCalls())

	if err := c.SetPreviewMode(false); err != nil {
		t.Fatalf("leave preview failed: %v", err)
	}

	chatPos := f.store.Get().Windows[state.WindowChat].Position
	if chatPos == nil || chatPos.X != 640 || chatPos.Y != 360 {
		t.Fatalf("dragged chat position not persisted: %+v", chatPos)
	}
	after := len(f.bridge.geometryCalls())
	if after-before != len(state.WindowKeys()) {
		t.Fatalf("expected exactly one geometry call per window, got %d", after-before)
	}
	for _, key := range state.WindowKeys() {
		if f.factory.preview(key).visible {
			t.Fatalf("%s: preview window still visible", key)
		}
	}
}

func TestSetOpacityScalesForRegisteredSurfaces(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	waitUntil(t, 2*time.Second, func() bool {
		return len(f.bridge.opacityCalls()) == len(state.WindowKeys())
	})
	before := len(f.bridge.opacityCalls())

	if err := c.SetOpacity(50); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}

	if got := f.store.Get().Opacity; got != 50 {
		t.Fatalf("opacity not persisted: %d", got)
	}
	calls := f.bridge.opacityCalls()[before:]
	if len(calls) != len(state.WindowKeys()) {
		t.Fatalf("expected one opacity call per surface, got %d", len(calls))
	}
	for _, call := range calls {
		if call.opacity != 127 && call.opacity != 128 {
			t.Fatalf("expected scaled opacity 127 or 128, got %d", call.opacity)
		}
	}
}

func TestSetOpacitySkipsUnregisteredSurfaces(t *testing.T) {
	c, f := newController(t, false, time.Hour) // windows never become ready
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	if err := c.SetOpacity(30); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}
	if got := f.store.Get().Opacity; got != 30 {
		t.Fatalf("opacity not persisted: %d", got)
	}
	if len(f.bridge.opacityCalls()) != 0 {
		t.Fatalf("opacity forwarded to unregistered surfaces")
	}
}

func TestSetOpacityClampsDefensively(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)

	if err := c.SetOpacity(130); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}
	if got := f.store.Get().Opacity; got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
}

func TestRegistrationFailureDisablesSubsystem(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	f.bridge.rejectAll = true

	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	waitUntil(t, 2*time.Second, func() bool {
		return !f.store.Get().IsEnabled
	})
	waitUntil(t, 2*time.Second, func() bool {
		return f.manager.PairCount() == 0
	})
}

func TestDestroyForcesFlagsOff(t *testing.T) {
	c, f := newController(t, true, 10*time.Millisecond)
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := c.ShowOverlay(); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	c.DestroyOverlay()

	got := f.store.Get()
	if got.PreviewMode || got.IsShowing {
		t.Fatalf("flags not forced off: %+v", got)
	}
	if f.manager.PairCount() != 0 {
		t.Fatalf("windows not destroyed")
	}
	f.bridge.mu.Lock()
	stops := f.bridge.stops
	f.bridge.mu.Unlock()
	if stops == 0 {
		t.Fatalf("compositor not stopped")
	}
}

func TestSessionBusDrivesLifecycle(t *testing.T) {
	f := newFixture(t, true, 10*time.Millisecond)
	bus := session.NewBus()
	c := NewController(f.store, f.bridge, f.manager, bus)
	if err := f.store.SetEnabled(true); err != nil {
		t.Fatalf("seed enabled: %v", err)
	}

	c.Initialize()
	bus.Login()
	if f.manager.PairCount() != 2 {
		t.Fatalf("login did not build window pairs")
	}

	bus.Logout()
	if f.manager.PairCount() != 0 {
		t.Fatalf("logout did not destroy window pairs")
	}
}

func TestInitializeIsNoopWhileDisabled(t *testing.T) {
	f := newFixture(t, true, 10*time.Millisecond)
	bus := session.NewBus()
	c := NewController(f.store, f.bridge, f.manager, bus)

	c.Initialize()
	bus.Login()
	if f.manager.PairCount() != 0 {
		t.Fatalf("disabled subsystem reacted to login")
	}
}

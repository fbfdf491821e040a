package state

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "overlay.db"), "gameOverlay")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaults(t *testing.T) {
	s := openStore(t)

	got := s.Get()
	if got.IsEnabled || got.IsShowing || got.PreviewMode || got.IsPreviewEnabled {
		t.Fatalf("expected all flags off, got %+v", got)
	}
	if got.Opacity != 100 {
		t.Fatalf("expected default opacity 100, got %d", got.Opacity)
	}
	for _, key := range WindowKeys() {
		props, ok := got.Windows[key]
		if !ok {
			t.Fatalf("missing window row for %s", key)
		}
		if props.Position != nil || props.SurfaceID != nil {
			t.Fatalf("expected empty properties for %s, got %+v", key, props)
		}
	}
}

func TestMutationsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.db")

	s, err := Open(path, "gameOverlay")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.SetEnabled(true); err != nil {
		t.Fatalf("set enabled failed: %v", err)
	}
	if err := s.SetOpacity(40); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}
	if err := s.SetWindowPosition(WindowChat, &Point{X: 120, Y: 240}); err != nil {
		t.Fatalf("set position failed: %v", err)
	}
	id := int64(7)
	if err := s.SetWindowSurfaceID(WindowChat, &id); err != nil {
		t.Fatalf("set surface id failed: %v", err)
	}
	s.Close()

	s, err = Open(path, "gameOverlay")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got := s.Get()
	if !got.IsEnabled {
		t.Fatalf("enabled flag lost across reopen")
	}
	if got.Opacity != 40 {
		t.Fatalf("opacity lost: %d", got.Opacity)
	}
	chat := got.Windows[WindowChat]
	if chat.Position == nil || chat.Position.X != 120 || chat.Position.Y != 240 {
		t.Fatalf("position lost: %+v", chat.Position)
	}
	if chat.SurfaceID == nil || *chat.SurfaceID != 7 {
		t.Fatalf("surface id lost: %+v", chat.SurfaceID)
	}
}

func TestSetOpacityClamps(t *testing.T) {
	s := openStore(t)

	if err := s.SetOpacity(250); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}
	if got := s.Get().Opacity; got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if err := s.SetOpacity(-5); err != nil {
		t.Fatalf("set opacity failed: %v", err)
	}
	if got := s.Get().Opacity; got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestPreviewModeClearsShowing(t *testing.T) {
	s := openStore(t)

	if err := s.SetShowing(true); err != nil {
		t.Fatalf("set showing failed: %v", err)
	}
	if err := s.SetPreviewMode(true); err != nil {
		t.Fatalf("set preview failed: %v", err)
	}

	got := s.Get()
	if !got.PreviewMode {
		t.Fatalf("preview mode not set")
	}
	if got.IsShowing {
		t.Fatalf("showing and preview mode must be mutually exclusive")
	}
}

func TestToggleShowing(t *testing.T) {
	s := openStore(t)

	if err := s.ToggleShowing(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !s.Get().IsShowing {
		t.Fatalf("expected showing after first toggle")
	}
	if err := s.ToggleShowing(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if s.Get().IsShowing {
		t.Fatalf("expected hidden after second toggle")
	}
}

func TestClearWindowPosition(t *testing.T) {
	s := openStore(t)

	if err := s.SetWindowPosition(WindowRecentEvents, &Point{X: 5, Y: 6}); err != nil {
		t.Fatalf("set position failed: %v", err)
	}
	if err := s.SetWindowPosition(WindowRecentEvents, nil); err != nil {
		t.Fatalf("clear position failed: %v", err)
	}
	if props := s.Get().Windows[WindowRecentEvents]; props.Position != nil {
		t.Fatalf("expected cleared position, got %+v", props.Position)
	}
}

// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: overlay/window.go
// Summary: Window abstractions for the source/preview pair manager.

package overlay

import (
	"github.com/neferent/streamlabs-obs/compositor"
	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/state"
)

// FrameSink receives one painted bitmap: tightly packed RGBA, width*height*4
// bytes. The sink must not retain the pixel slice.
type FrameSink func(width, height int, pixels []byte)

// Window is the common surface of both halves of a pair.
type Window interface {
	SetBounds(display.Rect) error
	Bounds() (display.Rect, error)
	Show() error
	Hide() error
	Close() error
}

// SourceWindow is the hidden, off-screen-rendered window whose painted frames
// are streamed to the compositor.
type SourceWindow interface {
	Window
	// LoadURL starts loading the content URL. The Ready channel closes once
	// the first load completes.
	LoadURL(url string) error
	// Ready returns a channel closed exactly once, on first content load.
	Ready() <-chan struct{}
	// Handle returns the native window handle registered with the compositor.
	Handle() uint64
	// SetFrameSink installs the receiver for painted frames. Frames are
	// throttled at the source to bound compositor load.
	SetFrameSink(sink FrameSink)
}

// PreviewWindow is the visible, on-screen placeholder used only to let the
// user position an overlay by dragging.
type PreviewWindow interface {
	Window
}

// SourceOptions configures a new source window.
type SourceOptions struct {
	Key        state.WindowKey
	Width      int
	Height     int
	Background string
}

// PreviewOptions configures a new preview window.
type PreviewOptions struct {
	Key    state.WindowKey
	Width  int
	Height int
}

// WindowFactory creates the native windows of a pair.
type WindowFactory interface {
	NewSourceWindow(opts SourceOptions) (SourceWindow, error)
	NewPreviewWindow(opts PreviewOptions) (PreviewWindow, error)
}

// Bridge is the compositor-facing surface the overlay subsystem uses. The
// concrete implementation lives in the compositor package; tests substitute
// fakes.
type Bridge interface {
	Start() error
	Stop() error
	Register(handle uint64) (int64, error)
	SetGeometry(surfaceID int64, x, y, w, h int) error
	SetOpacity(surfaceID int64, opacity uint8) error
	SubmitFrame(surfaceID int64, w, h int, pixels []byte) error
	Show() error
	Hide() error
	Status() compositor.Status
}
